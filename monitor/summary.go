package monitor

// Summary condenses a Result into the figures reported per trial.
type Summary struct {
	// Last is the final snapshot, or the last sampled one when the target
	// could not be inspected after the operation. Nil when neither exists.
	Last          *Snapshot
	CPUPercentAvg float64
	RSSPeak       uint64
	Samples       int
}

func (r *Result) Summary() Summary {
	s := Summary{Samples: len(r.Series)}
	total := 0.0
	for i := range r.Series {
		total += r.Series[i].CPUPercent
		if r.Series[i].RSS > s.RSSPeak {
			s.RSSPeak = r.Series[i].RSS
		}
	}
	if len(r.Series) > 0 {
		s.CPUPercentAvg = total / float64(len(r.Series))
		last := r.Series[len(r.Series)-1]
		s.Last = &last
	}
	if r.Final != nil {
		final := *r.Final
		s.Last = &final
		if final.RSS > s.RSSPeak {
			s.RSSPeak = final.RSS
		}
	}
	return s
}
