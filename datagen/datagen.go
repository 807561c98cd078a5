// Package datagen generates the Doctors_Appointments dataset as CSV files.
package datagen

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"emperror.dev/errors"
	"github.com/brianvoe/gofakeit/v7"
)

const dateLayout = "2006-01-02"

// Reference anchors generated dates so that a seed always yields the same data.
var Reference = time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)

var (
	domains         = []string{"example.com", "hospital.com", "medclinic.org", "healthcare.net"}
	specializations = []string{"Cardiology", "Neurology", "Orthopedics", "Pediatrics", "Dermatology"}
	diagnoses       = []string{
		"Hypertension", "Type 2 diabetes", "Common cold", "Pneumonia",
		"Asthma", "Migraine", "Urinary tract infection", "Depression", "Rheumatoid arthritis",
		"Sleep disorder", "Heart failure", "Alzheimer's disease", "Bronchitis",
	}
	treatments = []string{
		"Pharmacotherapy", "Physiotherapy", "Psychological consultation",
		"Surgery", "Antibiotics", "Anti-inflammatory drugs", "Breathing exercises",
		"Low-sodium diet", "Painkillers", "Antihistamines",
	}
)

type Doctor struct {
	ID             int
	FirstName      string
	LastName       string
	Email          string
	Specialization string
}

type Patient struct {
	ID          int
	FirstName   string
	LastName    string
	Birthdate   time.Time
	PhoneNumber string
}

type Appointment struct {
	ID        int
	DoctorID  int
	PatientID int
	Date      time.Time
	Diagnosis string
	Treatment string
}

type Data struct {
	Doctors      []Doctor
	Patients     []Patient
	Appointments []Appointment
}

// Generate builds the dataset. Appointments reference existing doctors and
// patients only. A zero seed picks a random one.
func Generate(seed uint64, doctors, patients, appointments int) (*Data, error) {
	if doctors < 0 || patients < 0 || appointments < 0 {
		return nil, errors.Errorf("counts must not be negative: %d/%d/%d", doctors, patients, appointments)
	}
	if appointments > 0 && (doctors == 0 || patients == 0) {
		return nil, errors.New("appointments need at least one doctor and one patient")
	}

	faker := gofakeit.New(seed)
	data := &Data{
		Doctors:      make([]Doctor, 0, doctors),
		Patients:     make([]Patient, 0, patients),
		Appointments: make([]Appointment, 0, appointments),
	}

	for i := 1; i <= doctors; i++ {
		firstName := faker.FirstName()
		lastName := faker.LastName()
		data.Doctors = append(data.Doctors, Doctor{
			ID:             i,
			FirstName:      firstName,
			LastName:       lastName,
			Email:          fmt.Sprintf("%s.%s@%s", strings.ToLower(firstName), strings.ToLower(lastName), faker.RandomString(domains)),
			Specialization: faker.RandomString(specializations),
		})
	}

	oldest := Reference.AddDate(-90, 0, 0)
	for i := 1; i <= patients; i++ {
		data.Patients = append(data.Patients, Patient{
			ID:          i,
			FirstName:   faker.FirstName(),
			LastName:    faker.LastName(),
			Birthdate:   faker.DateRange(oldest, Reference).UTC().Truncate(24 * time.Hour),
			PhoneNumber: faker.Phone(),
		})
	}

	yearStart := time.Date(Reference.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	yearEnd := yearStart.AddDate(1, 0, 0).Add(-time.Second)
	for i := 1; i <= appointments; i++ {
		data.Appointments = append(data.Appointments, Appointment{
			ID:        i,
			DoctorID:  faker.IntRange(1, doctors),
			PatientID: faker.IntRange(1, patients),
			Date:      faker.DateRange(yearStart, yearEnd).UTC().Truncate(24 * time.Hour),
			Diagnosis: faker.RandomString(diagnoses),
			Treatment: faker.RandomString(treatments),
		})
	}
	return data, nil
}

// WriteCSV writes doctors.csv, patients.csv and appointments.csv into dir.
func (d *Data) WriteCSV(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(err, "failed to create directory %s", dir)
	}

	doctors := [][]string{{"doctor_id", "first_name", "last_name", "email", "specialization"}}
	for _, r := range d.Doctors {
		doctors = append(doctors, []string{strconv.Itoa(r.ID), r.FirstName, r.LastName, r.Email, r.Specialization})
	}
	patients := [][]string{{"patient_id", "first_name", "last_name", "birthdate", "phone_number"}}
	for _, r := range d.Patients {
		patients = append(patients, []string{strconv.Itoa(r.ID), r.FirstName, r.LastName, r.Birthdate.Format(dateLayout), r.PhoneNumber})
	}
	appointments := [][]string{{"appointment_id", "doctor_id", "patient_id", "appointment_date", "diagnosis", "treatment"}}
	for _, r := range d.Appointments {
		appointments = append(appointments, []string{
			strconv.Itoa(r.ID), strconv.Itoa(r.DoctorID), strconv.Itoa(r.PatientID),
			r.Date.Format(dateLayout), r.Diagnosis, r.Treatment,
		})
	}

	for name, records := range map[string][][]string{
		"doctors.csv":      doctors,
		"patients.csv":     patients,
		"appointments.csv": appointments,
	} {
		if err := writeCSV(filepath.Join(dir, name), records); err != nil {
			return err
		}
	}
	return nil
}

func writeCSV(path string, records [][]string) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", path)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.WriteAll(records); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}
	return nil
}
