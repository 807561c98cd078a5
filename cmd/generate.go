package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JustFiesta/DB-engine-comparison/datagen"
)

var (
	generateDir          string
	generateSeed         uint64
	generateDoctors      int
	generatePatients     int
	generateAppointments int
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate the Doctors_Appointments dataset as CSV files",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := datagen.Generate(generateSeed, generateDoctors, generatePatients, generateAppointments)
		if err != nil {
			return err
		}
		if err := data.WriteCSV(generateDir); err != nil {
			return err
		}
		fmt.Printf("Generated %d doctors, %d patients and %d appointments in %s\n",
			len(data.Doctors), len(data.Patients), len(data.Appointments), generateDir)
		return nil
	},
}

func init() {
	flags := generateCmd.Flags()
	flags.StringVarP(&generateDir, "output", "o", ".", "Directory to write the CSV files to")
	flags.Uint64Var(&generateSeed, "seed", 0, "Random seed; 0 picks a random one")
	flags.IntVar(&generateDoctors, "doctors", 100, "Number of doctors")
	flags.IntVar(&generatePatients, "patients", 1000, "Number of patients")
	flags.IntVar(&generateAppointments, "appointments", 10000, "Number of appointments")
	rootCmd.AddCommand(generateCmd)
}
