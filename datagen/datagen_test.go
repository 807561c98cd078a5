package datagen

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	data, err := Generate(42, 5, 20, 100)
	require.NoError(t, err)
	require.Len(t, data.Doctors, 5)
	require.Len(t, data.Patients, 20)
	require.Len(t, data.Appointments, 100)

	for i, d := range data.Doctors {
		assert.Equal(t, i+1, d.ID)
		assert.Contains(t, specializations, d.Specialization)
		assert.True(t, strings.HasPrefix(d.Email, strings.ToLower(d.FirstName)+"."), d.Email)
	}
	for _, p := range data.Patients {
		assert.False(t, p.Birthdate.After(Reference))
		assert.False(t, p.Birthdate.Before(Reference.AddDate(-90, 0, -1)))
		assert.NotEmpty(t, p.PhoneNumber)
	}
	for _, a := range data.Appointments {
		assert.GreaterOrEqual(t, a.DoctorID, 1)
		assert.LessOrEqual(t, a.DoctorID, 5)
		assert.GreaterOrEqual(t, a.PatientID, 1)
		assert.LessOrEqual(t, a.PatientID, 20)
		assert.Equal(t, Reference.Year(), a.Date.Year())
		assert.Contains(t, diagnoses, a.Diagnosis)
		assert.Contains(t, treatments, a.Treatment)
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	first, err := Generate(7, 3, 3, 10)
	require.NoError(t, err)
	second, err := Generate(7, 3, 3, 10)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestGenerate_InvalidCounts(t *testing.T) {
	_, err := Generate(1, -1, 1, 1)
	assert.Error(t, err)
	_, err = Generate(1, 0, 1, 1)
	assert.Error(t, err)

	data, err := Generate(1, 0, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, data.Appointments)
}

func TestData_WriteCSV(t *testing.T) {
	data, err := Generate(42, 2, 3, 4)
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "out")
	require.NoError(t, data.WriteCSV(dir))

	tests := []struct {
		file   string
		header []string
		rows   int
	}{
		{file: "doctors.csv", header: []string{"doctor_id", "first_name", "last_name", "email", "specialization"}, rows: 2},
		{file: "patients.csv", header: []string{"patient_id", "first_name", "last_name", "birthdate", "phone_number"}, rows: 3},
		{file: "appointments.csv", header: []string{"appointment_id", "doctor_id", "patient_id", "appointment_date", "diagnosis", "treatment"}, rows: 4},
	}
	for _, test := range tests {
		file, err := os.Open(filepath.Join(dir, test.file))
		require.NoError(t, err)
		records, err := csv.NewReader(file).ReadAll()
		file.Close()
		require.NoError(t, err, test.file)
		require.Len(t, records, test.rows+1, test.file)
		assert.Equal(t, test.header, records[0], test.file)
	}
}
