// Package export converts result files into spreadsheets.
package export

import (
	"encoding/csv"
	"os"
	"strconv"

	"emperror.dev/errors"
	"github.com/xuri/excelize/v2"
)

const SheetName = "Sheet1"

// CSVToXLSX copies every record of the CSV file src into the first sheet of a
// new workbook at dst. Numeric cells are stored as numbers.
func CSVToXLSX(src, dst string) (int, error) {
	file, err := os.Open(src)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to open %s", src)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return 0, errors.Wrapf(err, "failed to read %s", src)
	}

	workbook := excelize.NewFile()
	defer workbook.Close()

	for i, record := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return 0, errors.WithStack(err)
		}
		row := make([]interface{}, len(record))
		for j, value := range record {
			row[j] = cellValue(value, i == 0)
		}
		if err := workbook.SetSheetRow(SheetName, cell, &row); err != nil {
			return 0, errors.Wrapf(err, "failed to write row %d", i+1)
		}
	}

	if err := workbook.SaveAs(dst); err != nil {
		return 0, errors.Wrapf(err, "failed to save %s", dst)
	}
	return len(records), nil
}

func cellValue(value string, header bool) interface{} {
	if header || value == "" {
		return value
	}
	if n, err := strconv.ParseFloat(value, 64); err == nil {
		return n
	}
	return value
}
