package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JustFiesta/DB-engine-comparison/export"
)

var exportCmd = &cobra.Command{
	Use:   "export <csv-file> [xlsx-file]",
	Short: "Convert a result CSV file into an xlsx workbook",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		src := args[0]
		dst := strings.TrimSuffix(src, filepath.Ext(src)) + ".xlsx"
		if len(args) == 2 {
			dst = args[1]
		}
		rows, err := export.CSVToXLSX(src, dst)
		if err != nil {
			return err
		}
		fmt.Printf("Wrote %d rows to %s\n", rows, dst)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
}
