package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cleanFlags configFlags

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove the databases of the embedded engines",
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := cleanFlags.load(cmd.Flags())
		if err != nil {
			return err
		}
		for _, engine := range embeddedEngines {
			if err := config.RemoveDatabase(string(engine)); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "The database is deleted: %s\n", config.DatabasePath(string(engine)))
		}
		return nil
	},
}

func init() {
	cleanFlags.register(cleanCmd.Flags())
	rootCmd.AddCommand(cleanCmd)
}
