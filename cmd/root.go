package cmd

import (
	"fmt"
	"os"

	"emperror.dev/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/JustFiesta/DB-engine-comparison/environ"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "dbbench",
	Short: "Benchmark relational and document databases on the same queries",
	Long: `dbbench runs the same logical queries against MariaDB, MongoDB and embedded SQL engines,
samples the resource usage of the database process while each query runs and appends one
CSV row per trial.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logLvl, err := log.ParseLevel(logLevel)
		if err != nil {
			return errors.Wrap(err, "invalid log level")
		}
		log.SetLevel(logLvl)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel,
		"log-level",
		environ.GetString("LOG_LEVEL", "info"),
		"Log level. One of debug, info, warn, error, fatal, panic.",
	)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
