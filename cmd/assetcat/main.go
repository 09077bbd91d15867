package main

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/robert-malhotra/go-assetcatalog/car"
)

var version = "0.1.0"

// cmdRoot is the base command when no other command has been specified.
var cmdRoot = &cobra.Command{
	Use:   "assetcat",
	Short: "Inspect compiled asset catalogs",
	Long: `
assetcat reads compiled asset catalog files (Assets.car) and lists, dumps or
extracts the assets stored inside them.
`,
	SilenceErrors:     true,
	SilenceUsage:      true,
	DisableAutoGenTag: true,

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
		os.Exit(0)
	},
}

var rootOptions struct {
	Verbose bool
}

func init() {
	cmdRoot.Version = version
	cmdRoot.PersistentFlags().BoolVarP(&rootOptions.Verbose, "verbose", "v", false, "log skipped catalog entries")

	cobra.OnInitialize(func() {
		if rootOptions.Verbose {
			log.SetLevel(log.DebugLevel)
		} else {
			log.SetLevel(log.ErrorLevel)
		}
	})
}

// logWarnings reports catalog entries the parser skipped as malformed.
func logWarnings(c *car.Catalog) {
	for _, w := range c.Warnings {
		log.WithFields(log.Fields{"entity": w.Entity, "name": w.Name}).WithError(w.Err).
			Warn("skipping malformed catalog entry")
	}
}

func main() {
	if err := cmdRoot.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
