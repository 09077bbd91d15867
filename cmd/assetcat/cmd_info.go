package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/robert-malhotra/go-assetcatalog/car"
	"github.com/robert-malhotra/go-assetcatalog/car/carjson"
)

var cmdInfo = &cobra.Command{
	Use:   "info [flags] FILE",
	Short: "Print a JSON listing of a catalog",
	Long: `
The "info" command parses a catalog and prints its header and one entry per
rendition as JSON, in the same shape assetutil produces.
`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInfo(args[0])
	},
}

func init() {
	cmdRoot.AddCommand(cmdInfo)
}

func runInfo(path string) error {
	c, err := car.Open(path)
	if err != nil {
		return err
	}
	logWarnings(c)
	out, err := carjson.Dump(c)
	if err != nil {
		return err
	}
	out = append(out, '\n')
	_, err = os.Stdout.Write(out)
	return err
}
