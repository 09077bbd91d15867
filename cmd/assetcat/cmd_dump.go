package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/robert-malhotra/go-assetcatalog/car"
)

var cmdDump = &cobra.Command{
	Use:   "dump [flags] FILE",
	Short: "Print the raw structure of a catalog",
	Long: `
The "dump" command prints the schema records, facets and renditions of a
catalog in a plain text form useful when debugging malformed files.
`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDump(args[0])
	},
}

func init() {
	cmdRoot.AddCommand(cmdDump)
}

func runDump(path string) error {
	c, err := car.Open(path)
	if err != nil {
		return err
	}

	fmt.Printf("coreui version:  %d\n", c.CoreUIVersion)
	fmt.Printf("storage version: %d\n", c.StorageVersion)
	fmt.Printf("schema version:  %d\n", c.SchemaVersion)
	fmt.Printf("timestamp:       %d\n", c.Timestamp)
	fmt.Printf("uuid:            %x\n", c.UUID)
	fmt.Printf("renditions:      %d declared, %d parsed\n", c.RenditionCount, len(c.Renditions))
	if c.Metadata != nil {
		fmt.Printf("platform:        %s %s\n", c.Metadata.DeploymentPlatform, c.Metadata.DeploymentPlatformVersion)
		fmt.Printf("authoring tool:  %s\n", c.Metadata.AuthoringTool)
	}

	fmt.Println("\nkey format:")
	for _, name := range c.KeyFormat() {
		fmt.Printf("  %s\n", name)
	}

	if len(c.Appearances) > 0 {
		fmt.Println("\nappearances:")
		for name, id := range c.Appearances {
			fmt.Printf("  %d  %s\n", id, name)
		}
	}

	fmt.Println("\nfacets:")
	for _, f := range c.Facets {
		id, _ := f.Identifier()
		fmt.Printf("  %5d  %s\n", id, f.Name)
	}

	fmt.Println("\nrenditions:")
	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "  key\tfacet\tname\tlayout\tformat\tsize\tscale\tbytes")
	for i := range c.Renditions {
		r := &c.Renditions[i]
		fmt.Fprintf(w, "  %s\t%s\t%s\t%s\t%s\t%dx%d\t%d\t%d\n",
			r.KeyHex(), r.FacetName, r.Name, r.Layout(), r.PixelFormat(),
			r.Width, r.Height, r.Scale, r.SizeOnDisk)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if len(c.Warnings) > 0 {
		fmt.Println("\nwarnings:")
		for _, warning := range c.Warnings {
			fmt.Printf("  %s\n", warning.Error())
		}
	}
	return nil
}
