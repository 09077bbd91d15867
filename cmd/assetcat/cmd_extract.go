package main

import (
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/robert-malhotra/go-assetcatalog/car"
)

var cmdExtract = &cobra.Command{
	Use:   "extract [flags] FILE",
	Short: "Extract raster assets as PNG files",
	Long: `
The "extract" command decodes every raster rendition of a catalog and writes
each one as a PNG file into the output directory. Renditions that hold no
raster data, or use a compression scheme the decoder does not support, are
skipped with a log message.
`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runExtract(args[0], extractOptions.Output, extractOptions.Jobs)
	},
}

// ExtractOptions bundles all options for the extract command.
type ExtractOptions struct {
	Output string
	Jobs   int
}

var extractOptions ExtractOptions

func init() {
	cmdRoot.AddCommand(cmdExtract)

	f := cmdExtract.Flags()
	f.StringVarP(&extractOptions.Output, "output", "o", ".", "output directory")
	f.IntVar(&extractOptions.Jobs, "jobs", runtime.NumCPU(), "decode `n` renditions concurrently")
}

func runExtract(path, outDir string, jobs int) error {
	c, err := car.Open(path)
	if err != nil {
		return err
	}
	logWarnings(c)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return errors.Wrap(err, "create output directory")
	}

	var wg errgroup.Group
	wg.SetLimit(jobs)
	for i := range c.Renditions {
		r := &c.Renditions[i]
		wg.Go(func() error {
			img, err := r.Decode()
			switch {
			case errors.Is(err, car.ErrNotRaster):
				return nil
			case err != nil:
				log.WithField("rendition", r.Name).WithError(err).Warn("skipping rendition")
				return nil
			}
			return writePNG(outDir, r, img)
		})
	}
	return wg.Wait()
}

func writePNG(outDir string, r *car.Rendition, img *car.Image) error {
	f, err := os.Create(filepath.Join(outDir, outputName(r)))
	if err != nil {
		return errors.Wrap(err, "create output file")
	}
	if err := png.Encode(f, img.GoImage()); err != nil {
		f.Close()
		return errors.Wrapf(err, "encode %s", r.Name)
	}
	return f.Close()
}

// outputName picks a unique, filesystem-safe name for a decoded rendition.
func outputName(r *car.Rendition) string {
	name := r.Name
	if name == "" {
		name = r.KeyHex()
	}
	name = strings.Map(func(c rune) rune {
		if c == '/' || c == ':' {
			return '_'
		}
		return c
	}, name)
	if !strings.HasSuffix(strings.ToLower(name), ".png") {
		name += ".png"
	}
	prefix := r.KeyHex()
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	return fmt.Sprintf("%s-%s", prefix, name)
}
