package cmd

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ConserveLee/huntbot/internal/capture"
)

func newCropCmd(app *app) *cobra.Command {
	var (
		fromFile   string
		x, y, w, h int
	)

	cmd := &cobra.Command{
		Use:   "crop <out.png>",
		Short: "Cut a template PNG from a screenshot or live capture",
		Long:  "Cuts the given rectangle out of a screenshot (--from) or a fresh capture of the configured display and writes it as a PNG. Point the output under the template root to make it a detection template.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if w <= 0 || h <= 0 {
				return fmt.Errorf("crop rectangle must have positive size, got %dx%d", w, h)
			}

			src, err := cropSource(app, fromFile)
			if err != nil {
				return err
			}

			rect := image.Rect(x, y, x+w, y+h).Intersect(src.Rect)
			if rect.Empty() {
				return fmt.Errorf("rectangle (%d,%d) %dx%d lies outside the %s source", x, y, w, h, src.Rect)
			}

			outPath := args[0]
			if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
				return fmt.Errorf("create output directory: %w", err)
			}
			f, err := os.Create(outPath)
			if err != nil {
				return err
			}
			defer f.Close()

			if err := png.Encode(f, src.SubImage(rect)); err != nil {
				return fmt.Errorf("encode %s: %w", outPath, err)
			}

			app.log.Info("template written", "path", outPath, "rect", rect.String())
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%dx%d)\n", outPath, rect.Dx(), rect.Dy())
			return nil
		},
	}

	cmd.Flags().StringVar(&fromFile, "from", "", "Source screenshot (default: live capture of the configured display)")
	cmd.Flags().IntVar(&x, "x", 0, "Left edge of the crop")
	cmd.Flags().IntVar(&y, "y", 0, "Top edge of the crop")
	cmd.Flags().IntVar(&w, "w", 0, "Crop width")
	cmd.Flags().IntVar(&h, "h", 0, "Crop height")

	return cmd
}

func cropSource(app *app, fromFile string) (*image.RGBA, error) {
	if fromFile != "" {
		return loadPNG(fromFile)
	}

	region := capture.DisplayBounds(app.settings.Display)
	backend, err := openBackend(app.settings, region)
	if err != nil {
		return nil, err
	}
	defer backend.Close()
	return backend.Read()
}
