package cmd

import (
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ConserveLee/huntbot/internal/capture"
	"github.com/ConserveLee/huntbot/internal/config"
	"github.com/ConserveLee/huntbot/internal/vision"
)

func newMatchCmd(app *app) *cobra.Command {
	var profilePath string

	cmd := &cobra.Command{
		Use:   "match <screenshot.png>",
		Short: "Run detection over a saved screenshot",
		Long:  "Loads the template library and runs one detection pass over a PNG screenshot, printing every accepted match. Useful for tuning thresholds without touching the live screen.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			if profilePath == "" {
				profilePath = app.settings.ProfilePath
			}
			profile, err := config.LoadProfile(profilePath)
			if err != nil {
				return err
			}

			warn := func(entity, path string, err error) {
				fmt.Fprintf(out, "warning: %s: %s: %v\n", entity, path, err)
			}
			lib, err := vision.Load(app.settings.TemplateRoot, profile.DefaultThreshold, profile.Thresholds, warn)
			if err != nil {
				return err
			}
			if lib.Len() == 0 {
				return fmt.Errorf("no usable templates under %s", app.settings.TemplateRoot)
			}

			img, err := loadPNG(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Screenshot: %dx%d, entities: %d\n", img.Rect.Dx(), img.Rect.Dy(), lib.Len())

			frame := &capture.Frame{Pixels: img, CapturedAt: time.Now(), Seq: 1}
			det := vision.NewDetector(lib, profile.Adaptive)
			matches := det.Detect(frame)

			if len(matches) == 0 {
				fmt.Fprintln(out, "No matches.")
			}
			for i, m := range matches {
				fmt.Fprintf(out, "[%d] %-16s at (%d,%d) %dx%d conf=%.3f thr=%.3f\n",
					i, m.Entity, m.X, m.Y, m.W, m.H, m.Confidence, det.Threshold(m.Entity))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&profilePath, "profile", "", "Behavior profile (overrides settings)")

	return cmd
}

func loadPNG(path string) (*image.RGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba, nil
	}
	rgba := image.NewRGBA(img.Bounds())
	draw.Draw(rgba, rgba.Rect, img, img.Bounds().Min, draw.Src)
	return rgba, nil
}
