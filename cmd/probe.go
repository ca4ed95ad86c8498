package cmd

import (
	"fmt"
	"image"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/ConserveLee/huntbot/internal/capture"
)

func newProbeCmd(app *app) *cobra.Command {
	var measure time.Duration

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "List displays, check capture backends and measure fps",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()

			n := capture.NumDisplays()
			fmt.Fprintf(out, "Active displays: %d\n", n)
			for i := 0; i < n; i++ {
				b := capture.DisplayBounds(i)
				marker := " "
				if i == app.settings.Display {
					marker = "*"
				}
				fmt.Fprintf(out, "%s display %d: %dx%d at (%d,%d)\n", marker, i, b.Dx(), b.Dy(), b.Min.X, b.Min.Y)
			}

			region := probeRegion(app.settings.Display)
			fmt.Fprintf(out, "Probe region: %s\n", region)

			for _, b := range []capture.Backend{capture.NewDisplayBackend(), capture.NewRobotgoBackend()} {
				if err := b.Open(region); err != nil {
					fmt.Fprintf(out, "  backend %-8s unavailable: %v\n", b.Name(), err)
					continue
				}
				_ = b.Close()
				fmt.Fprintf(out, "  backend %-8s ok\n", b.Name())
			}

			if measure <= 0 {
				return nil
			}
			return measureFPS(out, app, measure)
		},
	}

	cmd.Flags().DurationVar(&measure, "measure", 2*time.Second, "Capture burst length for the fps measurement (0 disables)")

	return cmd
}

// measureFPS reads frames from the configured backend chain for the
// given span and prints the paced rate the source actually achieved.
func measureFPS(out io.Writer, app *app, span time.Duration) error {
	display := app.settings.Display
	if display >= capture.NumDisplays() {
		display = 0
	}
	full := capture.DisplayBounds(display)

	backend, err := openBackend(app.settings, full)
	if err != nil {
		fmt.Fprintf(out, "Measurement skipped: %v\n", err)
		return nil
	}
	src := capture.NewSource(backend, full, 30)
	defer src.Close()

	deadline := time.Now().Add(span)
	for time.Now().Before(deadline) {
		if _, err := src.Next(); err != nil {
			fmt.Fprintf(out, "Measurement aborted: %v\n", err)
			return nil
		}
	}
	st := src.Stats()
	fmt.Fprintf(out, "Measured %s: %d frames over %s (%.1f fps)\n", backend.Name(), st.Produced, span, st.FPS)
	return nil
}

// probeRegion is a small rectangle near the top-left of the chosen
// display, enough to prove a backend can read pixels.
func probeRegion(display int) image.Rectangle {
	if display >= capture.NumDisplays() {
		display = 0
	}
	b := capture.DisplayBounds(display)
	w, h := 64, 64
	if b.Dx() < w {
		w = b.Dx()
	}
	if b.Dy() < h {
		h = b.Dy()
	}
	return image.Rect(b.Min.X, b.Min.Y, b.Min.X+w, b.Min.Y+h)
}
