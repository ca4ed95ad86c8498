package cmd

import (
	"fmt"
	"image"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ConserveLee/huntbot/internal/behavior"
	"github.com/ConserveLee/huntbot/internal/capture"
	"github.com/ConserveLee/huntbot/internal/config"
	"github.com/ConserveLee/huntbot/internal/engine"
	"github.com/ConserveLee/huntbot/internal/events"
	"github.com/ConserveLee/huntbot/internal/input"
	"github.com/ConserveLee/huntbot/internal/logger"
	"github.com/ConserveLee/huntbot/internal/vision"
)

func newRunCmd(app *app) *cobra.Command {
	var profilePath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the hunting loop",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if profilePath == "" {
				profilePath = app.settings.ProfilePath
			}
			profile, err := config.LoadProfile(profilePath)
			if err != nil {
				return err
			}

			bus := events.NewBus(256)
			defer bus.Close()
			bus.SubscribeAll(logSink(logger.For("events")))

			lib, err := loadLibrary(app, profile, bus)
			if err != nil {
				return err
			}

			backend, err := openBackend(app.settings, profile.Region.Rect())
			if err != nil {
				return err
			}
			app.log.Info("capture backend selected", "backend", backend.Name())
			bus.Emit(events.New(events.TypeBackendSelected, "capture", map[string]interface{}{
				"backend": backend.Name(),
			}))

			source := capture.NewSource(backend, profile.Region.Rect(), profile.CaptureFPS)
			defer source.Close()

			bot, err := engine.New(engine.Options{
				Profile:  profile,
				Source:   source,
				Library:  lib,
				Injector: input.RobotgoInjector{},
				Vitals:   vitalsProvider(profile),
				Events:   bus,
			})
			if err != nil {
				return err
			}

			bot.Start()
			defer bot.Stop()

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(sig)

			select {
			case s := <-sig:
				app.log.Info("signal received, stopping", "signal", s.String())
			case <-cmd.Context().Done():
			}

			stats := bot.Stats()
			app.log.Info("run finished",
				"cycles", stats.Cycles,
				"actions", stats.Actions,
				"frames", stats.Capture.Produced,
				"dropped", stats.Mailbox.Dropped)
			return nil
		},
	}

	cmd.Flags().StringVar(&profilePath, "profile", "", "Behavior profile (overrides settings)")

	return cmd
}

func loadLibrary(app *app, profile *config.Profile, bus events.Sink) (*vision.Library, error) {
	warn := func(entity, path string, err error) {
		app.log.Warn("template skipped", "entity", entity, "path", path, "err", err)
		bus.Emit(events.New(events.TypeTemplateWarning, "vision", map[string]interface{}{
			"entity": entity,
			"path":   path,
			"err":    err.Error(),
		}))
	}

	lib, err := vision.Load(app.settings.TemplateRoot, profile.DefaultThreshold, profile.Thresholds, warn)
	if err != nil {
		return nil, err
	}
	if lib.Len() == 0 {
		return nil, fmt.Errorf("no usable templates under %s", app.settings.TemplateRoot)
	}
	app.log.Info("templates loaded", "entities", lib.Len(), "warnings", lib.Warnings(), "root", app.settings.TemplateRoot)
	return lib, nil
}

// openBackend builds the backend chain the settings ask for and opens
// the first one that accepts the region.
func openBackend(s *config.Settings, region image.Rectangle) (capture.Backend, error) {
	var backends []capture.Backend
	switch s.Backend {
	case "display":
		backends = []capture.Backend{capture.NewDisplayBackend()}
	case "robotgo":
		backends = []capture.Backend{capture.NewRobotgoBackend()}
	default:
		backends = []capture.Backend{capture.NewDisplayBackend(), capture.NewRobotgoBackend()}
	}
	return capture.Select(region, backends...)
}

func vitalsProvider(p *config.Profile) behavior.Provider {
	if p.Vitals.Mode == "bars" {
		return behavior.NewBarReader(p.Vitals)
	}
	return behavior.FullVitals()
}

// logSink forwards bus events to the structured log. Per-cycle records
// go to debug; faults and absorbed errors to warn.
func logSink(log *slog.Logger) events.Handler {
	return func(e events.Event) {
		attrs := make([]interface{}, 0, 2*len(e.Fields)+2)
		attrs = append(attrs, "source", e.Source)
		for k, v := range e.Fields {
			attrs = append(attrs, k, v)
		}

		switch e.Type {
		case events.TypeCycle:
			log.Debug(string(e.Type), attrs...)
		case events.TypeCaptureError, events.TypeTemplateWarning, events.TypeStateFault,
			events.TypeActuationClamped, events.TypeCooldownBlocked:
			log.Warn(string(e.Type), attrs...)
		default:
			log.Info(string(e.Type), attrs...)
		}
	}
}
