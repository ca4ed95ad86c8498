package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ConserveLee/huntbot/internal/config"
	"github.com/ConserveLee/huntbot/internal/logger"
)

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	var settingsPath string
	app := &app{}

	rootCmd := &cobra.Command{
		Use:           "huntbot",
		Short:         "Screen-driven hunting bot: observe, detect, decide, act",
		Long:          "huntbot watches a screen region for configured entities, prioritizes targets and drives mouse and keyboard through humanized patrol, combat, flee and rest behavior.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return app.load(settingsPath)
		},
	}

	rootCmd.PersistentFlags().StringVar(&settingsPath, "settings", "Settings.ini", "App settings file")

	rootCmd.AddCommand(
		newRunCmd(app),
		newProbeCmd(app),
		newMatchCmd(app),
		newCropCmd(app),
	)

	return rootCmd
}

// app carries what every command needs after settings are loaded.
type app struct {
	settings *config.Settings
	log      *slog.Logger
}

func (a *app) load(path string) error {
	s, err := config.LoadSettings(path)
	if err != nil {
		return err
	}
	logger.Init(s.LogLevel, s.LogJSON)
	a.settings = s
	a.log = logger.For("cli")
	return nil
}
