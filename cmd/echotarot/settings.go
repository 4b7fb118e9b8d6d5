package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"echotarot/internal/config"
	"echotarot/internal/domain"
)

func spreadCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "spread [one|three]",
		Short: "Show or set the default spread",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var next domain.Spread
			if len(args) == 1 {
				parsed, err := domain.ParseSpread(args[0])
				if err != nil {
					return err
				}
				next = parsed
			}

			services, _, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer services.Close()

			settings, err := services.Settings.AppSettings(cmd.Context())
			if err != nil {
				return err
			}
			if next != "" {
				if settings, err = services.Settings.SetDefaultSpread(cmd.Context(), next); err != nil {
					return err
				}
			}
			field(cmd.OutOrStdout(), "Spread", settings.DefaultSpread.DisplayName())
			fmt.Fprintln(cmd.OutOrStdout(), mutedColor.Sprint(settings.DefaultSpread.Description()))
			return nil
		},
	}
}

func settingsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change preferences",
		RunE: func(cmd *cobra.Command, args []string) error {
			services, _, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer services.Close()

			settings, err := services.Settings.AppSettings(cmd.Context())
			if err != nil {
				return err
			}
			printSettings(cmd, settings)
			return nil
		},
	}

	var rate, volume float64
	var haptics, tutorials string
	setCmd := &cobra.Command{
		Use:   "set",
		Short: "Change preferences",
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			var hapticsOn, tutorialsOn bool
			var err error
			if flags.Changed("haptics") {
				if hapticsOn, err = strconv.ParseBool(haptics); err != nil {
					return fmt.Errorf("invalid --haptics value %q", haptics)
				}
			}
			if flags.Changed("tutorials") {
				if tutorialsOn, err = strconv.ParseBool(tutorials); err != nil {
					return fmt.Errorf("invalid --tutorials value %q", tutorials)
				}
			}
			if flags.Changed("rate") && (rate <= 0 || rate > 1) {
				return errors.New("--rate must be in (0, 1]")
			}
			if flags.Changed("volume") && (volume < 0 || volume > 1) {
				return errors.New("--volume must be in [0, 1]")
			}

			services, _, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer services.Close()

			settings, err := services.Settings.UpdateAppSettings(cmd.Context(), func(s *domain.AppSettings) {
				if flags.Changed("rate") {
					s.SpeechRate = rate
				}
				if flags.Changed("volume") {
					s.SpeechVolume = volume
				}
				if flags.Changed("haptics") {
					s.HapticEnabled = hapticsOn
				}
				if flags.Changed("tutorials") {
					s.TutorialEnabled = tutorialsOn
				}
			})
			if err != nil {
				return err
			}
			printSettings(cmd, settings)
			return nil
		},
	}
	setCmd.Flags().Float64Var(&rate, "rate", 0.5, "speech rate between 0 and 1")
	setCmd.Flags().Float64Var(&volume, "volume", 1, "speech volume between 0 and 1")
	setCmd.Flags().StringVar(&haptics, "haptics", "", "true or false")
	setCmd.Flags().StringVar(&tutorials, "tutorials", "", "true or false")
	cmd.AddCommand(setCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Restore default preferences",
		RunE: func(cmd *cobra.Command, args []string) error {
			services, _, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer services.Close()

			settings, err := services.Settings.UpdateAppSettings(cmd.Context(), func(s *domain.AppSettings) {
				*s = domain.DefaultAppSettings()
			})
			if err != nil {
				return err
			}
			printSettings(cmd, settings)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "tutorials",
		Short: "Show every tutorial again",
		RunE: func(cmd *cobra.Command, args []string) error {
			services, _, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer services.Close()
			return services.Settings.ResetTutorials(cmd.Context())
		},
	})

	return cmd
}

func printSettings(cmd *cobra.Command, s domain.AppSettings) {
	out := cmd.OutOrStdout()
	field(out, "Spread", s.DefaultSpread.DisplayName())
	field(out, "Rate", strconv.FormatFloat(s.SpeechRate, 'f', 2, 64))
	field(out, "Volume", strconv.FormatFloat(s.SpeechVolume, 'f', 2, 64))
	field(out, "Haptics", strconv.FormatBool(s.HapticEnabled))
	field(out, "Tutorials", strconv.FormatBool(s.TutorialEnabled))
}

func configCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the config file location",
		Run: func(cmd *cobra.Command, args []string) {
			path := opts.configPath
			if path == "" {
				path = config.GetConfigFilePath()
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
		},
	})

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the defaults",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := opts.configPath
			if path == "" {
				path = config.GetConfigFilePath()
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("config file already exists: %s (use --force to overwrite)", path)
			}
			if err := config.Save(path, config.Default()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")
	cmd.AddCommand(initCmd)

	return cmd
}
