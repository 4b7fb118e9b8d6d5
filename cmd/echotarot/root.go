package main

import (
	"context"

	"github.com/spf13/cobra"

	"echotarot/internal/bootstrap"
	"echotarot/internal/config"
)

type rootOptions struct {
	configPath string
	dbPath     string
	deckPath   string
	speak      bool
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "echotarot",
		Short: "Spoken tarot journal",
		Long: `Echo Tarot is an audio-first tarot journal. Record a question, draw
cards, listen to their meanings and record your reflection.

The desktop app and this command share the same journal, so readings saved
in one show up in the other.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/echotarot/config.toml)")
	rootCmd.PersistentFlags().StringVar(&opts.dbPath, "db", "", "journal database path")
	rootCmd.PersistentFlags().StringVar(&opts.deckPath, "deck", "", "deck.toml or a directory containing one")
	rootCmd.PersistentFlags().BoolVar(&opts.speak, "speak", false, "speak narration aloud instead of printing it")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log debug output to stderr")

	rootCmd.AddCommand(readingsCmd(opts))
	rootCmd.AddCommand(cardsCmd(opts))
	rootCmd.AddCommand(keywordsCmd(opts))
	rootCmd.AddCommand(tagsCmd(opts))
	rootCmd.AddCommand(spreadCmd(opts))
	rootCmd.AddCommand(settingsCmd(opts))
	rootCmd.AddCommand(configCmd(opts))
	rootCmd.AddCommand(sessionCmd(opts))

	return rootCmd
}

func (o *rootOptions) loadConfig() (config.Config, error) {
	var (
		cfg config.Config
		err error
	)
	if o.configPath != "" {
		cfg, err = config.LoadFile(o.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return config.Config{}, err
	}

	if o.dbPath != "" {
		cfg.Storage.Path = o.dbPath
	}
	if o.deckPath != "" {
		cfg.Catalog.DeckPath = o.deckPath
	}
	// One-shot commands have no use for hot reload.
	cfg.Catalog.Watch = false
	if o.verbose {
		cfg.Log.Level = "debug"
	} else {
		// Keys pressed in the wrong state log warnings; keep them off the terminal.
		cfg.Log.Level = "error"
	}
	return cfg, nil
}

// open builds the services with a terminal frontend writing to cmd's output.
func (o *rootOptions) open(cmd *cobra.Command) (bootstrap.Services, *terminal, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return bootstrap.Services{}, nil, err
	}

	term := newTerminal(cmd.OutOrStdout(), !o.speak)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	services, err := bootstrap.BuildWithConfig(ctx, cfg, term)
	if err != nil {
		return bootstrap.Services{}, nil, err
	}
	return services, term, nil
}
