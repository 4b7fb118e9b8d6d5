package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"echotarot/internal/usecase"
)

func keywordsCmd(opts *rootOptions) *cobra.Command {
	var reversed bool

	cmd := &cobra.Command{
		Use:   "keywords",
		Short: "Customize the keywords read out for a card",
	}
	cmd.PersistentFlags().BoolVarP(&reversed, "reversed", "r", false, "edit the reversed meaning")

	cmd.AddCommand(&cobra.Command{
		Use:   "show [card_id]",
		Short: "Show a card's effective keywords",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			services, _, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer services.Close()

			view, err := services.Settings.Keywords(cmd.Context(), args[0], reversed)
			if err != nil {
				return err
			}
			printKeywords(cmd, view)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "add [card_id] [keyword...]",
		Short: "Add a keyword, or restore a removed one",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			services, _, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer services.Close()

			keyword := strings.Join(args[1:], " ")
			view, changed, err := services.Settings.AddKeyword(cmd.Context(), args[0], reversed, keyword)
			if err != nil {
				return err
			}
			if !changed {
				fmt.Fprintf(cmd.OutOrStdout(), "%q is already a keyword\n", keyword)
			}
			printKeywords(cmd, view)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "rm [card_id] [keyword...]",
		Short: "Remove a keyword",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			services, _, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer services.Close()

			keyword := strings.Join(args[1:], " ")
			view, changed, err := services.Settings.RemoveKeyword(cmd.Context(), args[0], reversed, keyword)
			if err != nil {
				return err
			}
			if !changed {
				fmt.Fprintf(cmd.OutOrStdout(), "%q is not present\n", keyword)
			}
			printKeywords(cmd, view)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "reset [card_id]",
		Short: "Drop every customization for a card",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			services, _, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer services.Close()

			if err := services.Settings.ResetKeywords(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Keywords for %s reset\n", args[0])
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "ls",
		Short: "List cards with customized keywords",
		RunE: func(cmd *cobra.Command, args []string) error {
			services, _, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer services.Close()

			ids, err := services.Settings.CustomizedCards(cmd.Context())
			if err != nil {
				return err
			}
			if len(ids) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No customized cards.")
				return nil
			}
			for _, id := range ids {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	})

	return cmd
}

func printKeywords(cmd *cobra.Command, view usecase.KeywordView) {
	orientation := "upright"
	if view.Reversed {
		orientation = "reversed"
	}
	out := cmd.OutOrStdout()
	field(out, "Card", fmt.Sprintf("%s, %s", view.Card.Name, orientation))
	field(out, "Keywords", view.Meaning)
	if view.Customized {
		fmt.Fprintln(out, mutedColor.Sprint("(customized)"))
	}
}
