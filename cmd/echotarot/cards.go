package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"echotarot/internal/domain"
	"echotarot/internal/keywords"
)

func cardsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cards",
		Short: "Browse the card dictionary",
	}
	cmd.AddCommand(cardsListCmd(opts))
	cmd.AddCommand(cardsShowCmd(opts))
	return cmd
}

func cardsListCmd(opts *rootOptions) *cobra.Command {
	var suit string

	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List cards with how often each was drawn",
		RunE: func(cmd *cobra.Command, args []string) error {
			suits := domain.Suits
			if suit != "" {
				parsed, err := domain.ParseSuit(suit)
				if err != nil {
					return err
				}
				suits = []domain.Suit{parsed}
			}

			services, _, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer services.Close()

			out := cmd.OutOrStdout()
			for _, s := range suits {
				usage, err := services.Journal.Suit(cmd.Context(), s)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, labelColor.Sprint(s.DisplayName()))
				for _, u := range usage {
					line := fmt.Sprintf("  %-28s %s", u.Card.ID, u.Card.Name)
					if u.Readings > 0 {
						line += mutedColor.Sprintf("  (%d)", u.Readings)
					}
					fmt.Fprintln(out, line)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&suit, "suit", "s", "", "major, cups, pentacles, swords or wands")
	return cmd
}

func cardsShowCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show [card_id]",
		Short: "Show a card's meanings and your keyword edits",
		Long: `Show displays a card with its base meanings and the effective keywords
after your customizations. Use ids like 'major_arcana.00' or
'minor_arcana.wands.ace'.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			services, _, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer services.Close()

			card, err := services.Catalog.Lookup(args[0])
			if err != nil {
				return err
			}
			c, err := services.DB.Settings().Customization(cmd.Context(), card.ID)
			if err != nil {
				return err
			}
			counts, err := services.Journal.CardCounts(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			field(out, "Card", card.Name)
			field(out, "ID", card.ID)
			field(out, "Suit", card.Suit.DisplayName())
			field(out, "Upright", keywords.Effective(card, false, c))
			field(out, "Reversed", keywords.Effective(card, true, c))
			if !c.IsEmpty() {
				field(out, "Base up", card.UprightMeaning)
				field(out, "Base rev", card.ReversedMeaning)
			}
			if card.AltText != "" {
				field(out, "Image", card.AltText)
			}
			field(out, "Drawn", fmt.Sprintf("%d readings", counts[card.ID]))
			return nil
		},
	}
}
