package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"echotarot/internal/domain"
	"echotarot/internal/usecase"
)

func readingsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "readings",
		Aliases: []string{"journal"},
		Short:   "Browse saved readings",
	}
	cmd.AddCommand(readingsListCmd(opts))
	cmd.AddCommand(readingsShowCmd(opts))
	cmd.AddCommand(readingsRemoveCmd(opts))
	cmd.AddCommand(readingsPlayCmd(opts))
	return cmd
}

func readingsListCmd(opts *rootOptions) *cobra.Command {
	var cardID, hashtag, sort string

	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List saved readings",
		RunE: func(cmd *cobra.Command, args []string) error {
			order, err := usecase.ParseSortOrder(sort)
			if err != nil {
				return err
			}
			services, _, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer services.Close()

			readings, err := services.Journal.List(cmd.Context(), usecase.JournalQuery{
				CardID:  cardID,
				Hashtag: hashtag,
				Sort:    order,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(readings) == 0 {
				fmt.Fprintln(out, "No readings yet. Use 'echotarot session' to start one.")
				return nil
			}
			for _, r := range readings {
				entry, err := services.Journal.Entry(cmd.Context(), r.ID)
				if err != nil {
					return err
				}
				names := make([]string, len(entry.Cards))
				for i, c := range entry.Cards {
					names[i] = cardLabel(c)
				}
				line := fmt.Sprintf("%s  %s  %s", shortID(r.ID), r.Date.Local().Format("2006-01-02 15:04"), strings.Join(names, " | "))
				if len(r.Hashtags) > 0 {
					line += "  " + mutedColor.Sprint(formatTags(r.Hashtags))
				}
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&cardID, "card", "", "only readings that drew this card id")
	cmd.Flags().StringVarP(&hashtag, "tag", "t", "", "only readings with this hashtag")
	cmd.Flags().StringVar(&sort, "sort", string(usecase.SortNewest), "newest or oldest")
	return cmd
}

func readingsShowCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show [id]",
		Short: "Show a reading",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			services, _, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer services.Close()

			id, err := resolveReading(cmd, services.Journal, args[0])
			if err != nil {
				return err
			}
			entry, err := services.Journal.Entry(cmd.Context(), id)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			r := entry.Reading
			field(out, "ID", r.ID.String())
			field(out, "Date", r.Date.Local().Format(time.RFC1123))
			field(out, "Spread", r.SpreadType.DisplayName())
			positions := r.SpreadType.PositionNames()
			for i, c := range entry.Cards {
				position := fmt.Sprintf("Card %d", i+1)
				if i < len(positions) {
					position = positions[i]
				}
				field(out, position, cardLabel(c))
			}
			if len(r.Hashtags) > 0 {
				field(out, "Hashtags", formatTags(r.Hashtags))
			}
			if r.QuestionAudioPath != nil {
				field(out, "Question", *r.QuestionAudioPath)
			}
			if r.ReadingAudioPath != nil {
				field(out, "Reading", *r.ReadingAudioPath)
			}
			if r.Notes != nil && *r.Notes != "" {
				field(out, "Notes", *r.Notes)
			}
			return nil
		},
	}
}

func readingsRemoveCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "rm [id]",
		Aliases: []string{"delete"},
		Short:   "Delete a reading and its recordings",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			services, _, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer services.Close()

			id, err := resolveReading(cmd, services.Journal, args[0])
			if err != nil {
				return err
			}
			if err := services.Journal.Delete(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted reading %s\n", shortID(id))
			return nil
		},
	}
}

func readingsPlayCmd(opts *rootOptions) *cobra.Command {
	var reflection bool

	cmd := &cobra.Command{
		Use:   "play [id]",
		Short: "Play the question (or reflection) recorded with a reading",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			services, _, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer services.Close()

			id, err := resolveReading(cmd, services.Journal, args[0])
			if err != nil {
				return err
			}
			entry, err := services.Journal.Entry(cmd.Context(), id)
			if err != nil {
				return err
			}

			path := entry.Reading.QuestionAudioPath
			if reflection {
				path = entry.Reading.ReadingAudioPath
			}
			if path == nil {
				return errors.New("no recording saved for this reading")
			}
			if err := services.Journal.Play(cmd.Context(), domain.AudioRef(*path)); err != nil {
				return err
			}

			ticker := time.NewTicker(100 * time.Millisecond)
			defer ticker.Stop()
			for services.Recorder.Playing() {
				select {
				case <-cmd.Context().Done():
					services.Journal.StopPlayback()
					return cmd.Context().Err()
				case <-ticker.C:
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&reflection, "reflection", "r", false, "play the reflection instead of the question")
	return cmd
}

// resolveReading accepts a full id or a unique prefix of one.
func resolveReading(cmd *cobra.Command, journal *usecase.Journal, arg string) (uuid.UUID, error) {
	if id, err := uuid.Parse(arg); err == nil {
		return id, nil
	}

	readings, err := journal.List(cmd.Context(), usecase.JournalQuery{})
	if err != nil {
		return uuid.Nil, err
	}
	var matches []uuid.UUID
	for _, r := range readings {
		if strings.HasPrefix(r.ID.String(), strings.ToLower(arg)) {
			matches = append(matches, r.ID)
		}
	}
	switch len(matches) {
	case 0:
		return uuid.Nil, fmt.Errorf("reading not found: %s", arg)
	case 1:
		return matches[0], nil
	default:
		return uuid.Nil, fmt.Errorf("reading id %q is ambiguous", arg)
	}
}

func shortID(id uuid.UUID) string {
	return id.String()[:8]
}

func cardLabel(c domain.DrawnCard) string {
	if c.Reversed {
		return c.Card.Name + " (reversed)"
	}
	return c.Card.Name
}

func formatTags(tags []string) string {
	out := make([]string, len(tags))
	for i, tag := range tags {
		out[i] = "#" + tag
	}
	return strings.Join(out, " ")
}
