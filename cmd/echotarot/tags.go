package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func tagsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tags",
		Aliases: []string{"hashtags"},
		Short:   "Manage hashtags",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "ls",
		Short: "List every hashtag in the journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			services, _, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer services.Close()

			tags, err := services.Journal.Hashtags(cmd.Context())
			if err != nil {
				return err
			}
			if len(tags) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No hashtags yet.")
				return nil
			}
			for _, tag := range tags {
				fmt.Fprintf(cmd.OutOrStdout(), "#%s\n", tag)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "add [tag...]",
		Short: "Add hashtags to the list offered during readings",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			services, _, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer services.Close()
			return services.Hashtags.Add(cmd.Context(), args...)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "rename [from] [to]",
		Short: "Rename a hashtag in the list",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			services, _, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer services.Close()
			if err := services.Hashtags.Rename(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Renamed #%s to #%s\n", args[0], args[1])
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "merge [into] [from...]",
		Short: "Fold several hashtags into one",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			services, _, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer services.Close()
			return services.Hashtags.Merge(cmd.Context(), args[0], args[1:]...)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "rm [tag...]",
		Short: "Remove hashtags from the list",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			services, _, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer services.Close()
			return services.Hashtags.Remove(cmd.Context(), args...)
		},
	})

	return cmd
}
