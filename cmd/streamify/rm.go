package main

import (
	"github.com/spf13/cobra"

	"streamify/internal/api"
	"streamify/internal/config"
)

type deleteResult struct {
	Deleted []string `json:"deleted" yaml:"deleted"`
}

func newRmCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id> [<id>...]",
		Short: "Delete media and their stored content",
		Args:  requireAtLeastOneID,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				result := deleteResult{Deleted: make([]string, 0, len(args))}
				for _, id := range args {
					if err := client.DeleteMedia(cmd.Context(), id); err != nil {
						return err
					}
					result.Deleted = append(result.Deleted, id)
				}
				return writeOutput(result, func() error {
					for _, id := range result.Deleted {
						if err := writePlain("deleted %s\n", id); err != nil {
							return err
						}
					}
					return nil
				})
			})
		},
	}
}
