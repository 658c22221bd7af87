package main

import (
	"github.com/spf13/cobra"

	"streamify/internal/api"
	"streamify/internal/config"
)

func newShowCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id> [<id>...]",
		Short: "Show media details",
		Args:  requireAtLeastOneID,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				if len(args) == 1 {
					resp, err := client.GetMedia(cmd.Context(), args[0])
					if err != nil {
						return err
					}
					return writeOutput(resp, func() error { return writeMediaDetail(resp) })
				}

				responses := make([]api.MediaResponse, 0, len(args))
				for _, id := range args {
					resp, err := client.GetMedia(cmd.Context(), id)
					if err != nil {
						return err
					}
					responses = append(responses, resp)
				}
				return writeOutput(responses, func() error { return writeMediaList(responses) })
			})
		},
	}
}
