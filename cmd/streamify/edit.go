package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"streamify/internal/api"
	"streamify/internal/config"
)

func newEditCmd(cfg *config.Config) *cobra.Command {
	var (
		title       string
		description string
	)

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a media title or description",
		Args:  requireExactlyArgs(1, "id is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := api.MediaUpdateRequest{}
			if cmd.Flags().Changed("title") {
				req.Title = &title
			}
			if cmd.Flags().Changed("description") {
				req.Description = &description
			}
			if req.Title == nil && req.Description == nil {
				return fmt.Errorf("nothing to change: pass --title or --description")
			}

			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.UpdateMedia(cmd.Context(), args[0], req)
				if err != nil {
					return err
				}
				return writeOutput(resp, func() error { return writeMediaDetail(resp) })
			})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVar(&description, "description", "", "new description (empty clears it)")
	return cmd
}
