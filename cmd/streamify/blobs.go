package main

import (
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"streamify/internal/api"
	"streamify/internal/config"
)

func newBlobsCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "blobs",
		Short: "Inspect stored media content",
	}

	cmd.AddCommand(newBlobsOrphansCmd(cfg))
	return cmd
}

func newBlobsOrphansCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "orphans",
		Short: "List stored blobs that no media record references (admin)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				orphans, err := client.Orphans(cmd.Context())
				if err != nil {
					return err
				}
				return writeOutput(orphans, func() error {
					if len(orphans) == 0 {
						return writePlain("no orphaned blobs\n")
					}
					var total int64
					for _, orphan := range orphans {
						total += orphan.SizeBytes
						if err := writePlain("%s %s\n", orphan.StorageKey, humanize.IBytes(uint64(orphan.SizeBytes))); err != nil {
							return err
						}
					}
					return writePlain("%d orphaned blobs, %s total\n", len(orphans), humanize.IBytes(uint64(total)))
				})
			})
		},
	}
}
