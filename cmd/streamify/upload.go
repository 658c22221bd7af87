package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"streamify/internal/api"
	"streamify/internal/config"
)

func newUploadCmd(cfg *config.Config) *cobra.Command {
	var (
		title       string
		description string
		contentType string
		owner       string
	)

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a media file",
		Args:  requireExactlyArgs(1, "file path is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()

			info, err := f.Stat()
			if err != nil {
				return err
			}
			if info.IsDir() {
				return fmt.Errorf("%s is a directory", path)
			}

			req := api.MediaUploadRequest{
				Title:       defaultTitle(title, path),
				Description: description,
				Filename:    filepath.Base(path),
				ContentType: contentType,
			}

			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.WithOwner(owner).UploadMedia(cmd.Context(), req, f)
				if err != nil {
					return err
				}
				return writeOutput(resp, func() error {
					return writePlain("uploaded %s (%s, %s)\n", resp.ID, humanize.IBytes(uint64(info.Size())), resp.ContentType)
				})
			})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "media title (defaults to the file name)")
	cmd.Flags().StringVar(&description, "description", "", "media description")
	cmd.Flags().StringVar(&contentType, "content-type", "", "declared content type (sniffed when omitted)")
	cmd.Flags().StringVar(&owner, "owner", "", "owner to record when the server has no tokens")
	return cmd
}

func defaultTitle(title, path string) string {
	if strings.TrimSpace(title) != "" {
		return title
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
