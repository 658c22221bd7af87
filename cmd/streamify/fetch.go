package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"streamify/internal/api"
	"streamify/internal/config"
)

type fetchSummary struct {
	ID           string `json:"id" yaml:"id"`
	Path         string `json:"path" yaml:"path"`
	StatusCode   int    `json:"status_code" yaml:"status_code"`
	ContentType  string `json:"content_type" yaml:"content_type"`
	ContentRange string `json:"content_range,omitempty" yaml:"content_range,omitempty"`
	Bytes        int64  `json:"bytes" yaml:"bytes"`
}

func newFetchCmd(cfg *config.Config) *cobra.Command {
	var (
		outPath     string
		rangeHeader string
	)

	cmd := &cobra.Command{
		Use:   "fetch <id>",
		Short: "Download media content, optionally a byte range",
		Args:  requireExactlyArgs(1, "id is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			toStdout := outPath == "" || outPath == "-"

			return withClient(cfg, func(client *api.Client) error {
				if toStdout {
					_, err := client.Fetch(cmd.Context(), id, rangeHeader, os.Stdout)
					return err
				}

				result, err := fetchToFile(cmd.Context(), client, id, rangeHeader, outPath)
				if err != nil {
					return err
				}
				summary := fetchSummary{
					ID:           id,
					Path:         outPath,
					StatusCode:   result.StatusCode,
					ContentType:  result.ContentType,
					ContentRange: result.ContentRange,
					Bytes:        result.Written,
				}
				return writeOutput(summary, func() error {
					if summary.ContentRange != "" {
						return writePlain("wrote %s to %s (%s)\n", humanize.IBytes(uint64(summary.Bytes)), outPath, summary.ContentRange)
					}
					return writePlain("wrote %s to %s\n", humanize.IBytes(uint64(summary.Bytes)), outPath)
				})
			})
		},
	}

	cmd.Flags().StringVarP(&outPath, "output-file", "o", "", "write content to this file instead of stdout")
	cmd.Flags().StringVar(&rangeHeader, "range", "", "byte range to request, e.g. bytes=0-1023")
	return cmd
}

// fetchToFile downloads into a temp file next to path and renames it into
// place once the body is complete.
func fetchToFile(ctx context.Context, client *api.Client, id, rangeHeader, path string) (api.FetchResult, error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".streamify-fetch-*")
	if err != nil {
		return api.FetchResult{}, err
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	result, err := client.Fetch(ctx, id, rangeHeader, tmp)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return result, err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return result, fmt.Errorf("save %s: %w", path, err)
	}
	committed = true
	return result, nil
}
