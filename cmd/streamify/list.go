package main

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"streamify/internal/api"
	"streamify/internal/config"
)

func newListCmd(cfg *config.Config) *cobra.Command {
	var (
		owner  string
		search string
		limit  int
		offset int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List media, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 0 || offset < 0 {
				return fmt.Errorf("--limit and --offset must be >= 0")
			}
			query := listQuery(owner, search, limit, offset)

			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.ListMedia(cmd.Context(), query)
				if err != nil {
					return err
				}
				return writeOutput(resp, func() error { return writeMediaList(resp.Items) })
			})
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "only media uploaded by this owner")
	cmd.Flags().StringVar(&search, "search", "", "case-insensitive title substring")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of results")
	cmd.Flags().IntVar(&offset, "offset", 0, "number of results to skip")
	return cmd
}

// listQuery drops empty filters so the server applies its defaults.
func listQuery(owner, search string, limit, offset int) url.Values {
	query := url.Values{}
	if owner = strings.TrimSpace(owner); owner != "" {
		query.Set("owner", owner)
	}
	if search = strings.TrimSpace(search); search != "" {
		query.Set("q", search)
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		query.Set("offset", strconv.Itoa(offset))
	}
	return query
}

func newRelatedCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "related <id>",
		Short: "List the most viewed media other than id",
		Args:  requireExactlyArgs(1, "id is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				items, err := client.Related(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return writeOutput(items, func() error { return writeMediaList(items) })
			})
		},
	}
}
