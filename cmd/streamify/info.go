package main

import (
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"streamify/internal/api"
	"streamify/internal/config"
)

type infoResult struct {
	api.InfoResponse `yaml:",inline"`
	APIURL           string `json:"api_url" yaml:"api_url"`
	DBPath           string `json:"db_path" yaml:"db_path"`
}

func newInfoCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show server, database and storage info",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.GetInfo(cmd.Context())
				if err != nil {
					return err
				}
				result := infoResult{InfoResponse: resp, APIURL: cfg.APIURL, DBPath: cfg.DBPath}

				return writeOutput(result, func() error {
					_ = writePlain("api_url: %s\n", result.APIURL)
					_ = writePlain("version: %s\n", result.Version)
					_ = writePlain("db_path: %s\n", result.DBPath)
					_ = writePlain("schema_version: %d\n", result.SchemaVersion)
					_ = writePlain("storage_root: %s\n", result.StorageRoot)
					_ = writePlain("auth_enabled: %t\n", result.AuthEnabled)
					return writePlain("max_upload: %s\n", humanize.IBytes(uint64(max(result.MaxUpload, 0))))
				})
			})
		},
	}
}
