package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"streamify/internal/auth"
	"streamify/internal/blobstore"
	"streamify/internal/config"
	"streamify/internal/server"
	"streamify/internal/store"
)

func newSrvCmd(cfg *config.Config) *cobra.Command {
	var ephemeral bool

	cmd := &cobra.Command{
		Use:   "srv",
		Short: "Run the streamify API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg == nil {
				return fmt.Errorf("config not initialized")
			}
			runCfg := *cfg
			if ephemeral {
				dir, err := os.MkdirTemp("", "streamify-")
				if err != nil {
					return err
				}
				defer os.RemoveAll(dir)
				runCfg.DBPath = filepath.Join(dir, config.DefaultDBFileName)
				runCfg.DataDir = filepath.Join(dir, "blobs")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, &runCfg, slog.Default().With("component", "server"))
		},
	}

	cmd.Flags().BoolVar(&ephemeral, "ephemeral", false, "keep the database and blobs in a temporary directory removed on exit")
	return cmd
}

func runServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if cfg.DBPath == "" {
		return fmt.Errorf("db path is required")
	}
	if cfg.DataDir == "" {
		return fmt.Errorf("data dir is required")
	}

	addr, err := server.ListenAddr(cfg.APIURL)
	if err != nil {
		return err
	}

	authn, err := auth.NewAuthenticator(credentialsFromConfig(cfg.Auth.Tokens))
	if err != nil {
		return fmt.Errorf("auth config: %w", err)
	}

	logger.Info("opening database", "path", cfg.DBPath)
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()

	bs, err := blobstore.NewLocalStore(cfg.DataDir)
	if err != nil {
		return err
	}
	logger.Info("blob store ready", "root", bs.Root(), "auth_enabled", authn.Enabled(),
		"max_upload", humanize.IBytes(uint64(cfg.Media.MaxUploadBytes)))

	srv := server.New(addr, st, bs, authn, server.Options{
		Version:              version,
		MaxUploadBytes:       cfg.Media.MaxUploadBytes,
		MultipartMaxMemory:   cfg.Media.MultipartMaxMemory,
		MaxConcurrentUploads: cfg.Media.MaxConcurrentUploads,
		Media: server.MediaPolicy{
			AllowedMediaTypes:  cfg.Media.AllowedMediaTypes,
			DefaultContentType: cfg.Media.DefaultContentType,
			StreamChunkBytes:   cfg.Media.StreamChunkBytes,
		},
	}, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Serve(gctx)
	})
	g.Go(func() error {
		reportOrphans(gctx, st, bs, logger)
		return nil
	})
	return g.Wait()
}

func credentialsFromConfig(tokens []config.TokenConfig) []auth.Credential {
	out := make([]auth.Credential, 0, len(tokens))
	for _, token := range tokens {
		out = append(out, auth.Credential{Owner: token.Owner, Hash: token.Hash, Admin: token.Admin})
	}
	return out
}

// reportOrphans logs blobs left behind by interrupted uploads or deletes.
// It never removes anything.
func reportOrphans(ctx context.Context, st *store.Store, bs *blobstore.LocalStore, logger *slog.Logger) {
	referenced, err := st.StorageKeys(ctx)
	if err != nil {
		logger.Warn("orphan scan skipped", "err", err)
		return
	}
	keys, err := bs.Keys(ctx)
	if err != nil {
		logger.Warn("orphan scan skipped", "err", err)
		return
	}

	var orphans int
	for _, key := range keys {
		if _, ok := referenced[key]; !ok {
			orphans++
		}
	}
	if orphans > 0 {
		logger.Warn("found blobs without media records", "count", orphans,
			"hint", "list them with: streamify blobs orphans")
	}
}
