package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"time"

	"streamify/internal/api"
	"streamify/internal/config"
	"streamify/internal/server"
)

const (
	serverStartTimeout = 3 * time.Second
	serverStopTimeout  = 5 * time.Second
	serverPollInterval = 100 * time.Millisecond
)

func withClient(cfg *config.Config, fn func(*api.Client) error) error {
	stop, err := ensureServer(cfg)
	if err != nil {
		return err
	}
	if stop != nil {
		defer stop()
	}

	return fn(api.NewClient(cfg.APIURL))
}

// ensureServer pings the configured API and, when nothing answers on a local
// address, starts a private `streamify srv` for the duration of one command.
func ensureServer(cfg *config.Config) (func(), error) {
	client := api.NewClient(cfg.APIURL)
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	pingErr := client.Ping(ctx)
	if pingErr == nil {
		return nil, nil
	}
	if _, err := server.ListenAddr(cfg.APIURL); err != nil {
		return nil, fmt.Errorf("%w (not starting a local server for %s)", pingErr, cfg.APIURL)
	}

	cmd, err := startServerProcess(cfg)
	if err != nil {
		return nil, err
	}

	if err := waitForServer(client, serverStartTimeout); err != nil {
		stopServerProcess(cmd)
		return nil, err
	}

	return func() { stopServerProcess(cmd) }, nil
}

func startServerProcess(cfg *config.Config) (*exec.Cmd, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, err
	}

	cmd := exec.Command(exe, "srv")
	cmd.Env = append(os.Environ(),
		"STREAMIFY_DB="+cfg.DBPath,
		"STREAMIFY_DATA_DIR="+cfg.DataDir,
		"STREAMIFY_API_URL="+cfg.APIURL,
	)
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard

	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return cmd, nil
}

// stopServerProcess asks the child to shut down gracefully and kills it if it
// does not exit in time.
func stopServerProcess(cmd *exec.Cmd) {
	if cmd == nil || cmd.Process == nil {
		return
	}
	done := make(chan struct{})
	go func() {
		_ = cmd.Wait()
		close(done)
	}()

	if err := cmd.Process.Signal(os.Interrupt); err != nil {
		_ = cmd.Process.Kill()
	}
	select {
	case <-done:
	case <-time.After(serverStopTimeout):
		_ = cmd.Process.Kill()
		<-done
	}
}

func waitForServer(client *api.Client, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		err := client.Ping(ctx)
		cancel()
		if err == nil {
			return nil
		}
		if !isConnRefused(err) {
			// Port is taken by something that is not a streamify server.
			return err
		}
		time.Sleep(serverPollInterval)
	}
	return errors.New("server did not start in time")
}

func isConnRefused(err error) bool {
	var netErr *net.OpError
	return errors.As(err, &netErr)
}
