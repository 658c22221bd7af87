package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"streamify/internal/auth"
	"streamify/internal/blobstore"
	"streamify/internal/store"
)

const (
	allowRemoteEnvKey         = "STREAMIFY_ALLOW_REMOTE"
	readHeaderTimeout         = 5 * time.Second
	readTimeout               = 30 * time.Second
	writeTimeout              = 60 * time.Second
	idleTimeout               = 60 * time.Second
	shutdownTimeout           = 10 * time.Second
	defaultUploadConcurrency  = 4
	defaultMaxUploadBytes     = 2 << 30  // 2 GiB
	defaultMultipartMaxMemory = 32 << 20 // 32 MiB
)

// Options configures upload limits and media policy.
type Options struct {
	Version              string
	MaxUploadBytes       int64
	MultipartMaxMemory   int64
	MaxConcurrentUploads int
	Media                MediaPolicy
}

// Server wraps HTTP handlers for the streamify API.
type Server struct {
	addr          string
	store         store.MediaStore
	blobs         blobstore.BlobStore
	media         *MediaService
	auth          *auth.Authenticator
	logger        *slog.Logger
	opts          Options
	uploadLimiter chan struct{}
}

// New creates a new server instance. authn may be nil, which disables
// authentication.
func New(addr string, mediaStore store.MediaStore, blobs blobstore.BlobStore, authn *auth.Authenticator, opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = defaultMaxUploadBytes
	}
	if opts.MultipartMaxMemory <= 0 {
		opts.MultipartMaxMemory = defaultMultipartMaxMemory
	}
	if opts.MaxConcurrentUploads <= 0 {
		opts.MaxConcurrentUploads = defaultUploadConcurrency
	}

	return &Server{
		addr:          addr,
		store:         mediaStore,
		blobs:         blobs,
		media:         NewMediaService(mediaStore, blobs, opts.Media, logger),
		auth:          authn,
		logger:        logger,
		opts:          opts,
		uploadLimiter: make(chan struct{}, opts.MaxConcurrentUploads),
	}
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.withRequestLogging(s.withAuth(s.routes()))
}

func (s *Server) httpServer() *http.Server {
	return &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	s.log().Info("starting server", "addr", s.addr)
	return s.httpServer().ListenAndServe()
}

// Serve runs the server until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	server := s.httpServer()
	errCh := make(chan error, 1)
	go func() {
		s.log().Info("starting server", "addr", s.addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.log().Info("shutting down server", "addr", s.addr)
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ListenAddr converts a base API URL into a listen address.
func ListenAddr(apiURL string) (string, error) {
	if apiURL == "" {
		return "", fmt.Errorf("api url is required")
	}
	if u, err := url.Parse(apiURL); err == nil && u.Host != "" {
		host := u.Hostname()
		if !isAllowedListenHost(host) {
			return "", fmt.Errorf("remote listen host %q requires %s=true", host, allowRemoteEnvKey)
		}
		return u.Host, nil
	}

	host, _, err := net.SplitHostPort(apiURL)
	if err == nil && !isAllowedListenHost(host) {
		return "", fmt.Errorf("remote listen host %q requires %s=true", host, allowRemoteEnvKey)
	}

	return apiURL, nil
}

func isAllowedListenHost(host string) bool {
	if host == "" {
		return true
	}
	if strings.EqualFold(strings.TrimSpace(os.Getenv(allowRemoteEnvKey)), "true") {
		return true
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func (s *Server) acquireLimiter(limiter chan struct{}, w http.ResponseWriter, r *http.Request, name string) bool {
	if limiter == nil {
		return true
	}
	select {
	case limiter <- struct{}{}:
		return true
	default:
		err := apiError{
			status:  http.StatusTooManyRequests,
			code:    "resource_exhausted",
			errCode: ErrCodeResourceExhausted,
			err:     fmt.Errorf("too many concurrent %s requests", name),
		}
		s.writeErrorReq(w, r, http.StatusTooManyRequests, err)
		return false
	}
}

func (s *Server) log() *slog.Logger {
	if s != nil && s.logger != nil {
		return s.logger
	}
	return slog.Default()
}

func (s *Server) releaseLimiter(limiter chan struct{}) {
	if limiter == nil {
		return
	}
	select {
	case <-limiter:
	default:
	}
}
