package flux

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
	"tokengate/common/log"
	"tokengate/common/metrics"

	"golang.org/x/crypto/acme"
	"golang.org/x/crypto/acme/autocert"
)

// Server hosts routes and the auth strategies they use.
type Server struct {
	router          *router
	server          *http.Server
	pool            sync.Pool
	port            int
	debug           bool
	tls             bool
	certCache       string
	logger          *slog.Logger
	ipExtractor     IPExtractor
	strategies      map[string]Strategy
	metrics         metrics.Recorder
	shutdownTimeout time.Duration
	requestTimeout  time.Duration
	maxRequestSize  int64
}

// ServerOptions...
type ServerOptions struct {
	Debug       bool
	Port        int
	TLS         bool
	Logger      *slog.Logger
	IPExtractor IPExtractor
	// Metrics receives auth and request events. Defaults to metrics.Noop.
	Metrics metrics.Recorder

	// CertCacheDir is where autocert stores certificates when TLS is enabled.
	CertCacheDir string

	// MaxRequestSize is the maximum accepted request size in bytes.
	// This is used to prevent a denial of service attack where no Content-Length
	// is provided and the server is fed data until it exhausts memory.
	// Setting this option will enable a default maximum request size for all handlers.
	// This can be overridden in an individual handler by setting Options.MaxRequestSize.
	MaxRequestSize int64
	// RequestTimeout bounds the context of every flow, including any time
	// spent waiting on auth strategies. Zero means the default of 10s, a
	// negative value disables the timeout.
	RequestTimeout    time.Duration
	MaxHeaderBytes    int
	ReadTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
}

// ConfigureServer...
func (s *Server) ConfigureServer(options *ServerOptions) {
	if options == nil {
		options = &ServerOptions{}
	}

	// Set server defaults.
	s.port = 8000
	s.debug = options.Debug
	s.logger = log.New()
	s.ipExtractor = ExtractIPDirect()
	s.strategies = make(map[string]Strategy)
	s.metrics = metrics.Noop{}
	s.certCache = "/var/www/.cache"
	s.maxRequestSize = 1024 * 1024 // 1MB
	s.shutdownTimeout = 5 * time.Second
	s.requestTimeout = 10 * time.Second

	// Configure flow pool.
	s.pool.New = func() interface{} {
		return &Flow{
			s: s,
		}
	}

	// Configure router.
	s.router = newRouter(s)

	// Configure HTTP server.
	if options.MaxHeaderBytes == 0 {
		options.MaxHeaderBytes = 1024 * 1024 // 1MB
	}
	if options.ReadTimeout == 0 {
		options.ReadTimeout = 5 * time.Second
	}
	if options.ReadHeaderTimeout == 0 {
		options.ReadHeaderTimeout = 3 * time.Second
	}
	if options.WriteTimeout == 0 {
		options.WriteTimeout = 10 * time.Second
	}
	if options.IdleTimeout == 0 {
		options.IdleTimeout = 120 * time.Second
	}
	s.server = &http.Server{
		Handler:           s.router,
		ReadTimeout:       options.ReadTimeout,
		ReadHeaderTimeout: options.ReadHeaderTimeout,
		WriteTimeout:      options.WriteTimeout,
		IdleTimeout:       options.IdleTimeout,
		MaxHeaderBytes:    options.MaxHeaderBytes,
	}

	// Configure server with provided options.
	if options.Port != 0 {
		s.port = options.Port
	}
	if options.TLS {
		s.tls = true
	}
	if options.CertCacheDir != "" {
		s.certCache = options.CertCacheDir
	}
	if options.Logger != nil {
		s.logger = options.Logger
	}
	if options.IPExtractor != nil {
		s.ipExtractor = options.IPExtractor
	}
	if options.Metrics != nil {
		s.metrics = options.Metrics
	}
	if options.MaxRequestSize != 0 {
		s.maxRequestSize = options.MaxRequestSize
	}
	if options.ShutdownTimeout != 0 {
		s.shutdownTimeout = options.ShutdownTimeout
	}
	if options.RequestTimeout > 0 {
		s.requestTimeout = options.RequestTimeout
	} else if options.RequestTimeout < 0 {
		s.requestTimeout = 0
	}
}

// NewServer creates a new Server.
func NewServer(options *ServerOptions) *Server {
	s := &Server{}
	s.ConfigureServer(options)
	return s
}

// Handler returns the root handler of the server, for use with httptest or
// an externally managed http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Handle mounts a plain http.Handler, bypassing flows and authentication.
func (s *Server) Handle(pattern string, h http.Handler) {
	s.router.handle(pattern, h)
}

// Start serves until ctx is done or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	ln, err := s.newListener(":" + strconv.Itoa(s.port))
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	s.logger.Info(fmt.Sprintf("Server listening at %s.", ln.Addr().String()))

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}
	return nil
}

// Stop shuts down the server gracefully.
func (s *Server) Stop() {
	if s.server == nil {
		return
	}

	s.logger.Debug("Starting server shutdown.")

	shutdownCtx, done := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer done()

	s.server.SetKeepAlivesEnabled(false)
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("Failed to gracefully shutdown server; force closing.", slog.String("error", err.Error()))
		s.server.Close()
	}

	s.logger.Debug("Server shutdown complete.")
}

// newListener...
func (s *Server) newListener(addr string) (net.Listener, error) {
	if s.tls {
		autoTLSManager := autocert.Manager{
			Prompt: autocert.AcceptTOS,
			// Cache certificates to avoid issues with rate limits (https://letsencrypt.org/docs/rate-limits)
			Cache: autocert.DirCache(s.certCache),
		}
		tlsConfig := &tls.Config{
			GetCertificate: autoTLSManager.GetCertificate,
			NextProtos:     []string{acme.ALPNProto},
		}
		ln, err := tls.Listen("tcp", addr, tlsConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to create listener on %s: %w", addr, err)
		}
		return ln, nil
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to create listener on %s: %w", addr, err)
	}
	return ln, nil
}
