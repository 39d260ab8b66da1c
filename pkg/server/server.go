package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// Preview serves a build directory locally the way a production host
// would: SPA fallback routing plus the security header set the
// validator checks for. A build can therefore be probed end-to-end
// before it is deployed anywhere.
type Preview struct {
	router *chi.Mux
	logger *zerolog.Logger
	server *http.Server
}

type Config struct {
	Addr            string
	BuildDir        string
	ShutdownTimeout time.Duration
}

func NewPreview(logger zerolog.Logger, config Config) *Preview {
	router := chi.NewRouter()

	router.Use(RequestLogger(&logger))
	router.Use(middleware.Recoverer)
	router.Use(SecureHeaders)

	router.Get("/*", spaHandler(config.BuildDir))

	return &Preview{
		router: router,
		logger: &logger,
		server: &http.Server{
			Addr:    config.Addr,
			Handler: router,
		},
	}
}

// spaHandler serves files from the build directory and falls back to
// index.html for any path that does not resolve to a file.
func spaHandler(buildDir string) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		rel := strings.TrimPrefix(req.URL.Path, "/")
		if rel == "" {
			rel = "index.html"
		}
		target := filepath.Join(buildDir, filepath.FromSlash(rel))

		root := filepath.Clean(buildDir)
		if target != root && !strings.HasPrefix(target, root+string(os.PathSeparator)) {
			http.NotFound(w, req)
			return
		}
		if info, err := os.Stat(target); err == nil && !info.IsDir() {
			http.ServeFile(w, req, target)
			return
		}
		http.ServeFile(w, req, filepath.Join(buildDir, "index.html"))
	}
}

func (p *Preview) Start() error {
	serverErrors := make(chan error, 1)
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	go func() {
		p.logger.Info().Str("addr", p.server.Addr).Msg("starting preview server")
		serverErrors <- p.server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-shutdown:
		p.logger.Info().Msg("shutdown initiated")

		// Give outstanding requests a deadline for completion.
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		err := p.server.Shutdown(ctx)
		if err != nil {
			p.logger.Error().Err(err).Msg("graceful shutdown failed")
			err = p.server.Close()
		}

		if err != nil {
			return err
		}
	}

	return nil
}

// Handler exposes the router for tests.
func (p *Preview) Handler() http.Handler {
	return p.router
}
