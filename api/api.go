// Package api wires the gin engine: middleware, the REST routes, the
// embedded frontend and the uploads file server.
package api

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/vibeboard/vibeboard/api/auth"
	"github.com/vibeboard/vibeboard/api/handler"
	"github.com/vibeboard/vibeboard/config"
	"github.com/vibeboard/vibeboard/internal/static"
	"github.com/vibeboard/vibeboard/store"
	"github.com/vibeboard/vibeboard/uploads"
)

// Server is the HTTP front of vibeboard.
type Server struct {
	cfg       *config.Config
	ginEngine *gin.Engine
	store     store.Store
	uploads   *uploads.Manager
	tokens    *auth.Tokens
}

// New creates the server. Debug mode keeps gin's request logging noise.
func New(cfg *config.Config, st store.Store, um *uploads.Manager, debug bool) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		cfg:       cfg,
		ginEngine: gin.Default(),
		store:     st,
		uploads:   um,
		tokens:    auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
	}
	s.ginEngine.MaxMultipartMemory = cfg.Server.MaxUploadSize
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	s.ginEngine.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{uploads.PublicPrefix})))
	s.ginEngine.Use(limitBody(s.cfg.Server.MaxUploadSize))

	h := handler.New(s.store, s.uploads, s.tokens, s.cfg.Auth)
	admin := handler.NewAdmin(s.store, s.uploads)

	// Uploaded files are served straight from disk; everything else static
	// comes from the embedded frontend.
	s.ginEngine.Static(strings.TrimSuffix(uploads.PublicPrefix, "/"), s.uploads.Root())
	s.setupFrontend()

	api := s.ginEngine.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.POST("/register", h.Register)
	authGroup.POST("/login", h.Login)

	me := api.Group("/me")
	me.Use(s.tokens.RequireUser())
	me.GET("/data", h.MyData)
	me.POST("/subpages", h.CreateSubpage)
	me.DELETE("/subpages/:subpageId", h.DeleteSubpage)
	me.POST("/subpages/:subpageId/posts", h.CreatePost)
	me.PUT("/subpages/:subpageId/posts/:postId", h.UpdatePost)
	me.DELETE("/subpages/:subpageId/posts/:postId", h.DeletePost)

	adminGroup := api.Group("/admin")
	adminGroup.Use(auth.RequireAdmin(s.store))
	adminGroup.GET("/users", admin.ListUsers)
	adminGroup.DELETE("/users/:userId", admin.DeleteUser)
}

// setupFrontend serves the embedded single-page app. Unknown paths fall
// through to the file server so /, /landing.html and /admin.html all work.
func (s *Server) setupFrontend() {
	sub, err := fs.Sub(static.PublicFS, "public")
	if err != nil {
		// embed paths are fixed at compile time, this cannot fail at runtime
		panic(err)
	}
	fileServer := http.FileServer(http.FS(sub))
	s.ginEngine.NoRoute(func(c *gin.Context) {
		if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
			c.JSON(http.StatusNotFound, gin.H{"message": "Not found."})
			return
		}
		fileServer.ServeHTTP(c.Writer, c.Request)
	})
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Listen,
		Handler:           s.ginEngine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	log.Info("shutting down HTTP server")
	return srv.Shutdown(shutdownCtx)
}

// limitBody caps request body size so a single upload can't exhaust the disk.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes > 0 {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}
