package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"drive-go/internal/drive"
	"drive-go/internal/model"
)

// Authenticator turns a request into a principal. Requests without
// credentials yield drive.Anonymous and no error.
type Authenticator interface {
	Authenticate(r *http.Request) (string, error)
}

// Options tunes request handling.
type Options struct {
	MaxUploadBytes int64 // 0 means unlimited
}

// Server exposes a DriveService over HTTP.
type Server struct {
	service  *drive.DriveService
	auth     Authenticator
	logger   drive.Logger
	validate *validator.Validate
	opts     Options

	router       *mux.Router
	httpServer   *http.Server
	shutdownOnce sync.Once
}

// NewServer creates a server and registers every route.
func NewServer(service *drive.DriveService, auth Authenticator, logger drive.Logger, opts Options) *Server {
	s := &Server{
		service:  service,
		auth:     auth,
		logger:   logger,
		validate: newValidator(),
		opts:     opts,
		router:   mux.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router
	r.Use(s.accessLog, s.authenticate)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{StatusCode: http.StatusNotFound, Message: "route not found"})
	})

	f := r.PathPrefix("/file").Subrouter()
	f.HandleFunc("/shared", s.handleShared).Methods(http.MethodGet)
	f.Handle("/shared-users/{fileId}", s.requireUser(s.requirePermission(model.Read, s.handleSharedUsers))).Methods(http.MethodGet)
	f.Handle("/share", s.requireUser(http.HandlerFunc(s.handleShare))).Methods(http.MethodPost)
	f.Handle("/update-share", s.requireUser(s.requirePermission(model.Write, s.handleUpdateShare))).Methods(http.MethodPost)
	f.Handle("/get-dir-list", s.requireUser(s.requirePermission(model.Read, s.handleDirList))).Methods(http.MethodGet)
	f.Handle("/generate-share-link", s.requireUser(s.requirePermission(model.Write, s.handleGenerateLink))).Methods(http.MethodPost)
	f.Handle("/revoke-share-link", s.requireUser(s.requirePermission(model.Delete, s.handleRevokeLink))).Methods(http.MethodPost)
	f.Handle("/permissions-list", s.requireUser(http.HandlerFunc(s.handlePermissionsList))).Methods(http.MethodGet)
	f.Handle("/create-directory", s.requireUser(http.HandlerFunc(s.handleCreateDirectory))).Methods(http.MethodPost)
	f.Handle("/upload", s.requireUser(http.HandlerFunc(s.handleUpload))).Methods(http.MethodPost)
	f.Handle("/update", s.requireUser(s.requirePermission(model.Write, s.handleUpdate))).Methods(http.MethodPut)
	f.Handle("/delete", s.requireUser(s.requirePermission(model.Delete, s.handleDelete))).Methods(http.MethodDelete)
	f.Handle("/download/{fileId}", s.requirePermission(model.Read, s.handleDownload)).Methods(http.MethodGet)

	r.Handle("/users", s.requireUser(http.HandlerFunc(s.handleListUsers))).Methods(http.MethodGet)
	r.Handle("/users/me", s.requireUser(http.HandlerFunc(s.handleMe))).Methods(http.MethodGet)
	r.Handle("/users/{id}", s.requireUser(http.HandlerFunc(s.handleGetUser))).Methods(http.MethodGet)
}

// ServeHTTP makes Server an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully within shutdownTimeout.
func (s *Server) ListenAndServe(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("server shutdown signal received")
		// The parent ctx is already cancelled
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.Stop(shutdownCtx)
	case err := <-errChan:
		return fmt.Errorf("server failed: %w", err)
	}
}

// Stop shuts the server down. Safe to call more than once.
func (s *Server) Stop(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.httpServer == nil {
			return
		}
		if err := s.httpServer.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("server shutdown error: %w", err)
			s.logger.Error("server shutdown error", "error", err)
			return
		}
		s.logger.Info("server stopped gracefully")
	})
	return shutdownErr
}
