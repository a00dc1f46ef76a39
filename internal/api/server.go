// Package api exposes upload intake and read access to audit logs and
// contact summaries over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/dharsanguruparan/StreetPass/internal/aggregate"
	"github.com/dharsanguruparan/StreetPass/internal/model"
	"github.com/dharsanguruparan/StreetPass/internal/queue"
	"github.com/dharsanguruparan/StreetPass/internal/repository"
	"github.com/dharsanguruparan/StreetPass/internal/storage"
)

// UploadStore writes new uploads to the upload bucket.
type UploadStore interface {
	PutUpload(ctx context.Context, key string, data []byte) error
}

// UploadLogReader reads audit entries.
type UploadLogReader interface {
	UploadLog(ctx context.Context, fileName string) (model.UploadLog, error)
}

// ContactFinder finds stored summaries by contact ID.
type ContactFinder interface {
	FindByContact(ctx context.Context, contactID string) ([]model.ContactSummary, error)
}

// Deps are the collaborators of a Server.
type Deps struct {
	Uploads  UploadStore
	Queue    queue.Enqueuer
	Logs     UploadLogReader
	Contacts ContactFinder
	Exposure aggregate.ExposureFilter
	Logger   *zap.Logger
}

// Options configure the HTTP surface.
type Options struct {
	Address        string
	Bucket         string
	RecordsDir     string
	RecordsExt     string
	MaxUploadBytes int64
}

// Server exposes HTTP endpoints for uploads, audit logs and contacts.
type Server struct {
	deps   Deps
	opts   Options
	now    func() time.Time
	server *http.Server
	once   sync.Once
}

// New constructs a Server.
func New(deps Deps, opts Options) *Server {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Server{deps: deps, opts: opts, now: time.Now}
}

// Routes returns the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	r.Post("/uploads", s.handleUpload)
	r.Get("/uploads/{fileName}", s.handleUploadLog)
	r.Get("/contacts/{uid}", s.handleContacts)
	return r
}

// Run starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.once.Do(func() {
		s.server = &http.Server{
			Addr:              s.opts.Address,
			Handler:           s.Routes(),
			ReadHeaderTimeout: 10 * time.Second,
		}
	})
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()
	s.deps.Logger.Info("api listening", zap.String("address", s.opts.Address))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds limit (%d bytes)", s.opts.MaxUploadBytes))
			return
		}
		respondError(w, http.StatusBadRequest, "failed to read body")
		return
	}
	var upload model.Upload
	if err := json.Unmarshal(data, &upload); err != nil {
		respondError(w, http.StatusBadRequest, "body is not a records upload")
		return
	}
	if upload.Token == "" {
		respondError(w, http.StatusBadRequest, "upload token is required")
		return
	}

	fileName := uuid.NewString()
	objectName := s.opts.RecordsDir + "/" + fileName + s.opts.RecordsExt
	if err := s.deps.Uploads.PutUpload(ctx, objectName, data); err != nil {
		s.deps.Logger.Error("store upload failed", zap.String("object", objectName), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}
	payload := queue.ProcessPayload{
		Bucket:      s.opts.Bucket,
		ObjectName:  objectName,
		ContentType: "application/json",
	}
	if err := queue.EnqueueProcess(ctx, s.deps.Queue, payload); err != nil {
		s.deps.Logger.Error("enqueue upload failed", zap.String("object", objectName), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to queue upload")
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]any{
		"fileName":   fileName,
		"objectName": objectName,
		"records":    len(upload.Records),
	})
}

func (s *Server) handleUploadLog(w http.ResponseWriter, r *http.Request) {
	entry, err := s.deps.Logs.UploadLog(r.Context(), chi.URLParam(r, "fileName"))
	if err != nil {
		if notFound(err) {
			respondError(w, http.StatusNotFound, "upload not found")
			return
		}
		s.deps.Logger.Error("read upload log failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to read upload log")
		return
	}
	respondJSON(w, http.StatusOK, entry)
}

func (s *Server) handleContacts(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "uid")
	found, err := s.deps.Contacts.FindByContact(r.Context(), uid)
	if err != nil {
		s.deps.Logger.Error("find contacts failed", zap.String("uid", uid), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to read contacts")
		return
	}
	exposures := s.deps.Exposure.Exposures(found, uid, s.now())
	respondJSON(w, http.StatusOK, map[string]any{
		"uid":      uid,
		"contacts": exposures,
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.deps.Logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("requestId", middleware.GetReqID(r.Context())))
	})
}

func notFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound) || errors.Is(err, storage.ErrNotFound)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
