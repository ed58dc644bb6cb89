package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	enumspb "go.temporal.io/api/enums/v1"
	tclient "go.temporal.io/sdk/client"

	"quizsmith/internal/cache"
	"quizsmith/internal/config"
	"quizsmith/internal/ingest"
	"quizsmith/internal/parser"
	"quizsmith/internal/storage"
	"quizsmith/internal/workflows"
)

type Server struct {
	cfg       config.Config
	db        *storage.DB
	svc       *ingest.Service
	artifacts *storage.ArtifactRepo
	parsed    *storage.ParsedRepo
	temporal  tclient.Client
}

func NewServer(cfg config.Config) *Server {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	db, err := storage.NewDB(ctx, cfg.PostgresURL)
	if err != nil {
		panic(err)
	}
	if err := storage.EnsureSchema(ctx, db); err != nil {
		panic(err)
	}
	tc, err := tclient.Dial(tclient.Options{HostPort: cfg.TemporalAddress})
	if err != nil {
		panic(err)
	}

	artifacts := storage.NewArtifactRepo(db)
	parsed := storage.NewParsedRepo(db)
	svc := ingest.NewService(ingest.Options{
		MaxUploadBytes:  cfg.MaxUploadBytes,
		ExtractTimeout:  time.Duration(cfg.ExtractTimeoutSecs) * time.Second,
		StrictTypeCheck: cfg.StrictTypeCheck,
		Segment: parser.SegmentConfig{
			MaxHeadingLen: cfg.MaxHeadingLen,
			MinTextLen:    cfg.MinSectionLen,
		},
	}, cache.New(time.Duration(cfg.CacheTTLSeconds)*time.Second), artifacts, parsed)

	return &Server{
		cfg:       cfg,
		db:        db,
		svc:       svc,
		artifacts: artifacts,
		parsed:    parsed,
		temporal:  tc,
	}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/artifacts", s.handleArtifacts)
	mux.HandleFunc("/artifacts/", s.handleArtifactScoped)
	mux.HandleFunc("/reparse", s.handleBatchReparse)
	mux.HandleFunc("/reparse/progress", s.handleReparseProgress)
	return withCORS(mux)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleArtifacts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		artifacts, err := s.artifacts.ListArtifacts(r.Context())
		if err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"artifacts": artifacts})
	case http.MethodPost:
		s.handleUpload(w, r)
	default:
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
	}
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	fh, err := uploadedFile(r, s.cfg.MaxUploadBytes)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	raw, err := readFileHeader(fh)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}

	res, err := s.svc.Ingest(r.Context(), fh.Filename, fh.Header.Get("Content-Type"), raw, ingest.UploadOptions{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
	})
	if err != nil {
		// An extraction failure still produced an artifact; return it so
		// the client can retry via reparse.
		if res.Artifact.ArtifactID != "" {
			writeJSON(w, statusFor(err), map[string]any{
				"artifact": res.Artifact,
				"error":    errBody(err),
			})
			return
		}
		writeErr(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"artifact":      res.Artifact,
		"parsed":        res.Parsed,
		"type_mismatch": res.TypeMismatch,
	})
}

func (s *Server) handleArtifactScoped(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/artifacts/"), "/"), "/")
	if len(parts) < 1 || parts[0] == "" {
		writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
		return
	}
	artifactID := parts[0]

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			artifact, err := s.artifacts.GetArtifact(r.Context(), artifactID)
			if err != nil {
				writeErr(w, statusFor(err), err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"artifact": artifact})
		case http.MethodPut:
			s.handleReupload(w, r, artifactID)
		case http.MethodDelete:
			if err := s.svc.Delete(r.Context(), artifactID); err != nil {
				writeErr(w, statusFor(err), err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"deleted": artifactID})
		default:
			writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		}
		return
	}

	if len(parts) != 2 {
		writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
		return
	}

	switch parts[1] {
	case "content":
		if r.Method != http.MethodGet {
			writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
			return
		}
		artifact, raw, err := s.svc.Download(r.Context(), artifactID)
		if err != nil {
			writeErr(w, statusFor(err), err)
			return
		}
		w.Header().Set("Content-Type", artifact.ContentType)
		w.Header().Set("Content-Disposition", `attachment; filename="`+artifact.Filename+`"`)
		_, _ = w.Write(raw)
	case "parsed":
		if r.Method != http.MethodGet {
			writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
			return
		}
		pc, err := s.svc.Parsed(r.Context(), artifactID)
		if err != nil {
			writeErr(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"parsed": pc})
	case "sections":
		if r.Method != http.MethodGet {
			writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
			return
		}
		pc, err := s.svc.Parsed(r.Context(), artifactID)
		if err != nil {
			writeErr(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"artifact_id": artifactID, "sections": pc.Sections})
	case "reparse":
		if r.Method != http.MethodPost {
			writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
			return
		}
		res, err := s.svc.Reparse(r.Context(), artifactID)
		if err != nil {
			if res.Artifact.ArtifactID != "" {
				writeJSON(w, statusFor(err), map[string]any{
					"artifact": res.Artifact,
					"error":    errBody(err),
				})
				return
			}
			writeErr(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"artifact": res.Artifact, "parsed": res.Parsed})
	case "quiz":
		if r.Method != http.MethodPost {
			writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
			return
		}
		var req struct {
			QuestionCount int `json:"question_count"`
		}
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&req)
		}
		if req.QuestionCount <= 0 {
			req.QuestionCount = s.cfg.QuizQuestionCount
		}
		runID := uuid.NewString()
		we, err := s.temporal.ExecuteWorkflow(r.Context(), tclient.StartWorkflowOptions{
			ID:        "quiz-" + artifactID + "-" + runID,
			TaskQueue: s.cfg.TemporalTaskQueue,
		}, workflows.QuizBuildWorkflow, workflows.QuizBuildInput{
			ArtifactID:    artifactID,
			RunID:         runID,
			QuestionCount: req.QuestionCount,
		})
		if err != nil {
			writeErr(w, http.StatusConflict, err)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]any{"workflow_id": we.GetID(), "run_id": we.GetRunID()})
	default:
		writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
	}
}

func (s *Server) handleReupload(w http.ResponseWriter, r *http.Request, artifactID string) {
	fh, err := uploadedFile(r, s.cfg.MaxUploadBytes)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	raw, err := readFileHeader(fh)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	res, err := s.svc.Reupload(r.Context(), artifactID, fh.Filename, fh.Header.Get("Content-Type"), raw)
	if err != nil {
		if res.Artifact.ArtifactID != "" {
			writeJSON(w, statusFor(err), map[string]any{"artifact": res.Artifact, "error": errBody(err)})
			return
		}
		writeErr(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"artifact": res.Artifact, "parsed": res.Parsed})
}

func (s *Server) handleBatchReparse(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	we, err := s.temporal.ExecuteWorkflow(r.Context(), tclient.StartWorkflowOptions{
		ID:                                       "batch-reparse",
		TaskQueue:                                s.cfg.TemporalTaskQueue,
		WorkflowIDReusePolicy:                    enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
		WorkflowExecutionErrorWhenAlreadyStarted: true,
	}, workflows.BatchReparseWorkflow, workflows.BatchReparseInput{
		MaxConcurrentChildren: s.cfg.ReparseMaxChildren,
	})
	if err != nil {
		writeErr(w, http.StatusConflict, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"workflow_id": we.GetID(), "run_id": we.GetRunID()})
}

func (s *Server) handleReparseProgress(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	var prog workflows.BatchReparseProgress
	resp, err := s.temporal.QueryWorkflow(r.Context(), "batch-reparse", "", workflows.QueryGetProgress)
	if err != nil {
		writeErr(w, http.StatusNotFound, err)
		return
	}
	if err := resp.Get(&prog); err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, prog)
}

func uploadedFile(r *http.Request, maxBytes int64) (*multipart.FileHeader, error) {
	if err := r.ParseMultipartForm(maxBytes + 1<<20); err != nil {
		return nil, fmt.Errorf("parse multipart: %w", err)
	}
	files := r.MultipartForm.File["file"]
	if len(files) == 0 {
		if single, ok := firstSingleFile(r.MultipartForm.File); ok {
			return single, nil
		}
		return nil, fmt.Errorf("no file provided")
	}
	return files[0], nil
}

func readFileHeader(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()
	raw, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	return raw, nil
}

func firstSingleFile(m map[string][]*multipart.FileHeader) (*multipart.FileHeader, bool) {
	for _, v := range m {
		if len(v) > 0 {
			return v[0], true
		}
	}
	return nil, false
}

// statusFor maps the pipeline's typed errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, parser.ErrUnsupportedType),
		errors.Is(err, parser.ErrTypeMismatch),
		errors.Is(err, parser.ErrEmpty):
		return http.StatusBadRequest
	case errors.Is(err, parser.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, parser.ErrNoExtractableText),
		errors.Is(err, parser.ErrSchemaMismatch):
		return http.StatusUnprocessableEntity
	case errors.Is(err, parser.ErrExtractionTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, ingest.ErrNotReparseable):
		return http.StatusConflict
	case errors.Is(err, pgx.ErrNoRows):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// errBody names the stage that failed and whether a retry is worthwhile.
func errBody(err error) map[string]any {
	stage := "storage"
	switch {
	case errors.Is(err, parser.ErrUnsupportedType),
		errors.Is(err, parser.ErrTypeMismatch),
		errors.Is(err, parser.ErrTooLarge),
		errors.Is(err, parser.ErrEmpty):
		stage = "validation"
	case errors.Is(err, parser.ErrNoExtractableText),
		errors.Is(err, parser.ErrSchemaMismatch),
		errors.Is(err, parser.ErrExtractionTimeout):
		stage = "extraction"
	}
	return map[string]any{
		"stage":     stage,
		"message":   err.Error(),
		"retryable": parser.Retryable(err),
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]any{"error": errBody(err)})
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
