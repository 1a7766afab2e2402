package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/ssuji15/rvsim/internal/service/logger"
	"github.com/ssuji15/rvsim/internal/storage"
	submissionmanager "github.com/ssuji15/rvsim/internal/submission_manager"
	"github.com/ssuji15/rvsim/model"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
	maxTicksField    = 64
	formOverhead     = 64 << 10
)

var ErrInvalidID = errors.New("invalid submission id")

// Submitter admits a job into the pipeline.
type Submitter interface {
	Submit(ctx context.Context, user model.User, ticks uint32, code []byte) (uuid.UUID, error)
}

// SubmissionReader serves persisted results and records.
type SubmissionReader interface {
	GetResult(ctx context.Context, id uuid.UUID) ([]byte, error)
	ListSubmissions(ctx context.Context, userID int64, limit int) ([]*model.Submission, error)
}

type Options struct {
	StaticDir   string
	CodesizeMax uint32
}

type Server struct {
	router      chi.Router
	submitter   Submitter
	submissions SubmissionReader
	auth        *Authenticator
	opts        Options
}

func NewServer(submitter Submitter, submissions SubmissionReader, auth *Authenticator, opts Options) *Server {
	s := &Server{
		router:      chi.NewRouter(),
		submitter:   submitter,
		submissions: submissions,
		auth:        auth,
		opts:        opts,
	}

	s.routes()
	return s
}

// Router returns the instrumented handler tree.
func (s *Server) Router() http.Handler {
	return otelhttp.NewHandler(s.router, "rvsim-http")
}

func (s *Server) routes() {
	r := s.router

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))

		r.Get("/health", s.handleHealth)
		r.Get("/submission", s.handleGetSubmission)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", s.auth.handleLogin)
			r.Get("/callback", s.auth.handleCallback)
			r.Post("/logout", s.auth.handleLogout)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.auth.Middleware)
			r.Post("/submit", s.handleSubmit)
			r.Get("/submissions", s.handleListSubmissions)
		})
	})

	if s.opts.StaticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(s.opts.StaticDir)))
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "Ok")
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)
	user, _ := UserFromContext(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, 2*int64(s.opts.CodesizeMax)+formOverhead)
	req, err := s.parseSubmit(r)
	if err != nil {
		log.Debug().Err(err).Msg("Bad submit request")
		writeError(w, http.StatusBadRequest, fmt.Sprintf("parse input: %v", err))
		return
	}

	id, err := s.submitter.Submit(ctx, user, req.Ticks, req.Code)
	if err != nil {
		var rejected *submissionmanager.AdmissionRejected
		switch {
		case errors.As(err, &rejected):
			writeError(w, http.StatusBadRequest, fmt.Sprintf("parse input: %v", rejected))
		case errors.Is(err, submissionmanager.ErrQueueClosed):
			log.Error().Err(err).Msg("Failed to submit task")
			writeError(w, http.StatusServiceUnavailable, err.Error())
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			log.Warn().Err(err).Msg("Gave up waiting for a queue slot")
			writeError(w, http.StatusServiceUnavailable, "submission queue is full")
		default:
			log.Error().Err(err).Msg("Failed to submit task")
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusAccepted, model.SubmitResponse{ID: id})
}

// parseSubmit reads the multipart form. The file part is read up to the code
// size limit, which is enough for admission to reject it.
func (s *Server) parseSubmit(r *http.Request) (model.SubmitRequest, error) {
	var (
		req       model.SubmitRequest
		haveTicks bool
		haveFile  bool
	)

	mr, err := r.MultipartReader()
	if err != nil {
		return req, err
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return req, err
		}

		switch name := part.FormName(); name {
		case "ticks":
			raw, err := io.ReadAll(io.LimitReader(part, maxTicksField))
			if err != nil {
				return req, fmt.Errorf("parsing ticks: %w", err)
			}
			v, err := strconv.ParseUint(string(raw), 10, 32)
			if err != nil {
				return req, fmt.Errorf("parsing ticks: %w", err)
			}
			req.Ticks = uint32(v)
			haveTicks = true
		case "file":
			data, err := io.ReadAll(io.LimitReader(part, int64(s.opts.CodesizeMax)))
			if err != nil {
				return req, fmt.Errorf("parsing file: %w", err)
			}
			req.Code = data
			haveFile = true
		case "":
			return req, errors.New("field without name")
		default:
			return req, fmt.Errorf("unknown field %q", name)
		}
		part.Close()
	}

	if !haveTicks {
		return req, errors.New("ticks field not set")
	}
	if !haveFile {
		return req, errors.New("file field not set")
	}
	return req, nil
}

func (s *Server) handleGetSubmission(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	raw := r.URL.Query().Get("id")
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("%v: %q", ErrInvalidID, raw))
		return
	}
	log := logger.ForSubmission(ctx, id.String())

	data, err := s.submissions.GetResult(ctx, id)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeNull(w, http.StatusNotFound)
	case err != nil:
		log.Error().Err(err).Msg("Unable to read result")
		writeNull(w, http.StatusInternalServerError)
	case !json.Valid(data):
		log.Error().Msg("Stored result is not valid JSON")
		writeNull(w, http.StatusInternalServerError)
	default:
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}

func (s *Server) handleListSubmissions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, _ := UserFromContext(ctx)

	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid limit %q", v))
			return
		}
		limit = min(n, maxListLimit)
	}

	subs, err := s.submissions.ListSubmissions(ctx, user.ID, limit)
	if err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Int64("user_id", user.ID).Msg("Unable to list submissions")
		writeError(w, http.StatusInternalServerError, "unable to list submissions")
		return
	}
	if subs == nil {
		subs = []*model.Submission{}
	}
	writeJSON(w, http.StatusOK, subs)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.Error().Err(err).Msg("Unable to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

func writeNull(w http.ResponseWriter, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, "null")
}
