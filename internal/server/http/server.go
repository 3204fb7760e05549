// Package httpserver exposes the account API over HTTP.
package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/and161185/ecosystem-api/internal/errs"
	"github.com/and161185/ecosystem-api/internal/model"
	"github.com/and161185/ecosystem-api/internal/service"
)

const defaultMaxUpload = 10 << 20

// Server wires the account service into HTTP handlers.
type Server struct {
	accounts  service.AccountService
	signKey   []byte
	log       *zap.Logger
	maxUpload int64
}

// New constructs an HTTP server with injected services.
func New(accounts service.AccountService, signKey []byte, log *zap.Logger, maxUpload int64) *Server {
	if maxUpload <= 0 {
		maxUpload = defaultMaxUpload
	}
	return &Server{accounts: accounts, signKey: signKey, log: log, maxUpload: maxUpload}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(RequestID)
	r.Use(Logging(s.log))
	r.Use(Recover(s.log))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Route("/api/accounts", func(r chi.Router) {
		r.Get("/author/{id}", s.getAuthor)

		r.Group(func(r chi.Router) {
			r.Use(Authenticate(s.signKey))
			r.Get("/", s.list)
			r.Post("/", s.create)
			r.Post("/SaveFile", s.saveFile)
			r.Get("/{id}", s.get)
			r.Patch("/{id}", s.patch)
			r.Delete("/{id}", s.delete)
			r.Put("/{id}/image", s.replaceImage)
			r.Put("/{id}/pass", s.rotatePassword)
		})
	})
	return r
}

// --- Handlers ---

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	all, err := s.accounts.GetAll(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]model.AccountRead, 0, len(all))
	for _, a := range all {
		out = append(out, a.ReadView())
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	acc, err := s.accounts.GetByID(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, acc.ReadView())
}

func (s *Server) getAuthor(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	a, err := s.accounts.GetAuthorByID(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	var in model.AccountCreate
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeMessage(w, http.StatusBadRequest, "bad body")
		return
	}
	acc, err := s.accounts.Create(r.Context(), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/api/accounts/%d", acc.ID))
	writeJSON(w, http.StatusCreated, acc.ReadView())
}

func (s *Server) patch(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "bad body")
		return
	}
	if err := s.accounts.Patch(r.Context(), id, body); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) replaceImage(w http.ResponseWriter, r *http.Request) {
	s.safeUpdate(w, r, s.accounts.ReplaceImage)
}

func (s *Server) rotatePassword(w http.ResponseWriter, r *http.Request) {
	s.safeUpdate(w, r, s.accounts.RotatePassword)
}

func (s *Server) safeUpdate(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, id int64, in model.AccountUpdate) error) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in model.AccountUpdate
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeMessage(w, http.StatusBadRequest, "bad body")
		return
	}
	if err := apply(r.Context(), id, in); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.accounts.Delete(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// saveFile stores the first file part of a multipart form. Any failure is logged and
// answered with the anonymous photo name so clients always get a usable value.
func (s *Server) saveFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	name, err := s.upload(r)
	if err != nil {
		s.log.Warn("upload failed",
			zap.String("request_id", r.Header.Get(requestIDHeader)),
			zap.Error(err),
		)
		name = model.DefaultPhotoFileName
	}
	writeJSON(w, http.StatusOK, name)
}

func (s *Server) upload(r *http.Request) (string, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return "", fmt.Errorf("%w: %w", errs.ErrFileIO, err)
	}
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return "", fmt.Errorf("%w: no file in form", errs.ErrFileIO)
		}
		if err != nil {
			return "", fmt.Errorf("%w: %w", errs.ErrFileIO, err)
		}
		if part.FileName() == "" {
			_ = part.Close()
			continue
		}
		defer part.Close()
		return s.accounts.Upload(r.Context(), part.FileName(), part)
	}
}

// --- Helpers ---

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	if !errors.Is(err, errs.ErrNotFound) && !errors.Is(err, errs.ErrDuplicateEmail) &&
		!errors.Is(err, errs.ErrValidation) {
		s.log.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", r.Header.Get(requestIDHeader)),
			zap.Error(err),
		)
	}
	writeError(w, err)
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, errs.ErrNotFound)
		return 0, false
	}
	return id, true
}

type errorBody struct {
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// writeError maps domain errors to status codes and the {"message"} body.
func writeError(w http.ResponseWriter, err error) {
	var ve *errs.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, errorBody{Message: "validation failed", Errors: ve.Fields})
	case errors.Is(err, errs.ErrNotFound):
		writeMessage(w, http.StatusNotFound, "Account doesn't exist")
	case errors.Is(err, errs.ErrDuplicateEmail):
		writeMessage(w, http.StatusBadRequest, "Email is currently being used")
	case errors.Is(err, errs.ErrUnauthorized):
		writeMessage(w, http.StatusUnauthorized, "unauthorized")
	default:
		writeMessage(w, http.StatusInternalServerError, "internal error")
	}
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Message: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
