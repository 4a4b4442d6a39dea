package web

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"time"

	"pdfsum/internal/domain"
	"pdfsum/internal/extractor"
	"pdfsum/internal/pipeline"
)

const (
	uploadFormField = "file"
	// Room for multipart boundaries and headers on top of the file itself.
	multipartOverheadBytes = 1 << 20
	multipartMemoryBytes   = 8 << 20
)

var errMissingUpload = errors.New("missing upload")

//go:embed templates/*.html
var templatesFS embed.FS

type Server struct {
	pipeline       *pipeline.Pipeline
	maxUploadBytes int64
	pages          map[string]*template.Template
	log            *slog.Logger
}

type errorPage struct {
	Kind    pipeline.Kind
	Message string
}

type summaryResponse struct {
	Summary     string `json:"summary"`
	Instruction string `json:"instruction"`
	Model       string `json:"model,omitempty"`
	Disclaimer  string `json:"disclaimer"`
	Pages       int    `json:"pages"`
}

type errorResponse struct {
	Error string        `json:"error"`
	Kind  pipeline.Kind `json:"kind"`
}

func New(p *pipeline.Pipeline, maxUploadBytes int64, log *slog.Logger) (*Server, error) {
	pages := make(map[string]*template.Template, 3)

	for _, name := range []string{"index.html", "result.html", "error.html"} {
		tmpl, err := template.New(name).
			Funcs(template.FuncMap{"linkify": linkify}).
			ParseFS(templatesFS, "templates/layout.html", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}

		pages[name] = tmpl
	}

	return &Server{
		pipeline:       p,
		maxUploadBytes: maxUploadBytes,
		pages:          pages,
		log:            log,
	}, nil
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /summarize", s.handleSummarizeForm)
	mux.HandleFunc("POST /api/summaries", s.handleSummarizeAPI)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	return s.logRequests(mux)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "index.html", nil)
}

func (s *Server) handleSummarizeForm(w http.ResponseWriter, r *http.Request) {
	upload, err := s.readUpload(w, r)
	if err != nil {
		s.renderError(w, r, err)
		return
	}

	summary, err := s.pipeline.Run(r.Context(), upload)
	if err != nil {
		s.renderError(w, r, err)
		return
	}

	s.render(w, r, http.StatusOK, "result.html", summary)
}

func (s *Server) handleSummarizeAPI(w http.ResponseWriter, r *http.Request) {
	upload, err := s.readUpload(w, r)
	if err != nil {
		s.writeJSONError(w, r, err)
		return
	}

	summary, err := s.pipeline.Run(r.Context(), upload)
	if err != nil {
		s.writeJSONError(w, r, err)
		return
	}

	s.writeJSON(w, r, http.StatusOK, summaryResponse{
		Summary:     summary.Text,
		Instruction: summary.Instruction,
		Model:       summary.Model,
		Disclaimer:  summary.Disclaimer,
		Pages:       summary.Pages,
	})
}

// readUpload accepts a multipart form with a "file" field or a raw
// application/pdf body.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (domain.Upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes+multipartOverheadBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		data, err := readLimited(r.Body, s.maxUploadBytes)
		if err != nil {
			return domain.Upload{}, err
		}
		if len(data) == 0 {
			return domain.Upload{}, errMissingUpload
		}

		return domain.Upload{Name: "upload.pdf", Data: data}, nil
	}

	if err := r.ParseMultipartForm(multipartMemoryBytes); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return domain.Upload{}, err
		}

		return domain.Upload{}, fmt.Errorf("%w: parse form: %w", errMissingUpload, err)
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			s.log.WarnContext(r.Context(), "Failed to remove multipart temp files",
				"error", err)
		}
	}()

	file, header, err := r.FormFile(uploadFormField)
	if err != nil {
		return domain.Upload{}, fmt.Errorf("%w: %w", errMissingUpload, err)
	}
	defer func() {
		_ = file.Close()
	}()

	data, err := readLimited(file, s.maxUploadBytes)
	if err != nil {
		return domain.Upload{}, err
	}

	return domain.Upload{Name: filepath.Base(header.Filename), Data: data}, nil
}

func readLimited(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}

	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w (limit = %d)", extractor.ErrTooLarge, limit)
	}

	return data, nil
}

func statusFor(err error) int {
	if errors.Is(err, errMissingUpload) {
		return http.StatusBadRequest
	}

	switch pipeline.KindOf(err) {
	case pipeline.KindTooLarge:
		return http.StatusRequestEntityTooLarge
	case pipeline.KindEmptyContent, pipeline.KindExtraction:
		return http.StatusUnprocessableEntity
	case pipeline.KindNonSuccess, pipeline.KindMalformedResponse:
		return http.StatusBadGateway
	case pipeline.KindTransport:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func messageFor(err error) string {
	if errors.Is(err, errMissingUpload) {
		return "Please choose a PDF file to upload."
	}

	return pipeline.UserMessage(err)
}

func (s *Server) logFailure(r *http.Request, status int, err error) {
	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}

	s.log.Log(r.Context(), level, "Failed to summarize upload",
		"error", err,
		"kind", pipeline.KindOf(err),
		"status", status,
		"path", r.URL.Path)
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	s.logFailure(r, status, err)

	s.render(w, r, status, "error.html", errorPage{
		Kind:    pipeline.KindOf(err),
		Message: messageFor(err),
	})
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, page string, data any) {
	var buf bytes.Buffer
	if err := s.pages[page].ExecuteTemplate(&buf, "layout", data); err != nil {
		s.log.ErrorContext(r.Context(), "Failed to render page",
			"error", err,
			"page", page)

		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *Server) writeJSONError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	s.logFailure(r, status, err)

	s.writeJSON(w, r, status, errorResponse{
		Error: messageFor(err),
		Kind:  pipeline.KindOf(err),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.ErrorContext(r.Context(), "Failed to write JSON response",
			"error", err,
			"status", status)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		s.log.InfoContext(r.Context(), "Request is served",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"durationSeconds", time.Since(start).Seconds())
	})
}
