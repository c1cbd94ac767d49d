package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/himanishpuri/shimmering/pkg/logger"
	"github.com/himanishpuri/shimmering/pkg/models"
	"github.com/himanishpuri/shimmering/pkg/shimmering"
	"github.com/himanishpuri/shimmering/pkg/shimmering/ocr"
	"github.com/himanishpuri/shimmering/pkg/shimmering/resolver"
)

// Server encapsulates the HTTP server and its dependencies
type Server struct {
	service shimmering.Service
	config  *ServerConfig
	log     shimmering.Logger
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int
	DBPath         string
	TempDir        string
	AllowedOrigins []string

	// UploadMemory is how much of a multipart body is held in memory before
	// parts spill to temp files. Zero means DefaultUploadMemory.
	UploadMemory int64
}

// NewServer creates a new server instance
func NewServer(service shimmering.Service, config *ServerConfig) *Server {
	return &Server{
		service: service,
		config:  config,
		log:     logger.GetLogger(),
	}
}

// respondJSON writes a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Errorf("Failed to encode JSON response: %v", err)
	}
}

// respondError writes an error response
func (s *Server) respondError(w http.ResponseWriter, statusCode int, message string) {
	s.respondJSON(w, statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	})
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, resolver.ErrMatchNotFound):
		return http.StatusNotFound
	case errors.Is(err, resolver.ErrEmptyCatalog):
		return http.StatusConflict
	case errors.Is(err, ocr.ErrToolNotFound), errors.Is(err, ocr.ErrInvalidRegion):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// handleRoot handles GET /
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]any{
		"service": "Shimmering API",
		"version": "1.0.0",
		"endpoints": map[string]string{
			"health":        "GET /health",
			"metrics":       "GET /api/health/metrics",
			"charts":        "GET /api/charts",
			"popularCharts": "GET /api/charts/popular?limit=10",
			"users":         "GET /api/users",
			"userScores":    "GET /api/users/{id}/scores",
			"userB30":       "GET /api/users/{id}/b30",
			"addScores":     "POST /api/scores",
			"calcRating":    "POST /api/calc/rating",
			"calcExpected":  "POST /api/calc/expected",
		},
	})
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// handleMetrics handles GET /api/health/metrics
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.Stats()
	if err != nil {
		s.log.Errorf("Failed to get counts: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to retrieve metrics")
		return
	}

	s.respondJSON(w, http.StatusOK, MetricsResponse{
		Status:       "healthy",
		DatabasePath: s.config.DBPath,
		ChartCount:   stats.Charts,
		UserCount:    stats.Users,
		ScoreCount:   stats.Scores,
	})
}

// handleCharts handles GET /api/charts
func (s *Server) handleCharts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	charts, err := s.service.ListCharts()
	if err != nil {
		s.log.Errorf("Failed to list charts: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to retrieve charts")
		return
	}
	if charts == nil {
		charts = []models.Chart{}
	}

	s.respondJSON(w, http.StatusOK, ListChartsResponse{Charts: charts, Count: len(charts)})
}

// handlePopularCharts handles GET /api/charts/popular
func (s *Server) handlePopularCharts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.respondError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	charts, err := s.service.MostPlayedCharts(limit)
	if err != nil {
		s.log.Errorf("Failed to list played charts: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to retrieve charts")
		return
	}
	if charts == nil {
		charts = []models.ChartPlays{}
	}

	s.respondJSON(w, http.StatusOK, PopularChartsResponse{Charts: charts, Count: len(charts)})
}

// handleUsers handles GET /api/users
func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	users, err := s.service.ListUsers()
	if err != nil {
		s.log.Errorf("Failed to list users: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to retrieve users")
		return
	}
	if users == nil {
		users = []models.UserSummary{}
	}

	s.respondJSON(w, http.StatusOK, ListUsersResponse{Users: users, Count: len(users)})
}

// handleUserScores handles GET /api/users/{id}/scores
func (s *Server) handleUserScores(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	user := r.PathValue("id")
	rows, err := s.service.BestScores(user)
	if err != nil {
		s.log.Errorf("Failed to list scores for %s: %v", user, err)
		s.respondError(w, http.StatusInternalServerError, "Failed to retrieve scores")
		return
	}
	if rows == nil {
		rows = []shimmering.ScoreRow{}
	}

	s.respondJSON(w, http.StatusOK, ScoresResponse{User: user, Scores: rows, Count: len(rows)})
}

// handleUserB30 handles GET /api/users/{id}/b30
func (s *Server) handleUserB30(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	user := r.PathValue("id")
	res, err := s.service.B30(user)
	if err != nil {
		s.log.Errorf("Failed to compute b30 for %s: %v", user, err)
		s.respondError(w, http.StatusInternalServerError, "Failed to compute potential")
		return
	}
	if res.Plays == nil {
		res.Plays = []shimmering.ScoreRow{}
	}

	s.respondJSON(w, http.StatusOK, res)
}

// handleAddScores handles POST /api/scores (multipart: user + image files)
func (s *Server) handleAddScores(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	memory := s.config.UploadMemory
	if memory <= 0 {
		memory = DefaultUploadMemory
	}
	if err := r.ParseMultipartForm(memory); err != nil {
		s.log.Errorf("Failed to parse form: %v", err)
		s.respondError(w, http.StatusBadRequest, "Failed to parse form data")
		return
	}
	defer r.MultipartForm.RemoveAll()

	user := r.FormValue("user")
	if user == "" {
		s.respondError(w, http.StatusBadRequest, "user is required")
		return
	}

	files := r.MultipartForm.File["image"]
	if len(files) == 0 {
		s.respondError(w, http.StatusBadRequest, "at least one image file is required")
		return
	}
	if len(files) > MaxImagesPerRequest {
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("too many images: %d (maximum: %d)", len(files), MaxImagesPerRequest))
		return
	}

	uploadDir, err := os.MkdirTemp(s.config.TempDir, "upload_")
	if err != nil {
		s.log.Errorf("Failed to create temp dir: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to process upload")
		return
	}
	defer os.RemoveAll(uploadDir)

	paths := make([]string, len(files))
	names := make(map[string]string, len(files))
	for i, fh := range files {
		path := filepath.Join(uploadDir, fmt.Sprintf("%03d_%s", i, filepath.Base(fh.Filename)))
		if err := saveUpload(fh, path); err != nil {
			s.log.Errorf("Failed to save file: %v", err)
			s.respondError(w, http.StatusInternalServerError, "Failed to save uploaded file")
			return
		}
		paths[i] = path
		names[path] = fh.Filename
	}

	s.log.Infof("Adding %d screenshot(s) for user %s", len(paths), user)
	rep, err := s.service.AddScores(ctx, user, paths)
	resp := clientView(user, rep, names)
	if err != nil {
		s.log.Errorf("Failed to add scores: %v", err)
		code := statusFor(err)
		s.respondJSON(w, code, IngestErrorResponse{
			ErrorResponse: ErrorResponse{
				Error:   http.StatusText(code),
				Message: fmt.Sprintf("Failed to add scores: %v", err),
				Code:    code,
			},
			Accepted:    resp.Accepted,
			Diagnostics: resp.Diagnostics,
		})
		return
	}

	s.log.Infof("Stored %d score(s) for %s", resp.Count, user)
	s.respondJSON(w, http.StatusCreated, resp)
}

// clientView rewrites the temp and quarantine paths in rep into the names the
// client knows. rep may be nil.
func clientView(user string, rep *shimmering.IngestReport, names map[string]string) IngestResponse {
	resp := IngestResponse{
		User:        user,
		Accepted:    []shimmering.ScoreRow{},
		Diagnostics: []shimmering.Diagnostic{},
	}
	if rep == nil {
		return resp
	}
	resp.Accepted = append(resp.Accepted, rep.Accepted...)
	resp.Count = len(resp.Accepted)

	for _, d := range rep.Diagnostics {
		if name, ok := names[d.Path]; ok {
			d.Message = strings.ReplaceAll(d.Message, d.Path, name)
			d.Path = name
		}
		if d.QuarantinedTo != "" {
			stored := filepath.Base(d.QuarantinedTo)
			d.Message = strings.ReplaceAll(d.Message, d.QuarantinedTo, stored)
			d.QuarantinedTo = stored
		}
		resp.Diagnostics = append(resp.Diagnostics, d)
	}
	return resp
}

func saveUpload(fh *multipart.FileHeader, dest string) error {
	in, err := fh.Open()
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func (s *Server) decodeCalc(w http.ResponseWriter, r *http.Request) (*CalcRequest, shimmering.ChartQuery, bool) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return nil, shimmering.ChartQuery{}, false
	}

	var req CalcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.log.Errorf("Failed to decode request: %v", err)
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return nil, shimmering.ChartQuery{}, false
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return nil, shimmering.ChartQuery{}, false
	}
	q, err := req.Query()
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return nil, shimmering.ChartQuery{}, false
	}
	return &req, q, true
}

// handleCalcRating handles POST /api/calc/rating
func (s *Server) handleCalcRating(w http.ResponseWriter, r *http.Request) {
	req, q, ok := s.decodeCalc(w, r)
	if !ok {
		return
	}

	row, err := s.service.CalcRating(q, req.Score)
	if err != nil {
		s.respondError(w, statusFor(err), err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, row)
}

// handleCalcExpected handles POST /api/calc/expected
func (s *Server) handleCalcExpected(w http.ResponseWriter, r *http.Request) {
	req, q, ok := s.decodeCalc(w, r)
	if !ok {
		return
	}

	exp, err := s.service.ExpectedScore(q, req.Rating)
	if err != nil {
		s.respondError(w, statusFor(err), err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, exp)
}
