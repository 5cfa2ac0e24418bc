package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"bolao/palpites/internal/models"
	"bolao/palpites/internal/service"
	"bolao/palpites/internal/standings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var validate = validator.New()

// photoTypes maps accepted upload extensions to their content type
var photoTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
}

// HealthFunc reports whether the storage backend is reachable
type HealthFunc func(ctx context.Context) error

// Handler serves the pool's HTTP API and comparison page
type Handler struct {
	pool      *service.Pool
	health    HealthFunc
	maxUpload int64
}

// NewHandler creates a Handler. health may be nil.
func NewHandler(pool *service.Pool, health HealthFunc, maxUpload int64) *Handler {
	return &Handler{pool: pool, health: health, maxUpload: maxUpload}
}

type errorResponse struct {
	Error string `json:"error"`
}

type roundsResponse struct {
	Rounds int      `json:"rounds"`
	Labels []string `json:"labels"`
}

type fixturesResponse struct {
	Round   int      `json:"round"`
	Matches []string `json:"matches"`
}

type saveResponse struct {
	User  string `json:"user"`
	Round int    `json:"round"`
	Saved int    `json:"saved"`
}

type extractResponse struct {
	UploadID string            `json:"upload_id"`
	User     string            `json:"user"`
	Round    int               `json:"round"`
	Guesses  map[string]string `json:"guesses"`
	Failed   bool              `json:"failed"`
}

type parseRequest struct {
	Text string `json:"text" validate:"required,max=8000"`
}

type standingsResponse struct {
	Owner  string          `json:"owner"`
	Cutoff int             `json:"cutoff"`
	Table  standings.Table `json:"table"`
}

type syncRequest struct {
	Round int `json:"round" validate:"omitempty,min=1"`
}

type syncResponse struct {
	Round  int `json:"round,omitempty"`
	Stored int `json:"stored"`
}

// GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		if err := h.health(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// GET /api/users
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"users": h.pool.Users()})
}

// GET /api/rounds
func (h *Handler) ListRounds(w http.ResponseWriter, r *http.Request) {
	n := h.pool.Rounds()
	resp := roundsResponse{Rounds: n, Labels: make([]string, n)}
	for i := range resp.Labels {
		resp.Labels[i] = "Rodada " + strconv.Itoa(i+1)
	}
	writeJSON(w, http.StatusOK, resp)
}

// GET /api/rounds/{round}/fixtures
func (h *Handler) GetFixtures(w http.ResponseWriter, r *http.Request) {
	round, ok := roundParam(w, r)
	if !ok {
		return
	}

	matches, err := h.pool.Matches(round)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fixturesResponse{Round: round, Matches: matches})
}

// GET /api/users/{user}/rounds/{round}/guesses
func (h *Handler) GetGuesses(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	round, ok := roundParam(w, r)
	if !ok {
		return
	}

	sheet, err := h.pool.RoundSheet(ctx, chi.URLParam(r, "user"), round)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sheet)
}

// PUT /api/users/{user}/rounds/{round}/guesses
func (h *Handler) PutGuesses(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	round, ok := roundParam(w, r)
	if !ok {
		return
	}

	var input models.GuessInput
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&input); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}

	user := chi.URLParam(r, "user")
	saved, err := h.pool.SaveGuesses(ctx, user, round, &input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saveResponse{User: user, Round: round, Saved: saved})
}

// POST /api/users/{user}/rounds/{round}/extract
//
// Accepts a multipart "photo" field (png, jpg or jpeg) and returns the
// guesses read from it as a draft. Nothing is stored.
func (h *Handler) ExtractGuesses(w http.ResponseWriter, r *http.Request) {
	round, ok := roundParam(w, r)
	if !ok {
		return
	}

	image, mimeType, err := h.readPhoto(w, r)
	if err != nil {
		var ue *uploadError
		if errors.As(err, &ue) {
			writeJSON(w, ue.status, errorResponse{Error: ue.msg})
			return
		}
		writeError(w, err)
		return
	}

	user := chi.URLParam(r, "user")
	uploadID, ext, err := h.extract(r.Context(), user, round, image, mimeType)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, extractResponse{
		UploadID: uploadID,
		User:     user,
		Round:    round,
		Guesses:  ext.Guesses,
		Failed:   ext.Failed,
	})
}

// uploadError is a rejected photo upload
type uploadError struct {
	status int
	msg    string
}

func (e *uploadError) Error() string {
	return e.msg
}

// readPhoto reads the multipart "photo" field, checking its extension and
// its sniffed content type. Rejections are *uploadError.
func (h *Handler) readPhoto(w http.ResponseWriter, r *http.Request) ([]byte, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		return nil, "", &uploadError{http.StatusBadRequest, "invalid or oversized upload"}
	}

	file, header, err := r.FormFile("photo")
	if err != nil {
		return nil, "", &uploadError{http.StatusBadRequest, "missing photo field"}
	}
	defer file.Close()

	mimeType, ok := photoTypes[strings.ToLower(filepath.Ext(header.Filename))]
	if !ok {
		return nil, "", &uploadError{http.StatusUnsupportedMediaType, "photo must be png, jpg or jpeg"}
	}

	image, err := io.ReadAll(file)
	if err != nil {
		return nil, "", &uploadError{http.StatusBadRequest, "failed to read photo"}
	}
	if detected := http.DetectContentType(image); detected != mimeType {
		return nil, "", &uploadError{http.StatusUnsupportedMediaType, "photo content does not match its extension"}
	}
	return image, mimeType, nil
}

// extract runs vision extraction with its own budget, shorter than the
// route's timeout so the draft is always written before it fires.
func (h *Handler) extract(ctx context.Context, user string, round int, image []byte, mimeType string) (string, *service.Extraction, error) {
	ctx, cancel := context.WithTimeout(ctx, extractBudget)
	defer cancel()

	ext, err := h.pool.ExtractGuesses(ctx, user, round, image, mimeType)
	if err != nil {
		return "", nil, err
	}

	uploadID := uuid.NewString()
	log.Info().
		Str("upload_id", uploadID).
		Str("user", user).
		Int("round", round).
		Int("size", len(image)).
		Int("read", len(ext.Guesses)).
		Bool("failed", ext.Failed).
		Msg("Guess sheet processed")

	return uploadID, ext, nil
}

// POST /api/users/{user}/rounds/{round}/parse
func (h *Handler) ParseGuesses(w http.ResponseWriter, r *http.Request) {
	round, ok := roundParam(w, r)
	if !ok {
		return
	}

	var req parseRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	parsed, err := h.pool.ParseGuessText(chi.URLParam(r, "user"), round, req.Text)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, parsed)
}

// GET /api/users/{user}/standings?cutoff=N
func (h *Handler) GetUserStandings(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	cutoff, ok := h.cutoffParam(w, r)
	if !ok {
		return
	}

	user := chi.URLParam(r, "user")
	table, err := h.pool.UserTable(ctx, user, cutoff)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, standingsResponse{Owner: user, Cutoff: cutoff, Table: table})
}

// GET /api/standings/official?cutoff=N
func (h *Handler) GetOfficialStandings(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	cutoff, ok := h.cutoffParam(w, r)
	if !ok {
		return
	}

	table, err := h.pool.OfficialTable(ctx, cutoff)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, standingsResponse{Owner: "official", Cutoff: cutoff, Table: table})
}

// GET /api/standings/compare?cutoff=N
func (h *Handler) GetComparison(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	cutoff, ok := h.cutoffParam(w, r)
	if !ok {
		return
	}

	cmp, err := h.pool.Compare(ctx, cutoff)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cmp)
}

// POST /api/results/sync
//
// Body {"round": N} syncs one round; an empty body syncs pending rounds.
func (h *Handler) SyncResults(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), syncBudget)
	defer cancel()

	var req syncRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<10)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	var (
		stored int
		err    error
	)
	if req.Round > 0 {
		stored, err = h.pool.SyncOfficialResults(ctx, req.Round)
	} else {
		stored, err = h.pool.SyncPending(ctx)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, syncResponse{Round: req.Round, Stored: stored})
}

func roundParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	round, err := strconv.Atoi(chi.URLParam(r, "round"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "round must be a number"})
		return 0, false
	}
	return round, true
}

// cutoffParam reads ?cutoff=, defaulting to the whole season
func (h *Handler) cutoffParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("cutoff")
	if raw == "" {
		return h.pool.Rounds(), true
	}
	cutoff, err := strconv.Atoi(raw)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "cutoff must be a number"})
		return 0, false
	}
	return cutoff, true
}

// writeError maps service errors to status codes
func writeError(w http.ResponseWriter, err error) {
	status := errorStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg("Request failed")
		msg = "internal error"
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

func errorStatus(err error) int {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrUnknownUser):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrRoundOutOfRange),
		errors.Is(err, service.ErrUnknownMatch),
		errors.Is(err, service.ErrInvalidScore),
		errors.Is(err, standings.ErrInvalidArgument):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrNoResultsSource):
		status = http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}
	return status
}

// Helper to write JSON responses.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
