package api

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"bolao/palpites/internal/models"
	"bolao/palpites/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

//go:embed templates/*.html
var templateFS embed.FS

var (
	indexTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))
	roundTemplate = template.Must(template.ParseFS(templateFS, "templates/round.html"))
)

type indexPage struct {
	Comparison *models.Comparison
	Rounds     []int
}

// roundPage is the per-round view: photo upload plus the editable sheet
type roundPage struct {
	Users   []string
	User    string
	Rounds  []int
	Round   int
	Entries []models.SheetEntry
	Notice  string
	Error   string
}

// GET /?cutoff=N renders the comparison table
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
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

	page := indexPage{Comparison: cmp, Rounds: h.roundNumbers()}
	render(w, indexTemplate, http.StatusOK, page)
}

// GET /rodadas?user=U&round=N
func (h *Handler) RoundPage(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	q := r.URL.Query()
	user := q.Get("user")
	if user == "" {
		user = h.pool.Users()[0]
	}
	round := 1
	if raw := q.Get("round"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			http.Error(w, "rodada inválida", http.StatusBadRequest)
			return
		}
		round = n
	}

	sheet, err := h.pool.RoundSheet(ctx, user, round)
	if err != nil {
		http.Error(w, err.Error(), errorStatus(err))
		return
	}

	page := h.newRoundPage(user, round, sheet.Entries)
	if saved := q.Get("salvos"); saved != "" {
		page.Notice = saved + " palpites salvos."
	}
	render(w, roundTemplate, http.StatusOK, page)
}

// POST /rodadas/{user}/{round}
//
// Form fields "match" and "score" repeat once per fixture, in order. Blank
// scores are left untouched.
func (h *Handler) SaveRoundForm(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	round, err := strconv.Atoi(chi.URLParam(r, "round"))
	if err != nil {
		http.Error(w, "rodada inválida", http.StatusBadRequest)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "formulário inválido", http.StatusBadRequest)
		return
	}

	matches, scores := r.PostForm["match"], r.PostForm["score"]
	if len(matches) != len(scores) {
		http.Error(w, "formulário inválido", http.StatusBadRequest)
		return
	}

	user := chi.URLParam(r, "user")
	entries := make([]models.SheetEntry, len(matches))
	input := &models.GuessInput{Guesses: map[string]string{}, Source: models.SourceManual}
	for i := range matches {
		entries[i] = models.SheetEntry{MatchLabel: matches[i], ScoreLabel: strings.TrimSpace(scores[i])}
		if entries[i].ScoreLabel != "" {
			input.Guesses[matches[i]] = entries[i].ScoreLabel
		}
	}

	if len(input.Guesses) == 0 {
		page := h.newRoundPage(user, round, entries)
		page.Error = "Nenhum palpite preenchido."
		render(w, roundTemplate, http.StatusBadRequest, page)
		return
	}

	saved, err := h.pool.SaveGuesses(ctx, user, round, input)
	if err != nil {
		status := errorStatus(err)
		if status == http.StatusNotFound || errors.Is(err, service.ErrRoundOutOfRange) {
			http.Error(w, err.Error(), status)
			return
		}
		page := h.newRoundPage(user, round, entries)
		page.Error = "Palpites não salvos: " + err.Error()
		render(w, roundTemplate, status, page)
		return
	}

	target := url.URL{Path: "/rodadas", RawQuery: url.Values{
		"user":   {user},
		"round":  {strconv.Itoa(round)},
		"salvos": {strconv.Itoa(saved)},
	}.Encode()}
	http.Redirect(w, r, target.String(), http.StatusSeeOther)
}

// POST /rodadas/{user}/{round}/foto
//
// Reads the photo and shows the extracted guesses in the edit form for
// review. Nothing is saved until the form is submitted.
func (h *Handler) ExtractRoundForm(w http.ResponseWriter, r *http.Request) {
	round, err := strconv.Atoi(chi.URLParam(r, "round"))
	if err != nil {
		http.Error(w, "rodada inválida", http.StatusBadRequest)
		return
	}
	user := chi.URLParam(r, "user")

	sheet, err := h.pool.RoundSheet(r.Context(), user, round)
	if err != nil {
		http.Error(w, err.Error(), errorStatus(err))
		return
	}
	page := h.newRoundPage(user, round, sheet.Entries)

	image, mimeType, err := h.readPhoto(w, r)
	if err != nil {
		var ue *uploadError
		if !errors.As(err, &ue) {
			http.Error(w, err.Error(), errorStatus(err))
			return
		}
		page.Error = "Foto rejeitada: " + ue.msg
		render(w, roundTemplate, ue.status, page)
		return
	}

	_, ext, err := h.extract(r.Context(), user, round, image, mimeType)
	if err != nil {
		http.Error(w, err.Error(), errorStatus(err))
		return
	}

	if ext.Failed {
		page.Error = "Não foi possível ler a foto. Preencha os palpites manualmente."
	} else {
		for i, e := range page.Entries {
			if score, ok := ext.Guesses[e.MatchLabel]; ok {
				page.Entries[i].ScoreLabel = score
			}
		}
		page.Notice = strconv.Itoa(len(ext.Guesses)) + " palpites lidos da foto. Revise e salve."
	}
	render(w, roundTemplate, http.StatusOK, page)
}

func (h *Handler) newRoundPage(user string, round int, entries []models.SheetEntry) roundPage {
	return roundPage{
		Users:   h.pool.Users(),
		User:    user,
		Rounds:  h.roundNumbers(),
		Round:   round,
		Entries: entries,
	}
}

func (h *Handler) roundNumbers() []int {
	rounds := make([]int, h.pool.Rounds())
	for i := range rounds {
		rounds[i] = i + 1
	}
	return rounds
}

func render(w http.ResponseWriter, tmpl *template.Template, status int, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := tmpl.Execute(w, data); err != nil {
		log.Error().Err(err).Str("template", tmpl.Name()).Msg("Failed to render page")
	}
}
