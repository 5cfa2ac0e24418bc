package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"bolao/palpites/internal/fixtures"
	"bolao/palpites/internal/models"
	"bolao/palpites/internal/service"
	"bolao/palpites/internal/service/servicetest"
	"bolao/palpites/internal/standings"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	pngHeader  = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	jpegHeader = []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00")
)

type testServer struct {
	router  http.Handler
	pool    *service.Pool
	vision  *servicetest.Extractor
	source  *servicetest.Source
	results *servicetest.ResultStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	provider, err := fixtures.NewProvider([]string{"Bahia", "Flamengo", "Remo", "Vasco"})
	require.NoError(t, err)

	ts := &testServer{
		vision:  &servicetest.Extractor{},
		source:  &servicetest.Source{Rounds: map[int][]*models.OfficialResult{}},
		results: servicetest.NewResultStore(),
	}
	ts.pool, err = service.New(service.Options{
		Users:    []string{"Maicon", "Fabinho"},
		Fixtures: provider,
		Guesses:  servicetest.NewGuessStore(),
		Results:  ts.results,
		Vision:   ts.vision,
		Source:   ts.source,
	})
	require.NoError(t, err)

	ts.router = NewRouter(NewHandler(ts.pool, nil, 1<<20))
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body []byte, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func photoUpload(t *testing.T, filename string, content []byte) ([]byte, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("photo", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return buf.Bytes(), mw.FormDataContentType()
}

func TestListUsersAndRounds(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/users", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"Maicon", "Fabinho"}, decode[map[string][]string](t, rec)["users"])

	rec = ts.do(t, http.MethodGet, "/api/rounds", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	rounds := decode[roundsResponse](t, rec)
	assert.Equal(t, 6, rounds.Rounds)
	assert.Equal(t, "Rodada 6", rounds.Labels[5])
}

func TestGetFixtures(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/rounds/1/fixtures", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[fixturesResponse](t, rec).Matches, 2)

	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodGet, "/api/rounds/7/fixtures", nil, "").Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodGet, "/api/rounds/um/fixtures", nil, "").Code)
}

func TestPutAndGetGuesses(t *testing.T) {
	ts := newTestServer(t)
	labels, err := ts.pool.Matches(1)
	require.NoError(t, err)

	body, _ := json.Marshal(models.GuessInput{Guesses: map[string]string{labels[0]: "2 x 1"}})
	rec := ts.do(t, http.MethodPut, "/api/users/Maicon/rounds/1/guesses", body, "application/json")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 1, decode[saveResponse](t, rec).Saved)

	rec = ts.do(t, http.MethodGet, "/api/users/Maicon/rounds/1/guesses", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	sheet := decode[models.RoundSheet](t, rec)
	assert.Equal(t, 1, sheet.Filled)
	assert.Equal(t, "2x1", sheet.Entries[0].ScoreLabel)
}

func TestPutGuessesErrors(t *testing.T) {
	ts := newTestServer(t)
	labels, err := ts.pool.Matches(1)
	require.NoError(t, err)

	valid, _ := json.Marshal(models.GuessInput{Guesses: map[string]string{labels[0]: "1x0"}})
	unknownMatch, _ := json.Marshal(models.GuessInput{Guesses: map[string]string{"Remo x Remo": "1x0"}})
	badScore, _ := json.Marshal(models.GuessInput{Guesses: map[string]string{labels[0]: "um a zero"}})

	tests := []struct {
		name string
		path string
		body []byte
		want int
	}{
		{"unknown user", "/api/users/Joao/rounds/1/guesses", valid, http.StatusNotFound},
		{"round out of range", "/api/users/Maicon/rounds/40/guesses", valid, http.StatusBadRequest},
		{"invalid json", "/api/users/Maicon/rounds/1/guesses", []byte("{"), http.StatusBadRequest},
		{"empty guesses", "/api/users/Maicon/rounds/1/guesses", []byte(`{"guesses":{}}`), http.StatusBadRequest},
		{"unknown match", "/api/users/Maicon/rounds/1/guesses", unknownMatch, http.StatusBadRequest},
		{"bad score", "/api/users/Maicon/rounds/1/guesses", badScore, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, http.MethodPut, tt.path, tt.body, "application/json")
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
			assert.NotEmpty(t, decode[errorResponse](t, rec).Error)
		})
	}
}

func TestExtractGuesses(t *testing.T) {
	ts := newTestServer(t)
	labels, err := ts.pool.Matches(2)
	require.NoError(t, err)
	ts.vision.Guesses = map[string]string{labels[0]: "3x3"}

	body, contentType := photoUpload(t, "rodada2.PNG", pngHeader)
	rec := ts.do(t, http.MethodPost, "/api/users/Fabinho/rounds/2/extract", body, contentType)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[extractResponse](t, rec)
	_, err = uuid.Parse(resp.UploadID)
	assert.NoError(t, err)
	assert.Equal(t, map[string]string{labels[0]: "3x3"}, resp.Guesses)
	assert.False(t, resp.Failed)
	assert.Equal(t, "image/png", ts.vision.MimeType)
}

func TestExtractGuessesFailureIsEmptyDraft(t *testing.T) {
	ts := newTestServer(t)
	ts.vision.Err = errors.New("quota exceeded")

	body, contentType := photoUpload(t, "foto.png", pngHeader)
	rec := ts.do(t, http.MethodPost, "/api/users/Maicon/rounds/1/extract", body, contentType)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[extractResponse](t, rec)
	assert.True(t, resp.Failed)
	assert.Empty(t, resp.Guesses)
}

func TestExtractGuessesRejectsUploads(t *testing.T) {
	ts := newTestServer(t)

	gif, gifType := photoUpload(t, "foto.gif", []byte("GIF89a"))
	rec := ts.do(t, http.MethodPost, "/api/users/Maicon/rounds/1/extract", gif, gifType)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)

	fake, fakeType := photoUpload(t, "foto.jpg", []byte("not really a jpeg"))
	rec = ts.do(t, http.MethodPost, "/api/users/Maicon/rounds/1/extract", fake, fakeType)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/users/Maicon/rounds/1/extract", []byte("{}"), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	big, bigType := photoUpload(t, "foto.png", append(append([]byte{}, pngHeader...), make([]byte, 2<<20)...))
	rec = ts.do(t, http.MethodPost, "/api/users/Maicon/rounds/1/extract", big, bigType)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestParseGuesses(t *testing.T) {
	ts := newTestServer(t)
	labels, err := ts.pool.Matches(1)
	require.NoError(t, err)
	m, _ := standings.ParseMatchLabel(labels[1])

	body, _ := json.Marshal(parseRequest{Text: m.Home + " 0 x 2 " + m.Away})
	rec := ts.do(t, http.MethodPost, "/api/users/Maicon/rounds/1/parse", body, "application/json")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	parsed := decode[service.TextParse](t, rec)
	assert.Equal(t, map[string]string{labels[1]: "0x2"}, parsed.Guesses)

	rec = ts.do(t, http.MethodPost, "/api/users/Maicon/rounds/1/parse", []byte(`{"text":""}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStandingsEndpoints(t *testing.T) {
	ts := newTestServer(t)
	labels, err := ts.pool.Matches(1)
	require.NoError(t, err)

	input := &models.GuessInput{Guesses: map[string]string{labels[0]: "1x0", labels[1]: "1x1"}}
	_, err = ts.pool.SaveGuesses(context.Background(), "Maicon", 1, input)
	require.NoError(t, err)

	rec := ts.do(t, http.MethodGet, "/api/users/Maicon/standings?cutoff=1", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[standingsResponse](t, rec)
	assert.Equal(t, 1, resp.Cutoff)
	assert.Equal(t, 5, resp.Table.TotalPoints())

	rec = ts.do(t, http.MethodGet, "/api/users/Maicon/standings", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 6, decode[standingsResponse](t, rec).Cutoff, "Cutoff defaults to the whole season")

	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodGet, "/api/users/Maicon/standings?cutoff=-1", nil, "").Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodGet, "/api/users/Maicon/standings?cutoff=x", nil, "").Code)
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/api/users/Joao/standings", nil, "").Code)

	rec = ts.do(t, http.MethodGet, "/api/standings/official?cutoff=0", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	official := decode[standingsResponse](t, rec)
	assert.Len(t, official.Table, 4)
	assert.Equal(t, 0, official.Table.TotalPoints())

	rec = ts.do(t, http.MethodGet, "/api/standings/compare?cutoff=1", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	cmp := decode[models.Comparison](t, rec)
	assert.Len(t, cmp.Rows, 4)
	assert.Equal(t, []string{"Maicon", "Fabinho"}, cmp.Users)
}

func TestSyncResults(t *testing.T) {
	ts := newTestServer(t)
	ts.source.Rounds[1] = []*models.OfficialResult{
		{HomeTeam: "Vasco", AwayTeam: "Flamengo", HomeGoals: 0, AwayGoals: 3, Source: "cbf"},
	}

	rec := ts.do(t, http.MethodPost, "/api/results/sync", []byte(`{"round":1}`), "application/json")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 1, decode[syncResponse](t, rec).Stored)

	rec = ts.do(t, http.MethodPost, "/api/results/sync", nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodPost, "/api/results/sync", []byte(`{"round":-2}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/standings/official?cutoff=1", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	table := decode[standingsResponse](t, rec).Table
	assert.Equal(t, "Flamengo", table[0].Team)
}

func TestIndexPage(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/?cutoff=2", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")

	html := rec.Body.String()
	assert.Contains(t, html, "Posição")
	assert.Contains(t, html, "<th>Maicon</th>")
	assert.Contains(t, html, "<th>Fabinho</th>")
	assert.Equal(t, 4, strings.Count(html, "<tr>\n      <td>"), "One row per team")
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/health", nil, "").Code)

	down := NewRouter(NewHandler(ts.pool, func(ctx context.Context) error { return errors.New("db down") }, 1<<20))
	rec := httptest.NewRecorder()
	down.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSlowRoutesOutliveRequestTimeout(t *testing.T) {
	ts := newTestServer(t)

	body, contentType := photoUpload(t, "foto.png", pngHeader)
	rec := ts.do(t, http.MethodPost, "/api/users/Maicon/rounds/1/extract", body, contentType)
	require.Equal(t, http.StatusOK, rec.Code)
	require.False(t, ts.vision.Deadline.IsZero())
	left := time.Until(ts.vision.Deadline).Seconds()
	assert.Greater(t, left, requestTimeout.Seconds())
	assert.LessOrEqual(t, left, extractBudget.Seconds(), "Extraction stops before the route timeout")

	rec = ts.do(t, http.MethodPost, "/api/results/sync", []byte(`{"round":1}`), "application/json")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.False(t, ts.source.Deadline.IsZero())
	assert.Greater(t, time.Until(ts.source.Deadline).Seconds(), requestTimeout.Seconds())
}

func TestRoundPage(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/rodadas", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	html := rec.Body.String()
	assert.Contains(t, html, "Maicon - Rodada 1")
	assert.Equal(t, 2, strings.Count(html, `name="match"`), "One input per fixture")
	assert.Contains(t, html, `action="/rodadas/Maicon/1/foto"`)

	rec = ts.do(t, http.MethodGet, "/rodadas?user=Fabinho&round=6", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Fabinho - Rodada 6")

	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/rodadas?user=Joao", nil, "").Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodGet, "/rodadas?round=7", nil, "").Code)
}

func TestSaveRoundForm(t *testing.T) {
	ts := newTestServer(t)
	labels, err := ts.pool.Matches(1)
	require.NoError(t, err)
	const form = "application/x-www-form-urlencoded"

	body := url.Values{"match": {labels[0], labels[1]}, "score": {"2 x 1", ""}}.Encode()
	rec := ts.do(t, http.MethodPost, "/rodadas/Maicon/1", []byte(body), form)
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Location"), "salvos=1")

	sheet, err := ts.pool.RoundSheet(context.Background(), "Maicon", 1)
	require.NoError(t, err)
	assert.Equal(t, "2x1", sheet.Entries[0].ScoreLabel)
	assert.Equal(t, 1, sheet.Filled)

	blank := url.Values{"match": {labels[0]}, "score": {" "}}.Encode()
	rec = ts.do(t, http.MethodPost, "/rodadas/Maicon/1", []byte(blank), form)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Nenhum palpite")

	bad := url.Values{"match": {labels[0]}, "score": {"dois a um"}}.Encode()
	rec = ts.do(t, http.MethodPost, "/rodadas/Maicon/1", []byte(bad), form)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Palpites não salvos")
	assert.Contains(t, rec.Body.String(), `value="dois a um"`, "Submitted values are kept for correction")

	rec = ts.do(t, http.MethodPost, "/rodadas/Joao/1", []byte(body), form)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExtractRoundForm(t *testing.T) {
	ts := newTestServer(t)
	labels, err := ts.pool.Matches(1)
	require.NoError(t, err)
	ts.vision.Guesses = map[string]string{labels[1]: "3x3"}

	body, contentType := photoUpload(t, "folha.jpg", jpegHeader)
	rec := ts.do(t, http.MethodPost, "/rodadas/Fabinho/1/foto", body, contentType)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `value="3x3"`)
	assert.Contains(t, rec.Body.String(), "1 palpites lidos da foto")

	sheet, err := ts.pool.RoundSheet(context.Background(), "Fabinho", 1)
	require.NoError(t, err)
	assert.Equal(t, 0, sheet.Filled, "The draft is not saved")

	gif, gifType := photoUpload(t, "folha.gif", []byte("GIF89a"))
	rec = ts.do(t, http.MethodPost, "/rodadas/Fabinho/1/foto", gif, gifType)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	assert.Contains(t, rec.Body.String(), "Foto rejeitada")

	ts.vision.Err = errors.New("quota exceeded")
	body, contentType = photoUpload(t, "folha.png", pngHeader)
	rec = ts.do(t, http.MethodPost, "/rodadas/Fabinho/1/foto", body, contentType)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Preencha os palpites manualmente")
}
