package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"bolao/palpites/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const roundPage = `<html><body>
<table>
  <tr class="jogo">
    <td class="mandante"> Vasco </td><td class="placar">0 x 3</td><td class="visitante">Flamengo</td>
  </tr>
  <tr class="jogo">
    <td class="mandante">Remo</td><td class="placar">-</td><td class="visitante">Bahia</td>
  </tr>
  <tr class="jogo">
    <td class="mandante">Atlético-MG</td><td class="placar">2X2</td><td class="visitante">São Paulo</td>
  </tr>
  <tr class="jogo">
    <td class="mandante"></td><td class="placar">1 x 0</td><td class="visitante">Santos</td>
  </tr>
</table>
</body></html>`

func TestParseRoundPage(t *testing.T) {
	results, err := ParseRoundPage(strings.NewReader(roundPage), 4)
	require.NoError(t, err)
	require.Len(t, results, 2, "Unplayed and incomplete rows are skipped")

	assert.Equal(t, &models.OfficialResult{
		Round: 4, HomeTeam: "Vasco", AwayTeam: "Flamengo", HomeGoals: 0, AwayGoals: 3, Source: ResultsSource,
	}, results[0])
	assert.Equal(t, "Atlético-MG x São Paulo", results[1].MatchLabel())
	assert.Equal(t, "2x2", results[1].ScoreLabel())
}

func TestParseRoundPage_NoMatches(t *testing.T) {
	results, err := ParseRoundPage(strings.NewReader("<html><body><p>Em breve</p></body></html>"), 1)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestResultsClient_FetchRound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "4", r.URL.Query().Get("rodada"))
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(roundPage))
	}))
	defer server.Close()

	client := NewResultsClient(server.URL+"/serie-a?rodada="+RoundPlaceholder, 5*time.Second)
	results, err := client.FetchRound(context.Background(), 4)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestResultsClient_FetchRoundRejectsInvalidRound(t *testing.T) {
	client := NewResultsClient("http://unused/"+RoundPlaceholder, time.Second)
	_, err := client.FetchRound(context.Background(), 0)
	assert.Error(t, err)
}

func TestResultsClient_FetchRoundServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewResultsClient(server.URL+"/"+RoundPlaceholder, 5*time.Second)
	_, err := client.FetchRound(context.Background(), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}
