package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"bolao/palpites/internal/models"
	"bolao/palpites/internal/standings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"
)

// RoundPlaceholder is replaced by the round number in the results URL
const RoundPlaceholder = "{round}"

// ResultsSource is the name stored with scraped results
const ResultsSource = "cbf"

// ResultsClient scrapes official round results from the federation's
// public round pages.
type ResultsClient struct {
	urlTemplate string
	core        *httpCore
}

// NewResultsClient creates a results scraper. urlTemplate must contain
// RoundPlaceholder.
func NewResultsClient(urlTemplate string, timeout time.Duration) *ResultsClient {
	return &ResultsClient{
		urlTemplate: urlTemplate,
		core:        newHTTPCore(timeout, 2),
	}
}

// FetchRound returns the played matches of round. Unplayed matches are skipped.
func (c *ResultsClient) FetchRound(ctx context.Context, round int) ([]*models.OfficialResult, error) {
	if round < 1 {
		return nil, fmt.Errorf("invalid round %d", round)
	}

	pageURL := strings.ReplaceAll(c.urlTemplate, RoundPlaceholder, strconv.Itoa(round))
	body, err := c.core.do(ctx, "cbf_round", func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "text/html")
		return req, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch round %d: %w", round, err)
	}

	results, err := ParseRoundPage(bytes.NewReader(body), round)
	if err != nil {
		return nil, err
	}

	log.Info().
		Int("round", round).
		Int("played", len(results)).
		Msg("Official results fetched")

	return results, nil
}

// ParseRoundPage reads match rows from a round page. Each row carries the
// home team, the score and the away team in cells classed "mandante",
// "placar" and "visitante"; rows whose score does not parse are skipped.
func ParseRoundPage(r io.Reader, round int) ([]*models.OfficialResult, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var results []*models.OfficialResult
	doc.Find(".jogo").Each(func(i int, s *goquery.Selection) {
		home := cleanText(s.Find(".mandante").First().Text())
		away := cleanText(s.Find(".visitante").First().Text())
		scoreText := cleanText(s.Find(".placar").First().Text())

		if home == "" || away == "" {
			return
		}

		score, ok := standings.ParseScoreLabel(strings.ToLower(scoreText))
		if !ok {
			log.Debug().
				Int("round", round).
				Str("match", home+standings.MatchSeparator+away).
				Str("score", scoreText).
				Msg("Skipping match without a final score")
			return
		}

		results = append(results, &models.OfficialResult{
			Round:     round,
			HomeTeam:  home,
			AwayTeam:  away,
			HomeGoals: score.Home,
			AwayGoals: score.Away,
			Source:    ResultsSource,
		})
	})

	return results, nil
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
