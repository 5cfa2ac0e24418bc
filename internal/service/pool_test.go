package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"bolao/palpites/internal/fixtures"
	"bolao/palpites/internal/models"
	"bolao/palpites/internal/service/servicetest"
	"bolao/palpites/internal/standings"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTeams = []string{"Bahia", "Flamengo", "Remo", "Vasco"}

type testPool struct {
	*Pool
	guesses *servicetest.GuessStore
	results *servicetest.ResultStore
	vision  *servicetest.Extractor
	source  *servicetest.Source
	cache   *servicetest.Cache
}

func newTestPool(t *testing.T) *testPool {
	t.Helper()

	provider, err := fixtures.NewProvider(testTeams)
	require.NoError(t, err)

	tp := &testPool{
		guesses: servicetest.NewGuessStore(),
		results: servicetest.NewResultStore(),
		vision:  &servicetest.Extractor{},
		source:  &servicetest.Source{Rounds: map[int][]*models.OfficialResult{}},
		cache:   servicetest.NewCache(),
	}
	tp.Pool, err = New(Options{
		Users:    []string{"Maicon", "Fabinho", "Maicon"},
		Fixtures: provider,
		Guesses:  tp.guesses,
		Results:  tp.results,
		Vision:   tp.vision,
		Source:   tp.source,
		Cache:    tp.cache,
	})
	require.NoError(t, err)
	return tp
}

// homeWins builds a guess input where every home side of round wins 1x0
func homeWins(t *testing.T, p *Pool, round int) *models.GuessInput {
	labels, err := p.Matches(round)
	require.NoError(t, err)

	input := &models.GuessInput{Guesses: map[string]string{}}
	for _, l := range labels {
		input.Guesses[l] = "1x0"
	}
	return input
}

func TestNew_RequiresCollaborators(t *testing.T) {
	provider, err := fixtures.NewProvider(testTeams)
	require.NoError(t, err)

	_, err = New(Options{Users: []string{"Maicon"}, Fixtures: provider})
	assert.Error(t, err, "stores are required")

	_, err = New(Options{Fixtures: provider, Guesses: servicetest.NewGuessStore(), Results: servicetest.NewResultStore()})
	assert.Error(t, err, "users are required")
}

func TestPool_UsersAreDeduplicated(t *testing.T) {
	p := newTestPool(t)
	assert.Equal(t, []string{"Maicon", "Fabinho"}, p.Users())
	assert.Equal(t, 6, p.Rounds())
}

func TestPool_RoundSheet(t *testing.T) {
	p := newTestPool(t)
	ctx := context.Background()

	labels, err := p.Matches(1)
	require.NoError(t, err)
	require.Len(t, labels, 2)

	_, err = p.SaveGuesses(ctx, "Maicon", 1, &models.GuessInput{Guesses: map[string]string{labels[0]: "2 X 1"}})
	require.NoError(t, err)

	sheet, err := p.RoundSheet(ctx, "Maicon", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, sheet.Filled)
	assert.Equal(t, []models.SheetEntry{
		{MatchLabel: labels[0], ScoreLabel: "2x1"},
		{MatchLabel: labels[1], ScoreLabel: ""},
	}, sheet.Entries)

	other, err := p.RoundSheet(ctx, "Fabinho", 1)
	require.NoError(t, err)
	assert.Equal(t, 0, other.Filled)
}

func TestPool_SaveGuessesRejections(t *testing.T) {
	p := newTestPool(t)
	ctx := context.Background()
	labels, err := p.Matches(1)
	require.NoError(t, err)

	tests := []struct {
		name  string
		user  string
		round int
		input *models.GuessInput
		want  error
	}{
		{"unknown user", "Zé", 1, homeWins(t, p.Pool, 1), ErrUnknownUser},
		{"round zero", "Maicon", 0, homeWins(t, p.Pool, 1), ErrRoundOutOfRange},
		{"round past season", "Maicon", 7, homeWins(t, p.Pool, 1), ErrRoundOutOfRange},
		{"match from another round", "Maicon", 2, homeWins(t, p.Pool, 1), ErrUnknownMatch},
		{"bad score", "Maicon", 1, &models.GuessInput{Guesses: map[string]string{labels[0]: "1x", labels[1]: "1x0"}}, ErrInvalidScore},
		{"empty input", "Maicon", 1, &models.GuessInput{}, standings.ErrInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.SaveGuesses(ctx, tt.user, tt.round, tt.input)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	saved, err := p.RoundSheet(ctx, "Maicon", 1)
	require.NoError(t, err)
	assert.Equal(t, 0, saved.Filled, "Rejected requests must not save anything")
}

func TestPool_SaveGuessesStoreError(t *testing.T) {
	p := newTestPool(t)
	p.guesses.Err = errors.New("disk full")

	_, err := p.SaveGuesses(context.Background(), "Maicon", 1, homeWins(t, p.Pool, 1))
	assert.ErrorContains(t, err, "disk full")
}

func TestPool_ExtractGuesses(t *testing.T) {
	p := newTestPool(t)
	ctx := context.Background()
	labels, err := p.Matches(3)
	require.NoError(t, err)

	p.vision.Guesses = map[string]string{labels[1]: "0x0"}
	ext, err := p.ExtractGuesses(ctx, "Fabinho", 3, []byte("img"), "image/png")
	require.NoError(t, err)
	assert.False(t, ext.Failed)
	assert.Equal(t, map[string]string{labels[1]: "0x0"}, ext.Guesses)
	assert.Equal(t, labels, p.vision.Expected, "Extractor is told the round's fixtures")

	sheet, err := p.RoundSheet(ctx, "Fabinho", 3)
	require.NoError(t, err)
	assert.Equal(t, 0, sheet.Filled, "Extraction never saves")
}

func TestPool_ExtractGuessesDegradesToEmpty(t *testing.T) {
	p := newTestPool(t)
	p.vision.Err = errors.New("model overloaded")

	ext, err := p.ExtractGuesses(context.Background(), "Maicon", 1, []byte("img"), "image/jpeg")
	require.NoError(t, err)
	assert.True(t, ext.Failed)
	assert.Empty(t, ext.Guesses)

	_, err = p.ExtractGuesses(context.Background(), "Maicon", 99, []byte("img"), "image/jpeg")
	assert.ErrorIs(t, err, ErrRoundOutOfRange)
}

func TestPool_ExtractGuessesWithoutVision(t *testing.T) {
	p := newTestPool(t)
	p.Pool.vision = nil

	ext, err := p.ExtractGuesses(context.Background(), "Maicon", 1, []byte("img"), "image/png")
	require.NoError(t, err)
	assert.True(t, ext.Failed)
	assert.NotNil(t, ext.Guesses)
}

func TestPool_ParseGuessText(t *testing.T) {
	p := newTestPool(t)
	labels, err := p.Matches(1)
	require.NoError(t, err)

	first, _ := standings.ParseMatchLabel(labels[0])
	second, _ := standings.ParseMatchLabel(labels[1])

	text := "  " + first.Home + " 2 x 0 " + first.Away + "\n\n" +
		second.Away + " 1 x 1 " + second.Home + "\n" +
		"qualquer coisa\n"

	parsed, err := p.ParseGuessText("Maicon", 1, text)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{labels[0]: "2x0"}, parsed.Guesses)
	assert.Len(t, parsed.Rejected, 2, "Reversed fixture and free text are rejected")
}

func TestPool_GuessCount(t *testing.T) {
	p := newTestPool(t)
	ctx := context.Background()

	n, err := p.GuessCount(ctx, "Maicon")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	_, err = p.SaveGuesses(ctx, "Maicon", 1, homeWins(t, p.Pool, 1))
	require.NoError(t, err)
	_, err = p.SaveGuesses(ctx, "Maicon", 2, homeWins(t, p.Pool, 2))
	require.NoError(t, err)

	n, err = p.GuessCount(ctx, "Maicon")
	require.NoError(t, err)
	assert.Equal(t, 4, n, "Two rounds of two matches")

	_, err = p.GuessCount(ctx, "Joao")
	assert.True(t, errors.Is(err, ErrUnknownUser))
}

func TestNew_RejectsReservedUserNames(t *testing.T) {
	provider, err := fixtures.NewProvider(testTeams)
	require.NoError(t, err)

	for _, name := range []string{officialOwner, "Mai:con", "Fa*binho"} {
		_, err := New(Options{
			Users:    []string{"Maicon", name},
			Fixtures: provider,
			Guesses:  servicetest.NewGuessStore(),
			Results:  servicetest.NewResultStore(),
		})
		assert.Error(t, err, name)
	}
}

func TestSaveGuesses_FullRoundOfLargeLeague(t *testing.T) {
	teams := make([]string, 44)
	for i := range teams {
		teams[i] = fmt.Sprintf("Clube %02d", i+1)
	}
	provider, err := fixtures.NewProvider(teams)
	require.NoError(t, err)

	p, err := New(Options{
		Users:    []string{"Maicon"},
		Fixtures: provider,
		Guesses:  servicetest.NewGuessStore(),
		Results:  servicetest.NewResultStore(),
	})
	require.NoError(t, err)

	saved, err := p.SaveGuesses(context.Background(), "Maicon", 1, homeWins(t, p, 1))
	require.NoError(t, err)
	assert.Equal(t, 22, saved)
}
