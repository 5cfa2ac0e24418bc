package models

import (
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bolao/palpites/internal/standings"
)

func TestGuessInput_Validate(t *testing.T) {
	ok := &GuessInput{Guesses: map[string]string{"Remo x Bahia": "1x0"}}
	require.NoError(t, ok.Validate())

	tests := []struct {
		name  string
		input *GuessInput
	}{
		{"nil map", &GuessInput{}},
		{"empty map", &GuessInput{Guesses: map[string]string{}}},
		{"empty key", &GuessInput{Guesses: map[string]string{"": "1x0"}}},
		{"long score", &GuessInput{Guesses: map[string]string{"Remo x Bahia": "11111111111111111x0"}}},
		{"unknown source", &GuessInput{Guesses: map[string]string{"Remo x Bahia": "1x0"}, Source: "fax"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.input.Validate())
		})
	}
}

func TestGuessInput_ValidateLargeRound(t *testing.T) {
	// A 44-club league has 22 matches per round
	input := &GuessInput{Guesses: map[string]string{}}
	for i := 0; i < 22; i++ {
		input.Guesses[fmt.Sprintf("Time %d x Time %d", 2*i, 2*i+1)] = "1x1"
	}
	assert.NoError(t, input.Validate())
}

func TestGuessInput_ToGuesses(t *testing.T) {
	input := &GuessInput{Guesses: map[string]string{
		"Remo x Bahia":      " 1x0 ",
		"Santos x Mirassol": "",
	}}

	guesses := input.ToGuesses("Maicon", 3)
	require.Len(t, guesses, 1)
	assert.Equal(t, &Guess{UserName: "Maicon", Round: 3, MatchLabel: "Remo x Bahia", ScoreLabel: "1x0", Source: SourceManual}, guesses[0])

	assert.Equal(t, standings.RawResult{Round: 3, MatchLabel: "Remo x Bahia", ScoreLabel: "1x0"}, guesses[0].ToRawResult())
}

func TestGuessInput_ToGuessesKeepsSource(t *testing.T) {
	input := &GuessInput{Guesses: map[string]string{"A x B": "2x2", "C x D": "0x1"}, Source: SourceVision}

	guesses := input.ToGuesses("Fabinho", 1)
	sort.Slice(guesses, func(i, j int) bool { return guesses[i].MatchLabel < guesses[j].MatchLabel })

	require.Len(t, guesses, 2)
	assert.Equal(t, SourceVision, guesses[0].Source)
	assert.Equal(t, "C x D", guesses[1].MatchLabel)
}

func TestOfficialResult(t *testing.T) {
	r := &OfficialResult{Round: 2, HomeTeam: "Vasco", AwayTeam: "Flamengo", HomeGoals: 0, AwayGoals: 3}
	require.NoError(t, r.Validate())

	assert.Equal(t, "Vasco x Flamengo", r.MatchLabel())
	assert.Equal(t, "0x3", r.ScoreLabel())
	assert.Equal(t, standings.RawResult{Round: 2, MatchLabel: "Vasco x Flamengo", ScoreLabel: "0x3"}, r.ToRawResult())

	same := &OfficialResult{Round: 2, HomeTeam: "Vasco", AwayTeam: "Vasco"}
	assert.Error(t, same.Validate())

	negative := &OfficialResult{Round: 2, HomeTeam: "Vasco", AwayTeam: "Remo", HomeGoals: -1}
	assert.Error(t, negative.Validate())

	noRound := &OfficialResult{HomeTeam: "Vasco", AwayTeam: "Remo"}
	assert.Error(t, noRound.Validate())
}

func TestValidateUserName(t *testing.T) {
	for _, name := range []string{"Maicon", "Fabinho", "José Carlos", "user_1"} {
		assert.NoError(t, ValidateUserName(name), name)
	}
	for _, name := range []string{"", "  ", "@official", "a:b", "Fa*binho", "x?", "[a]", `back\slash`} {
		assert.Error(t, ValidateUserName(name), name)
	}
}
