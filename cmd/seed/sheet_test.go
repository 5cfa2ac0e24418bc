package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadSheet(t *testing.T) {
	sheet := `# rodada 1
1;Flamengo x Vasco;2x1
1; Remo x Bahia ; 0x0

2;Vasco x Remo
x;Bahia x Flamengo;1x1
2;Bahia x Flamengo;
2;Vasco x Bahia;3x2
`
	lines, bad, err := readSheet(strings.NewReader(sheet))
	require.NoError(t, err)

	require.Len(t, lines, 3)
	assert.Equal(t, sheetLine{Number: 2, Round: 1, Match: "Flamengo x Vasco", Score: "2x1"}, lines[0])
	assert.Equal(t, "Remo x Bahia", lines[1].Match)
	assert.Equal(t, "0x0", lines[1].Score)
	assert.Equal(t, 2, lines[2].Round)

	require.Len(t, bad, 3)
	assert.Equal(t, 5, bad[0].Number)
	assert.Equal(t, "invalid round", bad[1].Reason)
	assert.Equal(t, "empty match or score", bad[2].Reason)
}

func TestByRound(t *testing.T) {
	rounds := byRound([]sheetLine{
		{Round: 1, Match: "Flamengo x Vasco", Score: "1x0"},
		{Round: 2, Match: "Vasco x Flamengo", Score: "0x0"},
		{Round: 1, Match: "Flamengo x Vasco", Score: "2x2"},
	})

	assert.Len(t, rounds, 2)
	assert.Equal(t, map[string]string{"Flamengo x Vasco": "2x2"}, rounds[1])
	assert.Equal(t, "0x0", rounds[2]["Vasco x Flamengo"])
}
