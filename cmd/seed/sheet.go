package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// sheetLine is one "round;match;score" line of a guess sheet
type sheetLine struct {
	Number int
	Round  int
	Match  string
	Score  string
}

// badLine describes a line that could not be read
type badLine struct {
	Number int
	Text   string
	Reason string
}

// readSheet reads a guess sheet. Blank lines and lines starting with '#'
// are ignored; malformed lines are reported, not fatal.
func readSheet(r io.Reader) ([]sheetLine, []badLine, error) {
	var lines []sheetLine
	var bad []badLine

	scanner := bufio.NewScanner(r)
	number := 0
	for scanner.Scan() {
		number++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		parts := strings.Split(text, ";")
		if len(parts) != 3 {
			bad = append(bad, badLine{Number: number, Text: text, Reason: fmt.Sprintf("expected 3 fields, got %d", len(parts))})
			continue
		}

		round, err := strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil || round < 1 {
			bad = append(bad, badLine{Number: number, Text: text, Reason: "invalid round"})
			continue
		}

		match := strings.TrimSpace(parts[1])
		score := strings.TrimSpace(parts[2])
		if match == "" || score == "" {
			bad = append(bad, badLine{Number: number, Text: text, Reason: "empty match or score"})
			continue
		}

		lines = append(lines, sheetLine{Number: number, Round: round, Match: match, Score: score})
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to read sheet: %w", err)
	}

	return lines, bad, nil
}

// byRound groups sheet lines into match->score maps per round. A later line
// for the same match wins.
func byRound(lines []sheetLine) map[int]map[string]string {
	rounds := make(map[int]map[string]string)
	for _, l := range lines {
		if rounds[l.Round] == nil {
			rounds[l.Round] = make(map[string]string)
		}
		rounds[l.Round][l.Match] = l.Score
	}
	return rounds
}
