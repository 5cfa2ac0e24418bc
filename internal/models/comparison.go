package models

import "bolao/palpites/internal/standings"

// ComparisonRow lines up, for one table position, the official team with the
// team each user's guesses put there.
type ComparisonRow struct {
	Position       int               `json:"position"`
	Official       string            `json:"official"`
	OfficialPoints int               `json:"official_points"`
	Users          map[string]string `json:"users"`
}

// Comparison is the side-by-side report of the official table and every
// user's predicted table at the same cutoff.
type Comparison struct {
	Cutoff int                        `json:"cutoff"`
	Users  []string                   `json:"users"`
	Rows   []ComparisonRow            `json:"rows"`
	Hits   map[string]int             `json:"hits"`
	Tables map[string]standings.Table `json:"tables"`
}
