package domain

import "time"

// PlaceholderExplanation is substituted when the reasoning provider fails
// for one match; the query still returns the full ranked set.
const PlaceholderExplanation = "explanation unavailable — retry later"

// MatchResult is one ranked resume/job pairing. Computed per query,
// persisted to match history for the dashboard.
type MatchResult struct {
	ResumeID    string
	JobID       string
	Score       float64 // cosine similarity in [-1, 1]
	Rank        int     // 1-based, strictly descending by Score
	Explanation string
	GeneratedAt time.Time
}
