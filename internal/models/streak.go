package models

// StreakState is the per-kid streak record, created on the first perfect day.
// LastPerfectDate is a YYYY-MM-DD calendar day, empty when no perfect day is recorded.
type StreakState struct {
	KidID           string `json:"kidId"`
	StreakCount     int    `json:"streakCount"`
	LastPerfectDate string `json:"lastPerfectDate"`
	LongestStreak   int    `json:"longestStreak"`
}

// NewStreakState returns the implicit state of a kid with no streak row
func NewStreakState(kidID string) StreakState {
	return StreakState{KidID: kidID}
}

// Valid reports whether the counters satisfy 0 <= streak <= longest
func (s StreakState) Valid() bool {
	return s.StreakCount >= 0 && s.LongestStreak >= s.StreakCount
}

// BoardSnapshot is everything the task board renders in one read
type BoardSnapshot struct {
	Kids          []Kid         `json:"kids"`
	Tasks         []Task        `json:"tasks"`
	LastResetDate *string       `json:"lastResetDate"`
	Streaks       []StreakState `json:"streaks"`
}
