package domain

import "sort"

// LeaderboardEntry is a snapshot-friendly view of a ranked participant.
type LeaderboardEntry struct {
	ParticipantID string `json:"participantId"`
	DisplayName   string `json:"displayName"`
	Score         int    `json:"score"`
	TimeSpentMs   int64  `json:"timeSpentMs"`
	Streak        int    `json:"streak"`
	Rank          int    `json:"rank"`
}

// Rank orders participants by score descending, ties broken by cumulative
// time spent ascending (faster is better). Kicked participants are excluded.
// The sort is stable, so re-ranking an already ranked list keeps its order.
func Rank(participants []*Participant) []LeaderboardEntry {
	entries := make([]LeaderboardEntry, 0, len(participants))
	for _, p := range participants {
		if !p.Active() {
			continue
		}
		entries = append(entries, LeaderboardEntry{
			ParticipantID: p.ID,
			DisplayName:   p.DisplayName,
			Score:         p.Score,
			TimeSpentMs:   p.TimeSpentMs,
			Streak:        p.Streak,
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].TimeSpentMs < entries[j].TimeSpentMs
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}
