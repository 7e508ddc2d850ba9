// Package modes holds the fixed catalog of game modes and the scoring
// engine that maps answers to points. Both are pure and never fail: a
// misconfigured mode degrades to zero points instead of crashing a game.
package modes

import "quizparty/internal/domain"

// RevealPattern is the mode-defined policy for when a question opens for
// answers after being revealed.
type RevealPattern string

const (
	// RevealAuto opens the answer window automatically after the reveal countdown.
	RevealAuto RevealPattern = "auto"
	// RevealHostControlled waits for an explicit host action to open the round.
	RevealHostControlled RevealPattern = "host_controlled"
)

// Scoring holds the parameters of the generic scoring pipeline.
type Scoring struct {
	BasePoints       int
	WrongPenalty     int
	SpeedBonus       int
	TimedBonus       int
	TimedBonusUnder  int64 // ms; strict upper bound for the flat bonus
	StreakMultiplier float64
}

// Param describes one host-configurable knob of a mode.
type Param struct {
	Name    string
	Default int
	Min     int
	Max     int
}

// ScoreInput bundles everything a scoring strategy may look at.
type ScoreInput struct {
	Correct     bool
	TimeTakenMs int64
	Streak      int
	Data        domain.ModeData
}

// ScoreFunc is a bespoke scoring strategy that overrides the generic
// pipeline entirely for its mode.
type ScoreFunc func(in ScoreInput, m GameMode) int

// GameMode is a static mode definition, loaded once at process start.
type GameMode struct {
	ID          string
	Name        string
	Description string
	MinPlayers  int
	MaxPlayers  int
	Teams       bool
	Reveal      RevealPattern
	Scoring     Scoring
	Params      []Param
	Mechanics   []string
	Override    ScoreFunc
}

var catalog = []GameMode{
	{
		ID:          "classic_race",
		Name:        "Classic Race",
		Description: "Answer fast, build streaks, climb the board.",
		MinPlayers:  2,
		MaxPlayers:  60,
		Reveal:      RevealAuto,
		Scoring: Scoring{
			BasePoints:       100,
			SpeedBonus:       50,
			StreakMultiplier: 1.1,
		},
		Params:    []Param{{Name: "time_limit_s", Default: 20, Min: 5, Max: 120}},
		Mechanics: []string{"speed", "streak"},
	},
	{
		ID:          "gold_quest",
		Name:        "Gold Quest",
		Description: "Wager coins on every question; win the pot or lose the bet.",
		MinPlayers:  2,
		MaxPlayers:  40,
		Reveal:      RevealHostControlled,
		Params:      []Param{{Name: "starting_coins", Default: 100, Min: 10, Max: 1000}},
		Mechanics:   []string{"betting", "economy"},
		Override:    scoreGoldQuest,
	},
	{
		ID:          "streak_smash",
		Name:        "Streak Smash",
		Description: "Only the streak counts. Miss once and start over.",
		MinPlayers:  2,
		MaxPlayers:  60,
		Reveal:      RevealAuto,
		Mechanics:   []string{"streak"},
		Override:    scoreStreakSmash,
	},
	{
		ID:          "fishing_frenzy",
		Name:        "Fishing Frenzy",
		Description: "The faster the catch, the rarer the fish.",
		MinPlayers:  2,
		MaxPlayers:  40,
		Reveal:      RevealAuto,
		Mechanics:   []string{"speed", "rarity"},
		Override:    scoreFishing,
	},
	{
		ID:          "crazy_kingdom",
		Name:        "Crazy Kingdom",
		Description: "Pick your difficulty, reap the matching reward.",
		MinPlayers:  2,
		MaxPlayers:  40,
		Reveal:      RevealHostControlled,
		Mechanics:   []string{"difficulty"},
		Override:    scoreKingdom,
	},
	{
		ID:          "bid_battle",
		Name:        "Bid Battle",
		Description: "Bid points on your answer; correct bids pay a bonus.",
		MinPlayers:  2,
		MaxPlayers:  40,
		Reveal:      RevealHostControlled,
		Params:      []Param{{Name: "bid_bonus", Default: 50, Min: 0, Max: 500}},
		Mechanics:   []string{"bidding"},
		Override:    scoreBidBattle,
	},
	{
		ID:          "tower_rush",
		Name:        "Tower Rush",
		Description: "Defend your tower; quick answers earn repair bonuses.",
		MinPlayers:  2,
		MaxPlayers:  30,
		Teams:       true,
		Reveal:      RevealAuto,
		Scoring: Scoring{
			BasePoints:      80,
			WrongPenalty:    -20,
			TimedBonus:      25,
			TimedBonusUnder: 5000,
		},
		Params:    []Param{{Name: "tower_hp", Default: 100, Min: 50, Max: 500}},
		Mechanics: []string{"teams", "attrition"},
	},
}

var byID = func() map[string]GameMode {
	m := make(map[string]GameMode, len(catalog))
	for _, gm := range catalog {
		m[gm.ID] = gm
	}
	return m
}()

// Get looks up a mode by id.
func Get(id string) (GameMode, bool) {
	gm, ok := byID[id]
	return gm, ok
}

// All returns every mode in stable catalog order.
func All() []GameMode {
	out := make([]GameMode, len(catalog))
	copy(out, catalog)
	return out
}

// InitialModeData seeds a participant's mode data for the given mode.
func InitialModeData(modeID string, config map[string]int) domain.ModeData {
	switch modeID {
	case "gold_quest":
		coins := configValue(config, "starting_coins", 100)
		return domain.ModeData{GoldQuest: &domain.GoldQuestData{Coins: coins}}
	case "tower_rush":
		hp := configValue(config, "tower_hp", 100)
		return domain.ModeData{TowerRush: &domain.TowerRushData{TowerHP: hp}}
	case "fishing_frenzy":
		return domain.ModeData{Fishing: &domain.FishingData{}}
	case "crazy_kingdom":
		return domain.ModeData{Kingdom: &domain.KingdomData{}}
	case "bid_battle":
		return domain.ModeData{BidBattle: &domain.BidBattleData{}}
	default:
		return domain.ModeData{}
	}
}

func configValue(config map[string]int, name string, fallback int) int {
	if v, ok := config[name]; ok && v > 0 {
		return v
	}
	return fallback
}
