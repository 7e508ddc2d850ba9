package modes

import (
	"math"

	"quizparty/internal/domain"
)

// speedBonusCeilingMs is the absolute ceiling under which the linear speed
// bonus applies; at or beyond it the bonus is zero.
const speedBonusCeilingMs = 10000

// CalculatePoints maps an answer to the points it earns under modeID.
// It never fails: unknown modes and missing mode data degrade to zero.
//
// Precedence: mode override first; otherwise wrong answers earn exactly the
// mode's penalty, correct answers earn base points plus speed and timed
// bonuses, scaled exponentially by the streak multiplier, floored to an int.
func CalculatePoints(correct bool, timeTakenMs int64, modeID string, streak int, data domain.ModeData) int {
	m, ok := Get(modeID)
	if !ok {
		return 0
	}
	if m.Override != nil {
		return m.Override(ScoreInput{
			Correct:     correct,
			TimeTakenMs: timeTakenMs,
			Streak:      streak,
			Data:        data,
		}, m)
	}
	if !correct {
		return m.Scoring.WrongPenalty
	}

	points := float64(m.Scoring.BasePoints)
	if m.Scoring.SpeedBonus > 0 && timeTakenMs < speedBonusCeilingMs {
		frac := 1 - float64(timeTakenMs)/float64(speedBonusCeilingMs)
		points += math.Floor(float64(m.Scoring.SpeedBonus) * frac)
	}
	if m.Scoring.TimedBonus > 0 && m.Scoring.TimedBonusUnder > 0 && timeTakenMs < m.Scoring.TimedBonusUnder {
		points += float64(m.Scoring.TimedBonus)
	}
	if m.Scoring.StreakMultiplier > 1 && streak > 0 {
		points *= math.Pow(m.Scoring.StreakMultiplier, float64(streak))
	}
	return int(math.Floor(points))
}

// scoreGoldQuest pays out the wagered amount on a correct answer and takes
// it back on a miss. No bet, no movement.
func scoreGoldQuest(in ScoreInput, _ GameMode) int {
	if in.Data.GoldQuest == nil {
		return 0
	}
	bet := in.Data.GoldQuest.Bet
	if bet <= 0 {
		return 0
	}
	if in.Correct {
		return bet
	}
	return -bet
}

// scoreStreakSmash makes the running streak itself the score: a correct
// answer is worth the streak it completes.
func scoreStreakSmash(in ScoreInput, _ GameMode) int {
	if !in.Correct {
		return 0
	}
	return in.Streak + 1
}

// Fishing tiers bucket elapsed time into discrete rewards.
var fishingTiers = []struct {
	UnderMs int64
	Tier    string
	Points  int
}{
	{2000, "legendary", 400},
	{4000, "epic", 200},
	{6000, "rare", 100},
	{speedBonusCeilingMs, "common", 50},
}

func scoreFishing(in ScoreInput, _ GameMode) int {
	if !in.Correct {
		return 0
	}
	for _, t := range fishingTiers {
		if in.TimeTakenMs < t.UnderMs {
			return t.Points
		}
	}
	return 25
}

// FishingTier names the rarity bucket for an elapsed time.
func FishingTier(timeTakenMs int64) string {
	for _, t := range fishingTiers {
		if timeTakenMs < t.UnderMs {
			return t.Tier
		}
	}
	return "boot"
}

var kingdomRewards = map[string]int{
	"easy":   50,
	"medium": 100,
	"hard":   200,
}

func scoreKingdom(in ScoreInput, _ GameMode) int {
	if !in.Correct || in.Data.Kingdom == nil {
		return 0
	}
	return kingdomRewards[in.Data.Kingdom.Difficulty]
}

// scoreBidBattle pays bid plus a flat bonus when correct; a wrong answer
// forfeits the bid.
func scoreBidBattle(in ScoreInput, m GameMode) int {
	if in.Data.BidBattle == nil {
		return 0
	}
	bid := in.Data.BidBattle.Bid
	if bid <= 0 {
		return 0
	}
	if in.Correct {
		return bid + paramDefault(m, "bid_bonus", 50)
	}
	return -bid
}

func paramDefault(m GameMode, name string, fallback int) int {
	for _, p := range m.Params {
		if p.Name == name {
			return p.Default
		}
	}
	return fallback
}

// ApplyRound folds a round's outcome into the participant's mode data.
// Unknown modes and absent data are left untouched.
func ApplyRound(modeID string, data domain.ModeData, correct bool, points int, timeTakenMs int64) domain.ModeData {
	switch modeID {
	case "gold_quest":
		if data.GoldQuest != nil {
			coins := data.GoldQuest.Coins + points
			if coins < 0 {
				coins = 0
			}
			data.GoldQuest = &domain.GoldQuestData{Coins: coins}
		}
	case "tower_rush":
		if data.TowerRush != nil && !correct {
			hp := data.TowerRush.TowerHP - 10
			if hp < 0 {
				hp = 0
			}
			data.TowerRush = &domain.TowerRushData{TowerHP: hp}
		}
	case "fishing_frenzy":
		if data.Fishing != nil && correct {
			tier := FishingTier(timeTakenMs)
			if rarerTier(tier, data.Fishing.BestTier) {
				data.Fishing = &domain.FishingData{BestTier: tier}
			}
		}
	}
	return data
}

var tierOrder = map[string]int{"boot": 0, "common": 1, "rare": 2, "epic": 3, "legendary": 4}

func rarerTier(a, b string) bool {
	return tierOrder[a] > tierOrder[b]
}
