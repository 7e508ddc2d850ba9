package modes

import (
	"quizparty/internal/domain"
)

// Choice is a pre-round decision a player makes in modes that ask for one:
// a wager in gold_quest, a difficulty in crazy_kingdom, a bid in bid_battle.
type Choice struct {
	Bet        int    `json:"bet,omitempty"`
	Difficulty string `json:"difficulty,omitempty"`
	Bid        int    `json:"bid,omitempty"`
}

// ApplyChoice validates a choice against the mode's rules and folds it into
// the participant's mode data. Modes without choices reject every choice.
func ApplyChoice(modeID string, data domain.ModeData, c Choice) (domain.ModeData, error) {
	switch modeID {
	case "gold_quest":
		if data.GoldQuest == nil || c.Bet <= 0 || c.Bet > data.GoldQuest.Coins {
			return data, domain.ErrInvalidModeChoice
		}
		data.GoldQuest = &domain.GoldQuestData{Coins: data.GoldQuest.Coins, Bet: c.Bet}
		return data, nil
	case "crazy_kingdom":
		if data.Kingdom == nil {
			return data, domain.ErrInvalidModeChoice
		}
		if _, ok := kingdomRewards[c.Difficulty]; !ok {
			return data, domain.ErrInvalidModeChoice
		}
		data.Kingdom = &domain.KingdomData{Difficulty: c.Difficulty}
		return data, nil
	case "bid_battle":
		if data.BidBattle == nil || c.Bid <= 0 {
			return data, domain.ErrInvalidModeChoice
		}
		data.BidBattle = &domain.BidBattleData{Bid: c.Bid}
		return data, nil
	default:
		return data, domain.ErrInvalidModeChoice
	}
}
