package domain

// ModeData carries mode-specific auxiliary state per participant. It is a
// tagged variant: at most one field is non-nil, matching the session's mode.
type ModeData struct {
	GoldQuest *GoldQuestData `json:"goldQuest,omitempty"`
	TowerRush *TowerRushData `json:"towerRush,omitempty"`
	Fishing   *FishingData   `json:"fishing,omitempty"`
	Kingdom   *KingdomData   `json:"kingdom,omitempty"`
	BidBattle *BidBattleData `json:"bidBattle,omitempty"`
}

// GoldQuestData holds the wager-driven economy of gold_quest.
type GoldQuestData struct {
	Coins int `json:"coins"`
	Bet   int `json:"bet"`
}

// TowerRushData tracks the participant's remaining tower health.
type TowerRushData struct {
	TowerHP int `json:"towerHp"`
}

// FishingData records the best rarity tier landed so far.
type FishingData struct {
	BestTier string `json:"bestTier,omitempty"`
}

// KingdomData carries the difficulty the participant chose for the round.
type KingdomData struct {
	Difficulty string `json:"difficulty,omitempty"`
}

// BidBattleData carries the participant's standing bid.
type BidBattleData struct {
	Bid int `json:"bid"`
}
