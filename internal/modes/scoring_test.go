package modes

import (
	"testing"

	"quizparty/internal/domain"
)

func TestUnknownModeScoresZero(t *testing.T) {
	if got := CalculatePoints(true, 1000, "no-such-mode", 5, domain.ModeData{}); got != 0 {
		t.Fatalf("expected 0 for unknown mode, got %d", got)
	}
}

func TestWrongAnswerEarnsExactlyThePenalty(t *testing.T) {
	// regardless of time or streak
	for _, timeTaken := range []int64{0, 500, 9999, 60000} {
		for _, streak := range []int{0, 3, 10} {
			if got := CalculatePoints(false, timeTaken, "classic_race", streak, domain.ModeData{}); got != 0 {
				t.Fatalf("classic_race wrong answer: expected 0, got %d (t=%d streak=%d)", got, timeTaken, streak)
			}
			if got := CalculatePoints(false, timeTaken, "tower_rush", streak, domain.ModeData{}); got != -20 {
				t.Fatalf("tower_rush wrong answer: expected -20, got %d (t=%d streak=%d)", got, timeTaken, streak)
			}
		}
	}
}

func TestBasePointsWithoutBonuses(t *testing.T) {
	// past the speed ceiling, streak zero: base points only
	if got := CalculatePoints(true, 15000, "classic_race", 0, domain.ModeData{}); got != 100 {
		t.Fatalf("expected base 100, got %d", got)
	}
}

func TestClassicRaceScenario(t *testing.T) {
	// base 100, speed bonus floor(50*(1-0.2))=40, then *1.1^3 = floor(140*1.331)
	got := CalculatePoints(true, 2000, "classic_race", 3, domain.ModeData{})
	if got != 186 {
		t.Fatalf("expected 186, got %d", got)
	}
}

func TestSpeedBonusScalesLinearlyToZero(t *testing.T) {
	cases := []struct {
		timeMs int64
		want   int
	}{
		{0, 150},      // full bonus
		{5000, 125},   // half
		{9999, 100},   // floor(50*0.0001)=0
		{10000, 100},  // at the ceiling: no bonus
		{20000, 100},  // past it
	}
	for _, tc := range cases {
		if got := CalculatePoints(true, tc.timeMs, "classic_race", 0, domain.ModeData{}); got != tc.want {
			t.Fatalf("t=%dms: expected %d, got %d", tc.timeMs, tc.want, got)
		}
	}
}

func TestStreakMultiplierIsExponential(t *testing.T) {
	// doubling the streak from k to 2k scales by m^k, not by 2x the bonus
	k := 4
	atK := CalculatePoints(true, 15000, "classic_race", k, domain.ModeData{})
	at2K := CalculatePoints(true, 15000, "classic_race", 2*k, domain.ModeData{})
	// base 100: 1.1^4=1.4641 -> 146, 1.1^8=2.1435 -> 214
	if atK != 146 || at2K != 214 {
		t.Fatalf("expected 146 and 214, got %d and %d", atK, at2K)
	}
	linear := 100 + 2*(atK-100)
	if at2K <= linear {
		t.Fatalf("expected super-linear growth: %d should exceed linear %d", at2K, linear)
	}
}

func TestTowerRushTimedBonus(t *testing.T) {
	// flat +25 strictly under 5000ms
	if got := CalculatePoints(true, 4999, "tower_rush", 0, domain.ModeData{}); got != 105 {
		t.Fatalf("expected 105 under the threshold, got %d", got)
	}
	if got := CalculatePoints(true, 5000, "tower_rush", 0, domain.ModeData{}); got != 80 {
		t.Fatalf("expected 80 at the threshold, got %d", got)
	}
}

func TestGoldQuestPaysTheBet(t *testing.T) {
	data := domain.ModeData{GoldQuest: &domain.GoldQuestData{Coins: 100, Bet: 75}}
	if got := CalculatePoints(true, 9000, "gold_quest", 0, data); got != 75 {
		t.Fatalf("expected bet of 75 returned, got %d", got)
	}
	// independent of time and streak
	if got := CalculatePoints(true, 100, "gold_quest", 7, data); got != 75 {
		t.Fatalf("expected 75 regardless of time/streak, got %d", got)
	}
	if got := CalculatePoints(false, 100, "gold_quest", 0, data); got != -75 {
		t.Fatalf("expected lost bet -75, got %d", got)
	}
	if got := CalculatePoints(true, 100, "gold_quest", 0, domain.ModeData{}); got != 0 {
		t.Fatalf("expected 0 with missing mode data, got %d", got)
	}
}

func TestStreakSmashScoresTheStreak(t *testing.T) {
	if got := CalculatePoints(true, 1000, "streak_smash", 0, domain.ModeData{}); got != 1 {
		t.Fatalf("first correct answer should score 1, got %d", got)
	}
	if got := CalculatePoints(true, 1000, "streak_smash", 6, domain.ModeData{}); got != 7 {
		t.Fatalf("seventh in a row should score 7, got %d", got)
	}
	if got := CalculatePoints(false, 1000, "streak_smash", 6, domain.ModeData{}); got != 0 {
		t.Fatalf("miss should score 0, got %d", got)
	}
}

func TestFishingFrenzyTiers(t *testing.T) {
	cases := []struct {
		timeMs int64
		want   int
	}{
		{1500, 400},
		{3000, 200},
		{5000, 100},
		{8000, 50},
		{12000, 25},
	}
	for _, tc := range cases {
		if got := CalculatePoints(true, tc.timeMs, "fishing_frenzy", 0, domain.ModeData{}); got != tc.want {
			t.Fatalf("t=%dms: expected %d, got %d", tc.timeMs, tc.want, got)
		}
	}
}

func TestCrazyKingdomDifficultyLookup(t *testing.T) {
	for difficulty, want := range map[string]int{"easy": 50, "medium": 100, "hard": 200, "bogus": 0} {
		data := domain.ModeData{Kingdom: &domain.KingdomData{Difficulty: difficulty}}
		if got := CalculatePoints(true, 3000, "crazy_kingdom", 0, data); got != want {
			t.Fatalf("difficulty %s: expected %d, got %d", difficulty, want, got)
		}
	}
}

func TestBidBattlePaysBidPlusBonus(t *testing.T) {
	data := domain.ModeData{BidBattle: &domain.BidBattleData{Bid: 30}}
	if got := CalculatePoints(true, 3000, "bid_battle", 0, data); got != 80 {
		t.Fatalf("expected bid 30 + bonus 50 = 80, got %d", got)
	}
	if got := CalculatePoints(false, 3000, "bid_battle", 0, data); got != -30 {
		t.Fatalf("expected forfeited bid -30, got %d", got)
	}
}

func TestApplyRoundGoldQuestClampsCoins(t *testing.T) {
	data := domain.ModeData{GoldQuest: &domain.GoldQuestData{Coins: 10, Bet: 75}}
	out := ApplyRound("gold_quest", data, false, -75, 2000)
	if out.GoldQuest.Coins != 0 {
		t.Fatalf("expected coins clamped to 0, got %d", out.GoldQuest.Coins)
	}
}

func TestApplyRoundTowerDamage(t *testing.T) {
	data := domain.ModeData{TowerRush: &domain.TowerRushData{TowerHP: 5}}
	out := ApplyRound("tower_rush", data, false, -20, 2000)
	if out.TowerRush.TowerHP != 0 {
		t.Fatalf("expected HP clamped to 0, got %d", out.TowerRush.TowerHP)
	}
	kept := ApplyRound("tower_rush", domain.ModeData{TowerRush: &domain.TowerRushData{TowerHP: 50}}, true, 80, 2000)
	if kept.TowerRush.TowerHP != 50 {
		t.Fatalf("correct answer should not damage the tower, got %d", kept.TowerRush.TowerHP)
	}
}

func TestApplyRoundFishingKeepsBestTier(t *testing.T) {
	data := domain.ModeData{Fishing: &domain.FishingData{BestTier: "epic"}}
	out := ApplyRound("fishing_frenzy", data, true, 100, 5000) // rare catch
	if out.Fishing.BestTier != "epic" {
		t.Fatalf("rare should not replace epic, got %s", out.Fishing.BestTier)
	}
	out = ApplyRound("fishing_frenzy", out, true, 400, 1000) // legendary
	if out.Fishing.BestTier != "legendary" {
		t.Fatalf("expected legendary, got %s", out.Fishing.BestTier)
	}
}
