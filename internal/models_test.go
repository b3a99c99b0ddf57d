package internal

import "testing"

func TestPlayerStateLabels(t *testing.T) {
	tests := []struct {
		state    PlayerState
		expected string
	}{
		{StateInGame, "In Game"},
		{StateRecentlyPlayed, "Played Recently"},
		{StateIdle, "Touching Grass"},
		{StateOffline, "Offline"},
		{StateUnknown, "Unknown"},
		{PlayerState("bogus"), "Unknown"},
	}

	for _, tt := range tests {
		if got := tt.state.Label(); got != tt.expected {
			t.Errorf("%s: expected %q, got %q", tt.state, tt.expected, got)
		}
	}
}

func TestPlayerIdentity_RiotID(t *testing.T) {
	id := &PlayerIdentity{GameName: "DariusTFox", TagLine: "EUNE"}
	if id.RiotID() != "DariusTFox#EUNE" {
		t.Errorf("unexpected riot id %s", id.RiotID())
	}

	id.TagLine = ""
	if id.RiotID() != "DariusTFox" {
		t.Errorf("missing tag line should render the bare name, got %s", id.RiotID())
	}
}

func TestUnrankedStanding(t *testing.T) {
	standing := UnrankedStanding()
	if standing.Tier != UnrankedTier {
		t.Errorf("expected the sentinel tier, got %s", standing.Tier)
	}
	if standing.Wins != 0 || standing.Losses != 0 || standing.WinRatePercent != 0 {
		t.Error("sentinel standing carries no record")
	}
}

func TestRankedStanding_Rank(t *testing.T) {
	tests := []struct {
		standing RankedStanding
		expected string
	}{
		{RankedStanding{Tier: "GOLD", Division: "IV"}, "GOLD IV"},
		{RankedStanding{Tier: "CHALLENGER"}, "CHALLENGER"},
		{RankedStanding{Tier: UnrankedTier}, UnrankedTier},
		{RankedStanding{}, UnrankedTier},
	}

	for _, tt := range tests {
		if got := tt.standing.Rank(); got != tt.expected {
			t.Errorf("expected %q, got %q", tt.expected, got)
		}
	}
}

func TestMatchParticipant_ItemIDs(t *testing.T) {
	p := &MatchParticipant{Item0: 3071, Item2: 3065, Item6: 3340}

	items := p.ItemIDs()
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %v", items)
	}
	if items[0] != 3071 || items[1] != 3065 || items[2] != 3340 {
		t.Errorf("unexpected item order %v", items)
	}

	empty := &MatchParticipant{}
	if len(empty.ItemIDs()) != 0 {
		t.Error("empty slots yield no items")
	}
}
