package statsapi

import "testing"

func schedulePayload() map[string]any {
	return map[string]any{
		"totalGames": float64(3),
		"dates": []any{
			map[string]any{
				"date": "2024-07-04",
				"games": []any{
					map[string]any{"gamePk": float64(745804), "status": map[string]any{"detailedState": "Final"}},
					map[string]any{"gamePk": float64(745711)},
					map[string]any{"gamePk": float64(745711)},
					map[string]any{"status": map[string]any{"detailedState": "Postponed"}},
				},
			},
			"not-an-object",
		},
	}
}

func TestScheduleGameIDs_DedupsAndSorts(t *testing.T) {
	t.Parallel()

	ids := ScheduleGameIDs(schedulePayload())
	if len(ids) != 2 {
		t.Fatalf("expected 2 distinct ids, got=%d", len(ids))
	}
	if ids[0] != 745711 || ids[1] != 745804 {
		t.Fatalf("expected ascending ids [745711 745804], got=%v", ids)
	}
}

func TestScheduleGames_ToleratesMalformedEntries(t *testing.T) {
	t.Parallel()

	games := ScheduleGames(schedulePayload())
	if len(games) != 4 {
		t.Fatalf("expected 4 game entries, got=%d", len(games))
	}

	if games := ScheduleGames(map[string]any{"dates": "nope"}); len(games) != 0 {
		t.Fatalf("expected no games from malformed schedule, got=%d", len(games))
	}
}

func TestGameDetailedState(t *testing.T) {
	t.Parallel()

	detail := map[string]any{
		"gameData": map[string]any{
			"status": map[string]any{"detailedState": "In Progress"},
		},
	}
	if got := GameDetailedState(detail); got != "In Progress" {
		t.Fatalf("expected detailed state, got=%q", got)
	}
	if got := GameDetailedState(map[string]any{}); got != "" {
		t.Fatalf("expected empty state for missing status, got=%q", got)
	}
}

func TestGetFloat64_ParsesUpstreamRateStrings(t *testing.T) {
	t.Parallel()

	src := map[string]any{
		"avg":     ".586",
		"era":     "3.21",
		"whip":    float64(1.18),
		"empty":   "",
		"dashes":  ".---",
		"invalid": "abc",
	}

	if v, ok := GetFloat64(src, "avg"); !ok || v != 0.586 {
		t.Fatalf("expected .586 parsed, got=%v ok=%v", v, ok)
	}
	if v, ok := GetFloat64(src, "era"); !ok || v != 3.21 {
		t.Fatalf("expected 3.21 parsed, got=%v ok=%v", v, ok)
	}
	if v, ok := GetFloat64(src, "whip"); !ok || v != 1.18 {
		t.Fatalf("expected 1.18 passthrough, got=%v ok=%v", v, ok)
	}
	for _, key := range []string{"empty", "dashes", "invalid", "absent"} {
		if _, ok := GetFloat64(src, key); ok {
			t.Fatalf("expected %q to be unknown", key)
		}
	}
}

func TestGetInt64_ToleratesDecodedTypes(t *testing.T) {
	t.Parallel()

	src := map[string]any{
		"float":  float64(42),
		"string": "17",
		"bad":    "x",
		"nil":    nil,
	}
	if got := GetInt64(src, "float"); got != 42 {
		t.Fatalf("expected 42, got=%d", got)
	}
	if got := GetInt64(src, "string"); got != 17 {
		t.Fatalf("expected 17, got=%d", got)
	}
	if got := GetInt64(src, "bad"); got != 0 {
		t.Fatalf("expected 0 for unparsable, got=%d", got)
	}
	if got := GetInt64(src, "nil"); got != 0 {
		t.Fatalf("expected 0 for nil, got=%d", got)
	}
	if got := GetInt64(nil, "any"); got != 0 {
		t.Fatalf("expected 0 for nil map, got=%d", got)
	}
}

func TestDig_SafeOnMissingLevels(t *testing.T) {
	t.Parallel()

	payload := map[string]any{
		"gameData": map[string]any{
			"teams": map[string]any{
				"home": map[string]any{"id": float64(147), "name": "New York Yankees"},
			},
		},
	}
	home := Dig(payload, "gameData", "teams", "home")
	if GetInt64(home, "id") != 147 {
		t.Fatalf("expected home team id 147, got=%d", GetInt64(home, "id"))
	}
	if Dig(payload, "gameData", "venue", "location") != nil {
		t.Fatal("expected nil for missing intermediate level")
	}
	if Dig(nil, "a", "b") != nil {
		t.Fatal("expected nil for nil source")
	}
}
