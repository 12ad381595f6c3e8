package statsapi

import (
	"sort"
	"strconv"
	"strings"
)

// Safe-navigation helpers over upstream payloads. Absence of a key at any
// nesting level means "value unknown", never an error.

// AsMap returns raw as an object payload, or nil when it is anything else.
func AsMap(raw any) map[string]any {
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil
	}
	return obj
}

// AsSlice returns raw as an array payload, or nil when it is anything else.
func AsSlice(raw any) []any {
	items, ok := raw.([]any)
	if !ok {
		return nil
	}
	return items
}

// Dig walks nested objects by key, returning nil when any level is absent.
func Dig(src map[string]any, keys ...string) map[string]any {
	current := src
	for _, key := range keys {
		if current == nil {
			return nil
		}
		current = AsMap(current[key])
	}
	return current
}

// GetString returns the trimmed string at key, or "" when absent or not a
// string.
func GetString(src map[string]any, key string) string {
	if src == nil {
		return ""
	}
	raw, ok := src[key]
	if !ok || raw == nil {
		return ""
	}
	value, ok := raw.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(value)
}

// GetInt64 returns the integer at key, tolerating the float64 values JSON
// decoding produces and numeric strings.
func GetInt64(src map[string]any, key string) int64 {
	if src == nil {
		return 0
	}
	raw, ok := src[key]
	if !ok || raw == nil {
		return 0
	}
	switch typed := raw.(type) {
	case float64:
		return int64(typed)
	case float32:
		return int64(typed)
	case int:
		return int64(typed)
	case int64:
		return typed
	case string:
		v, err := strconv.ParseInt(strings.TrimSpace(typed), 10, 64)
		if err != nil {
			return 0
		}
		return v
	default:
		return 0
	}
}

// GetInt is GetInt64 narrowed to int.
func GetInt(src map[string]any, key string) int {
	return int(GetInt64(src, key))
}

// GetFloat64 returns the number at key, tolerating the upstream habit of
// encoding rate stats as strings like ".586".
func GetFloat64(src map[string]any, key string) (float64, bool) {
	if src == nil {
		return 0, false
	}
	raw, ok := src[key]
	if !ok || raw == nil {
		return 0, false
	}
	switch typed := raw.(type) {
	case float64:
		return typed, true
	case float32:
		return float64(typed), true
	case int:
		return float64(typed), true
	case int64:
		return float64(typed), true
	case string:
		text := strings.TrimSpace(typed)
		if text == "" || text == "-" || text == ".---" {
			return 0, false
		}
		if strings.HasPrefix(text, ".") {
			text = "0" + text
		}
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return 0, false
		}
		return v, true
	default:
		return 0, false
	}
}

// HasKey reports whether key is present with a non-nil value.
func HasKey(src map[string]any, key string) bool {
	if src == nil {
		return false
	}
	raw, ok := src[key]
	return ok && raw != nil
}

// ScheduleGames flattens a schedule payload's dates into one list of game
// entries, in payload order.
func ScheduleGames(schedule map[string]any) []map[string]any {
	out := make([]map[string]any, 0, 16)
	for _, rawDate := range AsSlice(schedule["dates"]) {
		date := AsMap(rawDate)
		if date == nil {
			continue
		}
		for _, rawGame := range AsSlice(date["games"]) {
			if game := AsMap(rawGame); game != nil {
				out = append(out, game)
			}
		}
	}
	return out
}

// ScheduleGameIDs returns the distinct game identifiers listed in a schedule
// payload, ascending.
func ScheduleGameIDs(schedule map[string]any) []int64 {
	seen := make(map[int64]struct{}, 16)
	ids := make([]int64, 0, 16)
	for _, game := range ScheduleGames(schedule) {
		id := GetInt64(game, "gamePk")
		if id <= 0 {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// GameDetailedState returns the detailed status of a game-detail payload,
// e.g. "In Progress" or "Final". Empty when the payload lacks status.
func GameDetailedState(detail map[string]any) string {
	return GetString(Dig(detail, "gameData", "status"), "detailedState")
}
