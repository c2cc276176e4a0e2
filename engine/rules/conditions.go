// Package rules evaluates content conditions against the world and binds
// content-declared event handlers to the bus.
package rules

import (
	"slices"

	"github.com/nathoo/worldcore/engine/state"
	"github.com/nathoo/worldcore/types"
)

// EvalCondition evaluates a single condition against the current world.
func EvalCondition(c types.Condition, w *state.World) bool {
	switch c.Type {
	case "has_item":
		item, _ := c.Params["item"].(string)
		return w.HasItem(item)

	case "flag_set":
		flag, _ := c.Params["flag"].(string)
		return w.FlagBool(flag)

	case "flag_not":
		flag, _ := c.Params["flag"].(string)
		return !w.FlagBool(flag)

	case "flag_is":
		flag, _ := c.Params["flag"].(string)
		actual, ok := w.Flag(flag)
		if !ok {
			actual = false
		}
		return equal(actual, c.Params["value"])

	case "in_room":
		room, _ := c.Params["room"].(string)
		return w.Player.CurrentRoom == room

	case "visited":
		room, _ := c.Params["room"].(string)
		r, ok := w.Rooms[room]
		return ok && r.Visited

	case "alive":
		id, _ := c.Params["character"].(string)
		ch, ok := w.Characters[id]
		return ok && ch.Alive && !ch.Defeated

	case "defeated":
		id, _ := c.Params["character"].(string)
		ch, ok := w.Characters[id]
		return ok && ch.Defeated

	case "item_in_room":
		item, _ := c.Params["item"].(string)
		room, _ := c.Params["room"].(string)
		if room == "" {
			room = w.Player.CurrentRoom
		}
		r, ok := w.Rooms[room]
		return ok && slices.Contains(r.Items, item)

	case "score_at_least":
		return w.Player.Score >= toInt(c.Params["value"])

	case "not":
		if c.Inner == nil {
			return true
		}
		return !EvalCondition(*c.Inner, w)

	default:
		return false
	}
}

// EvalAllConditions returns true if all conditions pass (AND logic).
// An empty condition list is vacuously true.
func EvalAllConditions(conditions []types.Condition, w *state.World) bool {
	for _, c := range conditions {
		if !EvalCondition(c, w) {
			return false
		}
	}
	return true
}

// equal compares flag values, treating Lua/JSON numbers as ints.
func equal(a, b any) bool {
	switch a.(type) {
	case int, int64, float64:
		switch b.(type) {
		case int, int64, float64:
			return toInt(a) == toInt(b)
		}
	}
	return a == b
}

// toInt converts an any value to int, handling float64 from JSON/Lua.
func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	case int64:
		return int(n)
	default:
		return 0
	}
}
