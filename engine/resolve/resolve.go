// Package resolve maps the nouns of a parsed intent to entity IDs.
//
// Matching is case-insensitive and runs in passes: exact ID, exact display
// name, alias, then substring of the display name. The first candidate that
// matches in the earliest pass wins, so candidate order matters.
package resolve

import (
	"fmt"
	"strings"

	"github.com/nathoo/worldcore/engine/state"
)

// Kinds of candidate.
const (
	KindItem      = "item"
	KindCharacter = "character"
	KindHotspot   = "hotspot"
)

// Candidate is something the player can refer to.
type Candidate struct {
	ID      string
	Kind    string
	Name    string
	Aliases []string
	Carried bool
}

// NotFoundError indicates no candidate matched a name.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("you don't see %q here", e.Name)
}

// Resolve finds the candidate a query refers to.
func Resolve(query string, candidates []Candidate) (Candidate, error) {
	q := normalize(query)
	if q == "" {
		return Candidate{}, &NotFoundError{Name: query}
	}

	passes := []func(c Candidate) bool{
		// 1. Exact ID ("dollar bill" also matches "dollar_bill").
		func(c Candidate) bool {
			id := strings.ToLower(c.ID)
			return id == q || id == strings.ReplaceAll(q, " ", "_")
		},
		// 2. Exact display name.
		func(c Candidate) bool {
			return normalize(c.Name) == q
		},
		// 3. Alias.
		func(c Candidate) bool {
			for _, a := range c.Aliases {
				if normalize(a) == q {
					return true
				}
			}
			return false
		},
		// 4. Substring of the display name.
		func(c Candidate) bool {
			return c.Name != "" && strings.Contains(normalize(c.Name), q)
		},
	}

	for _, match := range passes {
		for _, c := range candidates {
			if match(c) {
				return c, nil
			}
		}
	}
	return Candidate{}, &NotFoundError{Name: query}
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// RoomItems returns the visible items lying in the current room.
func RoomItems(w *state.World) []Candidate {
	var out []Candidate
	for _, id := range w.RoomItems(w.Player.CurrentRoom) {
		out = append(out, itemCandidate(w, id, false))
	}
	return out
}

// Inventory returns the carried items, in pickup order.
func Inventory(w *state.World) []Candidate {
	var out []Candidate
	for _, id := range w.Player.Inventory {
		out = append(out, itemCandidate(w, id, true))
	}
	return out
}

// Characters returns the undefeated characters in the current room.
func Characters(w *state.World) []Candidate {
	var out []Candidate
	for _, id := range w.RoomCharacters(w.Player.CurrentRoom) {
		def, _ := w.CharacterDef(id)
		out = append(out, Candidate{
			ID:      id,
			Kind:    KindCharacter,
			Name:    w.CharacterName(id),
			Aliases: def.Aliases,
		})
	}
	return out
}

// Hotspots returns the current room's hotspots.
func Hotspots(w *state.World) []Candidate {
	var out []Candidate
	for _, h := range w.RoomDef(w.Player.CurrentRoom).Hotspots {
		out = append(out, Candidate{
			ID:      h.ID,
			Kind:    KindHotspot,
			Name:    h.Label,
			Aliases: h.Aliases,
		})
	}
	return out
}

// Everything returns every candidate in scope: room items, carried items,
// characters, then hotspots.
func Everything(w *state.World) []Candidate {
	var out []Candidate
	out = append(out, RoomItems(w)...)
	out = append(out, Inventory(w)...)
	out = append(out, Characters(w)...)
	out = append(out, Hotspots(w)...)
	return out
}

func itemCandidate(w *state.World, id string, carried bool) Candidate {
	def, _ := w.ItemDef(id)
	return Candidate{
		ID:      id,
		Kind:    KindItem,
		Name:    w.ItemName(id),
		Aliases: def.Aliases,
		Carried: carried,
	}
}
