// Package puzzle resolves give and use-on attempts against characters and
// room hotspots that declare an accepted-item set.
package puzzle

import (
	"slices"

	"github.com/nathoo/worldcore/engine/events"
	"github.com/nathoo/worldcore/engine/script"
	"github.com/nathoo/worldcore/types"
)

// Result is the outcome of one attempt.
type Result int

const (
	// NoPuzzle means the target declares no puzzle.
	NoPuzzle Result = iota
	// Solved means the item was accepted and the target is now resolved.
	Solved
	// Rejected means the item is not one the target accepts.
	Rejected
	// NotInterested means the target was already resolved.
	NotInterested
)

func (r Result) String() string {
	switch r {
	case Solved:
		return "solved"
	case Rejected:
		return "rejected"
	case NotInterested:
		return "not interested"
	default:
		return "no puzzle"
	}
}

// SolvedFlag is the flag that marks a hotspot puzzle as resolved.
func SolvedFlag(hotspotID string) string {
	return "solved:" + hotspotID
}

// Resolver applies puzzle definitions. It holds no state of its own.
type Resolver struct {
	scripts *script.Registry
}

// New creates a resolver that runs puzzle scripts from reg.
func New(reg *script.Registry) *Resolver {
	return &Resolver{scripts: reg}
}

// target is a character or a hotspot carrying a puzzle.
type target struct {
	kind    string
	id      string
	name    string
	puzzle  *types.PuzzleDef
	resolve func()
}

// Give resolves giving a carried item to a character in the current room.
// Characters without a puzzle fall back to their OnGive script.
func (r *Resolver) Give(ctx *script.Context, charID, itemID string) Result {
	w := ctx.World
	c, ok := w.Characters[charID]
	if !ok || c.Defeated || !w.Present(charID) {
		ctx.Bus.Say("They don't seem interested in that.")
		return NotInterested
	}
	def, _ := w.CharacterDef(charID)
	name := w.CharacterName(charID)
	if def.Puzzle == nil {
		if def.OnGive != "" {
			if _, found := r.scripts.Run(def.OnGive, ctx, itemID); found {
				return NoPuzzle
			}
		}
		ctx.Bus.Sayf("%s doesn't want that.", name)
		return NoPuzzle
	}
	return r.attempt(ctx, target{
		kind:    types.HotspotCharacter,
		id:      charID,
		name:    name,
		puzzle:  def.Puzzle,
		resolve: func() { w.RemoveCharacterFromRoom(charID) },
	}, itemID)
}

// UseOn resolves using a carried item on a room hotspot. A hotspot that
// points at a character delegates to Give.
func (r *Resolver) UseOn(ctx *script.Context, h types.HotspotDef, itemID string) Result {
	if h.Puzzle == nil {
		if h.CharacterID != "" {
			return r.Give(ctx, h.CharacterID, itemID)
		}
		return NoPuzzle
	}
	w := ctx.World
	flag := SolvedFlag(h.ID)
	if w.FlagBool(flag) {
		ctx.Bus.Say("You've already dealt with that.")
		return NotInterested
	}
	return r.attempt(ctx, target{
		kind:    types.HotspotScenery,
		id:      h.ID,
		name:    h.Label,
		puzzle:  h.Puzzle,
		resolve: func() { w.SetFlag(flag, true) },
	}, itemID)
}

func (r *Resolver) attempt(ctx *script.Context, t target, itemID string) Result {
	w := ctx.World
	p := t.puzzle
	vars := map[string]any{"Target": t.name, "Item": w.ItemName(itemID)}

	if !slices.Contains(p.AcceptedItems, itemID) {
		if p.OnWrongItem == "" {
			ctx.Bus.Sayf("%s doesn't want that.", t.name)
			return Rejected
		}
		if _, found := r.scripts.Run(p.OnWrongItem, ctx.With(vars), itemID); !found {
			ctx.Bus.Sayf("%s doesn't want that.", t.name)
		}
		return Rejected
	}

	if !p.Keep {
		w.RemoveFromInventory(itemID)
	}
	if p.Reward != "" {
		if err := w.AddItemToRoom(p.Reward, ""); err != nil {
			ctx.Logger().WithError(err).WithField("puzzle", t.id).Warn("puzzle reward not placed")
		}
	}
	if p.Flag != "" {
		w.SetFlag(p.Flag, true)
	}
	w.AddScore(p.Score)
	t.resolve()

	ctx.Bus.Emit(events.PuzzleSolved, map[string]any{
		"targetId": t.id,
		"kind":     t.kind,
		"itemId":   itemID,
	})

	if _, found := r.scripts.Run(p.OnCorrectItem, ctx.With(vars), itemID); !found {
		ctx.Bus.Sayf("%s accepts the %s.", t.name, w.ItemName(itemID))
	}
	return Solved
}
