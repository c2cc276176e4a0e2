package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/nathoo/worldcore/engine/rng"
	"github.com/nathoo/worldcore/engine/save"
	"github.com/nathoo/worldcore/types"
)

// Envelope captures the session for a save slot. Encounters in progress
// and pending verb selections are not part of a save.
func (e *Engine) Envelope(slot string) *save.Envelope {
	w := e.World
	return &save.Envelope{
		Format:      save.FormatVersion,
		Version:     e.Defs.Game.Version,
		Game:        e.Defs.Game.Title,
		Slot:        slot,
		SessionID:   e.SessionID,
		SavedAt:     time.Now().UTC(),
		RoomName:    w.RoomName(w.Player.CurrentRoom),
		Score:       w.Player.Score,
		Turn:        w.Player.TurnCount,
		RNGSeed:     e.RNG.Seed(),
		RNGPosition: e.RNG.Position(),
		State:       w.Snapshot(),
	}
}

// Save writes the session to a slot.
func (e *Engine) Save(ctx context.Context, store save.Store, slot string) error {
	if e.Combat.Active() {
		return fmt.Errorf("cannot save during a fight")
	}
	if err := store.Put(ctx, e.Envelope(slot)); err != nil {
		return fmt.Errorf("saving slot %s: %w", slot, err)
	}
	e.log.WithField("slot", slot).Info("game saved")
	return nil
}

// Load replaces the session with a saved slot and describes where the
// player stands.
func (e *Engine) Load(ctx context.Context, store save.Store, slot string) (types.Result, error) {
	env, err := store.Get(ctx, slot)
	if err != nil {
		return types.Result{}, fmt.Errorf("loading slot %s: %w", slot, err)
	}
	if env.Game != e.Defs.Game.Title {
		return types.Result{}, fmt.Errorf("loading slot %s: saved from %q, not %q", slot, env.Game, e.Defs.Game.Title)
	}
	if env.Version != e.Defs.Game.Version {
		e.log.WithField("slot", slot).
			WithField("saved", env.Version).
			WithField("current", e.Defs.Game.Version).
			Warn("save comes from another game version")
	}

	e.begin()
	e.restore(env)
	e.log.WithField("slot", slot).Info("game loaded")
	return e.finish(), nil
}

func (e *Engine) restore(env *save.Envelope) {
	e.Scheduler.CancelAll()
	e.Combat.Reset()
	e.Dialogue.Reset()
	e.verb = ""
	e.pending = ""
	e.seed = env.RNGSeed
	e.RNG = rng.Restore(env.RNGSeed, env.RNGPosition)
	e.Combat.SetRoller(e.RNG)
	e.World.Restore(env.State)
	e.overSaid = e.World.GameOver
	e.started = true

	room := e.World.Player.CurrentRoom
	e.describeRoom(room)
	if !e.World.GameOver {
		e.armAmbush(room)
	}
}
