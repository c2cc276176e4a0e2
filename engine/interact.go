package engine

import (
	"github.com/nathoo/worldcore/engine/events"
	"github.com/nathoo/worldcore/types"
)

// defaultVerbs is what a click does when no verb is selected.
var defaultVerbs = map[string]string{
	types.HotspotExit:       "go",
	types.HotspotItem:       "take",
	types.HotspotCharacter:  "talk",
	types.HotspotSearchable: "look",
	types.HotspotScenery:    "look",
}

// SelectVerb chooses the verb the next click applies. Selecting a verb
// drops any item waiting for a target.
func (e *Engine) SelectVerb(verb string) types.Result {
	e.begin()
	e.verb = verb
	e.pending = ""
	e.Bus.Emit(events.VerbSelect, map[string]any{"verb": verb})
	return e.finish()
}

// Cancel clears the selected verb and any pending item.
func (e *Engine) Cancel() types.Result {
	e.begin()
	e.clearSelection()
	return e.finish()
}

func (e *Engine) clearSelection() {
	if e.verb == "" && e.pending == "" {
		return
	}
	e.verb = ""
	e.pending = ""
	e.Bus.Emit(events.VerbCancel, nil)
}

// Click applies a verb to a hotspot of the current room. An empty verb
// means the selected verb, or the hotspot kind's default.
func (e *Engine) Click(verb, hotspotID string) types.Result {
	e.begin()
	if verb == "" {
		verb = e.verb
	}
	in := types.Intent{Verb: verb, Hotspot: hotspotID, Source: types.SourceClick}
	if h, ok := e.World.Hotspot(hotspotID); ok && e.Mode() == types.ModeExplore {
		if in.Verb == "" {
			in.Verb = defaultVerbs[h.Kind]
			if e.pending != "" {
				in.Verb = "use"
			}
		}
		if h.Kind == types.HotspotExit && in.Verb != "look" {
			in.Verb = "go"
		}
	}
	if in.Verb == "" {
		in.Verb = "look"
	}
	e.dispatch(in)
	e.afterClick()
	return e.finish()
}

// SelectItem applies the selected verb to an inventory item. Use and Give
// leave the item pending until a target is clicked.
func (e *Engine) SelectItem(itemID string) types.Result {
	e.begin()
	verb := e.verb
	if verb == "" {
		verb = "look"
	}
	in := types.Intent{Verb: verb, Carried: itemID, Source: types.SourceClick}
	switch verb {
	case "use", "give":
	default:
		in.Object = itemID
		in.Carried = ""
	}
	e.dispatch(in)
	e.afterClick()
	return e.finish()
}

// DragOnto drops a carried item onto a character (a give) or a hotspot
// (a use).
func (e *Engine) DragOnto(itemID, targetID string) types.Result {
	e.begin()
	in := types.Intent{Verb: "use", Carried: itemID, Source: types.SourceDrag}
	if h, ok := e.World.Hotspot(targetID); ok {
		in.Hotspot = targetID
		if h.CharacterID != "" {
			in.Verb = "give"
		}
	} else {
		in.Target = targetID
		if e.World.Present(targetID) {
			in.Verb = "give"
		}
	}
	e.pending = ""
	e.dispatch(in)
	e.afterClick()
	return e.finish()
}

// afterClick drops the selected verb once it has been used, unless an item
// is still waiting for its target.
func (e *Engine) afterClick() {
	if e.pending == "" {
		e.verb = ""
	}
}

// ChooseOption picks a dialogue option by its zero-based index.
func (e *Engine) ChooseOption(i int) types.Result {
	e.begin()
	if !e.Dialogue.Active() {
		e.Bus.Say("You're not talking to anyone.")
		return e.finish()
	}
	if !e.Dialogue.Select(e.Context(), i) {
		e.log.WithField("option", i).Debug("dialogue option out of range")
	}
	return e.finish()
}

// CloseDialogue ends the current conversation.
func (e *Engine) CloseDialogue() types.Result {
	return e.Dispatch(types.Intent{Verb: "bye"})
}

// Attack fights the current enemy, or picks a fight with whoever is here.
func (e *Engine) Attack() types.Result {
	return e.Dispatch(types.Intent{Verb: "attack"})
}

// Flee tries to get away from the current fight.
func (e *Engine) Flee() types.Result {
	return e.Dispatch(types.Intent{Verb: "flee"})
}

// ThrowGrenade throws a carried grenade at the current enemy.
func (e *Engine) ThrowGrenade() types.Result {
	return e.Dispatch(types.Intent{Verb: "throw", Object: "grenade"})
}

// Insult uses a carried insult item on the current enemy.
func (e *Engine) Insult() types.Result {
	return e.Dispatch(types.Intent{Verb: "insult"})
}
