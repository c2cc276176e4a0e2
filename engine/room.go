package engine

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/nathoo/worldcore/engine/effects"
	"github.com/nathoo/worldcore/engine/text"
	"github.com/nathoo/worldcore/types"
)

// ambushTask names the scheduled hostile attack so room changes can
// cancel it.
const ambushTask = "ambush"

// onRoomEnter describes the new room, runs its entry handler and arms an
// ambush if someone hostile is waiting.
func (e *Engine) onRoomEnter(ev types.Event) {
	roomID, _ := ev.Data["roomId"].(string)
	first, _ := ev.Data["firstVisit"].(bool)

	e.Scheduler.CancelNamed(ambushTask)
	e.describeRoom(roomID)

	rd := e.World.RoomDef(roomID)
	e.Scripts.Run(rd.OnEnter, e.Context(), strconv.FormatBool(first))
	if e.World.Player.CurrentRoom == roomID {
		e.armAmbush(roomID)
	}
}

// onScoreChange wins the game once the score reaches the game's target.
func (e *Engine) onScoreChange(ev types.Event) {
	target := e.Defs.Game.WinScore
	if target <= 0 {
		return
	}
	if score, _ := ev.Data["score"].(int); score >= target {
		e.World.EndGame(true, "")
	}
}

func (e *Engine) armAmbush(roomID string) {
	w := e.World
	for _, id := range w.RoomCharacters(roomID) {
		if c := w.Characters[id]; c.Hostile && c.Alive {
			charID := id
			e.Scheduler.After(e.ambushDelay, ambushTask, func() { e.ambush(roomID, charID) })
			e.log.WithField("character", charID).WithField("room", roomID).Debug("ambush armed")
			return
		}
	}
}

// ambush fires a delayed attack. Anything that changed since it was armed
// (a room change, a fight or conversation already under way, the end of
// the game) makes it a no-op.
func (e *Engine) ambush(roomID, charID string) {
	w := e.World
	if w.GameOver || w.Player.CurrentRoom != roomID || e.Combat.Active() || e.Dialogue.Active() {
		return
	}
	if !w.Present(charID) || !w.Characters[charID].Hostile {
		return
	}
	e.Combat.Start(e.Context(), charID)
}

// describeRoom narrates a room: name, description, what is visible and the
// way out.
func (e *Engine) describeRoom(roomID string) {
	w := e.World
	room, ok := w.Rooms[roomID]
	if !ok {
		e.Bus.Say("You are somewhere unknown.")
		return
	}
	rd := w.RoomDef(roomID)
	e.Bus.Say(w.RoomName(roomID))
	if rd.Description != "" {
		e.Bus.Say(e.expand(rd.Description))
	}

	var names []string
	for _, id := range w.RoomItems(roomID) {
		names = append(names, w.ItemName(id))
	}
	for _, id := range w.RoomCharacters(roomID) {
		names = append(names, w.CharacterName(id))
	}
	if len(names) > 0 {
		e.Bus.Say("You see: " + strings.Join(names, ", ") + ".")
	}

	if len(room.Exits) > 0 {
		e.Bus.Say("Exits: " + strings.Join(sortedKeys(room.Exits), ", ") + ".")
	}
}

// sceneryFallback answers for nouns that are not entities but do appear in
// something the player can see, so "look at the sink" does not claim the
// sink is missing.
func (e *Engine) sceneryFallback(verb, object string) string {
	if object == "" {
		return ""
	}
	w := e.World
	objLower := strings.ToLower(object)

	descriptions := []string{w.RoomDef(w.Player.CurrentRoom).Description}
	for _, id := range w.RoomItems(w.Player.CurrentRoom) {
		def, _ := w.ItemDef(id)
		descriptions = append(descriptions, def.Description)
	}
	for _, id := range w.RoomCharacters(w.Player.CurrentRoom) {
		def, _ := w.CharacterDef(id)
		descriptions = append(descriptions, def.Description)
	}
	for _, id := range w.Player.Inventory {
		def, _ := w.ItemDef(id)
		descriptions = append(descriptions, def.Description)
	}

	for _, desc := range descriptions {
		descLower := strings.ToLower(desc)
		if strings.Contains(descLower, objLower) {
			return sceneryMessage(verb, object)
		}
		// Significant words only.
		for _, word := range strings.Fields(objLower) {
			if len(word) >= 4 && strings.Contains(descLower, word) {
				return sceneryMessage(verb, object)
			}
		}
	}
	return ""
}

func sceneryMessage(verb, object string) string {
	switch verb {
	case "look":
		return fmt.Sprintf("You see nothing special about the %s.", object)
	case "take":
		return fmt.Sprintf("You can't take the %s.", object)
	default:
		return fmt.Sprintf("You can't do anything useful with the %s.", object)
	}
}

func (e *Engine) inventory() {
	inv := e.World.Player.Inventory
	if len(inv) == 0 {
		e.Bus.Say("You are carrying nothing.")
		return
	}
	names := make([]string, 0, len(inv))
	for _, id := range inv {
		names = append(names, e.World.ItemName(id))
	}
	e.Bus.Say("You are carrying: " + strings.Join(names, ", ") + ".")
}

func (e *Engine) status() {
	p := e.World.Player
	e.Bus.Sayf("HP: %d/%d | Score: %d | Turns: %d", p.HP, p.MaxHP, p.Score, p.TurnCount)
}

func (e *Engine) help() {
	e.Bus.Say("Commands: look, go <direction>, take, drop, use <item> [on <thing>], give <item> to <someone>, " +
		"talk to <someone>, search, open, pull, dig, read, wear, inventory, status, wait, restart.")
	e.Bus.Say("In a fight: attack, flee, throw grenade, insult. In a conversation: type an option number, or BYE.")
}

// expand renders content text against the current world.
func (e *Engine) expand(s string) string {
	return text.Must(s, effects.Data(e.Context(), nil))
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
