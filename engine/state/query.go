package state

import (
	"slices"

	"github.com/nathoo/worldcore/types"
)

// HasItem returns true if the player carries the given item.
func (w *World) HasItem(itemID string) bool {
	return slices.Contains(w.Player.Inventory, itemID)
}

// Inventory returns a copy of the carried item IDs in pickup order.
func (w *World) Inventory() []string {
	return slices.Clone(w.Player.Inventory)
}

// CurrentRoom returns the player's room, or nil before the first move.
func (w *World) CurrentRoom() *Room {
	return w.Rooms[w.Player.CurrentRoom]
}

// RoomDef returns the definition of a room.
func (w *World) RoomDef(roomID string) types.RoomDef {
	return w.defs.Rooms[roomID]
}

// RoomName returns a room's display name, falling back to its ID.
func (w *World) RoomName(roomID string) string {
	if rd, ok := w.defs.Rooms[roomID]; ok && rd.Name != "" {
		return rd.Name
	}
	return roomID
}

// ItemDef returns the definition of an item.
func (w *World) ItemDef(itemID string) (types.ItemDef, bool) {
	d, ok := w.defs.Items[itemID]
	return d, ok
}

// ItemName returns an item's display name, falling back to its ID.
func (w *World) ItemName(itemID string) string {
	if d, ok := w.defs.Items[itemID]; ok && d.Name != "" {
		return d.Name
	}
	return itemID
}

// CharacterDef returns the definition of a character.
func (w *World) CharacterDef(charID string) (types.CharacterDef, bool) {
	d, ok := w.defs.Characters[charID]
	return d, ok
}

// CharacterName returns a character's display name, falling back to its ID.
func (w *World) CharacterName(charID string) string {
	if d, ok := w.defs.Characters[charID]; ok && d.Name != "" {
		return d.Name
	}
	return charID
}

// RoomItems returns the visible items in a room. Hidden items are omitted.
func (w *World) RoomItems(roomID string) []string {
	room, ok := w.Rooms[roomID]
	if !ok {
		return nil
	}
	var out []string
	for _, id := range room.Items {
		if it, ok := w.Items[id]; ok && it.Hidden {
			continue
		}
		out = append(out, id)
	}
	return out
}

// RoomCharacters returns the characters present in a room that have not
// been defeated.
func (w *World) RoomCharacters(roomID string) []string {
	room, ok := w.Rooms[roomID]
	if !ok {
		return nil
	}
	var out []string
	for _, id := range room.Characters {
		if c, ok := w.Characters[id]; ok && !c.Defeated {
			out = append(out, id)
		}
	}
	return out
}

// CharacterRoom returns the room a character is in, or "".
func (w *World) CharacterRoom(charID string) string {
	for id, r := range w.Rooms {
		if slices.Contains(r.Characters, charID) {
			return id
		}
	}
	return ""
}

// ItemRoom returns the room an item lies in, or "" if it is carried or
// nowhere.
func (w *World) ItemRoom(itemID string) string {
	for id, r := range w.Rooms {
		if slices.Contains(r.Items, itemID) {
			return id
		}
	}
	return ""
}

// Present reports whether a character is in the current room and not
// defeated.
func (w *World) Present(charID string) bool {
	return slices.Contains(w.RoomCharacters(w.Player.CurrentRoom), charID)
}

// Hotspot finds a hotspot of the current room by ID.
func (w *World) Hotspot(id string) (types.HotspotDef, bool) {
	for _, h := range w.defs.Rooms[w.Player.CurrentRoom].Hotspots {
		if h.ID == id {
			return h, true
		}
	}
	return types.HotspotDef{}, false
}
