// Package state owns the mutable world: rooms, items, characters and the
// player. Every mutation goes through a World method, and every method that
// changes something observable emits on the bus.
package state

import (
	"errors"
	"fmt"
	"slices"

	"github.com/nathoo/worldcore/engine/events"
	"github.com/nathoo/worldcore/types"
)

// DefaultPlayerHP is used when the game does not declare one.
const DefaultPlayerHP = 100

var (
	ErrUnknownRoom      = errors.New("unknown room")
	ErrUnknownItem      = errors.New("unknown item")
	ErrUnknownCharacter = errors.New("unknown character")
	ErrNotCarried       = errors.New("item not carried")
)

// Defs holds the immutable game definitions loaded from Lua.
type Defs struct {
	Game       types.GameDef
	Rooms      map[string]types.RoomDef
	Items      map[string]types.ItemDef
	Characters map[string]types.CharacterDef
	Dialogues  map[string]types.DialogueDef
	Scripts    map[string]types.ScriptDef
	Handlers   []types.EventHandler
}

// Player is the player's runtime state.
type Player struct {
	CurrentRoom  string         `json:"currentRoom" yaml:"current_room"`
	PreviousRoom string         `json:"previousRoom" yaml:"previous_room"`
	Inventory    []string       `json:"inventory" yaml:"inventory"`
	Score        int            `json:"score" yaml:"score"`
	Flags        map[string]any `json:"flags" yaml:"flags"`
	HP           int            `json:"hp" yaml:"hp"`
	MaxHP        int            `json:"maxHp" yaml:"max_hp"`
	TurnCount    int            `json:"turnCount" yaml:"turn_count"`
}

// Room is a room's runtime state.
type Room struct {
	ID         string
	Exits      map[string]string
	Items      []string
	Characters []string
	Visited    bool
}

// Item is an item's runtime state.
type Item struct {
	ID     string
	Hidden bool
}

// Character is a character's runtime state.
type Character struct {
	ID       string
	HP       int
	MaxHP    int
	Alive    bool
	Defeated bool
	Hostile  bool
}

// World is the complete mutable game state.
type World struct {
	defs *Defs
	bus  *events.Bus

	Player     Player
	Rooms      map[string]*Room
	Items      map[string]*Item
	Characters map[string]*Character
	GameOver   bool
	Won        bool
}

// NewWorld creates a world initialized from defs. The player is placed
// nowhere until the first MoveToRoom.
func NewWorld(defs *Defs, bus *events.Bus) *World {
	w := &World{defs: defs, bus: bus}
	w.Reset()
	return w
}

// Defs returns the definitions this world was built from.
func (w *World) Defs() *Defs {
	return w.defs
}

// Reset reinitializes every runtime entity from the definitions.
func (w *World) Reset() {
	hp := w.defs.Game.PlayerHP
	if hp <= 0 {
		hp = DefaultPlayerHP
	}
	w.Player = Player{
		Inventory: []string{},
		Flags:     map[string]any{},
		HP:        hp,
		MaxHP:     hp,
	}
	w.GameOver = false
	w.Won = false

	w.Rooms = make(map[string]*Room, len(w.defs.Rooms))
	for id, rd := range w.defs.Rooms {
		exits := make(map[string]string, len(rd.Exits))
		for dir, target := range rd.Exits {
			exits[dir] = target
		}
		w.Rooms[id] = &Room{
			ID:         id,
			Exits:      exits,
			Items:      slices.Clone(rd.Items),
			Characters: slices.Clone(rd.Characters),
		}
	}

	w.Items = make(map[string]*Item, len(w.defs.Items))
	for id, it := range w.defs.Items {
		w.Items[id] = &Item{ID: id, Hidden: it.Hidden}
	}

	w.Characters = make(map[string]*Character, len(w.defs.Characters))
	for id, cd := range w.defs.Characters {
		w.Characters[id] = &Character{
			ID:      id,
			HP:      cd.HP,
			MaxHP:   cd.HP,
			Alive:   true,
			Hostile: cd.Hostile,
		}
	}
}

// MoveToRoom puts the player in roomID. dir records how they got there and
// may be empty. An unknown room is an error and changes nothing.
func (w *World) MoveToRoom(roomID, dir string) error {
	room, ok := w.Rooms[roomID]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownRoom, roomID)
	}
	prev := w.Player.CurrentRoom
	w.Player.PreviousRoom = prev
	w.Player.CurrentRoom = roomID
	firstVisit := !room.Visited
	room.Visited = true

	w.bus.Emit(events.RoomEnter, map[string]any{
		"roomId":         roomID,
		"previousRoomId": prev,
		"direction":      dir,
		"firstVisit":     firstVisit,
	})
	return nil
}

// AddToInventory moves an item into the inventory from wherever it was.
// Adding an item already carried leaves the inventory unchanged.
func (w *World) AddToInventory(itemID string) error {
	if _, ok := w.Items[itemID]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownItem, itemID)
	}
	w.detachFromRooms(itemID)
	if !slices.Contains(w.Player.Inventory, itemID) {
		w.Player.Inventory = append(w.Player.Inventory, itemID)
	}
	w.emitInventory()
	return nil
}

// RemoveFromInventory drops an item out of existence. Returns false if it
// was not carried; inventory:update is emitted either way.
func (w *World) RemoveFromInventory(itemID string) bool {
	defer w.emitInventory()
	i := slices.Index(w.Player.Inventory, itemID)
	if i < 0 {
		return false
	}
	w.Player.Inventory = slices.Delete(w.Player.Inventory, i, i+1)
	return true
}

// DropItem moves a carried item into the current room.
func (w *World) DropItem(itemID string) error {
	if !w.HasItem(itemID) {
		return fmt.Errorf("%w: %q", ErrNotCarried, itemID)
	}
	return w.AddItemToRoom(itemID, w.Player.CurrentRoom)
}

// AddItemToRoom places an item in a room, removing it from the inventory and
// from any other room. An empty roomID means the current room.
func (w *World) AddItemToRoom(itemID, roomID string) error {
	if roomID == "" {
		roomID = w.Player.CurrentRoom
	}
	room, ok := w.Rooms[roomID]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownRoom, roomID)
	}
	if _, ok := w.Items[itemID]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownItem, itemID)
	}

	if i := slices.Index(w.Player.Inventory, itemID); i >= 0 {
		w.Player.Inventory = slices.Delete(w.Player.Inventory, i, i+1)
		w.emitInventory()
	}
	for id, r := range w.Rooms {
		if id != roomID {
			r.Items = remove(r.Items, itemID)
		}
	}
	if !slices.Contains(room.Items, itemID) {
		room.Items = append(room.Items, itemID)
	}
	w.bus.Emit(events.RoomUpdate, map[string]any{"roomId": roomID, "itemId": itemID})
	return nil
}

// RemoveItemFromRoom takes an item out of a room without giving it to the
// player. An empty roomID means the current room.
func (w *World) RemoveItemFromRoom(itemID, roomID string) bool {
	if roomID == "" {
		roomID = w.Player.CurrentRoom
	}
	room, ok := w.Rooms[roomID]
	if !ok || !slices.Contains(room.Items, itemID) {
		return false
	}
	room.Items = remove(room.Items, itemID)
	w.bus.Emit(events.RoomUpdate, map[string]any{"roomId": roomID, "itemId": itemID})
	return true
}

// RevealItem makes a hidden item visible.
func (w *World) RevealItem(itemID string) bool {
	it, ok := w.Items[itemID]
	if !ok || !it.Hidden {
		return false
	}
	it.Hidden = false
	w.bus.Emit(events.ItemRevealed, map[string]any{"itemId": itemID})
	return true
}

// DamageCharacter applies damage and defeats the character when its hp
// reaches zero. Damage to a dead or defeated character is ignored. Returns
// true if this call defeated it.
func (w *World) DamageCharacter(charID string, amount int) bool {
	c, ok := w.Characters[charID]
	if !ok || !c.Alive || c.Defeated {
		return false
	}
	c.HP -= amount
	if c.HP < 0 {
		c.HP = 0
	}
	w.bus.Emit(events.CharDamaged, map[string]any{
		"charId": charID,
		"amount": amount,
		"hp":     c.HP,
	})
	if c.HP <= 0 {
		return w.DefeatCharacter(charID)
	}
	return false
}

// DefeatCharacter kills a character: it leaves its room, the defeat score is
// awarded and its loot is dropped. It happens at most once per character.
func (w *World) DefeatCharacter(charID string) bool {
	c, ok := w.Characters[charID]
	if !ok || c.Defeated {
		return false
	}
	c.Alive = false
	c.Defeated = true
	c.Hostile = false

	roomID := w.detachCharacter(charID)
	if roomID == "" {
		roomID = w.Player.CurrentRoom
	}

	def := w.defs.Characters[charID]
	if def.DefeatScore > 0 {
		w.AddScore(def.DefeatScore)
	}
	if def.Loot != "" {
		if err := w.AddItemToRoom(def.Loot, roomID); err == nil {
			w.bus.Sayf("%s dropped something!", w.CharacterName(charID))
		}
	}

	w.bus.Emit(events.CharDefeat, map[string]any{
		"charId": charID,
		"roomId": roomID,
		"killed": true,
	})
	return true
}

// RemoveCharacterFromRoom resolves a character without combat: it is marked
// defeated and leaves its room but stays alive. Returns false if it was
// already defeated.
func (w *World) RemoveCharacterFromRoom(charID string) bool {
	c, ok := w.Characters[charID]
	if !ok || c.Defeated {
		return false
	}
	c.Defeated = true
	c.Hostile = false
	roomID := w.detachCharacter(charID)
	w.bus.Emit(events.CharDefeat, map[string]any{
		"charId": charID,
		"roomId": roomID,
		"killed": false,
	})
	return true
}

// SpawnCharacter places a character in a room with full health. An empty
// roomID means the current room.
func (w *World) SpawnCharacter(charID, roomID string) error {
	c, ok := w.Characters[charID]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCharacter, charID)
	}
	if roomID == "" {
		roomID = w.Player.CurrentRoom
	}
	room, ok := w.Rooms[roomID]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownRoom, roomID)
	}
	w.detachCharacter(charID)
	room.Characters = append(room.Characters, charID)
	c.HP = c.MaxHP
	c.Alive = true
	c.Defeated = false
	c.Hostile = w.defs.Characters[charID].Hostile

	w.bus.Emit(events.CharSpawn, map[string]any{"charId": charID, "roomId": roomID})
	return nil
}

// SetFlag sets a named flag. A nil value means true.
func (w *World) SetFlag(name string, value any) {
	if value == nil {
		value = true
	}
	w.Player.Flags[name] = value
	w.bus.Emit(events.FlagSet, map[string]any{"flag": name, "value": value})
}

// Flag returns a flag's raw value.
func (w *World) Flag(name string) (any, bool) {
	v, ok := w.Player.Flags[name]
	return v, ok
}

// FlagBool reports whether a flag is set to a truthy value.
func (w *World) FlagBool(name string) bool {
	v, ok := w.Player.Flags[name]
	if !ok {
		return false
	}
	switch t := v.(type) {
	case bool:
		return t
	case int:
		return t != 0
	case float64:
		return t != 0
	case string:
		return t != ""
	default:
		return v != nil
	}
}

// AddScore adds points. Zero and negative amounts are ignored, so the score
// never decreases.
func (w *World) AddScore(points int) {
	if points <= 0 {
		return
	}
	w.Player.Score += points
	w.bus.Emit(events.ScoreChange, map[string]any{"score": w.Player.Score, "delta": points})
}

// ModifyHP changes the player's hp, clamped to [0, MaxHP]. Reaching zero
// ends the game as a loss.
func (w *World) ModifyHP(delta int) int {
	hp := w.Player.HP + delta
	hp = max(0, min(hp, w.Player.MaxHP))
	w.Player.HP = hp
	w.bus.Emit(events.HPChange, map[string]any{"hp": hp, "maxHp": w.Player.MaxHP, "delta": delta})
	if hp == 0 {
		w.EndGame(false, "")
	}
	return hp
}

// OpenExit adds or replaces an exit.
func (w *World) OpenExit(roomID, dir, target string) error {
	room, ok := w.Rooms[roomID]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownRoom, roomID)
	}
	if _, ok := w.Rooms[target]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownRoom, target)
	}
	room.Exits[dir] = target
	w.bus.Emit(events.ExitChange, map[string]any{"roomId": roomID, "direction": dir, "target": target})
	return nil
}

// CloseExit removes an exit.
func (w *World) CloseExit(roomID, dir string) bool {
	room, ok := w.Rooms[roomID]
	if !ok {
		return false
	}
	if _, ok := room.Exits[dir]; !ok {
		return false
	}
	delete(room.Exits, dir)
	w.bus.Emit(events.ExitChange, map[string]any{"roomId": roomID, "direction": dir, "target": ""})
	return true
}

// EndGame marks the session over. Only the first call has any effect.
func (w *World) EndGame(won bool, msg string) {
	if w.GameOver {
		return
	}
	w.GameOver = true
	w.Won = won
	w.bus.Emit(events.GameOver, map[string]any{
		"won":     won,
		"message": msg,
		"score":   w.Player.Score,
	})
}

func (w *World) emitInventory() {
	w.bus.Emit(events.InventoryUpdate, map[string]any{
		"inventory": slices.Clone(w.Player.Inventory),
	})
}

func (w *World) detachFromRooms(itemID string) {
	for id, r := range w.Rooms {
		if slices.Contains(r.Items, itemID) {
			r.Items = remove(r.Items, itemID)
			w.bus.Emit(events.RoomUpdate, map[string]any{"roomId": id, "itemId": itemID})
		}
	}
}

// detachCharacter removes a character from every room and returns the room
// it was found in.
func (w *World) detachCharacter(charID string) string {
	found := ""
	for id, r := range w.Rooms {
		if slices.Contains(r.Characters, charID) {
			r.Characters = remove(r.Characters, charID)
			found = id
		}
	}
	return found
}

func remove(list []string, id string) []string {
	return slices.DeleteFunc(list, func(s string) bool { return s == id })
}
