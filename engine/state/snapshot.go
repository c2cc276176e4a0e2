package state

import (
	"maps"
	"math"
	"slices"

	"github.com/nathoo/worldcore/engine/events"
)

// Snapshot is a serializable copy of everything World tracks at runtime.
type Snapshot struct {
	Player     Player                    `json:"player" yaml:"player"`
	Rooms      map[string]RoomState      `json:"rooms" yaml:"rooms"`
	Items      map[string]ItemState      `json:"items" yaml:"items"`
	Characters map[string]CharacterState `json:"characters" yaml:"characters"`
	GameOver   bool                      `json:"gameOver" yaml:"game_over"`
	Won        bool                      `json:"won" yaml:"won"`
}

// RoomState is the runtime part of a room.
type RoomState struct {
	Visited    bool              `json:"visited" yaml:"visited"`
	Items      []string          `json:"items" yaml:"items"`
	Characters []string          `json:"characters" yaml:"characters"`
	Exits      map[string]string `json:"exits" yaml:"exits"`
}

// ItemState is the runtime part of an item.
type ItemState struct {
	Hidden bool `json:"hidden" yaml:"hidden"`
}

// CharacterState is the runtime part of a character.
type CharacterState struct {
	HP       int  `json:"currentHp" yaml:"current_hp"`
	Alive    bool `json:"alive" yaml:"alive"`
	Defeated bool `json:"defeated" yaml:"defeated"`
	Hostile  bool `json:"hostile" yaml:"hostile"`
}

// Snapshot returns a deep copy of the world's runtime state.
func (w *World) Snapshot() Snapshot {
	s := Snapshot{
		Player:     copyPlayer(w.Player),
		Rooms:      make(map[string]RoomState, len(w.Rooms)),
		Items:      make(map[string]ItemState, len(w.Items)),
		Characters: make(map[string]CharacterState, len(w.Characters)),
		GameOver:   w.GameOver,
		Won:        w.Won,
	}
	for id, r := range w.Rooms {
		s.Rooms[id] = RoomState{
			Visited:    r.Visited,
			Items:      cloneList(r.Items),
			Characters: cloneList(r.Characters),
			Exits:      maps.Clone(r.Exits),
		}
	}
	for id, it := range w.Items {
		s.Items[id] = ItemState{Hidden: it.Hidden}
	}
	for id, c := range w.Characters {
		s.Characters[id] = CharacterState{HP: c.HP, Alive: c.Alive, Defeated: c.Defeated, Hostile: c.Hostile}
	}
	return s
}

// Restore replaces the runtime state with a snapshot. Entities the snapshot
// does not mention keep their definition defaults; unknown IDs are ignored.
func (w *World) Restore(s Snapshot) {
	w.Reset()

	p := copyPlayer(s.Player)
	if p.MaxHP <= 0 {
		p.MaxHP = w.Player.MaxHP
	}
	for k, v := range p.Flags {
		p.Flags[k] = normalizeNumber(v)
	}
	w.Player = p
	w.GameOver = s.GameOver
	w.Won = s.Won

	for id, rs := range s.Rooms {
		r, ok := w.Rooms[id]
		if !ok {
			continue
		}
		r.Visited = rs.Visited
		r.Items = cloneList(rs.Items)
		r.Characters = cloneList(rs.Characters)
		if rs.Exits != nil {
			r.Exits = maps.Clone(rs.Exits)
		}
	}
	for id, is := range s.Items {
		if it, ok := w.Items[id]; ok {
			it.Hidden = is.Hidden
		}
	}
	for id, cs := range s.Characters {
		if c, ok := w.Characters[id]; ok {
			c.HP = cs.HP
			c.Alive = cs.Alive
			c.Defeated = cs.Defeated
			c.Hostile = cs.Hostile
		}
	}

	w.emitInventory()
	w.bus.Emit(events.HPChange, map[string]any{"hp": w.Player.HP, "maxHp": w.Player.MaxHP, "delta": 0})
	w.bus.Emit(events.ScoreChange, map[string]any{"score": w.Player.Score, "delta": 0})
}

func copyPlayer(p Player) Player {
	p.Inventory = cloneList(p.Inventory)
	if p.Inventory == nil {
		p.Inventory = []string{}
	}
	p.Flags = maps.Clone(p.Flags)
	if p.Flags == nil {
		p.Flags = map[string]any{}
	}
	return p
}

func cloneList(list []string) []string {
	if list == nil {
		return []string{}
	}
	return slices.Clone(list)
}

// normalizeNumber turns whole JSON numbers back into ints.
func normalizeNumber(v any) any {
	f, ok := v.(float64)
	if !ok || f != math.Trunc(f) {
		return v
	}
	return int(f)
}
