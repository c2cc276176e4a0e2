package loader

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pixil98/go-errors"

	"github.com/nathoo/worldcore/engine/state"
	"github.com/nathoo/worldcore/engine/text"
	"github.com/nathoo/worldcore/types"
)

// Known effect types.
var validEffectTypes = map[string]bool{
	"say":               true,
	"give_item":         true,
	"remove_item":       true,
	"place_item":        true,
	"take_from_room":    true,
	"reveal_item":       true,
	"set_flag":          true,
	"add_score":         true,
	"heal":              true,
	"hurt":              true,
	"damage_character":  true,
	"resolve_character": true,
	"spawn_character":   true,
	"move_player":       true,
	"open_exit":         true,
	"close_exit":        true,
	"emit":              true,
	"win":               true,
	"lose":              true,
	"restart_after":     true,
	"start_combat":      true,
	"if":                true,
	"allow":             true,
	"block":             true,
	"stop":              true,
}

// Known condition types.
var validConditionTypes = map[string]bool{
	"has_item":       true,
	"flag_set":       true,
	"flag_not":       true,
	"flag_is":        true,
	"in_room":        true,
	"visited":        true,
	"alive":          true,
	"defeated":       true,
	"item_in_room":   true,
	"score_at_least": true,
	"not":            true,
}

var validHotspotKinds = map[string]bool{
	types.HotspotExit:       true,
	types.HotspotItem:       true,
	types.HotspotCharacter:  true,
	types.HotspotSearchable: true,
	types.HotspotScenery:    true,
}

// validator accumulates problems. Errors fail the load, warnings are
// logged by the caller.
type validator struct {
	defs *state.Defs
	errs interface {
		Add(error)
		Err() error
	}
	warnings []string
}

func (v *validator) errorf(format string, args ...any) {
	v.errs.Add(fmt.Errorf(format, args...))
}

func (v *validator) warnf(format string, args ...any) {
	v.warnings = append(v.warnings, fmt.Sprintf(format, args...))
}

// validate checks the compiled defs for referential integrity and
// consistency. Script references are checked later against the registry,
// once host scripts are known.
func validate(defs *state.Defs) ([]string, error) {
	v := &validator{defs: defs, errs: errors.NewErrorList()}

	if defs.Game.Title == "" {
		v.errorf("Game.title is required")
	}
	if defs.Game.Start == "" {
		v.errorf("Game.start is required")
	} else if _, ok := defs.Rooms[defs.Game.Start]; !ok {
		v.errorf("Game.start references unknown room %q", defs.Game.Start)
	}
	v.template("Game intro", defs.Game.Intro)

	itemHome := map[string]string{}
	charHome := map[string]string{}

	for _, roomID := range sortedKeys(defs.Rooms) {
		room := defs.Rooms[roomID]
		owner := "room " + roomID
		v.template(owner+" description", room.Description)

		for _, dir := range sortedKeys(room.Exits) {
			if _, ok := defs.Rooms[room.Exits[dir]]; !ok {
				v.errorf("%s: exit %s references unknown room %q", owner, dir, room.Exits[dir])
			}
		}
		for _, dir := range sortedKeys(room.Blocked) {
			if _, ok := room.Exits[dir]; !ok {
				v.warnf("%s: blocked direction %s has no exit", owner, dir)
			}
		}

		for _, itemID := range room.Items {
			if _, ok := defs.Items[itemID]; !ok {
				v.errorf("%s: unknown item %q", owner, itemID)
				continue
			}
			if prev, dup := itemHome[itemID]; dup {
				v.errorf("item %q is placed in both %s and %s", itemID, prev, roomID)
				continue
			}
			itemHome[itemID] = roomID
		}
		for _, charID := range room.Characters {
			if _, ok := defs.Characters[charID]; !ok {
				v.errorf("%s: unknown character %q", owner, charID)
				continue
			}
			if prev, dup := charHome[charID]; dup {
				v.errorf("character %q is placed in both %s and %s", charID, prev, roomID)
				continue
			}
			charHome[charID] = roomID
		}

		seen := map[string]bool{}
		for _, h := range room.Hotspots {
			v.hotspot(owner, room, h, seen)
		}
	}

	for _, itemID := range sortedKeys(defs.Items) {
		v.template("item "+itemID+" description", defs.Items[itemID].Description)
	}

	for _, charID := range sortedKeys(defs.Characters) {
		ch := defs.Characters[charID]
		owner := "character " + charID
		v.template(owner+" description", ch.Description)
		if ch.Dialogue != "" {
			if _, ok := defs.Dialogues[ch.Dialogue]; !ok {
				v.errorf("%s: unknown dialogue %q", owner, ch.Dialogue)
			}
		}
		if ch.Loot != "" {
			v.item(owner+" loot", ch.Loot)
		}
		if ch.Puzzle != nil {
			v.puzzle(owner, ch.Puzzle)
		}
		for _, msg := range []string{ch.Messages.PlayerHit, ch.Messages.EnemyHit, ch.Messages.Defeat, ch.Messages.Insult, ch.Messages.Ambush} {
			v.template(owner+" message", msg)
		}
	}

	for _, dlgID := range sortedKeys(defs.Dialogues) {
		v.dialogue(dlgID, defs.Dialogues[dlgID])
	}

	for _, name := range sortedKeys(defs.Scripts) {
		v.effects("script "+name, defs.Scripts[name].Effects)
	}

	for i, h := range defs.Handlers {
		owner := fmt.Sprintf("handler %d (%s)", i+1, h.EventType)
		if h.EventType == "" {
			v.errorf("%s: event type is required", owner)
		}
		v.conditions(owner, h.Conditions)
		v.effects(owner, h.Effects)
	}

	return v.warnings, v.errs.Err()
}

func (v *validator) hotspot(owner string, room types.RoomDef, h types.HotspotDef, seen map[string]bool) {
	hOwner := owner + " hotspot " + h.ID
	if seen[h.ID] {
		v.errorf("%s: duplicate hotspot ID", hOwner)
	}
	seen[h.ID] = true

	if !validHotspotKinds[h.Kind] {
		v.errorf("%s: unknown kind %q", hOwner, h.Kind)
	}
	switch h.Kind {
	case types.HotspotExit:
		if h.ExitDir == "" {
			v.errorf("%s: exit hotspot needs a direction", hOwner)
		} else if _, ok := room.Exits[h.ExitDir]; !ok {
			// Exits may be opened at runtime.
			v.warnf("%s: direction %s is not an exit yet", hOwner, h.ExitDir)
		}
	case types.HotspotItem:
		v.item(hOwner, h.ItemID)
	case types.HotspotCharacter:
		if _, ok := v.defs.Characters[h.CharacterID]; !ok {
			v.errorf("%s: unknown character %q", hOwner, h.CharacterID)
		}
	}
	v.template(hOwner+" look", h.LookText)
	if h.Puzzle != nil {
		v.puzzle(hOwner, h.Puzzle)
	}
}

func (v *validator) puzzle(owner string, p *types.PuzzleDef) {
	if len(p.AcceptedItems) == 0 {
		v.errorf("%s: puzzle accepts no items", owner)
	}
	for _, itemID := range p.AcceptedItems {
		v.item(owner+" puzzle", itemID)
	}
	if p.Reward != "" {
		v.item(owner+" puzzle reward", p.Reward)
	}
}

func (v *validator) dialogue(id string, d types.DialogueDef) {
	owner := "dialogue " + id
	if d.Start == "" {
		v.errorf("%s: start node is required", owner)
	} else if _, ok := d.Nodes[d.Start]; !ok {
		v.errorf("%s: unknown start node %q", owner, d.Start)
	}
	for _, nodeID := range sortedKeys(d.Nodes) {
		node := d.Nodes[nodeID]
		v.template(owner+" node "+nodeID, node.Text)
		for i, opt := range node.Options {
			if opt.Next == "" {
				continue
			}
			if _, ok := d.Nodes[opt.Next]; !ok {
				// Treated as the end of the conversation at runtime.
				v.warnf("%s node %s option %d: unknown next node %q", owner, nodeID, i+1, opt.Next)
			}
		}
	}
}

func (v *validator) effects(owner string, effs []types.Effect) {
	for _, eff := range effs {
		if !validEffectTypes[eff.Type] {
			v.errorf("%s: unknown effect type %q", owner, eff.Type)
			continue
		}
		switch eff.Type {
		case "if":
			v.conditions(owner, eff.Conditions)
			v.effects(owner, eff.Then)
			v.effects(owner, eff.Else)
		case "say", "win", "lose":
			v.template(owner+" "+eff.Type, param(eff.Params, "text"))
		case "give_item", "remove_item", "reveal_item":
			v.item(owner, param(eff.Params, "item"))
		case "place_item", "take_from_room":
			v.item(owner, param(eff.Params, "item"))
			v.room(owner, param(eff.Params, "room"))
		case "damage_character", "resolve_character", "start_combat":
			v.character(owner, param(eff.Params, "character"))
		case "spawn_character":
			v.character(owner, param(eff.Params, "character"))
			v.room(owner, param(eff.Params, "room"))
		case "move_player":
			v.room(owner, param(eff.Params, "room"))
		case "open_exit":
			if r := param(eff.Params, "room"); r != "" {
				v.room(owner, r)
			}
			v.room(owner, param(eff.Params, "target"))
		}
	}
}

func (v *validator) conditions(owner string, conds []types.Condition) {
	for _, c := range conds {
		if !validConditionTypes[c.Type] {
			v.errorf("%s: unknown condition type %q", owner, c.Type)
			continue
		}
		switch c.Type {
		case "not":
			if c.Inner != nil {
				v.conditions(owner, []types.Condition{*c.Inner})
			}
		case "has_item":
			v.item(owner, param(c.Params, "item"))
		case "in_room", "visited":
			v.room(owner, param(c.Params, "room"))
		case "alive", "defeated":
			v.character(owner, param(c.Params, "character"))
		case "item_in_room":
			v.item(owner, param(c.Params, "item"))
			if r := param(c.Params, "room"); r != "" {
				v.room(owner, r)
			}
		}
	}
}

func (v *validator) item(owner, id string) {
	if templated(id) {
		return
	}
	if _, ok := v.defs.Items[id]; !ok {
		v.errorf("%s: unknown item %q", owner, id)
	}
}

func (v *validator) room(owner, id string) {
	if templated(id) {
		return
	}
	if _, ok := v.defs.Rooms[id]; !ok {
		v.errorf("%s: unknown room %q", owner, id)
	}
}

func (v *validator) character(owner, id string) {
	if templated(id) {
		return
	}
	if _, ok := v.defs.Characters[id]; !ok {
		v.errorf("%s: unknown character %q", owner, id)
	}
}

func (v *validator) template(owner, s string) {
	if err := text.Check(s); err != nil {
		v.errorf("%s: bad template: %v", owner, err)
	}
}

// templated reports whether a reference is only known at runtime.
func templated(ref string) bool {
	return strings.Contains(ref, "{{")
}

// param returns a string param, or "" if missing.
func param(params map[string]any, key string) string {
	s, _ := params[key].(string)
	return s
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
