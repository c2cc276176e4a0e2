// Package loader loads Lua game content into Go structs at startup.
// The Lua VM is discarded after loading; no Lua runs at runtime. Behavior
// written inline in content is compiled into named effect scripts.
package loader

import (
	"fmt"
	"sort"

	lua "github.com/yuin/gopher-lua"

	"github.com/nathoo/worldcore/engine/script"
	"github.com/nathoo/worldcore/engine/state"
	"github.com/nathoo/worldcore/types"
)

// getString returns a string field from a Lua table, or "" if missing.
func getString(tbl *lua.LTable, key string) string {
	v := tbl.RawGetString(key)
	if s, ok := v.(lua.LString); ok {
		return string(s)
	}
	return ""
}

// getStringOr returns a string field, or def if missing or empty.
func getStringOr(tbl *lua.LTable, key, def string) string {
	if s := getString(tbl, key); s != "" {
		return s
	}
	return def
}

// getBool returns a bool field from a Lua table, or the default if missing.
func getBool(tbl *lua.LTable, key string, def bool) bool {
	v := tbl.RawGetString(key)
	if b, ok := v.(lua.LBool); ok {
		return bool(b)
	}
	return def
}

// getNumber returns a numeric field from a Lua table, or 0 if missing.
func getNumber(tbl *lua.LTable, key string) float64 {
	v := tbl.RawGetString(key)
	if n, ok := v.(lua.LNumber); ok {
		return float64(n)
	}
	return 0
}

// getInt returns an int field from a Lua table, or 0 if missing.
func getInt(tbl *lua.LTable, key string) int {
	return int(getNumber(tbl, key))
}

// getTable returns a table field from a Lua table, or nil if missing.
func getTable(tbl *lua.LTable, key string) *lua.LTable {
	v := tbl.RawGetString(key)
	if t, ok := v.(*lua.LTable); ok {
		return t
	}
	return nil
}

// getStrings returns a list field. A bare string counts as a one-element
// list.
func getStrings(tbl *lua.LTable, key string) []string {
	switch v := tbl.RawGetString(key).(type) {
	case lua.LString:
		return []string{string(v)}
	case *lua.LTable:
		var out []string
		for i := 1; i <= v.MaxN(); i++ {
			if s, ok := v.RawGetInt(i).(lua.LString); ok {
				out = append(out, string(s))
			}
		}
		return out
	}
	return nil
}

// toGoValue converts a Lua value to a Go value recursively.
func toGoValue(v lua.LValue) any {
	switch val := v.(type) {
	case lua.LBool:
		return bool(val)
	case lua.LNumber:
		f := float64(val)
		if f == float64(int(f)) {
			return int(f)
		}
		return f
	case *lua.LNilType:
		return nil
	case lua.LString:
		return string(val)
	case *lua.LTable:
		// Sequential integer keys starting at 1 make an array.
		maxN := val.MaxN()
		if maxN > 0 {
			arr := make([]any, 0, maxN)
			for i := 1; i <= maxN; i++ {
				arr = append(arr, toGoValue(val.RawGetInt(i)))
			}
			return arr
		}
		m := map[string]any{}
		val.ForEach(func(k, v lua.LValue) {
			if ks, ok := k.(lua.LString); ok {
				m[string(ks)] = toGoValue(v)
			}
		})
		return m
	default:
		return nil
	}
}

// tableToStringMap converts a Lua table to a map[string]string.
func tableToStringMap(tbl *lua.LTable) map[string]string {
	m := map[string]string{}
	if tbl == nil {
		return m
	}
	tbl.ForEach(func(k, v lua.LValue) {
		if ks, ok := k.(lua.LString); ok {
			if vs, ok := v.(lua.LString); ok {
				m[string(ks)] = string(vs)
			}
		}
	})
	return m
}

// tableToAnyMap converts a Lua table to a map[string]any.
func tableToAnyMap(tbl *lua.LTable) map[string]any {
	if tbl == nil {
		return nil
	}
	m := map[string]any{}
	tbl.ForEach(func(k, v lua.LValue) {
		if ks, ok := k.(lua.LString); ok {
			m[string(ks)] = toGoValue(v)
		}
	})
	return m
}

// compiler turns collected tables into definitions. Inline behavior is
// hoisted into defs.Scripts under a name derived from its owner.
type compiler struct {
	defs *state.Defs
}

// compile converts all collected Lua data into a Defs struct.
func compile(coll *collector) (*state.Defs, error) {
	if coll.game == nil {
		return nil, fmt.Errorf("no Game{} definition found")
	}
	c := &compiler{defs: &state.Defs{
		Game:       compileGame(coll.game),
		Rooms:      map[string]types.RoomDef{},
		Items:      map[string]types.ItemDef{},
		Characters: map[string]types.CharacterDef{},
		Dialogues:  map[string]types.DialogueDef{},
		Scripts:    map[string]types.ScriptDef{},
	}}
	defs := c.defs

	// Named scripts first so inline names can be checked against them.
	for _, raw := range coll.scripts {
		name := script.Name(raw.id)
		if _, dup := defs.Scripts[name]; dup {
			return nil, fmt.Errorf("duplicate script %q", name)
		}
		defs.Scripts[name] = types.ScriptDef{Name: name, Effects: compileEffects(raw.table)}
	}

	for _, raw := range coll.rooms {
		if _, dup := defs.Rooms[raw.id]; dup {
			return nil, fmt.Errorf("duplicate room %q", raw.id)
		}
		room, err := c.compileRoom(raw)
		if err != nil {
			return nil, fmt.Errorf("compiling room %s: %w", raw.id, err)
		}
		defs.Rooms[raw.id] = room
	}

	for _, raw := range coll.items {
		if _, dup := defs.Items[raw.id]; dup {
			return nil, fmt.Errorf("duplicate item %q", raw.id)
		}
		item, err := c.compileItem(raw)
		if err != nil {
			return nil, fmt.Errorf("compiling item %s: %w", raw.id, err)
		}
		defs.Items[raw.id] = item
	}

	for _, raw := range coll.dialogues {
		if _, dup := defs.Dialogues[raw.id]; dup {
			return nil, fmt.Errorf("duplicate dialogue %q", raw.id)
		}
		d, err := c.compileDialogue(raw.id, raw.table)
		if err != nil {
			return nil, fmt.Errorf("compiling dialogue %s: %w", raw.id, err)
		}
		defs.Dialogues[raw.id] = d
	}

	for _, raw := range coll.characters {
		if _, dup := defs.Characters[raw.id]; dup {
			return nil, fmt.Errorf("duplicate character %q", raw.id)
		}
		ch, err := c.compileCharacter(raw)
		if err != nil {
			return nil, fmt.Errorf("compiling character %s: %w", raw.id, err)
		}
		defs.Characters[raw.id] = ch
	}

	for _, raw := range coll.handlers {
		defs.Handlers = append(defs.Handlers, compileHandler(raw))
	}

	return defs, nil
}

func compileGame(tbl *lua.LTable) types.GameDef {
	return types.GameDef{
		Title:      getString(tbl, "title"),
		Author:     getString(tbl, "author"),
		Version:    getString(tbl, "version"),
		Start:      getString(tbl, "start"),
		Intro:      getString(tbl, "intro"),
		PlayerHP:   getInt(tbl, "player_hp"),
		FistDamage: getInt(tbl, "fist_damage"),
		WinScore:   getInt(tbl, "win_score"),
	}
}

// scriptRef compiles a behavior field. A string names a script; a table
// is an inline effect list registered as "<owner>.<field>".
func (c *compiler) scriptRef(owner, field string, v lua.LValue) (string, error) {
	switch val := v.(type) {
	case *lua.LNilType:
		return "", nil
	case lua.LString:
		return script.Name(string(val)), nil
	case *lua.LTable:
		name := owner + "." + field
		if _, dup := c.defs.Scripts[name]; dup {
			return "", fmt.Errorf("%s: inline script name %q already taken", field, name)
		}
		c.defs.Scripts[name] = types.ScriptDef{Name: name, Effects: compileEffects(val)}
		return name, nil
	default:
		return "", fmt.Errorf("%s: expected a script name or an effect list, got %s", field, v.Type())
	}
}

// scriptMap compiles a table of key → behavior, e.g. verbs or blocked
// exits.
func (c *compiler) scriptMap(owner, field string, tbl *lua.LTable) (map[string]string, error) {
	out := map[string]string{}
	if tbl == nil {
		return out, nil
	}
	var keys []string
	tbl.ForEach(func(k, _ lua.LValue) {
		if ks, ok := k.(lua.LString); ok {
			keys = append(keys, string(ks))
		}
	})
	sort.Strings(keys)
	for _, key := range keys {
		ref, err := c.scriptRef(owner+"."+field, key, tbl.RawGetString(key))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", field, err)
		}
		out[key] = ref
	}
	return out, nil
}

func (c *compiler) compileRoom(raw rawDef) (types.RoomDef, error) {
	tbl := raw.table
	owner := "room." + raw.id
	room := types.RoomDef{
		ID:          raw.id,
		Name:        getStringOr(tbl, "name", raw.id),
		Description: getString(tbl, "description"),
		Exits:       tableToStringMap(getTable(tbl, "exits")),
		Items:       getStrings(tbl, "items"),
		Characters:  getStrings(tbl, "characters"),
	}

	var err error
	if room.OnEnter, err = c.scriptRef(owner, "on_enter", tbl.RawGetString("on_enter")); err != nil {
		return room, err
	}
	if room.OnSearch, err = c.scriptRef(owner, "on_search", tbl.RawGetString("on_search")); err != nil {
		return room, err
	}
	if room.Blocked, err = c.scriptMap(owner, "blocked", getTable(tbl, "blocked")); err != nil {
		return room, err
	}
	if room.Verbs, err = c.scriptMap(owner, "verbs", getTable(tbl, "verbs")); err != nil {
		return room, err
	}

	if hs := getTable(tbl, "hotspots"); hs != nil {
		for i := 1; i <= hs.MaxN(); i++ {
			htbl, ok := hs.RawGetInt(i).(*lua.LTable)
			if !ok {
				return room, fmt.Errorf("hotspot %d: expected a table", i)
			}
			h, err := c.compileHotspot(owner, htbl)
			if err != nil {
				return room, fmt.Errorf("hotspot %d: %w", i, err)
			}
			room.Hotspots = append(room.Hotspots, h)
		}
	}
	return room, nil
}

func (c *compiler) compileHotspot(roomOwner string, tbl *lua.LTable) (types.HotspotDef, error) {
	h := types.HotspotDef{
		ID:          getString(tbl, "id"),
		Kind:        getString(tbl, "kind"),
		Aliases:     getStrings(tbl, "aliases"),
		LookText:    getString(tbl, "look"),
		ExitDir:     getString(tbl, "exit"),
		ItemID:      getString(tbl, "item"),
		CharacterID: getString(tbl, "character"),
	}
	if h.ID == "" {
		return h, fmt.Errorf("id is required")
	}
	h.Label = getStringOr(tbl, "label", h.ID)
	if h.Kind == "" {
		switch {
		case h.ExitDir != "":
			h.Kind = types.HotspotExit
		case h.ItemID != "":
			h.Kind = types.HotspotItem
		case h.CharacterID != "":
			h.Kind = types.HotspotCharacter
		default:
			h.Kind = types.HotspotScenery
		}
	}

	owner := roomOwner + "." + h.ID
	var err error
	if h.Verbs, err = c.scriptMap(owner, "verbs", getTable(tbl, "verbs")); err != nil {
		return h, err
	}
	if ptbl := getTable(tbl, "puzzle"); ptbl != nil {
		if h.Puzzle, err = c.compilePuzzle(owner, ptbl); err != nil {
			return h, err
		}
	}
	return h, nil
}

func (c *compiler) compilePuzzle(owner string, tbl *lua.LTable) (*types.PuzzleDef, error) {
	p := &types.PuzzleDef{
		AcceptedItems: getStrings(tbl, "accepts"),
		Keep:          getBool(tbl, "keep", false),
		Reward:        getString(tbl, "reward"),
		Score:         getInt(tbl, "score"),
		Flag:          getString(tbl, "flag"),
	}
	owner += ".puzzle"
	var err error
	if p.OnCorrectItem, err = c.scriptRef(owner, "on_correct", tbl.RawGetString("on_correct")); err != nil {
		return nil, err
	}
	if p.OnWrongItem, err = c.scriptRef(owner, "on_wrong", tbl.RawGetString("on_wrong")); err != nil {
		return nil, err
	}
	return p, nil
}

func (c *compiler) compileItem(raw rawDef) (types.ItemDef, error) {
	tbl := raw.table
	owner := "item." + raw.id
	item := types.ItemDef{
		ID:          raw.id,
		Name:        getStringOr(tbl, "name", raw.id),
		Description: getString(tbl, "description"),
		Aliases:     getStrings(tbl, "aliases"),
		// Items are takeable unless explicitly set.
		Takeable: getBool(tbl, "takeable", true),
		Hidden:   getBool(tbl, "hidden", false),
		Damage:   getInt(tbl, "damage"),
		Grenade:  getBool(tbl, "grenade", false),
		Insult:   getBool(tbl, "insult", false),
	}
	item.Weapon = getBool(tbl, "weapon", item.Damage > 0)

	fields := []struct {
		key string
		dst *string
	}{
		{"on_take", &item.OnTake},
		{"on_use", &item.OnUse},
		{"on_give", &item.OnGive},
		{"on_read", &item.OnRead},
		{"on_wear", &item.OnWear},
	}
	for _, f := range fields {
		ref, err := c.scriptRef(owner, f.key, tbl.RawGetString(f.key))
		if err != nil {
			return item, err
		}
		*f.dst = ref
	}
	return item, nil
}

// defaultCharacterHP applies to characters that declare none.
const defaultCharacterHP = 10

func (c *compiler) compileCharacter(raw rawDef) (types.CharacterDef, error) {
	tbl := raw.table
	owner := "character." + raw.id
	ch := types.CharacterDef{
		ID:          raw.id,
		Name:        getStringOr(tbl, "name", raw.id),
		Description: getString(tbl, "description"),
		Aliases:     getStrings(tbl, "aliases"),
		HP:          getInt(tbl, "hp"),
		Attack:      getInt(tbl, "attack"),
		Hostile:     getBool(tbl, "hostile", false),
		Loot:        getString(tbl, "loot"),
		DefeatScore: getInt(tbl, "defeat_score"),
	}
	if ch.HP <= 0 {
		ch.HP = defaultCharacterHP
	}
	if mtbl := getTable(tbl, "messages"); mtbl != nil {
		ch.Messages = types.CombatMessages{
			PlayerHit: getString(mtbl, "player_hit"),
			EnemyHit:  getString(mtbl, "enemy_hit"),
			Defeat:    getString(mtbl, "defeat"),
			Insult:    getString(mtbl, "insult"),
			Ambush:    getString(mtbl, "ambush"),
		}
	}

	// A dialogue is either a named tree or declared inline under the
	// character's own ID.
	switch v := tbl.RawGetString("dialogue").(type) {
	case lua.LString:
		ch.Dialogue = string(v)
	case *lua.LTable:
		if _, dup := c.defs.Dialogues[raw.id]; dup {
			return ch, fmt.Errorf("inline dialogue clashes with Dialogue %q", raw.id)
		}
		d, err := c.compileDialogue(raw.id, v)
		if err != nil {
			return ch, fmt.Errorf("dialogue: %w", err)
		}
		c.defs.Dialogues[raw.id] = d
		ch.Dialogue = raw.id
	}

	var err error
	if ptbl := getTable(tbl, "puzzle"); ptbl != nil {
		if ch.Puzzle, err = c.compilePuzzle(owner, ptbl); err != nil {
			return ch, err
		}
	}
	if ch.OnDefeat, err = c.scriptRef(owner, "on_defeat", tbl.RawGetString("on_defeat")); err != nil {
		return ch, err
	}
	if ch.OnGive, err = c.scriptRef(owner, "on_give", tbl.RawGetString("on_give")); err != nil {
		return ch, err
	}
	return ch, nil
}

func (c *compiler) compileDialogue(id string, tbl *lua.LTable) (types.DialogueDef, error) {
	d := types.DialogueDef{
		ID:    id,
		Start: getString(tbl, "start"),
		Nodes: map[string]types.DialogueNode{},
	}
	nodes := getTable(tbl, "nodes")
	if nodes == nil {
		return d, fmt.Errorf("nodes are required")
	}

	var nodeIDs []string
	nodes.ForEach(func(k, _ lua.LValue) {
		if ks, ok := k.(lua.LString); ok {
			nodeIDs = append(nodeIDs, string(ks))
		}
	})
	sort.Strings(nodeIDs)

	for _, nodeID := range nodeIDs {
		ntbl, ok := nodes.RawGetString(nodeID).(*lua.LTable)
		if !ok {
			return d, fmt.Errorf("node %s: expected a table", nodeID)
		}
		owner := "dialogue." + id + "." + nodeID
		node := types.DialogueNode{
			Speaker: getString(ntbl, "speaker"),
			Text:    getString(ntbl, "text"),
		}
		var err error
		if node.Action, err = c.scriptRef(owner, "action", ntbl.RawGetString("action")); err != nil {
			return d, fmt.Errorf("node %s: %w", nodeID, err)
		}
		if otbl := getTable(ntbl, "options"); otbl != nil {
			for i := 1; i <= otbl.MaxN(); i++ {
				opt, ok := otbl.RawGetInt(i).(*lua.LTable)
				if !ok {
					return d, fmt.Errorf("node %s option %d: expected a table", nodeID, i)
				}
				o := types.DialogueOption{
					Text:      getString(opt, "text"),
					Condition: getString(opt, "condition"),
					Next:      getString(opt, "next"),
				}
				if o.Action, err = c.scriptRef(fmt.Sprintf("%s.option%d", owner, i), "action", opt.RawGetString("action")); err != nil {
					return d, fmt.Errorf("node %s option %d: %w", nodeID, i, err)
				}
				node.Options = append(node.Options, o)
			}
		}
		d.Nodes[nodeID] = node
	}
	return d, nil
}

func compileConditions(tbl *lua.LTable) []types.Condition {
	var conditions []types.Condition
	for i := 1; i <= tbl.MaxN(); i++ {
		if condTbl, ok := tbl.RawGetInt(i).(*lua.LTable); ok {
			conditions = append(conditions, compileCondition(condTbl))
		}
	}
	return conditions
}

func compileCondition(tbl *lua.LTable) types.Condition {
	condType := getString(tbl, "type")

	if condType == "not" {
		if innerTbl := getTable(tbl, "inner"); innerTbl != nil {
			inner := compileCondition(innerTbl)
			return types.Condition{
				Type:   "not",
				Negate: true,
				Inner:  &inner,
			}
		}
	}

	params := map[string]any{}
	tbl.ForEach(func(k, v lua.LValue) {
		if ks, ok := k.(lua.LString); ok && string(ks) != "type" {
			params[string(ks)] = toGoValue(v)
		}
	})
	return types.Condition{Type: condType, Params: params}
}

func compileEffects(tbl *lua.LTable) []types.Effect {
	var effects []types.Effect
	for i := 1; i <= tbl.MaxN(); i++ {
		if effTbl, ok := tbl.RawGetInt(i).(*lua.LTable); ok {
			effects = append(effects, compileEffect(effTbl))
		}
	}
	return effects
}

func compileEffect(tbl *lua.LTable) types.Effect {
	effType := getString(tbl, "type")
	if effType == "if" {
		eff := types.Effect{Type: "if"}
		if t := getTable(tbl, "conditions"); t != nil {
			eff.Conditions = compileConditions(t)
		}
		if t := getTable(tbl, "then"); t != nil {
			eff.Then = compileEffects(t)
		}
		if t := getTable(tbl, "else"); t != nil {
			eff.Else = compileEffects(t)
		}
		return eff
	}

	params := map[string]any{}
	tbl.ForEach(func(k, v lua.LValue) {
		if ks, ok := k.(lua.LString); ok && string(ks) != "type" {
			params[string(ks)] = toGoValue(v)
		}
	})
	return types.Effect{Type: effType, Params: params}
}

func compileHandler(raw rawHandler) types.EventHandler {
	handler := types.EventHandler{
		EventType: raw.eventType,
		Match:     tableToAnyMap(getTable(raw.table, "match")),
	}
	if condTbl := getTable(raw.table, "conditions"); condTbl != nil {
		handler.Conditions = compileConditions(condTbl)
	}
	if effTbl := getTable(raw.table, "effects"); effTbl != nil {
		handler.Effects = compileEffects(effTbl)
	}
	return handler
}

// sortedLuaFiles returns .lua files with game.lua first and the rest
// sorted alphabetically.
func sortedLuaFiles(files []string) []string {
	var gameFile string
	var others []string
	for _, f := range files {
		if f == "game.lua" {
			gameFile = f
		} else {
			others = append(others, f)
		}
	}
	sort.Strings(others)
	if gameFile != "" {
		return append([]string{gameFile}, others...)
	}
	return others
}
