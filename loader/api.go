package loader

import (
	lua "github.com/yuin/gopher-lua"
)

// registerAPI registers all Lua constructors and helpers as globals.
func registerAPI(L *lua.LState, coll *collector) {
	registerConstructors(L, coll)
	registerConditionHelpers(L)
	registerEffectHelpers(L)
}

// curried registers a constructor used as Name "id" { ... }.
func curried(L *lua.LState, name string, add func(rawDef)) {
	L.SetGlobal(name, L.NewFunction(func(L *lua.LState) int {
		id := L.CheckString(1)
		L.Push(L.NewFunction(func(L *lua.LState) int {
			add(rawDef{id: id, table: L.CheckTable(1)})
			return 0
		}))
		return 1
	}))
}

func registerConstructors(L *lua.LState, coll *collector) {
	// Game { title = "...", ... }
	L.SetGlobal("Game", L.NewFunction(func(L *lua.LState) int {
		coll.game = L.CheckTable(1)
		return 0
	}))

	curried(L, "Room", func(r rawDef) { coll.rooms = append(coll.rooms, r) })
	curried(L, "Item", func(r rawDef) { coll.items = append(coll.items, r) })
	curried(L, "Character", func(r rawDef) { coll.characters = append(coll.characters, r) })
	curried(L, "NPC", func(r rawDef) { coll.characters = append(coll.characters, r) })
	curried(L, "Dialogue", func(r rawDef) { coll.dialogues = append(coll.dialogues, r) })

	// Script "name" { effect1, effect2, ... }
	curried(L, "Script", func(r rawDef) { coll.scripts = append(coll.scripts, r) })

	// On("event_type", { match = {...}, conditions = {...}, effects = {...} })
	L.SetGlobal("On", L.NewFunction(func(L *lua.LState) int {
		eventType := L.CheckString(1)
		tbl := L.CheckTable(2)
		coll.handlers = append(coll.handlers, rawHandler{eventType: eventType, table: tbl})
		return 0
	}))
}

// helper registers a global that builds a { type = typ, ... } table from
// its positional arguments.
func helper(L *lua.LState, name, typ string, params ...string) {
	L.SetGlobal(name, L.NewFunction(func(L *lua.LState) int {
		tbl := L.NewTable()
		tbl.RawSetString("type", lua.LString(typ))
		for i, p := range params {
			if v := L.Get(i + 1); v != lua.LNil {
				tbl.RawSetString(p, v)
			}
		}
		L.Push(tbl)
		return 1
	}))
}

func registerConditionHelpers(L *lua.LState) {
	helper(L, "HasItem", "has_item", "item")
	helper(L, "FlagSet", "flag_set", "flag")
	helper(L, "FlagNot", "flag_not", "flag")
	helper(L, "FlagIs", "flag_is", "flag", "value")
	helper(L, "InRoom", "in_room", "room")
	helper(L, "Visited", "visited", "room")
	helper(L, "Alive", "alive", "character")
	helper(L, "Defeated", "defeated", "character")
	helper(L, "ItemInRoom", "item_in_room", "item", "room")
	helper(L, "ScoreAtLeast", "score_at_least", "value")

	// Not(condition)
	L.SetGlobal("Not", L.NewFunction(func(L *lua.LState) int {
		inner := L.CheckTable(1)
		tbl := L.NewTable()
		tbl.RawSetString("type", lua.LString("not"))
		tbl.RawSetString("inner", inner)
		L.Push(tbl)
		return 1
	}))
}

func registerEffectHelpers(L *lua.LState) {
	helper(L, "Say", "say", "text")
	helper(L, "GiveItem", "give_item", "item")
	helper(L, "RemoveItem", "remove_item", "item")
	helper(L, "PlaceItem", "place_item", "item", "room")
	helper(L, "TakeFromRoom", "take_from_room", "item", "room")
	helper(L, "RevealItem", "reveal_item", "item")
	helper(L, "SetFlag", "set_flag", "flag", "value")
	helper(L, "AddScore", "add_score", "amount")
	helper(L, "Heal", "heal", "amount")
	helper(L, "Hurt", "hurt", "amount")
	helper(L, "DamageCharacter", "damage_character", "character", "amount")
	helper(L, "ResolveCharacter", "resolve_character", "character")
	helper(L, "SpawnCharacter", "spawn_character", "character", "room")
	helper(L, "MovePlayer", "move_player", "room")
	helper(L, "OpenExit", "open_exit", "room", "direction", "target")
	helper(L, "CloseExit", "close_exit", "room", "direction")
	helper(L, "Emit", "emit", "event", "data")
	helper(L, "Win", "win", "text")
	helper(L, "Lose", "lose", "text")
	helper(L, "RestartAfter", "restart_after", "seconds")
	helper(L, "StartCombat", "start_combat", "character")
	helper(L, "Allow", "allow")
	helper(L, "Block", "block")
	helper(L, "Stop", "stop")

	// If({conditions}, {then effects}, {else effects})
	L.SetGlobal("If", L.NewFunction(func(L *lua.LState) int {
		tbl := L.NewTable()
		tbl.RawSetString("type", lua.LString("if"))
		tbl.RawSetString("conditions", L.CheckTable(1))
		tbl.RawSetString("then", L.CheckTable(2))
		if elseTbl, ok := L.Get(3).(*lua.LTable); ok {
			tbl.RawSetString("else", elseTbl)
		}
		L.Push(tbl)
		return 1
	}))
}
