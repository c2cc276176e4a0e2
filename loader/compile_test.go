package loader

import (
	"testing"

	lua "github.com/yuin/gopher-lua"

	"github.com/nathoo/worldcore/engine/state"
	"github.com/nathoo/worldcore/types"
)

// newTestVM creates a sandboxed Lua VM with the API registered and a fresh collector.
func newTestVM() (*lua.LState, *collector) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	openSafeLibs(L)
	sandbox(L)
	coll := &collector{}
	registerAPI(L, coll)
	return L, coll
}

// compileString runs src after a minimal Game{} and compiles the result.
func compileString(t *testing.T, src string) *state.Defs {
	t.Helper()
	L, coll := newTestVM()
	defer L.Close()

	if err := L.DoString(`Game { title = "T", start = "hall" }` + "\n" + src); err != nil {
		t.Fatal(err)
	}
	defs, err := compile(coll)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	return defs
}

func TestCompileGame(t *testing.T) {
	L, _ := newTestVM()
	defer L.Close()

	if err := L.DoString(`
		return {
			title = "Test Game",
			author = "Author",
			version = "1.0",
			start = "hall",
			intro = "Welcome!",
			player_hp = 80,
			fist_damage = 3,
			win_score = 50
		}
	`); err != nil {
		t.Fatal(err)
	}

	game := compileGame(L.CheckTable(-1))

	if game.Title != "Test Game" {
		t.Errorf("Title = %q, want %q", game.Title, "Test Game")
	}
	if game.Author != "Author" {
		t.Errorf("Author = %q, want %q", game.Author, "Author")
	}
	if game.Version != "1.0" {
		t.Errorf("Version = %q, want %q", game.Version, "1.0")
	}
	if game.Start != "hall" {
		t.Errorf("Start = %q, want %q", game.Start, "hall")
	}
	if game.Intro != "Welcome!" {
		t.Errorf("Intro = %q, want %q", game.Intro, "Welcome!")
	}
	if game.PlayerHP != 80 || game.FistDamage != 3 || game.WinScore != 50 {
		t.Errorf("numbers = %d/%d/%d, want 80/3/50", game.PlayerHP, game.FistDamage, game.WinScore)
	}
}

func TestCompile_NoGame(t *testing.T) {
	L, coll := newTestVM()
	defer L.Close()

	if _, err := compile(coll); err == nil {
		t.Fatal("expected error without Game{}")
	}
}

func TestCompileRoom(t *testing.T) {
	defs := compileString(t, `
		Room "hall" {
			description = "A hall.",
			exits = { north = "yard" },
			items = { "lamp" },
			characters = "butler",
			on_enter = "greet",
			blocked = { north = { Say("Locked."), Block() } },
			verbs = { dig = "dig_hall" },
		}
	`)

	hall := defs.Rooms["hall"]
	if hall.Name != "hall" {
		t.Errorf("Name = %q, want the ID as default", hall.Name)
	}
	if hall.Exits["north"] != "yard" {
		t.Errorf("north exit = %q", hall.Exits["north"])
	}
	if len(hall.Items) != 1 || hall.Items[0] != "lamp" {
		t.Errorf("Items = %v", hall.Items)
	}
	if len(hall.Characters) != 1 || hall.Characters[0] != "butler" {
		t.Errorf("Characters = %v, want a bare string read as a list", hall.Characters)
	}
	if hall.OnEnter != "greet" {
		t.Errorf("OnEnter = %q", hall.OnEnter)
	}
	if hall.Verbs["dig"] != "dig_hall" {
		t.Errorf("dig verb = %q", hall.Verbs["dig"])
	}

	guard := hall.Blocked["north"]
	if guard != "room.hall.blocked.north" {
		t.Fatalf("guard = %q, want inline script name", guard)
	}
	sd, ok := defs.Scripts[guard]
	if !ok {
		t.Fatal("inline guard was not registered")
	}
	if len(sd.Effects) != 2 || sd.Effects[0].Type != "say" || sd.Effects[1].Type != "block" {
		t.Errorf("guard effects = %+v", sd.Effects)
	}
}

func TestCompileHotspot_KindInference(t *testing.T) {
	defs := compileString(t, `
		Room "hall" {
			hotspots = {
				{ id = "door", exit = "north", label = "oak door" },
				{ id = "lamp_spot", item = "lamp" },
				{ id = "butler_spot", character = "butler" },
				{ id = "rug", look = "A dusty rug." },
				{ id = "chest", kind = "searchable" },
			},
		}
	`)

	hs := defs.Rooms["hall"].Hotspots
	want := []string{types.HotspotExit, types.HotspotItem, types.HotspotCharacter, types.HotspotScenery, types.HotspotSearchable}
	if len(hs) != len(want) {
		t.Fatalf("expected %d hotspots, got %d", len(want), len(hs))
	}
	for i, k := range want {
		if hs[i].Kind != k {
			t.Errorf("hotspot %s Kind = %q, want %q", hs[i].ID, hs[i].Kind, k)
		}
	}
	if hs[0].Label != "oak door" {
		t.Errorf("Label = %q", hs[0].Label)
	}
	if hs[3].Label != "rug" {
		t.Errorf("Label = %q, want the ID as default", hs[3].Label)
	}
	if hs[3].LookText != "A dusty rug." {
		t.Errorf("LookText = %q", hs[3].LookText)
	}
}

func TestCompileHotspot_MissingID(t *testing.T) {
	L, coll := newTestVM()
	defer L.Close()

	if err := L.DoString(`
		Game { title = "T", start = "hall" }
		Room "hall" { hotspots = { { label = "nameless" } } }
	`); err != nil {
		t.Fatal(err)
	}
	if _, err := compile(coll); err == nil {
		t.Fatal("expected error for hotspot without id")
	}
}

func TestCompilePuzzle(t *testing.T) {
	defs := compileString(t, `
		Room "hall" {
			hotspots = {
				{
					id = "bowl",
					puzzle = {
						accepts = "fish_food",
						keep = true,
						reward = "coin",
						score = 5,
						flag = "fish_fed",
						on_correct = { Say("Fed.") },
						on_wrong = "not_hungry",
					},
				},
			},
		}
	`)

	p := defs.Rooms["hall"].Hotspots[0].Puzzle
	if p == nil {
		t.Fatal("puzzle not compiled")
	}
	if len(p.AcceptedItems) != 1 || p.AcceptedItems[0] != "fish_food" {
		t.Errorf("AcceptedItems = %v", p.AcceptedItems)
	}
	if !p.Keep || p.Reward != "coin" || p.Score != 5 || p.Flag != "fish_fed" {
		t.Errorf("puzzle = %+v", p)
	}
	if p.OnCorrectItem != "room.hall.bowl.puzzle.on_correct" {
		t.Errorf("OnCorrectItem = %q", p.OnCorrectItem)
	}
	if p.OnWrongItem != "not_hungry" {
		t.Errorf("OnWrongItem = %q", p.OnWrongItem)
	}
}

func TestCompileItem_Defaults(t *testing.T) {
	defs := compileString(t, `
		Item "lamp" { name = "brass lamp" }
		Item "statue" { takeable = false }
		Item "knife" { damage = 12 }
		Item "note" { hidden = true, on_read = { Say("It reads: run.") } }
	`)

	if !defs.Items["lamp"].Takeable {
		t.Error("items should be takeable by default")
	}
	if defs.Items["statue"].Takeable {
		t.Error("statue should not be takeable")
	}
	if defs.Items["statue"].Name != "statue" {
		t.Errorf("Name = %q, want the ID as default", defs.Items["statue"].Name)
	}
	knife := defs.Items["knife"]
	if !knife.Weapon || knife.Damage != 12 {
		t.Errorf("knife = %+v, want a weapon with damage", knife)
	}
	note := defs.Items["note"]
	if !note.Hidden {
		t.Error("note should be hidden")
	}
	if note.OnRead != "item.note.on_read" {
		t.Errorf("OnRead = %q", note.OnRead)
	}
}

func TestCompileCharacter(t *testing.T) {
	defs := compileString(t, `
		Character "mugger" {
			name = "Mugger",
			hp = 40,
			attack = 15,
			hostile = true,
			loot = "wallet",
			defeat_score = 10,
			messages = { ambush = "A mugger jumps out!" },
			on_defeat = { Say("He flees.") },
		}
		NPC "cat" {}
	`)

	m := defs.Characters["mugger"]
	if m.HP != 40 || m.Attack != 15 || !m.Hostile {
		t.Errorf("mugger = %+v", m)
	}
	if m.Loot != "wallet" || m.DefeatScore != 10 {
		t.Errorf("loot = %q, score = %d", m.Loot, m.DefeatScore)
	}
	if m.Messages.Ambush != "A mugger jumps out!" {
		t.Errorf("Ambush = %q", m.Messages.Ambush)
	}
	if m.OnDefeat != "character.mugger.on_defeat" {
		t.Errorf("OnDefeat = %q", m.OnDefeat)
	}

	cat, ok := defs.Characters["cat"]
	if !ok {
		t.Fatal("NPC alias should define a character")
	}
	if cat.HP != defaultCharacterHP {
		t.Errorf("HP = %d, want default %d", cat.HP, defaultCharacterHP)
	}
}

func TestCompileCharacter_InlineDialogue(t *testing.T) {
	defs := compileString(t, `
		Character "mailman" {
			dialogue = {
				start = "hello",
				nodes = {
					hello = {
						text = "Morning!",
						options = {
							{ text = "Any mail?", next = "mail" },
							{ text = "Bye." },
						},
					},
					mail = { text = "Here.", action = { GiveItem("letter") } },
				},
			},
		}
	`)

	if defs.Characters["mailman"].Dialogue != "mailman" {
		t.Fatalf("Dialogue = %q, want inline tree stored under the character ID", defs.Characters["mailman"].Dialogue)
	}
	d, ok := defs.Dialogues["mailman"]
	if !ok {
		t.Fatal("inline dialogue not registered")
	}
	if d.Start != "hello" {
		t.Errorf("Start = %q", d.Start)
	}
	hello := d.Nodes["hello"]
	if len(hello.Options) != 2 || hello.Options[0].Next != "mail" || hello.Options[1].Next != "" {
		t.Errorf("options = %+v", hello.Options)
	}
	if d.Nodes["mail"].Action != "dialogue.mailman.mail.action" {
		t.Errorf("Action = %q", d.Nodes["mail"].Action)
	}
	if _, ok := defs.Scripts["dialogue.mailman.mail.action"]; !ok {
		t.Error("node action script not registered")
	}
}

func TestCompile_Duplicates(t *testing.T) {
	cases := map[string]string{
		"room":   `Room "hall" {} Room "hall" {}`,
		"item":   `Item "lamp" {} Item "lamp" {}`,
		"script": `Script "s" { Say("a") } Script "s" { Say("b") }`,
		"inline": `Script "room.hall.on_enter" { Say("a") } Room "hall" { on_enter = { Say("b") } }`,
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			L, coll := newTestVM()
			defer L.Close()
			if err := L.DoString(`Game { title = "T", start = "hall" }` + "\n" + src); err != nil {
				t.Fatal(err)
			}
			if _, err := compile(coll); err == nil {
				t.Error("expected duplicate error")
			}
		})
	}
}

func TestCompileConditions_AllTypes(t *testing.T) {
	L, _ := newTestVM()
	defer L.Close()

	if err := L.DoString(`
		return {
			HasItem("key"),
			FlagSet("door_open"),
			FlagNot("alarm"),
			FlagIs("mood", "happy"),
			InRoom("hall"),
			Visited("yard"),
			Alive("mugger"),
			Defeated("mugger"),
			ItemInRoom("lamp", "hall"),
			ScoreAtLeast(10),
			Not(HasItem("key")),
		}
	`); err != nil {
		t.Fatal(err)
	}

	conds := compileConditions(L.CheckTable(-1))
	want := []string{"has_item", "flag_set", "flag_not", "flag_is", "in_room", "visited", "alive", "defeated", "item_in_room", "score_at_least", "not"}
	if len(conds) != len(want) {
		t.Fatalf("expected %d conditions, got %d", len(want), len(conds))
	}
	for i, typ := range want {
		if conds[i].Type != typ {
			t.Errorf("condition %d Type = %q, want %q", i, conds[i].Type, typ)
		}
	}

	if conds[3].Params["value"] != "happy" {
		t.Errorf("flag_is value = %v", conds[3].Params["value"])
	}
	if conds[9].Params["value"] != 10 {
		t.Errorf("score_at_least value = %v (%T), want int 10", conds[9].Params["value"], conds[9].Params["value"])
	}
	not := conds[10]
	if !not.Negate || not.Inner == nil || not.Inner.Type != "has_item" {
		t.Errorf("not = %+v", not)
	}
}

func TestCompileEffects_AllTypes(t *testing.T) {
	L, _ := newTestVM()
	defer L.Close()

	if err := L.DoString(`
		return {
			Say("hi"),
			GiveItem("key"),
			RemoveItem("key"),
			PlaceItem("lamp", "hall"),
			TakeFromRoom("lamp", "hall"),
			RevealItem("bill"),
			SetFlag("done", true),
			AddScore(5),
			Heal(10),
			Hurt(3),
			DamageCharacter("mugger", 7),
			ResolveCharacter("mugger"),
			SpawnCharacter("cat", "yard"),
			MovePlayer("yard"),
			OpenExit("hall", "north", "yard"),
			CloseExit("hall", "north"),
			Emit("custom", { n = 1 }),
			Win("You win."),
			Lose("You lose."),
			RestartAfter(2.5),
			StartCombat("mugger"),
			Allow(),
			Block(),
			Stop(),
		}
	`); err != nil {
		t.Fatal(err)
	}

	effs := compileEffects(L.CheckTable(-1))
	want := []string{
		"say", "give_item", "remove_item", "place_item", "take_from_room", "reveal_item",
		"set_flag", "add_score", "heal", "hurt", "damage_character", "resolve_character",
		"spawn_character", "move_player", "open_exit", "close_exit", "emit", "win", "lose",
		"restart_after", "start_combat", "allow", "block", "stop",
	}
	if len(effs) != len(want) {
		t.Fatalf("expected %d effects, got %d", len(want), len(effs))
	}
	for i, typ := range want {
		if effs[i].Type != typ {
			t.Errorf("effect %d Type = %q, want %q", i, effs[i].Type, typ)
		}
	}

	if effs[6].Params["value"] != true {
		t.Errorf("set_flag value = %v", effs[6].Params["value"])
	}
	if effs[14].Params["target"] != "yard" {
		t.Errorf("open_exit target = %v", effs[14].Params["target"])
	}
	data, ok := effs[16].Params["data"].(map[string]any)
	if !ok || data["n"] != 1 {
		t.Errorf("emit data = %#v", effs[16].Params["data"])
	}
	if effs[19].Params["seconds"] != 2.5 {
		t.Errorf("restart_after seconds = %v", effs[19].Params["seconds"])
	}
}

func TestCompileEffect_If(t *testing.T) {
	L, _ := newTestVM()
	defer L.Close()

	if err := L.DoString(`
		return If({ HasItem("key") }, { Say("open") }, { Say("locked"), Block() })
	`); err != nil {
		t.Fatal(err)
	}

	eff := compileEffect(L.CheckTable(-1))
	if eff.Type != "if" {
		t.Fatalf("Type = %q", eff.Type)
	}
	if len(eff.Conditions) != 1 || eff.Conditions[0].Type != "has_item" {
		t.Errorf("Conditions = %+v", eff.Conditions)
	}
	if len(eff.Then) != 1 || len(eff.Else) != 2 {
		t.Errorf("Then = %d, Else = %d", len(eff.Then), len(eff.Else))
	}
}

func TestCompileHandler(t *testing.T) {
	L, coll := newTestVM()
	defer L.Close()

	if err := L.DoString(`
		On("puzzle:solved", {
			match = { targetId = "goldfish" },
			conditions = { InRoom("hall") },
			effects = { Say("Burble.") },
		})
	`); err != nil {
		t.Fatal(err)
	}

	if len(coll.handlers) != 1 {
		t.Fatalf("expected 1 handler, got %d", len(coll.handlers))
	}
	h := compileHandler(coll.handlers[0])
	if h.EventType != "puzzle:solved" {
		t.Errorf("EventType = %q", h.EventType)
	}
	if h.Match["targetId"] != "goldfish" {
		t.Errorf("Match = %v", h.Match)
	}
	if len(h.Conditions) != 1 || len(h.Effects) != 1 {
		t.Errorf("conditions = %d, effects = %d", len(h.Conditions), len(h.Effects))
	}
}

func TestSortedLuaFiles(t *testing.T) {
	got := sortedLuaFiles([]string{"rooms.lua", "game.lua", "items.lua"})
	want := []string{"game.lua", "items.lua", "rooms.lua"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sortedLuaFiles = %v, want %v", got, want)
		}
	}
}
