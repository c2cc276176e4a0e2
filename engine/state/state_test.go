package state

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/nathoo/worldcore/engine/events"
	"github.com/nathoo/worldcore/types"
)

func testDefs() *Defs {
	return &Defs{
		Game: types.GameDef{Title: "Test", Start: "kitchen"},
		Rooms: map[string]types.RoomDef{
			"kitchen": {
				ID:    "kitchen",
				Name:  "Kitchen",
				Exits: map[string]string{"north": "hallway"},
				Items: []string{"spade", "dollar_bill"},
			},
			"hallway": {
				ID:         "hallway",
				Name:       "Hallway",
				Exits:      map[string]string{"south": "kitchen"},
				Characters: []string{"mugger", "goldfish"},
			},
			"tunnel": {ID: "tunnel", Name: "Hidden Tunnel"},
		},
		Items: map[string]types.ItemDef{
			"spade":       {ID: "spade", Name: "spade", Takeable: true},
			"dollar_bill": {ID: "dollar_bill", Name: "dollar bill", Takeable: true, Hidden: true},
			"wallet":      {ID: "wallet", Name: "wallet", Takeable: true},
			"fish_food":   {ID: "fish_food", Name: "fish food", Takeable: true},
		},
		Characters: map[string]types.CharacterDef{
			"mugger":   {ID: "mugger", Name: "Mugger", HP: 30, Hostile: true, Loot: "wallet", DefeatScore: 10},
			"goldfish": {ID: "goldfish", Name: "Goldfish"},
		},
	}
}

type recorder struct {
	events []types.Event
}

func (r *recorder) count(name string) int {
	n := 0
	for _, ev := range r.events {
		if ev.Type == name {
			n++
		}
	}
	return n
}

func newTestWorld(t *testing.T) (*World, *recorder) {
	t.Helper()
	bus := events.NewBus(nil)
	rec := &recorder{}
	bus.OnAny(func(ev types.Event) { rec.events = append(rec.events, ev) })
	w := NewWorld(testDefs(), bus)
	if err := w.MoveToRoom("kitchen", ""); err != nil {
		t.Fatalf("MoveToRoom: %v", err)
	}
	return w, rec
}

func TestNewWorld_Defaults(t *testing.T) {
	w := NewWorld(testDefs(), events.NewBus(nil))
	if w.Player.HP != DefaultPlayerHP || w.Player.MaxHP != DefaultPlayerHP {
		t.Errorf("expected hp %d/%d, got %d/%d", DefaultPlayerHP, DefaultPlayerHP, w.Player.HP, w.Player.MaxHP)
	}
	if w.Player.CurrentRoom != "" {
		t.Errorf("expected no room before first move, got %q", w.Player.CurrentRoom)
	}
	if c := w.Characters["mugger"]; !c.Alive || c.Defeated || c.HP != 30 || !c.Hostile {
		t.Errorf("unexpected mugger state %+v", c)
	}
	if !w.Items["dollar_bill"].Hidden {
		t.Error("expected dollar_bill hidden")
	}
}

func TestMoveToRoom(t *testing.T) {
	w, rec := newTestWorld(t)

	if err := w.MoveToRoom("hallway", "north"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w.Player.CurrentRoom != "hallway" || w.Player.PreviousRoom != "kitchen" {
		t.Errorf("expected hallway (from kitchen), got %q (from %q)", w.Player.CurrentRoom, w.Player.PreviousRoom)
	}
	last := rec.events[len(rec.events)-1]
	if last.Type != events.RoomEnter || last.Data["firstVisit"] != true || last.Data["direction"] != "north" {
		t.Errorf("unexpected event %+v", last)
	}

	_ = w.MoveToRoom("kitchen", "south")
	last = rec.events[len(rec.events)-1]
	if last.Data["firstVisit"] != false {
		t.Error("expected second kitchen visit not to be a first visit")
	}
}

func TestMoveToRoom_Unknown(t *testing.T) {
	w, rec := newTestWorld(t)
	before := len(rec.events)

	err := w.MoveToRoom("nowhere", "up")
	if !errors.Is(err, ErrUnknownRoom) {
		t.Fatalf("expected ErrUnknownRoom, got %v", err)
	}
	if w.Player.CurrentRoom != "kitchen" {
		t.Errorf("expected to stay in kitchen, got %q", w.Player.CurrentRoom)
	}
	if len(rec.events) != before {
		t.Error("expected no events for a failed move")
	}
}

func TestAddToInventory_Unique(t *testing.T) {
	w, rec := newTestWorld(t)

	_ = w.AddToInventory("spade")
	_ = w.AddToInventory("spade")

	if len(w.Player.Inventory) != 1 {
		t.Errorf("expected one spade, got %v", w.Player.Inventory)
	}
	if rec.count(events.InventoryUpdate) != 2 {
		t.Errorf("expected inventory:update per call, got %d", rec.count(events.InventoryUpdate))
	}
}

func TestRemoveFromInventory_AlwaysEmits(t *testing.T) {
	w, rec := newTestWorld(t)
	_ = w.AddToInventory("spade")

	if !w.RemoveFromInventory("spade") {
		t.Error("expected spade to be removed")
	}
	if w.RemoveFromInventory("spade") {
		t.Error("second remove should report false")
	}
	if len(w.Player.Inventory) != 0 {
		t.Errorf("expected empty inventory, got %v", w.Player.Inventory)
	}
	if rec.count(events.InventoryUpdate) != 3 {
		t.Errorf("expected inventory:update per call, got %d", rec.count(events.InventoryUpdate))
	}
}

func TestAddToInventory_RemovesFromRoom(t *testing.T) {
	w, _ := newTestWorld(t)
	_ = w.AddToInventory("spade")
	for _, id := range w.Rooms["kitchen"].Items {
		if id == "spade" {
			t.Error("expected spade removed from kitchen")
		}
	}
}

func TestAddToInventory_UnknownItem(t *testing.T) {
	w, _ := newTestWorld(t)
	if err := w.AddToInventory("unicorn"); !errors.Is(err, ErrUnknownItem) {
		t.Errorf("expected ErrUnknownItem, got %v", err)
	}
}

func TestLocationExclusivity(t *testing.T) {
	w, _ := newTestWorld(t)

	_ = w.AddToInventory("spade")
	_ = w.AddItemToRoom("spade", "hallway")
	_ = w.AddItemToRoom("spade", "kitchen")

	locations := 0
	if w.HasItem("spade") {
		locations++
	}
	for _, r := range w.Rooms {
		for _, id := range r.Items {
			if id == "spade" {
				locations++
			}
		}
	}
	if locations != 1 {
		t.Errorf("expected spade in exactly one place, found %d", locations)
	}
	if w.ItemRoom("spade") != "kitchen" {
		t.Errorf("expected spade in kitchen, got %q", w.ItemRoom("spade"))
	}
}

func TestDropItem(t *testing.T) {
	w, _ := newTestWorld(t)

	if err := w.DropItem("spade"); !errors.Is(err, ErrNotCarried) {
		t.Errorf("expected ErrNotCarried, got %v", err)
	}

	_ = w.AddToInventory("spade")
	_ = w.MoveToRoom("hallway", "north")
	if err := w.DropItem("spade"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w.HasItem("spade") || w.ItemRoom("spade") != "hallway" {
		t.Error("expected spade dropped in hallway")
	}
}

func TestRoomItems_HidesHidden(t *testing.T) {
	w, rec := newTestWorld(t)

	items := w.RoomItems("kitchen")
	if len(items) != 1 || items[0] != "spade" {
		t.Errorf("expected only spade visible, got %v", items)
	}

	if !w.RevealItem("dollar_bill") {
		t.Fatal("expected reveal to succeed")
	}
	if w.RevealItem("dollar_bill") {
		t.Error("expected second reveal to be a no-op")
	}
	if len(w.RoomItems("kitchen")) != 2 {
		t.Errorf("expected 2 visible items, got %v", w.RoomItems("kitchen"))
	}
	if rec.count(events.ItemRevealed) != 1 {
		t.Errorf("expected one item:revealed, got %d", rec.count(events.ItemRevealed))
	}
}

func TestRemoveItemFromRoom(t *testing.T) {
	w, _ := newTestWorld(t)
	if !w.RemoveItemFromRoom("spade", "") {
		t.Fatal("expected removal")
	}
	if w.RemoveItemFromRoom("spade", "") {
		t.Error("expected second removal to fail")
	}
	if w.HasItem("spade") {
		t.Error("expected spade not given to player")
	}
}

func TestDamageCharacter_DefeatsOnce(t *testing.T) {
	w, rec := newTestWorld(t)
	_ = w.MoveToRoom("hallway", "north")

	if w.DamageCharacter("mugger", 10) {
		t.Error("expected mugger to survive 10 damage")
	}
	if got := w.Characters["mugger"].HP; got != 20 {
		t.Errorf("expected hp 20, got %d", got)
	}

	if !w.DamageCharacter("mugger", 25) {
		t.Fatal("expected mugger defeated")
	}
	if w.DamageCharacter("mugger", 5) {
		t.Error("expected damage after defeat to be ignored")
	}
	if w.DefeatCharacter("mugger") {
		t.Error("expected second defeat to be ignored")
	}

	c := w.Characters["mugger"]
	if c.Alive || !c.Defeated || c.HP != 0 {
		t.Errorf("unexpected mugger state %+v", c)
	}
	if w.Player.Score != 10 {
		t.Errorf("expected defeat score 10 once, got %d", w.Player.Score)
	}
	if rec.count(events.CharDefeat) != 1 {
		t.Errorf("expected one character:defeat, got %d", rec.count(events.CharDefeat))
	}
	if w.Present("mugger") {
		t.Error("expected defeated mugger absent from room")
	}
	if w.ItemRoom("wallet") != "hallway" {
		t.Errorf("expected wallet dropped in hallway, got %q", w.ItemRoom("wallet"))
	}
}

func TestRemoveCharacterFromRoom(t *testing.T) {
	w, _ := newTestWorld(t)

	if !w.RemoveCharacterFromRoom("goldfish") {
		t.Fatal("expected goldfish resolved")
	}
	c := w.Characters["goldfish"]
	if !c.Alive || !c.Defeated {
		t.Errorf("expected alive and defeated, got %+v", c)
	}
	if w.CharacterRoom("goldfish") != "" {
		t.Error("expected goldfish gone from every room")
	}
	if w.RemoveCharacterFromRoom("goldfish") {
		t.Error("expected second resolution to be ignored")
	}
}

func TestRoomCharacters_FiltersDefeated(t *testing.T) {
	w, _ := newTestWorld(t)
	w.Characters["goldfish"].Defeated = true
	got := w.RoomCharacters("hallway")
	if len(got) != 1 || got[0] != "mugger" {
		t.Errorf("expected [mugger], got %v", got)
	}
}

func TestSpawnCharacter(t *testing.T) {
	w, rec := newTestWorld(t)
	w.DamageCharacter("mugger", 100)

	if err := w.SpawnCharacter("mugger", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c := w.Characters["mugger"]
	if !c.Alive || c.Defeated || c.HP != 30 || !c.Hostile {
		t.Errorf("expected fresh mugger, got %+v", c)
	}
	if w.CharacterRoom("mugger") != "kitchen" {
		t.Errorf("expected mugger in kitchen, got %q", w.CharacterRoom("mugger"))
	}
	if rec.count(events.CharSpawn) != 1 {
		t.Error("expected character:spawn")
	}
	if err := w.SpawnCharacter("ghost", ""); !errors.Is(err, ErrUnknownCharacter) {
		t.Errorf("expected ErrUnknownCharacter, got %v", err)
	}
}

func TestFlags(t *testing.T) {
	w, _ := newTestWorld(t)

	w.SetFlag("toll_paid", nil)
	if !w.FlagBool("toll_paid") {
		t.Error("expected nil value to mean true")
	}
	w.SetFlag("count", 0)
	if w.FlagBool("count") {
		t.Error("expected zero to be falsy")
	}
	w.SetFlag("mood", "grumpy")
	if v, _ := w.Flag("mood"); v != "grumpy" {
		t.Errorf("expected grumpy, got %v", v)
	}
	if w.FlagBool("missing") {
		t.Error("expected missing flag to be false")
	}
}

func TestAddScore_NeverDecreases(t *testing.T) {
	w, rec := newTestWorld(t)
	w.AddScore(5)
	w.AddScore(-3)
	w.AddScore(0)
	if w.Player.Score != 5 {
		t.Errorf("expected score 5, got %d", w.Player.Score)
	}
	if rec.count(events.ScoreChange) != 1 {
		t.Errorf("expected one score:change, got %d", rec.count(events.ScoreChange))
	}
}

func TestModifyHP_Clamped(t *testing.T) {
	w, _ := newTestWorld(t)

	if hp := w.ModifyHP(50); hp != 100 {
		t.Errorf("expected clamp at 100, got %d", hp)
	}
	if hp := w.ModifyHP(-30); hp != 70 {
		t.Errorf("expected 70, got %d", hp)
	}
	if w.GameOver {
		t.Error("expected game still running")
	}
	if hp := w.ModifyHP(-500); hp != 0 {
		t.Errorf("expected clamp at 0, got %d", hp)
	}
	if !w.GameOver || w.Won {
		t.Error("expected loss at zero hp")
	}
}

func TestExits(t *testing.T) {
	w, rec := newTestWorld(t)

	if err := w.OpenExit("kitchen", "down", "tunnel"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w.Rooms["kitchen"].Exits["down"] != "tunnel" {
		t.Error("expected exit down to tunnel")
	}
	if err := w.OpenExit("kitchen", "up", "attic"); !errors.Is(err, ErrUnknownRoom) {
		t.Errorf("expected ErrUnknownRoom, got %v", err)
	}
	if !w.CloseExit("kitchen", "down") || w.CloseExit("kitchen", "down") {
		t.Error("expected exactly one successful close")
	}
	if rec.count(events.ExitChange) != 2 {
		t.Errorf("expected 2 exit:change, got %d", rec.count(events.ExitChange))
	}
	if _, ok := w.Defs().Rooms["kitchen"].Exits["down"]; ok {
		t.Error("definitions must not be mutated")
	}
}

func TestEndGame_Once(t *testing.T) {
	w, rec := newTestWorld(t)
	w.EndGame(true, "You win!")
	w.EndGame(false, "")
	if !w.GameOver || !w.Won {
		t.Error("expected first EndGame to stick")
	}
	if rec.count(events.GameOver) != 1 {
		t.Errorf("expected one game:over, got %d", rec.count(events.GameOver))
	}
}

func TestReset(t *testing.T) {
	w, _ := newTestWorld(t)
	_ = w.AddToInventory("spade")
	w.SetFlag("x", true)
	w.DamageCharacter("mugger", 100)

	w.Reset()

	if len(w.Player.Inventory) != 0 || len(w.Player.Flags) != 0 {
		t.Error("expected empty player after reset")
	}
	if w.ItemRoom("spade") != "kitchen" {
		t.Error("expected spade back in kitchen")
	}
	if w.Characters["mugger"].Defeated {
		t.Error("expected mugger restored")
	}
}

func TestSnapshot_RoundTrip(t *testing.T) {
	w, _ := newTestWorld(t)
	_ = w.AddToInventory("spade")
	w.RevealItem("dollar_bill")
	w.SetFlag("toll_paid", true)
	w.SetFlag("visits", 3)
	w.AddScore(7)
	w.ModifyHP(-12)
	_ = w.OpenExit("kitchen", "down", "tunnel")
	_ = w.MoveToRoom("hallway", "north")
	w.DamageCharacter("mugger", 100)
	w.RemoveCharacterFromRoom("goldfish")

	before := w.Snapshot()
	data, err := json.Marshal(before)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded Snapshot
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	fresh := NewWorld(testDefs(), events.NewBus(nil))
	fresh.Restore(decoded)
	after := fresh.Snapshot()

	if !reflect.DeepEqual(before, after) {
		t.Errorf("snapshot mismatch\nbefore: %+v\nafter:  %+v", before, after)
	}
}

func TestSnapshot_IsDeepCopy(t *testing.T) {
	w, _ := newTestWorld(t)
	snap := w.Snapshot()
	_ = w.AddToInventory("spade")
	w.SetFlag("later", true)

	if len(snap.Player.Inventory) != 0 {
		t.Error("expected snapshot inventory unaffected")
	}
	if _, ok := snap.Player.Flags["later"]; ok {
		t.Error("expected snapshot flags unaffected")
	}
	if len(snap.Rooms["kitchen"].Items) != 2 {
		t.Errorf("expected snapshot kitchen items unaffected, got %v", snap.Rooms["kitchen"].Items)
	}
}
