package save

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/nathoo/worldcore/engine/events"
	"github.com/nathoo/worldcore/engine/state"
	"github.com/nathoo/worldcore/types"
)

func testDefs() *state.Defs {
	return &state.Defs{
		Game: types.GameDef{Title: "Test Game", Version: "1.0", Start: "kitchen"},
		Rooms: map[string]types.RoomDef{
			"kitchen": {ID: "kitchen", Name: "Kitchen", Items: []string{"dollar_bill"}, Exits: map[string]string{"north": "hallway"}},
			"hallway": {ID: "hallway", Name: "Hallway", Characters: []string{"goldfish"}},
		},
		Items: map[string]types.ItemDef{
			"dollar_bill": {ID: "dollar_bill", Name: "dollar bill", Hidden: true},
			"spade":       {ID: "spade", Name: "spade"},
		},
		Characters: map[string]types.CharacterDef{
			"goldfish": {ID: "goldfish", Name: "Goldfish", HP: 3},
		},
	}
}

func testEnvelope(t *testing.T, slot string, savedAt time.Time) *Envelope {
	t.Helper()
	w := state.NewWorld(testDefs(), events.NewBus(nil))
	if err := w.MoveToRoom("kitchen", ""); err != nil {
		t.Fatal(err)
	}
	w.RevealItem("dollar_bill")
	if err := w.AddToInventory("dollar_bill"); err != nil {
		t.Fatal(err)
	}
	if err := w.MoveToRoom("hallway", "north"); err != nil {
		t.Fatal(err)
	}
	w.RemoveCharacterFromRoom("goldfish")
	w.SetFlag("goldfish_fed", true)
	w.SetFlag("mood", "grumpy")
	w.AddScore(5)
	w.Player.TurnCount = 7

	return &Envelope{
		Version:     "1.0",
		Game:        "Test Game",
		Slot:        slot,
		SessionID:   "session-1",
		SavedAt:     savedAt,
		RoomName:    w.RoomName(w.Player.CurrentRoom),
		Score:       w.Player.Score,
		Turn:        w.Player.TurnCount,
		RNGSeed:     42,
		RNGPosition: 3,
		State:       w.Snapshot(),
	}
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	e := testEnvelope(t, "quick", time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	data, err := Encode(e)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if got.Format != FormatVersion {
		t.Errorf("expected format %d, got %d", FormatVersion, got.Format)
	}
	if !got.SavedAt.Equal(e.SavedAt) {
		t.Errorf("expected saved at %v, got %v", e.SavedAt, got.SavedAt)
	}
	got.SavedAt = e.SavedAt
	if !reflect.DeepEqual(got, e) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, e)
	}
}

func TestDecode_RestoresWorld(t *testing.T) {
	e := testEnvelope(t, "quick", time.Now())
	data, err := Encode(e)
	if err != nil {
		t.Fatal(err)
	}
	got, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}

	w := state.NewWorld(testDefs(), events.NewBus(nil))
	w.Restore(got.State)

	if !reflect.DeepEqual(w.Snapshot(), e.State) {
		t.Errorf("restored world differs:\n got %+v\nwant %+v", w.Snapshot(), e.State)
	}
	if w.Player.CurrentRoom != "hallway" || !w.HasItem("dollar_bill") {
		t.Errorf("unexpected player state %+v", w.Player)
	}
	if !w.Characters["goldfish"].Defeated {
		t.Error("expected goldfish to stay defeated")
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", "{nope"},
		{"wrong format", `{"format": 99}`},
		{"missing format", `{"game": "x"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode([]byte(tt.data)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestExportYAML(t *testing.T) {
	e := testEnvelope(t, "quick", time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	data, err := ExportYAML(e)
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	for _, want := range []string{"room_name: Hallway", "current_room: hallway", "goldfish_fed: true"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected YAML to contain %q:\n%s", want, out)
		}
	}
}

func TestValidSlot(t *testing.T) {
	for _, ok := range []string{"quick", "slot_1", "before-boss"} {
		if err := ValidSlot(ok); err != nil {
			t.Errorf("ValidSlot(%q): unexpected error %v", ok, err)
		}
	}
	for _, bad := range []string{"", "../etc", "a b", strings.Repeat("x", 65)} {
		if err := ValidSlot(bad); err == nil {
			t.Errorf("ValidSlot(%q): expected error", bad)
		}
	}
}

// storeContract exercises any Store implementation.
func storeContract(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrSlotNotFound) {
		t.Fatalf("expected ErrSlotNotFound, got %v", err)
	}

	older := testEnvelope(t, "older", base)
	newer := testEnvelope(t, "newer", base.Add(time.Hour))
	for _, e := range []*Envelope{older, newer} {
		if err := s.Put(ctx, e); err != nil {
			t.Fatalf("Put(%s): %v", e.Slot, err)
		}
	}

	got, err := s.Get(ctx, "older")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.RoomName != "Hallway" || got.Score != 5 || got.State.Player.CurrentRoom != "hallway" {
		t.Errorf("unexpected envelope %+v", got)
	}

	list, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 || list[0].Slot != "newer" || list[1].Slot != "older" {
		t.Fatalf("expected newest first, got %+v", list)
	}
	if !list[0].SavedAt.Equal(newer.SavedAt) || list[0].Turn != 7 {
		t.Errorf("unexpected info %+v", list[0])
	}

	// Overwrite moves the slot to the front.
	older.SavedAt = base.Add(2 * time.Hour)
	older.Score = 50
	if err := s.Put(ctx, older); err != nil {
		t.Fatal(err)
	}
	list, _ = s.List(ctx)
	if len(list) != 2 || list[0].Slot != "older" || list[0].Score != 50 {
		t.Errorf("expected overwritten slot first, got %+v", list)
	}

	if err := s.Delete(ctx, "older"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(ctx, "older"); !errors.Is(err, ErrSlotNotFound) {
		t.Errorf("expected ErrSlotNotFound on second delete, got %v", err)
	}
	list, _ = s.List(ctx)
	if len(list) != 1 {
		t.Errorf("expected 1 slot after delete, got %d", len(list))
	}

	if err := s.Put(ctx, testEnvelope(t, "../escape", base)); err == nil {
		t.Error("expected invalid slot name to be rejected")
	}
}

func TestFileStore(t *testing.T) {
	s, err := NewFileStore(filepath.Join(t.TempDir(), "saves"), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	storeContract(t, s)
}

func TestSQLiteStore(t *testing.T) {
	s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "saves.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	storeContract(t, s)
}

func TestSQLiteStore_Memory(t *testing.T) {
	s, err := OpenSQLite(context.Background(), ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	storeContract(t, s)
}

func TestFileStore_Cancelled(t *testing.T) {
	s, err := NewFileStore(t.TempDir(), nil)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Put(ctx, testEnvelope(t, "quick", time.Now())); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
