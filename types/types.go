// Package types defines the shared data structures for the WorldCore engine.
// This package contains only type definitions: no logic, no methods.
package types

// Intent is the normalized representation of a player action. Every
// front-end (typed text, verb + hotspot click, drag and drop) produces one.
type Intent struct {
	Verb    string
	Object  string // raw noun or entity ID
	Target  string // second noun ("use X on Y", "give X to Y")
	Carried string // item carried onto the target (drag, pending item)
	Hotspot string // hotspot ID when the intent came from a click
	Source  string // "text", "click", "drag"
}

// Intent sources.
const (
	SourceText  = "text"
	SourceClick = "click"
	SourceDrag  = "drag"
)

// Effect is a single declarative step of a content script.
type Effect struct {
	Type   string
	Params map[string]any

	// Only used by "if" effects.
	Conditions []Condition
	Then       []Effect
	Else       []Effect
}

// Condition is a predicate over the world state.
type Condition struct {
	Type   string         // "has_item", "flag_set", "flag_not", "in_room", ...
	Params map[string]any // condition-specific parameters
	Negate bool           // true if wrapped in Not()
	Inner  *Condition     // for Not(): the negated inner condition
}

// Event is one bus emission, as recorded in a Result.
type Event struct {
	Type string
	Data map[string]any
}

// Result is everything a single dispatcher call produced.
type Result struct {
	Output []string
	Events []Event
	Mode   string
}

// Interaction modes reported in Result.Mode.
const (
	ModeExplore  = "explore"
	ModeDialogue = "dialogue"
	ModeCombat   = "combat"
	ModeOver     = "over"
)

// Hotspot kinds.
const (
	HotspotExit       = "exit"
	HotspotItem       = "item"
	HotspotCharacter  = "character"
	HotspotSearchable = "searchable"
	HotspotScenery    = "scenery"
)

// GameDef holds game metadata from Lua.
type GameDef struct {
	Title      string
	Author     string
	Version    string
	Start      string // starting room ID
	Intro      string
	PlayerHP   int
	FistDamage int
	WinScore   int
}

// RoomDef is the base definition of a room.
type RoomDef struct {
	ID          string
	Name        string
	Description string
	Exits       map[string]string // direction → room_id
	Blocked     map[string]string // direction → guard script
	Items       []string
	Characters  []string
	OnEnter     string
	OnSearch    string
	Verbs       map[string]string // verb → script
	Hotspots    []HotspotDef
}

// HotspotDef is a clickable region of a room.
type HotspotDef struct {
	ID          string
	Kind        string
	Label       string
	Aliases     []string
	LookText    string
	ExitDir     string
	ItemID      string
	CharacterID string
	Verbs       map[string]string // verb → script
	Puzzle      *PuzzleDef
}

// ItemDef is the base definition of an item.
type ItemDef struct {
	ID          string
	Name        string
	Description string
	Aliases     []string
	Takeable    bool
	Hidden      bool
	OnTake      string
	OnUse       string
	OnGive      string
	OnRead      string
	OnWear      string
	Damage      int
	Weapon      bool
	Grenade     bool
	Insult      bool
}

// CombatMessages are per-character narration overrides. Each is a text
// template; empty fields fall back to the engine's defaults.
type CombatMessages struct {
	PlayerHit string
	EnemyHit  string
	Defeat    string
	Insult    string
	Ambush    string
}

// CharacterDef is the base definition of a character.
type CharacterDef struct {
	ID          string
	Name        string
	Description string
	Aliases     []string
	HP          int
	Attack      int
	Hostile     bool
	Messages    CombatMessages
	Dialogue    string
	Puzzle      *PuzzleDef
	OnDefeat    string
	OnGive      string
	Loot        string
	DefeatScore int
}

// PuzzleDef declares which items resolve a character or a hotspot.
type PuzzleDef struct {
	AcceptedItems []string
	OnCorrectItem string
	OnWrongItem   string
	Keep          bool // the accepted item stays in the inventory
	Reward        string
	Score         int
	Flag          string
}

// DialogueDef is a dialogue tree.
type DialogueDef struct {
	ID    string
	Start string
	Nodes map[string]DialogueNode
}

// DialogueNode is one line of a dialogue tree.
type DialogueNode struct {
	Speaker string
	Text    string
	Action  string
	Options []DialogueOption
}

// DialogueOption is a player reply. An empty Next ends the dialogue.
type DialogueOption struct {
	Text      string
	Condition string
	Action    string
	Next      string
}

// ScriptDef is a named effect program declared in content.
type ScriptDef struct {
	Name    string
	Effects []Effect
}

// EventHandler is content subscribed to a bus event.
type EventHandler struct {
	EventType  string
	Match      map[string]any // payload fields that must be equal
	Conditions []Condition
	Effects    []Effect
}
