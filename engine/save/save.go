// Package save implements the save-game format and the slot stores that
// persist it.
package save

import (
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nathoo/worldcore/engine/state"
)

// FormatVersion is bumped whenever the envelope layout changes
// incompatibly.
const FormatVersion = 1

// Envelope is one saved game: the world snapshot plus the metadata shown in
// slot listings.
type Envelope struct {
	Format      int            `json:"format" yaml:"format"`
	Version     string         `json:"version" yaml:"version"`
	Game        string         `json:"game" yaml:"game"`
	Slot        string         `json:"slot" yaml:"slot"`
	SessionID   string         `json:"sessionId" yaml:"session_id"`
	SavedAt     time.Time      `json:"savedAt" yaml:"saved_at"`
	RoomName    string         `json:"roomName" yaml:"room_name"`
	Score       int            `json:"score" yaml:"score"`
	Turn        int            `json:"turn" yaml:"turn"`
	RNGSeed     int64          `json:"rngSeed" yaml:"rng_seed"`
	RNGPosition int64          `json:"rngPosition" yaml:"rng_position"`
	State       state.Snapshot `json:"state" yaml:"state"`
}

// Info summarizes a slot without its snapshot.
type Info struct {
	Slot     string
	Game     string
	SavedAt  time.Time
	RoomName string
	Score    int
	Turn     int
}

// Info returns the listing summary of the envelope.
func (e *Envelope) Info() Info {
	return Info{
		Slot:     e.Slot,
		Game:     e.Game,
		SavedAt:  e.SavedAt,
		RoomName: e.RoomName,
		Score:    e.Score,
		Turn:     e.Turn,
	}
}

// Encode serializes an envelope to JSON.
func Encode(e *Envelope) ([]byte, error) {
	if e.Format == 0 {
		e.Format = FormatVersion
	}
	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding save: %w", err)
	}
	return data, nil
}

// Decode parses JSON produced by Encode.
func Decode(data []byte) (*Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("decoding save: %w", err)
	}
	if e.Format != FormatVersion {
		return nil, fmt.Errorf("decoding save: unsupported format %d", e.Format)
	}
	// Ensure maps are never nil after load.
	if e.State.Player.Flags == nil {
		e.State.Player.Flags = map[string]any{}
	}
	if e.State.Player.Inventory == nil {
		e.State.Player.Inventory = []string{}
	}
	return &e, nil
}

// ExportYAML renders an envelope as YAML for inspection.
func ExportYAML(e *Envelope) ([]byte, error) {
	data, err := yaml.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("exporting save: %w", err)
	}
	return data, nil
}
