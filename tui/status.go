package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nathoo/worldcore/types"
)

// renderStatusBar produces a full-width inverted status line showing the
// current room, exits, the pending interaction, and the player's numbers.
func (m Model) renderStatusBar() string {
	w := m.engine.World
	p := w.Player

	left := " " + m.locationSummary()
	if note := m.modeNote(); note != "" {
		left += " | " + note
	}

	stats := fmt.Sprintf("HP:%d/%d S:%d T:%d ", p.HP, p.MaxHP, p.Score, p.TurnCount)
	right := stats

	// Show inventory items if they fit, otherwise just count.
	if n := len(p.Inventory); n > 0 {
		names := make([]string, 0, n)
		for _, id := range p.Inventory {
			names = append(names, w.ItemName(id))
		}
		candidate := fmt.Sprintf("Inv: %s | %s", strings.Join(names, ", "), stats)
		if lipgloss.Width(left)+lipgloss.Width(candidate)+2 < m.width {
			right = candidate
		} else {
			right = fmt.Sprintf("Inv: %d | %s", n, stats)
		}
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}

	bar := left + strings.Repeat(" ", gap) + right
	style := styleStatusBar
	if m.engine.Mode() == types.ModeCombat {
		style = styleModeCombat
	}
	return style.Width(m.width).Render(bar)
}

// locationSummary returns "Room Name | Exits: east,north".
func (m Model) locationSummary() string {
	w := m.engine.World
	room := w.CurrentRoom()
	if room == nil {
		return "Nowhere"
	}
	dirs := make([]string, 0, len(room.Exits))
	for dir := range room.Exits {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)
	return fmt.Sprintf("%s | Exits: %s", w.RoomName(room.ID), strings.Join(dirs, ","))
}

// modeNote describes what the next input applies to.
func (m Model) modeNote() string {
	w := m.engine.World
	switch m.engine.Mode() {
	case types.ModeCombat:
		enemy := m.engine.Combat.Enemy()
		if c, ok := w.Characters[enemy]; ok {
			return fmt.Sprintf("FIGHT: %s %d/%d", w.CharacterName(enemy), c.HP, c.MaxHP)
		}
		return "FIGHT"
	case types.ModeDialogue:
		return "Talking to " + w.CharacterName(m.engine.Dialogue.CharacterID())
	case types.ModeOver:
		if w.Won {
			return "WON"
		}
		return "GAME OVER"
	}
	if item := m.engine.PendingItem(); item != "" {
		return "Using " + w.ItemName(item)
	}
	if verb := m.engine.SelectedVerb(); verb != "" {
		return "Verb: " + verb
	}
	return ""
}
