package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Styles used throughout the TUI.
var (
	styleStatusBar = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("252")).
			Bold(true)

	styleInputPrompt = lipgloss.NewStyle().
				Foreground(lipgloss.Color("34"))

	styleRoomDesc = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	styleYouSee = lipgloss.NewStyle().
			Bold(true)

	styleExits = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	styleDialogue = lipgloss.NewStyle().
			Foreground(lipgloss.Color("228"))

	styleSystem = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	styleError = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	stylePlayerInput = lipgloss.NewStyle().
				Foreground(lipgloss.Color("34"))

	styleTrace = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	styleOption = lipgloss.NewStyle().
			Foreground(lipgloss.Color("117"))

	styleCombat = lipgloss.NewStyle().
			Foreground(lipgloss.Color("209"))

	styleBanner = lipgloss.NewStyle().
			Foreground(lipgloss.Color("226")).
			Bold(true)

	styleModeCombat = lipgloss.NewStyle().
			Background(lipgloss.Color("124")).
			Foreground(lipgloss.Color("255")).
			Bold(true)
)

// lineKind identifies the type of an output line for styling.
type lineKind int

const (
	kindRoomDesc lineKind = iota
	kindYouSee
	kindExits
	kindDialogue
	kindSystem
	kindError
	kindTrace
	kindOption
	kindCombat
	kindBanner
)

// combatMarkers are fragments that only appear in fight narration.
var combatMarkers = []string{
	"You attack ",
	"damage!",
	"You throw a grenade",
	"BOOM!",
	"has been defeated!",
	"has been obliterated!",
	"You can't get away!",
	"You manage to disengage!",
}

// classifyLine determines what kind of output line this is.
func classifyLine(line string) lineKind {
	switch {
	case strings.HasPrefix(line, "[trace]"):
		return kindTrace
	case strings.HasPrefix(line, "***"):
		return kindBanner
	case strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]"),
		strings.HasPrefix(line, "HP: "):
		return kindSystem
	case strings.HasPrefix(line, "You see:"):
		return kindYouSee
	case strings.HasPrefix(line, "Exits:"):
		return kindExits
	case strings.HasPrefix(line, "You don't see"),
		strings.HasPrefix(line, "You can't"),
		strings.HasPrefix(line, "You don't have"):
		return kindError
	case isOption(line):
		return kindOption
	case isCombat(line):
		return kindCombat
	case isSpeech(line), containsQuotedSpeech(line):
		return kindDialogue
	default:
		return kindRoomDesc
	}
}

// isOption matches numbered dialogue choices ("  2. Ask about the mail.").
func isOption(line string) bool {
	trimmed := strings.TrimLeft(line, " ")
	if len(trimmed) == len(line) {
		return false
	}
	dot := strings.Index(trimmed, ". ")
	if dot < 1 {
		return false
	}
	for _, r := range trimmed[:dot] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func isCombat(line string) bool {
	for _, m := range combatMarkers {
		if strings.Contains(line, m) {
			return true
		}
	}
	return false
}

// isSpeech matches "Speaker: words" lines with a short speaker name.
func isSpeech(line string) bool {
	i := strings.Index(line, ": ")
	if i < 1 || i > 24 {
		return false
	}
	speaker := line[:i]
	return !strings.ContainsAny(speaker, ".!?[")
}

// containsQuotedSpeech checks if a line contains NPC dialogue in single quotes.
func containsQuotedSpeech(line string) bool {
	inQuote := false
	quoteLen := 0
	for _, r := range line {
		if r == '\'' {
			if inQuote && quoteLen > 5 {
				return true
			}
			inQuote = !inQuote
			quoteLen = 0
		} else if inQuote {
			quoteLen++
		}
	}
	return false
}

// styledYouSee renders "You see: item1, item2." with item names bold.
func styledYouSee(line string) string {
	const prefix = "You see: "
	if !strings.HasPrefix(line, prefix) {
		return styleRoomDesc.Render(line)
	}
	return styleRoomDesc.Render(prefix) + styleYouSee.Render(line[len(prefix):])
}

// styledPlayerInput renders the echoed player input in green with "> " prefix.
func styledPlayerInput(input string) string {
	return stylePlayerInput.Render("> " + input)
}

// styledSystemMsg renders a system message in gray with brackets.
func styledSystemMsg(text string) string {
	return styleSystem.Render("[" + text + "]")
}
