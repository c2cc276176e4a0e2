// Package tui provides a Bubble Tea terminal UI for the WorldCore engine.
package tui

// History recalls previously submitted commands with Up/Down. Each command
// is kept once, at its most recent position, and the line being typed when
// recall began is given back after the newest entry.
type History struct {
	entries []string
	limit   int
	pos     int // len(entries) when not recalling
	draft   string
}

// NewHistory creates a history holding at most limit commands.
func NewHistory(limit int) *History {
	if limit < 1 {
		limit = 1
	}
	return &History{entries: make([]string, 0, limit), limit: limit}
}

// Record appends cmd and ends any recall in progress. An earlier copy of
// the same command is dropped; the oldest entry is evicted past the limit.
func (h *History) Record(cmd string) {
	if cmd == "" {
		return
	}
	for i, e := range h.entries {
		if e == cmd {
			h.entries = append(h.entries[:i], h.entries[i+1:]...)
			break
		}
	}
	h.entries = append(h.entries, cmd)
	if over := len(h.entries) - h.limit; over > 0 {
		h.entries = h.entries[over:]
	}
	h.Reset()
}

// Older steps back one entry. current is the input line, remembered as
// the draft when recall starts. It stops at the oldest entry.
func (h *History) Older(current string) (string, bool) {
	if len(h.entries) == 0 {
		return "", false
	}
	if h.pos == len(h.entries) {
		h.draft = current
	}
	if h.pos > 0 {
		h.pos--
	}
	return h.entries[h.pos], true
}

// Newer steps forward one entry. Stepping past the newest entry returns
// the draft and ends recall.
func (h *History) Newer() (string, bool) {
	if h.pos >= len(h.entries) {
		return "", false
	}
	h.pos++
	if h.pos == len(h.entries) {
		draft := h.draft
		h.draft = ""
		return draft, true
	}
	return h.entries[h.pos], true
}

// Recalling reports whether Up has been pressed since the last Record.
func (h *History) Recalling() bool {
	return h.pos < len(h.entries)
}

// Reset ends recall without touching the entries.
func (h *History) Reset() {
	h.pos = len(h.entries)
	h.draft = ""
}

// Entries returns the commands, oldest first.
func (h *History) Entries() []string {
	return append([]string(nil), h.entries...)
}
