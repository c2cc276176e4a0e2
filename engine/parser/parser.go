// Package parser converts command strings into Intent structs.
// Intentionally dumb: no NLP, just pattern matching.
package parser

import (
	"strings"

	"github.com/nathoo/worldcore/types"
)

var directionExpansions = map[string]string{
	"n":    "north",
	"s":    "south",
	"e":    "east",
	"w":    "west",
	"ne":   "northeast",
	"nw":   "northwest",
	"se":   "southeast",
	"sw":   "southwest",
	"up":   "up",
	"down": "down",
	"u":    "up",
	"d":    "down",
}

// Full direction names that are standalone shortcuts for "go <dir>".
var directionNames = map[string]bool{
	"north": true, "south": true, "east": true, "west": true,
	"northeast": true, "northwest": true, "southeast": true, "southwest": true,
	"up": true, "down": true, "in": true, "out": true,
}

var verbAliases = map[string]string{
	// Look / Examine
	"l":        "look",
	"x":        "look",
	"examine":  "look",
	"inspect":  "look",
	"check":    "look",
	"study":    "look",
	"observe":  "look",
	"describe": "look",

	// Movement
	"walk":   "go",
	"move":   "go",
	"head":   "go",
	"enter":  "go",
	"travel": "go",

	// Take / Get
	"get":   "take",
	"grab":  "take",
	"pick":  "take",
	"carry": "take",

	// Drop
	"discard": "drop",

	// Attack / Combat
	"hit":    "attack",
	"fight":  "attack",
	"strike": "attack",
	"kill":   "attack",
	"punch":  "attack",
	"kick":   "attack",
	"run":    "flee",
	"escape": "flee",
	"toss":   "throw",
	"hurl":   "throw",
	"lob":    "throw",
	"cuss":   "insult",
	"swear":  "insult",
	"curse":  "insult",

	// Talk / Dialogue
	"ask":      "talk",
	"speak":    "talk",
	"chat":     "talk",
	"converse": "talk",
	"goodbye":  "bye",
	"leave":    "bye",

	// Search / Open / Pull
	"f":        "search",
	"rummage":  "search",
	"shut":     "close",
	"drag":     "pull",
	"tug":      "pull",
	"yank":     "pull",
	"press":    "push",
	"shove":    "push",
	"excavate": "dig",
	"shovel":   "dig",

	// Give / Use
	"offer": "give",
	"hand":  "give",
	"feed":  "give",
	"apply": "use",

	// Miscellaneous
	"inv":   "inventory",
	"i":     "inventory",
	"z":     "wait",
	"score": "status",
	"don":   "wear",
	"?":     "help",
}

var prepositions = map[string]bool{
	"on": true, "at": true, "to": true,
	"with": true, "in": true, "from": true,
	"about": true, "into": true, "onto": true,
}

var articles = map[string]bool{
	"the": true, "a": true, "an": true,
}

// Parse converts a raw command string into an Intent.
func Parse(input string) types.Intent {
	input = strings.TrimSpace(input)
	if input == "" {
		return types.Intent{}
	}

	words := strings.Fields(strings.ToLower(input))

	// Direction shortcut: bare "n", "south", etc. → go <direction>
	if len(words) == 1 {
		if dir, ok := directionExpansions[words[0]]; ok {
			return types.Intent{Verb: "go", Object: dir, Source: types.SourceText}
		}
		if directionNames[words[0]] {
			return types.Intent{Verb: "go", Object: words[0], Source: types.SourceText}
		}
	}

	// Handle multi-word verb phrases before general parsing.
	words = expandMultiWordVerbs(words)
	if len(words) == 0 {
		return types.Intent{}
	}

	// Apply verb aliases.
	if alias, ok := verbAliases[words[0]]; ok {
		words[0] = alias
	}

	verb := words[0]
	rest := words[1:]

	// Strip articles ("the", "a", "an").
	rest = stripArticles(rest)

	// "go n" → "go north"
	if verb == "go" && len(rest) == 1 {
		if dir, ok := directionExpansions[rest[0]]; ok {
			rest[0] = dir
		}
	}

	// Use the first preposition as a delimiter between object and target.
	object, target := splitOnPreposition(rest)

	return types.Intent{
		Verb:   verb,
		Object: object,
		Target: target,
		Source: types.SourceText,
	}
}

// expandMultiWordVerbs handles "look at", "pick up", "talk to" etc.
func expandMultiWordVerbs(words []string) []string {
	if len(words) < 2 {
		return words
	}

	switch words[0] {
	case "look":
		if words[1] == "at" || words[1] == "in" || words[1] == "under" {
			return append([]string{"look"}, words[2:]...)
		}
		if words[1] == "around" {
			return []string{"look"}
		}
	case "pick":
		if words[1] == "up" {
			return append([]string{"take"}, words[2:]...)
		}
	case "talk", "speak", "chat":
		if words[1] == "to" || words[1] == "with" {
			return append([]string{"talk"}, words[2:]...)
		}
	case "walk", "go":
		if words[1] == "to" {
			return append([]string{"go"}, words[2:]...)
		}
	case "put":
		if words[1] == "on" {
			return append([]string{"wear"}, words[2:]...)
		}
		if words[1] == "down" {
			return append([]string{"drop"}, words[2:]...)
		}
	case "run":
		if words[1] == "away" {
			return []string{"flee"}
		}
	case "throw":
		if words[1] == "grenade" || (len(words) > 2 && words[2] == "grenade") {
			return []string{"throw", "grenade"}
		}
	case "search":
		if words[1] == "in" || words[1] == "through" {
			return append([]string{"search"}, words[2:]...)
		}
	case "dig":
		if words[1] == "at" || words[1] == "here" || words[1] == "in" {
			return append([]string{"dig"}, words[2:]...)
		}
	}

	return words
}

// stripArticles removes articles ("the", "a", "an") from the word list.
func stripArticles(words []string) []string {
	result := make([]string, 0, len(words))
	for _, w := range words {
		if !articles[w] {
			result = append(result, w)
		}
	}
	return result
}

// splitOnPreposition splits words on the first preposition.
// Words before the preposition become the object, words after become the target.
// If no preposition is found, all words become the object.
func splitOnPreposition(words []string) (object, target string) {
	for i, w := range words {
		if prepositions[w] {
			object = strings.Join(words[:i], " ")
			target = strings.Join(words[i+1:], " ")
			return object, target
		}
	}
	return strings.Join(words, " "), ""
}
