package naming

import (
	"hash/fnv"
	"strings"
)

// Candidate is a title offered for a node by some source.
type Candidate struct {
	Name   string
	Source string // "tracker" | "snmp" | "manual"
}

type normalizedCandidate struct {
	Source string
	Title  string
	Score  int
}

// NormalizeCandidate cleans a raw title and scores it. ok is false when the
// name should never be shown (empty, just the node id, placeholders).
func NormalizeCandidate(nodeID, source, rawName string) (title string, score int, ok bool) {
	source = strings.ToLower(strings.TrimSpace(source))
	name := strings.Join(strings.Fields(rawName), " ")
	if name == "" {
		return "", 0, false
	}

	s := scoreCandidate(nodeID, source, name)
	if s < 0 {
		return name, s, false
	}
	return name, s, true
}

// ChooseTitle picks the best candidate title for nodeID, falling back to a
// generated one when no candidate clears the quality bar.
func ChooseTitle(nodeID string, candidates []Candidate) string {
	best := normalizedCandidate{Score: -1_000_000}

	for _, c := range candidates {
		title, score, ok := NormalizeCandidate(nodeID, c.Source, c.Name)
		if !ok {
			continue
		}
		if score < 60 {
			continue
		}
		next := normalizedCandidate{Source: c.Source, Title: title, Score: score}
		if betterCandidate(next, best) {
			best = next
		}
	}

	if best.Score < 60 || best.Title == "" {
		return Generate(nodeID)
	}
	return best.Title
}

func betterCandidate(a, b normalizedCandidate) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if len(a.Title) != len(b.Title) {
		return len(a.Title) < len(b.Title)
	}
	return a.Title < b.Title
}

func scoreCandidate(nodeID, source, title string) int {
	normalized := strings.ToLower(title)
	if looksGarbage(normalized) {
		return -1
	}
	if strings.EqualFold(title, strings.TrimSpace(nodeID)) || looksAddress(normalized) {
		return -1
	}

	base := 50
	switch source {
	case "manual":
		base = 95
	case "tracker":
		base = 85
	case "snmp":
		base = 70
	}

	if len(title) < 3 {
		base -= 40
	}
	if len(title) > 64 {
		base -= 30
	}
	return base
}

// looksAddress reports whether the value is a bare hex address, which is what
// trackers send when a node has no name.
func looksAddress(normalized string) bool {
	v := strings.TrimPrefix(normalized, "0x")
	if len(v) < 16 {
		return false
	}
	for _, r := range v {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		default:
			return false
		}
	}
	return true
}

func looksGarbage(normalized string) bool {
	switch normalized {
	case "", "unknown", "undefined", "null", "localhost", "node":
		return true
	}
	return false
}

var (
	firstWords = []string{
		"Quick", "Warm", "Gold", "Curved", "Bright", "Silent", "Brave", "Calm",
		"Clever", "Eager", "Gentle", "Happy", "Jolly", "Lucky", "Mighty", "Noble",
		"Proud", "Rapid", "Shy", "Tall", "Vivid", "Wise", "Young", "Zesty",
	}
	secondWords = []string{
		"Green", "Fiery", "Spicy", "Slick", "Blue", "Crimson", "Dusty", "Frosty",
		"Golden", "Hollow", "Icy", "Misty", "Rusty", "Shiny", "Silver", "Smoky",
		"Sunny", "Velvet", "Windy", "Amber", "Coral", "Lunar", "Solar", "Stormy",
	}
	nouns = []string{
		"Aadvaark", "Octagon", "Fieldmouse", "Diamond", "Badger", "Comet", "Falcon",
		"Glacier", "Harbor", "Island", "Jaguar", "Kestrel", "Lantern", "Meadow",
		"Nebula", "Orchid", "Pebble", "Quasar", "Raven", "Summit", "Tundra",
		"Urchin", "Violet", "Walrus",
	}
)

// Generate derives a stable three-word title from a node id. Ids are
// compared case-insensitively, so checksum casing does not change the title.
func Generate(nodeID string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(strings.ToLower(strings.TrimSpace(nodeID))))
	sum := h.Sum64()

	a := firstWords[sum%uint64(len(firstWords))]
	sum /= uint64(len(firstWords))
	b := secondWords[sum%uint64(len(secondWords))]
	sum /= uint64(len(secondWords))
	c := nouns[sum%uint64(len(nouns))]
	return a + " " + b + " " + c
}
