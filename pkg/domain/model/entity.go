package model

import "strings"

// Entity is a named thing (person, place, topic, organization) mentioned by
// messages. Entities are keyed by trimmed, case-sensitive name and shared
// across messages.
type Entity struct {
	Name string
}

// NormalizeEntityName trims surrounding whitespace. Comparison stays
// case-sensitive.
func NormalizeEntityName(name string) string {
	return strings.TrimSpace(name)
}
