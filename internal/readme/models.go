package readme

import (
	"strings"
	"time"
)

// Mode names a generation style. Values outside the known set are stored as given
// and fall back to the standard prompt.
type Mode string

const (
	ModeStandard Mode = "standard"
	ModeMinimal  Mode = "minimal"
	ModeDetailed Mode = "detailed"
	ModeCreative Mode = "creative"
)

// Modes lists the modes with a dedicated prompt layout.
var Modes = []Mode{ModeStandard, ModeMinimal, ModeDetailed, ModeCreative}

// Known reports whether m has its own prompt layout.
func (m Mode) Known() bool {
	for _, k := range Modes {
		if m == k {
			return true
		}
	}
	return false
}

// ParseMode trims and lowercases s; empty input yields ModeStandard.
func ParseMode(s string) Mode {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ModeStandard
	}
	return Mode(s)
}

// NormalizeIdentifier lowercases a GitHub handle for store and upstream lookups.
func NormalizeIdentifier(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Record is one generated README, unique per (Identifier, Mode).
type Record struct {
	ID         string    `json:"id,omitempty" bson:"_id,omitempty"`
	Identifier string    `json:"identifier" bson:"identifier"`
	Mode       Mode      `json:"mode" bson:"mode"`
	Content    string    `json:"content" bson:"content"`
	CreatedAt  time.Time `json:"createdAt,omitempty" bson:"createdAt,omitempty"`
	UpdatedAt  time.Time `json:"updatedAt,omitempty" bson:"updatedAt,omitempty"`
}

// Profile holds per-identifier settings shared by all of its records.
type Profile struct {
	Identifier  string    `json:"identifier" bson:"identifier"`
	DefaultMode Mode      `json:"defaultMode,omitempty" bson:"defaultMode,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt" bson:"updatedAt"`
}
