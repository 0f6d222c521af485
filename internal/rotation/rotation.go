// Package rotation penalizes recently served meals and derives the
// deterministic exploration offset and context hashes used by the selector.
package rotation

import (
	"encoding/hex"
	"sort"
	"strconv"
	"strings"

	"github.com/zeebo/xxh3"
)

// Penalty returns penalty when mealID is among the first window entries of
// recent (most recent first), otherwise 0.
func Penalty(mealID string, recent []string, window int, penalty float64) float64 {
	if mealID == "" || window <= 0 {
		return 0
	}
	if len(recent) > window {
		recent = recent[:window]
	}
	for _, id := range recent {
		if id == mealID {
			return penalty
		}
	}
	return 0
}

// Exploration maps the leading 16 bits of hash(contextHash + mealID) onto
// [0, limit]. The same inputs always give the same offset.
func Exploration(contextHash, mealID string, limit float64) float64 {
	if limit <= 0 {
		return 0
	}
	lead := xxh3.HashString(contextHash+mealID) >> 48
	return float64(lead) / float64(0xFFFF) * limit
}

// Context is the situational input folded into a context hash.
type Context struct {
	TimeWindow       string
	Energy           string
	CalendarConflict bool
	InventoryNames   []string
}

// RequestHash digests the request context without any chosen meal. It seeds
// exploration so every candidate is perturbed from the same base.
func RequestHash(c Context) string {
	return digest(c.canonical())
}

// ContextHash digests the request context together with the chosen meal key.
// It identifies a decision for dedup and audit and is not a security token.
func ContextHash(c Context, mealKey string) string {
	return digest(c.canonical() + "|meal=" + mealKey)
}

func (c Context) canonical() string {
	names := make([]string, 0, len(c.InventoryNames))
	for _, name := range c.InventoryNames {
		if trimmed := strings.ToLower(strings.TrimSpace(name)); trimmed != "" {
			names = append(names, trimmed)
		}
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("window=")
	b.WriteString(c.TimeWindow)
	b.WriteString("|energy=")
	b.WriteString(c.Energy)
	b.WriteString("|calendar=")
	b.WriteString(strconv.FormatBool(c.CalendarConflict))
	b.WriteString("|inventory=")
	b.WriteString(strings.Join(names, ","))
	return b.String()
}

func digest(s string) string {
	sum := xxh3.HashString128(s).Bytes()
	return hex.EncodeToString(sum[:])
}
