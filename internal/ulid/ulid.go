// Package ulid provides prefixed, sortable identifiers for spinshelf
// entities on top of github.com/oklog/ulid/v2.
//
// ULIDs sort lexicographically by creation time, which keeps primary-key
// indexes append-mostly and makes IDs safe to expose in URLs.
package ulid

import (
	"crypto/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Prefixes for the different parts of the application
const (
	// PrefixRecord is used for catalog record IDs
	PrefixRecord = "rec"

	// PrefixRun is used for sync run IDs
	PrefixRun = "run"

	// PrefixSeparator separates the prefix from the ULID
	PrefixSeparator = "-"
)

var (
	entropy     = ulid.Monotonic(rand.Reader, 0)
	entropyLock sync.Mutex
)

// Generate creates a new ULID string with the current timestamp.
func Generate() string {
	return newWithTime(time.Now()).String()
}

// GenerateWithPrefix creates a new prefixed ULID string, e.g. "rec-01AN4Z...".
func GenerateWithPrefix(prefix string) string {
	return prefix + PrefixSeparator + Generate()
}

func newWithTime(t time.Time) ulid.ULID {
	entropyLock.Lock()
	id := ulid.MustNew(ulid.Timestamp(t), entropy)
	entropyLock.Unlock()
	return id
}

// Validate checks if a string is a valid (optionally prefixed) ULID.
func Validate(id string) bool {
	raw := id
	if i := strings.Index(id, PrefixSeparator); i >= 0 {
		raw = id[i+1:]
	}
	_, err := ulid.Parse(raw)
	return err == nil
}

// Time extracts the timestamp component of an (optionally prefixed) ULID.
func Time(id string) (time.Time, error) {
	raw := id
	if i := strings.Index(id, PrefixSeparator); i >= 0 {
		raw = id[i+1:]
	}
	parsed, err := ulid.Parse(raw)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(parsed.Time()), nil
}

// RecordID generates a new ULID with the record prefix
func RecordID() string {
	return GenerateWithPrefix(PrefixRecord)
}

// RunID generates a new ULID with the sync run prefix
func RunID() string {
	return GenerateWithPrefix(PrefixRun)
}
