package autosave

import (
	"strconv"
	"sync/atomic"
	"time"
)

// IDKind distinguishes client-generated ids from server-assigned ones.
type IDKind int

const (
	// KindTemporary marks an id minted locally for a goal that has not
	// been created on the server yet.
	KindTemporary IDKind = iota
	// KindPersisted marks a server-assigned id.
	KindPersisted
)

// GoalID is a tagged goal identifier. The kind, not the shape of the
// value, decides whether a save is a create or an update.
type GoalID struct {
	Kind  IDKind
	Value string
}

// IsTemporary reports whether the id was minted locally.
func (id GoalID) IsTemporary() bool {
	return id.Kind == KindTemporary
}

// String returns the raw id value.
func (id GoalID) String() string {
	return id.Value
}

// lastTempID makes temporary ids strictly increasing even when several
// are minted within the same millisecond.
var lastTempID int64

// NewTemporaryID mints a temporary id from the current wall clock.
// Values are numeric-timestamp strings, matching what existing clients
// produce.
func NewTemporaryID(now time.Time) GoalID {
	for {
		prev := atomic.LoadInt64(&lastTempID)
		next := now.UnixMilli()
		if next <= prev {
			next = prev + 1
		}
		if atomic.CompareAndSwapInt64(&lastTempID, prev, next) {
			return GoalID{Kind: KindTemporary, Value: strconv.FormatInt(next, 10)}
		}
	}
}

// PersistedID wraps a server-assigned id.
func PersistedID(value string) GoalID {
	return GoalID{Kind: KindPersisted, Value: value}
}

// ParseGoalID classifies a raw id string. All-digits values are the
// legacy temporary-id form; anything else is a server id.
func ParseGoalID(value string) GoalID {
	if value == "" {
		return GoalID{Kind: KindPersisted}
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return PersistedID(value)
		}
	}
	return GoalID{Kind: KindTemporary, Value: value}
}
