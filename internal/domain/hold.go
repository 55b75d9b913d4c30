package domain

import "time"

type HoldStatus string

const (
	HoldStatusActive    HoldStatus = "active"
	HoldStatusConfirmed HoldStatus = "confirmed"
	HoldStatusReleased  HoldStatus = "released"
	HoldStatusExpired   HoldStatus = "expired"
)

// Terminal reports whether a status can no longer change.
func (s HoldStatus) Terminal() bool {
	return s == HoldStatusConfirmed || s == HoldStatusReleased || s == HoldStatusExpired
}

// Hold reserves a single seat against an item's capacity for a limited time.
// Holds are kept after they end; they are the audit trail of reservation
// attempts.
type Hold struct {
	ID        string
	Item      ItemKey
	HolderID  string
	Status    HoldStatus
	CreatedAt time.Time
	ExpiresAt time.Time
}

// ActiveAt reports whether the hold still occupies a seat at the given
// instant. An active hold past its expiry does not count, whether or not the
// sweep has marked it yet.
func (h Hold) ActiveAt(now time.Time) bool {
	return h.Status == HoldStatusActive && h.ExpiresAt.After(now)
}
