package share

import (
	"time"

	"github.com/parleychat/sharegate/pkg/storage"
)

const (
	// MaxChatsPerOwner caps how many shared chats one owner may hold.
	MaxChatsPerOwner = 500
	// MaxDailyChats caps shares created inside the trailing DailyWindow.
	MaxDailyChats = 10
	// DailyWindow is the trailing period for the rate ceiling.
	DailyWindow = 24 * time.Hour
)

// Quota is the owner's usage derived from a listing at a point in time.
type Quota struct {
	// Total is every object under the owner's prefix.
	Total int
	// Recent is the subset created inside the trailing DailyWindow.
	Recent int
}

// ComputeQuota derives quota state from an owner's listing. Pure function;
// callers pass the clock.
func ComputeQuota(listing []storage.ObjectInfo, now time.Time) Quota {
	q := Quota{Total: len(listing)}
	cutoff := now.Add(-DailyWindow)
	for _, obj := range listing {
		if obj.LastModified.After(cutoff) {
			q.Recent++
		}
	}
	return q
}

// ExceedsTotal reports whether a new write would pass the total ceiling.
// The pre-write count decides: the write bringing an owner to the ceiling
// is the last one permitted.
func (q Quota) ExceedsTotal() bool {
	return q.Total >= MaxChatsPerOwner
}

// ExceedsDaily reports whether a new write would pass the rate ceiling.
func (q Quota) ExceedsDaily() bool {
	return q.Recent >= MaxDailyChats
}
