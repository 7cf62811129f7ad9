package alertsync

import (
	"fmt"
	"time"

	"github.com/vladvasiliu/opsgenie-desktop/agent/internal/alert"
)

// LatestUpdate returns the newest UpdatedAt in store, or false when the store
// is empty or no alert carries one.
func LatestUpdate(store *alert.Store) (time.Time, bool) {
	return store.LatestUpdate()
}

// QueryWatermark returns the time boundary for the next incremental query.
func QueryWatermark(store *alert.Store, historyDays int, now time.Time) time.Time {
	if t, ok := LatestUpdate(store); ok {
		return t
	}
	return now.Add(-time.Duration(historyDays) * 24 * time.Hour)
}

// BuildQuery returns the search query selecting open alerts plus anything
// touched at or after watermark.
func BuildQuery(watermark time.Time) string {
	return fmt.Sprintf("status: %s OR updatedAt >= %d", alert.StatusOpen, watermark.Unix())
}
