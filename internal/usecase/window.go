package usecase

import (
	"time"

	"GoodNewsFeed/internal/domain"
)

const (
	firstRunMinutes     = 7 * 24 * 60
	firstRunMaxArticles = 500

	incrementalFloorMinutes = 5
	incrementalMaxArticles  = 100
)

// ComputeWindow derives the ingestion look-back window from run history.
// The first run covers a full week with a wide article cap; incremental
// runs cover only the elapsed gap, floored at five minutes so rapid
// successive runs never degenerate to an empty window.
func ComputeWindow(firstRun bool, lastRun, now time.Time) domain.FetchWindow {
	if firstRun {
		return domain.FetchWindow{
			MinutesBack: firstRunMinutes,
			MaxArticles: firstRunMaxArticles,
		}
	}

	elapsed := int(now.Sub(lastRun).Minutes())
	if elapsed < incrementalFloorMinutes {
		elapsed = incrementalFloorMinutes
	}

	return domain.FetchWindow{
		MinutesBack: elapsed,
		MaxArticles: incrementalMaxArticles,
	}
}

// IsFirstRun classifies a run as first when no prior run was recorded or
// the store is empty; both are checked because a fully pruned store can
// follow a recorded run.
func IsFirstRun(lastRun time.Time, storedRows int64) bool {
	return lastRun.Year() < 1971 || storedRows == 0
}
