package telemetry

import (
	"fmt"
	"log/slog"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/hunters/components"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkKillSpike         BookmarkType = "kill_spike"
	BookmarkExtinction        BookmarkType = "extinction"
	BookmarkPopulationCrash   BookmarkType = "population_crash"
	BookmarkRecovery          BookmarkType = "recovery"
	BookmarkStableCoexistence BookmarkType = "stable_coexistence"
)

// Bookmark represents an automatically triggered bookmark.
type Bookmark struct {
	Type        BookmarkType `csv:"type" json:"type"`
	Tick        int32        `csv:"tick" json:"tick"`
	Description string       `csv:"description" json:"description"`
}

// LogBookmark logs the bookmark using slog.
func (b Bookmark) LogBookmark() {
	slog.Info("bookmark",
		"type", string(b.Type),
		"tick", b.Tick,
		"description", b.Description,
	)
}

func countOf(s WindowStats, t components.HunterType) int {
	if t == components.Solo {
		return s.SoloCount
	}
	return s.GroupCount
}

// BookmarkDetector detects interesting moments in the simulation.
type BookmarkDetector struct {
	// Rolling history (circular buffer)
	history     []WindowStats
	historySize int
	historyIdx  int
	historyFull bool

	// Per-type state
	recentMin [components.NumHunterTypes]int
	peak      [components.NumHunterTypes]int
	extinct   [components.NumHunterTypes]bool

	stableWindowsCount int
}

// NewBookmarkDetector creates a detector with the given history size.
func NewBookmarkDetector(historySize int) *BookmarkDetector {
	if historySize < 5 {
		historySize = 5 // minimum for stable coexistence detection
	}
	bd := &BookmarkDetector{
		history:     make([]WindowStats, historySize),
		historySize: historySize,
	}
	for i := range bd.recentMin {
		bd.recentMin[i] = -1
	}
	return bd
}

// Check analyzes the latest stats and returns any triggered bookmarks.
func (bd *BookmarkDetector) Check(stats WindowStats) []Bookmark {
	var bookmarks []Bookmark
	add := func(b *Bookmark) {
		if b != nil {
			bookmarks = append(bookmarks, *b)
		}
	}

	if bd.historyFull || bd.historyIdx > 0 {
		add(bd.checkKillSpike(stats))
		for t := components.HunterType(0); t < components.NumHunterTypes; t++ {
			add(bd.checkExtinction(stats, t))
			add(bd.checkRecovery(stats, t))
			add(bd.checkCrash(stats, t))
		}
		add(bd.checkStableCoexistence(stats))
	}

	bd.addToHistory(stats)

	for t := components.HunterType(0); t < components.NumHunterTypes; t++ {
		n := countOf(stats, t)
		if bd.recentMin[t] < 0 || n < bd.recentMin[t] {
			bd.recentMin[t] = n
		}
		if n > bd.peak[t] {
			bd.peak[t] = n
		}
	}

	return bookmarks
}

func (bd *BookmarkDetector) addToHistory(stats WindowStats) {
	bd.history[bd.historyIdx] = stats
	bd.historyIdx = (bd.historyIdx + 1) % bd.historySize
	if bd.historyIdx == 0 {
		bd.historyFull = true
	}
}

// getHistory returns the recorded windows oldest first.
func (bd *BookmarkDetector) getHistory() []WindowStats {
	if !bd.historyFull {
		return bd.history[:bd.historyIdx]
	}
	out := make([]WindowStats, 0, bd.historySize)
	out = append(out, bd.history[bd.historyIdx:]...)
	return append(out, bd.history[:bd.historyIdx]...)
}

func (bd *BookmarkDetector) checkKillSpike(stats WindowStats) *Bookmark {
	history := bd.getHistory()
	if len(history) < 3 {
		return nil
	}

	var totalKills, totalHits int
	for _, h := range history {
		totalKills += h.Kills
		totalHits += h.Hits
	}
	if totalHits == 0 || stats.Hits == 0 {
		return nil
	}

	avg := float64(totalKills) / float64(totalHits)
	if avg == 0 {
		return nil
	}

	if stats.KillsPerHit > avg*2.0 && stats.Kills >= 3 {
		return &Bookmark{
			Type:        BookmarkKillSpike,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("Kill rate %.2f is %.1fx average (%.2f)", stats.KillsPerHit, stats.KillsPerHit/avg, avg),
		}
	}
	return nil
}

func (bd *BookmarkDetector) checkExtinction(stats WindowStats, t components.HunterType) *Bookmark {
	if bd.extinct[t] || bd.peak[t] == 0 || countOf(stats, t) > 0 {
		return nil
	}
	bd.extinct[t] = true
	return &Bookmark{
		Type:        BookmarkExtinction,
		Tick:        stats.WindowEndTick,
		Description: fmt.Sprintf("%s hunters extinct (peak %d)", t, bd.peak[t]),
	}
}

func (bd *BookmarkDetector) checkRecovery(stats WindowStats, t components.HunterType) *Bookmark {
	low := bd.recentMin[t]
	if low <= 0 || low > 2 {
		return nil
	}

	n := countOf(stats, t)
	if n >= low*3 && n >= 6 {
		bd.recentMin[t] = n
		return &Bookmark{
			Type:        BookmarkRecovery,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("%s population recovered from %d to %d", t, low, n),
		}
	}
	return nil
}

func (bd *BookmarkDetector) checkCrash(stats WindowStats, t components.HunterType) *Bookmark {
	peak := bd.peak[t]
	if peak == 0 {
		return nil
	}

	n := countOf(stats, t)
	drop := 1.0 - float64(n)/float64(peak)
	if n > 0 && drop > 0.30 && n <= peak-5 {
		bd.peak[t] = n
		return &Bookmark{
			Type:        BookmarkPopulationCrash,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("%s crashed %.0f%% from peak %d to %d", t, drop*100, peak, n),
		}
	}
	return nil
}

func (bd *BookmarkDetector) checkStableCoexistence(stats WindowStats) *Bookmark {
	if stats.SoloCount < 3 || stats.GroupCount < 3 {
		bd.stableWindowsCount = 0
		return nil
	}

	history := bd.getHistory()
	if len(history) < 4 {
		return nil
	}

	solo := make([]float64, 0, 4)
	group := make([]float64, 0, 4)
	for _, h := range history[len(history)-4:] {
		solo = append(solo, float64(h.SoloCount))
		group = append(group, float64(h.GroupCount))
	}

	// Coefficient of variation below 20% for both types.
	if cv2(solo) < 0.04 && cv2(group) < 0.04 {
		bd.stableWindowsCount++
	} else {
		bd.stableWindowsCount = 0
	}

	if bd.stableWindowsCount == 5 {
		return &Bookmark{
			Type:        BookmarkStableCoexistence,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("Stable coexistence with %d solo, %d group over 5+ windows", stats.SoloCount, stats.GroupCount),
		}
	}
	return nil
}

// cv2 returns the squared coefficient of variation.
func cv2(xs []float64) float64 {
	mean, variance := stat.PopMeanVariance(xs, nil)
	if mean == 0 {
		return 0
	}
	return variance / (mean * mean)
}
