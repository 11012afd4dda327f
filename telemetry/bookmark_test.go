package telemetry

import (
	"testing"

	"github.com/pthm-cable/wator/config"
)

func testBookmarks(t *testing.T) config.BookmarksConfig {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatal(err)
	}
	return cfg.Bookmarks
}

func hasBookmark(bookmarks []Bookmark, typ BookmarkType) bool {
	for _, bm := range bookmarks {
		if bm.Type == typ {
			return true
		}
	}
	return false
}

func TestBookmarkDetector_FishCrash(t *testing.T) {
	bd := NewBookmarkDetector(10, testBookmarks(t))

	for i := 0; i < 5; i++ {
		bd.Check(WindowStats{WindowEndTick: i * 50, Fishes: 100, Sharks: 10})
	}

	bookmarks := bd.Check(WindowStats{WindowEndTick: 250, Fishes: 50, Sharks: 10})
	if !hasBookmark(bookmarks, BookmarkFishCrash) {
		t.Error("expected fish_crash bookmark")
	}

	// The peak resets after a crash, so the same level does not fire again.
	if hasBookmark(bd.Check(WindowStats{WindowEndTick: 300, Fishes: 50, Sharks: 10}), BookmarkFishCrash) {
		t.Error("fish_crash fired twice for one crash")
	}
}

func TestBookmarkDetector_SharkRecovery(t *testing.T) {
	bd := NewBookmarkDetector(10, testBookmarks(t))

	for i := 0; i < 3; i++ {
		bd.Check(WindowStats{WindowEndTick: i * 50, Fishes: 100, Sharks: 2})
	}

	bookmarks := bd.Check(WindowStats{WindowEndTick: 200, Fishes: 100, Sharks: 10})
	if !hasBookmark(bookmarks, BookmarkSharkRecovery) {
		t.Error("expected shark_recovery bookmark")
	}
}

func TestBookmarkDetector_StableEcosystem(t *testing.T) {
	bd := NewBookmarkDetector(10, testBookmarks(t))

	fired := 0
	for i := 0; i < 12; i++ {
		bookmarks := bd.Check(WindowStats{WindowEndTick: i * 50, Fishes: 100, Sharks: 20})
		if hasBookmark(bookmarks, BookmarkStableEcosystem) {
			fired++
		}
	}
	if fired != 1 {
		t.Errorf("stable_ecosystem fired %d times, want 1", fired)
	}
}

func TestBookmarkDetector_Extinction(t *testing.T) {
	bd := NewBookmarkDetector(10, testBookmarks(t))

	bookmarks := bd.Check(WindowStats{WindowEndTick: 50, Fishes: 40, Sharks: 0})
	if !hasBookmark(bookmarks, BookmarkExtinction) {
		t.Fatal("expected extinction bookmark")
	}
	if bookmarks[len(bookmarks)-1].Description != "All sharks died out" {
		t.Errorf("description = %q", bookmarks[len(bookmarks)-1].Description)
	}
	if hasBookmark(bd.Check(WindowStats{WindowEndTick: 100, Fishes: 40}), BookmarkExtinction) {
		t.Error("extinction fired twice")
	}
}

func TestBookmarkDetector_QuietHistory(t *testing.T) {
	bd := NewBookmarkDetector(10, testBookmarks(t))

	for i := 0; i < 3; i++ {
		if got := bd.Check(WindowStats{WindowEndTick: i * 50, Fishes: 100 + i, Sharks: 30 - i*5}); len(got) != 0 {
			t.Errorf("window %d: unexpected bookmarks %v", i, got)
		}
	}
}
