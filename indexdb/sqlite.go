// Package indexdb keeps a SQLite index of a run: where each checkpoint was
// written and what the population looked like in every telemetry window.
package indexdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"github.com/pthm-cable/wator/checkpoint"
	"github.com/pthm-cable/wator/telemetry"
)

// SQLiteIndex writes rows from a single background goroutine so the
// simulation never waits on disk.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool
}

type reqKind int

const (
	reqCheckpoint reqKind = iota + 1
	reqWindow
	reqBookmark
)

type req struct {
	kind reqKind

	checkpoint CheckpointRow
	window     telemetry.WindowStats
	bookmark   telemetry.Bookmark
}

// CheckpointRow is one indexed checkpoint.
type CheckpointRow struct {
	Tick       int
	Path       string
	Sharks     int
	Fishes     int
	NextID     uint64
	RecordedAt string
}

// OpenSQLite opens or creates the index at path.
func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{db: db, ch: make(chan req, 4096)}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS checkpoints (
			tick INTEGER PRIMARY KEY,
			path TEXT NOT NULL,
			sharks INTEGER NOT NULL,
			fishes INTEGER NOT NULL,
			next_id INTEGER NOT NULL,
			recorded_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS windows (
			window_end INTEGER PRIMARY KEY,
			fishes INTEGER NOT NULL,
			sharks INTEGER NOT NULL,
			fish_births INTEGER NOT NULL,
			shark_births INTEGER NOT NULL,
			fish_eaten INTEGER NOT NULL,
			sharks_starved INTEGER NOT NULL,
			raw_json TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS bookmarks (
			tick INTEGER NOT NULL,
			type TEXT NOT NULL,
			description TEXT NOT NULL,
			PRIMARY KEY (tick, type)
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// SetMeta stores a run attribute such as the grid size or seed.
func (s *SQLiteIndex) SetMeta(key, value string) error {
	if s == nil {
		return nil
	}
	_, err := s.db.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES(?,?)`, key, value)
	return err
}

// Meta reads a run attribute.
func (s *SQLiteIndex) Meta(key string) (string, bool, error) {
	var v string
	err := s.db.QueryRow(`SELECT value FROM meta WHERE key=?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	return v, err == nil, err
}

// RecordCheckpoint queues a checkpoint row. Rows are dropped if the
// writer has fallen far behind.
func (s *SQLiteIndex) RecordCheckpoint(path string, h checkpoint.Header) {
	s.send(req{kind: reqCheckpoint, checkpoint: CheckpointRow{
		Tick:       h.Tick,
		Path:       path,
		Sharks:     h.Sharks,
		Fishes:     h.Fishes,
		NextID:     h.NextID,
		RecordedAt: time.Now().UTC().Format(time.RFC3339),
	}})
}

// RecordWindow queues a telemetry window row.
func (s *SQLiteIndex) RecordWindow(stats telemetry.WindowStats) {
	s.send(req{kind: reqWindow, window: stats})
}

// RecordBookmark queues a bookmark row.
func (s *SQLiteIndex) RecordBookmark(b telemetry.Bookmark) {
	s.send(req{kind: reqBookmark, bookmark: b})
}

func (s *SQLiteIndex) send(r req) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- r:
	default:
	}
}

// LatestCheckpoint returns the most recent indexed checkpoint.
func (s *SQLiteIndex) LatestCheckpoint(ctx context.Context) (CheckpointRow, bool, error) {
	var row CheckpointRow
	var next int64
	err := s.db.QueryRowContext(ctx,
		`SELECT tick,path,sharks,fishes,next_id,recorded_at FROM checkpoints ORDER BY tick DESC LIMIT 1`,
	).Scan(&row.Tick, &row.Path, &row.Sharks, &row.Fishes, &next, &row.RecordedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return CheckpointRow{}, false, nil
	}
	if err != nil {
		return CheckpointRow{}, false, err
	}
	row.NextID = uint64(next)
	return row, true, nil
}

// Close drains queued rows and closes the database.
func (s *SQLiteIndex) Close() error {
	if s == nil {
		return nil
	}
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	var (
		tx          *sql.Tx
		opCount     int
		lastCommit  = time.Now()
		commitEvery = 256
		commitWait  = time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		var err error
		switch r.kind {
		case reqCheckpoint:
			c := r.checkpoint
			_, err = tx.Exec(`INSERT OR REPLACE INTO checkpoints(tick,path,sharks,fishes,next_id,recorded_at) VALUES(?,?,?,?,?,?)`,
				c.Tick, c.Path, c.Sharks, c.Fishes, int64(c.NextID), c.RecordedAt)
		case reqWindow:
			w := r.window
			raw, _ := json.Marshal(w)
			_, err = tx.Exec(`INSERT OR REPLACE INTO windows(window_end,fishes,sharks,fish_births,shark_births,fish_eaten,sharks_starved,raw_json) VALUES(?,?,?,?,?,?,?,?)`,
				w.WindowEndTick, w.Fishes, w.Sharks, w.FishBirths, w.SharkBirths, w.FishEaten, w.SharksStarved, string(raw))
		case reqBookmark:
			b := r.bookmark
			_, err = tx.Exec(`INSERT OR REPLACE INTO bookmarks(tick,type,description) VALUES(?,?,?)`,
				b.Tick, string(b.Type), b.Description)
		}
		if err != nil {
			rollback()
			continue
		}
		opCount++
		if opCount >= commitEvery || time.Since(lastCommit) >= commitWait {
			commit()
		}
	}

	commit()
}
