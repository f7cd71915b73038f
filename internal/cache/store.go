package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"github.com/janekbaraniewski/routerspend/internal/config"
	"github.com/janekbaraniewski/routerspend/internal/core"
)

const (
	metaLastCleanup = "last_cleanup"
	metaDevPayload  = "dev_payload"
	metaDevExpires  = "dev_expires_at"

	cleanupInterval = 24 * time.Hour
)

// Store is the range-keyed payload cache. Raw transaction payloads are kept
// per date range with a short TTL; a broad cached range can satisfy a
// narrower request without another call against the rate-limited endpoint.
type Store struct {
	db    *sql.DB
	cfg   config.CacheConfig
	debug bool
	log   *logrus.Logger
	now   func() time.Time
}

func Open(path string, cfg config.Config, log *logrus.Logger) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cache: creating DB dir: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("cache: opening DB: %w", err)
	}

	store := NewStore(db, cfg, log)
	if err := store.Init(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func NewStore(db *sql.DB, cfg config.Config, log *logrus.Logger) *Store {
	return &Store{
		db:    db,
		cfg:   cfg.Cache,
		debug: cfg.Debug,
		log:   log,
		now:   time.Now,
	}
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Init(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS range_cache (
			key TEXT PRIMARY KEY,
			range_from TEXT,
			range_to TEXT,
			payload TEXT NOT NULL,
			stored_at TEXT NOT NULL,
			expires_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_range_cache_expires_at ON range_cache(expires_at);`,
		`CREATE TABLE IF NOT EXISTS cache_meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("cache: init schema: %w", err)
		}
	}
	return nil
}

// Get looks the range up by exact key first, then scans stored entries in
// insertion order for one whose range fully covers the request. Entries past
// their TTL are never returned; entries whose payload is no longer valid
// JSON are dropped on the spot. When nothing range-keyed matches and debug
// mode is on, the single-slot dev cache is consulted as a last resort.
func (s *Store) Get(ctx context.Context, r core.DateRange) (string, bool) {
	now := s.now()

	if payload, ok := s.getExact(ctx, r, now); ok {
		return payload, true
	}
	if payload, ok := s.getCovering(ctx, r, now); ok {
		return payload, true
	}
	if s.debug {
		if payload, ok := s.getDev(ctx, now); ok {
			return payload, true
		}
	}
	return "", false
}

func (s *Store) getExact(ctx context.Context, r core.DateRange, now time.Time) (string, bool) {
	var payload, expiresAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload, expires_at FROM range_cache WHERE key = ?`, r.Key(),
	).Scan(&payload, &expiresAt)
	if err != nil {
		if err != sql.ErrNoRows {
			s.log.WithError(err).WithField("range", r.Key()).Warn("cache read failed")
		}
		return "", false
	}

	if expired(expiresAt, now) {
		s.remove(ctx, r.Key())
		return "", false
	}
	if !json.Valid([]byte(payload)) {
		s.log.WithField("range", r.Key()).Warn("discarding corrupt cache entry")
		s.remove(ctx, r.Key())
		return "", false
	}
	return payload, true
}

func (s *Store) getCovering(ctx context.Context, req core.DateRange, now time.Time) (string, bool) {
	if !req.HasFrom() && !req.HasTo() {
		return "", false
	}

	// Insertion-order scan, first covering entry wins.
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, range_from, range_to, payload, expires_at FROM range_cache ORDER BY rowid`)
	if err != nil {
		s.log.WithError(err).Warn("cache scan failed")
		return "", false
	}
	defer rows.Close()

	var drop []string
	var hit string
	var found bool
	for rows.Next() {
		var key, from, to, payload, expiresAt string
		if err := rows.Scan(&key, &from, &to, &payload, &expiresAt); err != nil {
			s.log.WithError(err).Warn("cache scan row failed")
			continue
		}
		if expired(expiresAt, now) {
			continue
		}

		stored := core.DateRange{}
		if t, ok := core.ParseDate(from); ok {
			stored.From = t
		}
		if t, ok := core.ParseDate(to); ok {
			stored.To = t
		}
		if !stored.Contains(req) {
			continue
		}
		if !json.Valid([]byte(payload)) {
			s.log.WithField("range", key).Warn("discarding corrupt cache entry")
			drop = append(drop, key)
			continue
		}
		hit = payload
		found = true
		break
	}
	rows.Close()

	for _, key := range drop {
		s.remove(ctx, key)
	}
	return hit, found
}

// Set stores the payload under the exact range key, replacing any previous
// entry. A failed write gets one expired-entry sweep and one retry; a second
// failure is logged and swallowed so the pipeline keeps going uncached.
func (s *Store) Set(ctx context.Context, r core.DateRange, payload string) {
	now := s.now()
	s.evict(ctx, now)

	if err := s.write(ctx, r, payload, now); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"range": r.Key(),
			"bytes": len(payload),
		}).Debug("cache write failed, sweeping and retrying")

		s.sweepExpired(ctx, now)
		if err := s.write(ctx, r, payload, now); err != nil {
			s.log.WithError(err).WithFields(logrus.Fields{
				"range": r.Key(),
				"bytes": len(payload),
			}).Warn("cache write abandoned")
			return
		}
	}

	if s.debug {
		s.setDev(ctx, payload, now)
	}
}

func (s *Store) write(ctx context.Context, r core.DateRange, payload string, now time.Time) error {
	expires := now.Add(time.Duration(s.cfg.RangeTTLMinutes) * time.Minute)

	var from, to string
	if r.HasFrom() {
		from = r.From.Format("2006-01-02")
	}
	if r.HasTo() {
		to = r.To.Format("2006-01-02")
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO range_cache (key, range_from, range_to, payload, stored_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		r.Key(), from, to, payload,
		now.UTC().Format(time.RFC3339), expires.UTC().Format(time.RFC3339))
	return err
}

// evict trims live entries to one below the maximum, oldest expiry first, so
// the subsequent write never pushes the cache past its cap.
func (s *Store) evict(ctx context.Context, now time.Time) {
	var live int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM range_cache WHERE expires_at > ?`,
		now.UTC().Format(time.RFC3339),
	).Scan(&live)
	if err != nil {
		s.log.WithError(err).Warn("cache eviction count failed")
		return
	}
	if live < s.cfg.MaxRangeEntries {
		return
	}

	toRemove := live - s.cfg.MaxRangeEntries + 1
	_, err = s.db.ExecContext(ctx,
		`DELETE FROM range_cache WHERE key IN (
			SELECT key FROM range_cache WHERE expires_at > ?
			ORDER BY expires_at ASC LIMIT ?
		)`,
		now.UTC().Format(time.RFC3339), toRemove)
	if err != nil {
		s.log.WithError(err).Warn("cache eviction failed")
		return
	}
	s.log.WithField("evicted", toRemove).Debug("evicted oldest cache entries")
}

// Maintain runs the daily expired-entry sweep. The last run is persisted so
// restarts within the same 24h window skip the pass.
func (s *Store) Maintain(ctx context.Context) {
	now := s.now()
	if last, ok := s.metaTime(ctx, metaLastCleanup); ok && now.Sub(last) < cleanupInterval {
		return
	}
	s.sweepExpired(ctx, now)
	s.setMeta(ctx, metaLastCleanup, now.UTC().Format(time.RFC3339))
}

func (s *Store) sweepExpired(ctx context.Context, now time.Time) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM range_cache WHERE expires_at <= ?`,
		now.UTC().Format(time.RFC3339))
	if err != nil {
		s.log.WithError(err).Warn("cache sweep failed")
		return
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		s.log.WithField("removed", n).Debug("swept expired cache entries")
	}
}

// Clear drops the exact entry for the range, if any.
func (s *Store) Clear(ctx context.Context, r core.DateRange) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM range_cache WHERE key = ?`, r.Key()); err != nil {
		return fmt.Errorf("cache: clearing %s: %w", r.Key(), err)
	}
	return nil
}

// ClearAll drops every range entry and the dev slot.
func (s *Store) ClearAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM range_cache`); err != nil {
		return fmt.Errorf("cache: clearing all: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM cache_meta WHERE key IN (?, ?)`, metaDevPayload, metaDevExpires); err != nil {
		return fmt.Errorf("cache: clearing dev slot: %w", err)
	}
	return nil
}

// Stats describes current cache occupancy, for the `cache stats` command.
type Stats struct {
	Entries     int
	LiveEntries int
	Bytes       int64
}

func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(LENGTH(payload)), 0) FROM range_cache`,
	).Scan(&st.Entries, &st.Bytes)
	if err != nil {
		return Stats{}, fmt.Errorf("cache: reading stats: %w", err)
	}
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM range_cache WHERE expires_at > ?`,
		s.now().UTC().Format(time.RFC3339),
	).Scan(&st.LiveEntries)
	if err != nil {
		return Stats{}, fmt.Errorf("cache: reading stats: %w", err)
	}
	return st, nil
}

func (s *Store) getDev(ctx context.Context, now time.Time) (string, bool) {
	expiresAt, ok := s.meta(ctx, metaDevExpires)
	if !ok || expired(expiresAt, now) {
		return "", false
	}
	payload, ok := s.meta(ctx, metaDevPayload)
	if !ok || !json.Valid([]byte(payload)) {
		return "", false
	}
	return payload, true
}

func (s *Store) setDev(ctx context.Context, payload string, now time.Time) {
	expires := now.Add(time.Duration(s.cfg.DevTTLMinutes) * time.Minute)
	s.setMeta(ctx, metaDevPayload, payload)
	s.setMeta(ctx, metaDevExpires, expires.UTC().Format(time.RFC3339))
}

func (s *Store) remove(ctx context.Context, key string) {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM range_cache WHERE key = ?`, key); err != nil {
		s.log.WithError(err).WithField("range", key).Warn("cache delete failed")
	}
}

func (s *Store) meta(ctx context.Context, key string) (string, bool) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM cache_meta WHERE key = ?`, key).Scan(&value)
	if err != nil {
		return "", false
	}
	return value, true
}

func (s *Store) metaTime(ctx context.Context, key string) (time.Time, bool) {
	value, ok := s.meta(ctx, key)
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func (s *Store) setMeta(ctx context.Context, key, value string) {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO cache_meta (key, value) VALUES (?, ?)`, key, value)
	if err != nil {
		s.log.WithError(err).WithField("key", key).Warn("cache meta write failed")
	}
}

func expired(expiresAt string, now time.Time) bool {
	t, err := time.Parse(time.RFC3339, expiresAt)
	if err != nil {
		return true
	}
	return !t.After(now)
}
