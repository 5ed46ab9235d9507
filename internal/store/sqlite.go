package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"gasbot/internal/domain"
	"gasbot/pkg/logx"
)

//go:embed schema.sql
var schemaFS embed.FS

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

// Open initializes the SQLite-backed subscriber store.
func Open(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("store path is required")
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	st := &sqliteStore{db: db, log: log}
	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Get implements get-or-create. The create path is "insert; on conflict
// do nothing; re-read", so two concurrent first lookups for the same id
// both end up reading the one row the unique constraint let through.
func (s *sqliteStore) Get(ctx context.Context, id int64, displayName string) (*domain.Subscriber, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sub, err := s.selectOne(ctx, id)
	if err == nil {
		return sub, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		s.log.Warn("subscriber read failed, returning in-memory default", logx.Int64("id", id), logx.Err(err))
		return domain.NewSubscriber(id, displayName), nil
	}

	fresh := domain.NewSubscriber(id, displayName)
	if err := s.insertDefault(ctx, fresh); err != nil {
		// The duplicate-create race lands here; the re-read below resolves it.
		s.log.Debug("subscriber insert conflict or failure", logx.Int64("id", id), logx.Err(err))
	}

	sub, err = s.selectOne(ctx, id)
	if err != nil {
		s.log.Warn("subscriber re-read failed, returning in-memory default", logx.Int64("id", id), logx.Err(err))
		return fresh, nil
	}
	return sub, nil
}

func (s *sqliteStore) insertDefault(ctx context.Context, sub *domain.Subscriber) error {
	wl, th, err := marshalLists(sub)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO subscribers(id, display_name, watchlist, notifications, gas_thresholds, created_at, updated_at)
		 VALUES(?,?,?,?,?,?,?)
		 ON CONFLICT(id) DO NOTHING`,
		sub.ID, sub.DisplayName, wl, boolToInt(sub.NotificationsEnabled), th,
		sub.CreatedAt.Format(time.RFC3339Nano), sub.UpdatedAt.Format(time.RFC3339Nano),
	)
	return err
}

func (s *sqliteStore) Update(ctx context.Context, sub *domain.Subscriber) error {
	sub.UpdatedAt = time.Now().UTC()
	wl, th, err := marshalLists(sub)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE subscribers
		 SET display_name = ?, watchlist = ?, notifications = ?, gas_thresholds = ?, updated_at = ?
		 WHERE id = ?`,
		sub.DisplayName, wl, boolToInt(sub.NotificationsEnabled), th,
		sub.UpdatedAt.Format(time.RFC3339Nano), sub.ID,
	)
	return err
}

func (s *sqliteStore) Query(ctx context.Context, pred Predicate) ([]domain.Subscriber, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, display_name, watchlist, notifications, gas_thresholds, created_at, updated_at
		 FROM subscribers ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Subscriber
	for rows.Next() {
		sub, err := scanSubscriber(rows)
		if err != nil {
			return nil, err
		}
		if pred == nil || pred(sub) {
			out = append(out, *sub)
		}
	}
	return out, rows.Err()
}

func (s *sqliteStore) selectOne(ctx context.Context, id int64) (*domain.Subscriber, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, display_name, watchlist, notifications, gas_thresholds, created_at, updated_at
		 FROM subscribers WHERE id = ?`, id)
	return scanSubscriber(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubscriber(r rowScanner) (*domain.Subscriber, error) {
	var (
		sub      domain.Subscriber
		wl, th   string
		notif    int
		cAt, uAt string
	)
	if err := r.Scan(&sub.ID, &sub.DisplayName, &wl, &notif, &th, &cAt, &uAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(wl), &sub.Watchlist); err != nil {
		return nil, fmt.Errorf("decode watchlist: %w", err)
	}
	if err := json.Unmarshal([]byte(th), &sub.GasThresholds); err != nil {
		return nil, fmt.Errorf("decode gas thresholds: %w", err)
	}
	sub.NotificationsEnabled = notif != 0
	var err error
	if sub.CreatedAt, err = time.Parse(time.RFC3339Nano, cAt); err != nil {
		return nil, fmt.Errorf("decode created_at: %w", err)
	}
	if sub.UpdatedAt, err = time.Parse(time.RFC3339Nano, uAt); err != nil {
		return nil, fmt.Errorf("decode updated_at: %w", err)
	}
	if sub.Watchlist == nil {
		sub.Watchlist = []string{}
	}
	if sub.GasThresholds == nil {
		sub.GasThresholds = map[string]uint64{}
	}
	return &sub, nil
}

func marshalLists(sub *domain.Subscriber) (watchlist, thresholds string, err error) {
	wl := sub.Watchlist
	if wl == nil {
		wl = []string{}
	}
	wb, err := json.Marshal(wl)
	if err != nil {
		return "", "", err
	}
	th := sub.GasThresholds
	if th == nil {
		th = map[string]uint64{}
	}
	tb, err := json.Marshal(th)
	if err != nil {
		return "", "", err
	}
	return string(wb), string(tb), nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
