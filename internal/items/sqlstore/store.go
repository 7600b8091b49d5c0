package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"

	"github.com/imrishuroy/go-shoplist/internal/items"
)

const (
	tableName = "shopping_items"

	// fixed width so lexical order equals time order
	timeLayout = "2006-01-02 15:04:05.000000000"

	memoryPath = ":memory:"
)

var columns = []string{"id", "name", "quantity", "unit", "purchased", "created_at", "updated_at"}

const schema = `CREATE TABLE IF NOT EXISTS shopping_items (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	name       TEXT    NOT NULL,
	quantity   INTEGER NOT NULL DEFAULT 1 CHECK (quantity > 0),
	unit       TEXT    NOT NULL DEFAULT 'pcs',
	purchased  INTEGER NOT NULL DEFAULT 0,
	created_at TEXT    NOT NULL,
	updated_at TEXT    NOT NULL
)`

// ErrLocked is returned by Open when another process holds the database.
var ErrLocked = errors.New("database is locked by another process")

// Options configures Open.
type Options struct {
	// Path of the database file, or ":memory:".
	Path string
	// WAL enables journal_mode=WAL.
	WAL bool
}

// Store is an items.Store on SQLite. Every write is a single statement.
type Store struct {
	db      *sql.DB
	lock    *flock.Flock
	sq      sq.StatementBuilderType
	nowFunc func() time.Time
}

var _ items.Store = (*Store)(nil)

// Open creates the parent directory if needed, takes an exclusive lock file next
// to the database, applies pragmas and creates the table if missing.
// Callers must Close the store on every exit path.
func Open(ctx context.Context, opts Options) (*Store, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("sqlstore: empty database path")
	}

	var lock *flock.Flock
	if opts.Path != memoryPath {
		if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
		lock = flock.New(opts.Path + ".lock")
		locked, err := lock.TryLock()
		if err != nil {
			return nil, fmt.Errorf("lock database: %w", err)
		}
		if !locked {
			return nil, ErrLocked
		}
	}

	db, err := sql.Open("sqlite", opts.Path)
	if err != nil {
		unlock(lock)
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite has a single writer; one connection also keeps :memory: databases alive.
	db.SetMaxOpenConns(1)

	s := &Store{
		db:      db,
		lock:    lock,
		sq:      sq.StatementBuilder.PlaceholderFormat(sq.Question),
		nowFunc: func() time.Time { return time.Now().UTC() },
	}
	if err := s.init(ctx, opts.WAL && opts.Path != memoryPath); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init(ctx context.Context, wal bool) error {
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
	}
	if wal {
		pragmas = append([]string{"PRAGMA journal_mode = WAL"}, pragmas...)
	}
	for _, p := range pragmas {
		if _, err := s.db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("%s: %w", strings.ToLower(p), err)
		}
	}
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	return nil
}

// Close releases the database handle and the lock file.
func (s *Store) Close() error {
	err := s.db.Close()
	unlock(s.lock)
	return err
}

func unlock(l *flock.Flock) {
	if l != nil {
		_ = l.Unlock()
	}
}

// Insert stores a new row; id and timestamps are assigned here.
func (s *Store) Insert(ctx context.Context, in items.NewItem) (items.Item, error) {
	now := s.nowFunc().Format(timeLayout)
	purchased := in.Purchased != nil && *in.Purchased

	query, args, err := s.sq.Insert(tableName).
		Columns("name", "quantity", "unit", "purchased", "created_at", "updated_at").
		Values(in.Name, in.Quantity, in.Unit, boolToInt(purchased), now, now).
		Suffix(returning()).
		ToSql()
	if err != nil {
		return items.Item{}, fmt.Errorf("build insert: %w", err)
	}

	it, err := scanItem(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return items.Item{}, fmt.Errorf("insert item: %w", err)
	}
	return it, nil
}

// Get fetches one row by id.
func (s *Store) Get(ctx context.Context, id int64) (items.Item, error) {
	query, args, err := s.sq.Select(columns...).From(tableName).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return items.Item{}, fmt.Errorf("build select: %w", err)
	}
	it, err := scanItem(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return items.Item{}, items.ErrNotFound
	}
	if err != nil {
		return items.Item{}, fmt.Errorf("get item: %w", err)
	}
	return it, nil
}

// List returns matching rows. Unfiltered: unpurchased first, then newest first.
func (s *Store) List(ctx context.Context, f items.Filter) ([]items.Item, error) {
	sel := s.sq.Select(columns...).From(tableName)
	if f.Purchased != nil {
		sel = sel.Where(sq.Eq{"purchased": boolToInt(*f.Purchased)}).OrderBy("created_at DESC", "id DESC")
	} else {
		sel = sel.OrderBy("purchased ASC", "created_at DESC", "id DESC")
	}
	query, args, err := sel.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	list := []items.Item{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		list = append(list, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return list, nil
}

// Count returns the number of matching rows.
func (s *Store) Count(ctx context.Context, f items.Filter) (int, error) {
	sel := s.sq.Select("COUNT(*)").From(tableName)
	if f.Purchased != nil {
		sel = sel.Where(sq.Eq{"purchased": boolToInt(*f.Purchased)})
	}
	query, args, err := sel.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count: %w", err)
	}
	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count items: %w", err)
	}
	return n, nil
}

// Update builds a change-set from the supplied fields and always touches updated_at.
func (s *Store) Update(ctx context.Context, id int64, p items.Patch) (items.Item, error) {
	upd := s.sq.Update(tableName)
	if p.Name != nil {
		upd = upd.Set("name", *p.Name)
	}
	if p.Quantity != nil {
		upd = upd.Set("quantity", *p.Quantity)
	}
	if p.Unit != nil {
		upd = upd.Set("unit", *p.Unit)
	}
	if p.Purchased != nil {
		upd = upd.Set("purchased", boolToInt(*p.Purchased))
	}
	return s.updateReturning(ctx, "update item", upd, id)
}

// TogglePurchased flips purchased in one statement, so concurrent toggles never lose a write.
func (s *Store) TogglePurchased(ctx context.Context, id int64) (items.Item, error) {
	upd := s.sq.Update(tableName).Set("purchased", sq.Expr("1 - purchased"))
	return s.updateReturning(ctx, "toggle item", upd, id)
}

func (s *Store) updateReturning(ctx context.Context, op string, upd sq.UpdateBuilder, id int64) (items.Item, error) {
	query, args, err := upd.
		Set("updated_at", s.nowFunc().Format(timeLayout)).
		Where(sq.Eq{"id": id}).
		Suffix(returning()).
		ToSql()
	if err != nil {
		return items.Item{}, fmt.Errorf("build %s: %w", op, err)
	}

	it, err := scanItem(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return items.Item{}, items.ErrNotFound
	}
	if err != nil {
		return items.Item{}, fmt.Errorf("%s: %w", op, err)
	}
	return it, nil
}

// Delete reports whether a row existed.
func (s *Store) Delete(ctx context.Context, id int64) (bool, error) {
	query, args, err := s.sq.Delete(tableName).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return false, fmt.Errorf("build delete: %w", err)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("delete item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanItem(row scanner) (items.Item, error) {
	var (
		it                   items.Item
		purchased            int64
		createdAt, updatedAt string
	)
	if err := row.Scan(&it.ID, &it.Name, &it.Quantity, &it.Unit, &purchased, &createdAt, &updatedAt); err != nil {
		return items.Item{}, err
	}
	it.Purchased = purchased != 0

	var err error
	if it.CreatedAt, err = time.ParseInLocation(timeLayout, createdAt, time.UTC); err != nil {
		return items.Item{}, fmt.Errorf("parse created_at: %w", err)
	}
	if it.UpdatedAt, err = time.ParseInLocation(timeLayout, updatedAt, time.UTC); err != nil {
		return items.Item{}, fmt.Errorf("parse updated_at: %w", err)
	}
	return it, nil
}

func returning() string {
	return "RETURNING " + strings.Join(columns, ", ")
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
