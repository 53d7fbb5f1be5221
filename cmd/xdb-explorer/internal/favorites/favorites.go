// Package favorites persists the user's saved addresses as a small local
// key-value list backed by sqlite.
package favorites

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"
	migrate "github.com/rubenv/sql-migrate"

	"github.com/stellar/go/support/db"
	"github.com/stellar/go/support/errors"

	"github.com/xdbchain/xdb-explorer/cmd/xdb-explorer/internal/horizon"
)

//go:embed sqlmigrations/*.sql
var sqlMigrations embed.FS

// ErrInvalidAddress is returned when an address to be saved does not have
// the wallet address shape. The store is not touched.
var ErrInvalidAddress = errors.New("not a valid wallet address")

const tableName = "favorites"

type Favorite struct {
	Label     string    `db:"label"`
	Address   string    `db:"address"`
	CreatedAt time.Time `db:"created_at"`
}

type Store struct {
	session db.SessionInterface
}

func Open(dbFilePath string) (*Store, error) {
	session, err := db.Open("sqlite3", fmt.Sprintf("file:%s?_journal_mode=WAL&_synchronous=NORMAL", dbFilePath))
	if err != nil {
		return nil, errors.Wrap(err, "open failed")
	}
	if err = runSQLMigrations(session.DB.DB, "sqlite3"); err != nil {
		_ = session.Close()
		return nil, errors.Wrap(err, "could not run SQL migrations")
	}
	return &Store{session: session}, nil
}

func (s *Store) Close() error {
	return s.session.Close()
}

// Add saves address under label, replacing any previous label for the same
// address.
func (s *Store) Add(ctx context.Context, label, address string) error {
	if !horizon.ValidateAccountID(address) {
		return ErrInvalidAddress
	}
	query := sq.Replace(tableName).
		Columns("address", "label", "created_at").
		Values(address, label, time.Now().UTC())
	_, err := s.session.Exec(ctx, query)
	return err
}

// Remove deletes the favorite for address. Removing an address that was
// never saved is not an error.
func (s *Store) Remove(ctx context.Context, address string) error {
	query := sq.Delete(tableName).Where(sq.Eq{"address": address})
	_, err := s.session.Exec(ctx, query)
	return err
}

// List returns all favorites, most recently added first.
func (s *Store) List(ctx context.Context) ([]Favorite, error) {
	query := sq.Select("label", "address", "created_at").
		From(tableName).
		OrderBy("created_at DESC")
	var favorites []Favorite
	if err := s.session.Select(ctx, &favorites, query); err != nil {
		return nil, err
	}
	return favorites, nil
}

func runSQLMigrations(database *sql.DB, dialect string) error {
	m := &migrate.AssetMigrationSource{
		Asset: sqlMigrations.ReadFile,
		AssetDir: func(path string) ([]string, error) {
			dirEntry, err := sqlMigrations.ReadDir(path)
			if err != nil {
				return nil, err
			}
			entries := make([]string, 0)
			for _, e := range dirEntry {
				entries = append(entries, e.Name())
			}
			return entries, nil
		},
		Dir: "sqlmigrations",
	}
	_, err := migrate.ExecMax(database, dialect, m, migrate.Up, 0)
	return err
}
