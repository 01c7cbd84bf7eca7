package transferstate

import (
	"database/sql"
	"encoding/json"
	"sync"
	"time"

	_ "github.com/glebarez/go-sqlite"
)

// SQLite is a shared warm store persisted to disk, surviving render
// server restarts. Entries expire after the configured TTL; a zero
// TTL keeps them until removed.
type SQLite struct {
	db         *sql.DB
	ttl        time.Duration
	writeMutex *sync.Mutex
}

// NewSQLite opens (or creates) the warm store db with the given
// filename. If the file name is empty, an in-memory db is opened.
func NewSQLite(filename string, ttl time.Duration) (*SQLite, error) {
	if filename == "" {
		filename = "file::memory:?cache=shared"
	}
	db, err := sql.Open("sqlite", filename)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS transfer (
		key TEXT PRIMARY KEY,
		expires INTEGER,
		value BLOB
	)`); err != nil {
		return nil, err
	}
	if _, err := db.Exec("CREATE INDEX IF NOT EXISTS expires_idx ON transfer (expires)"); err != nil {
		return nil, err
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, err
	}
	return &SQLite{
		db:         db,
		ttl:        ttl,
		writeMutex: &sync.Mutex{},
	}, nil
}

func (s *SQLite) HasKey(key string) bool {
	var expires int64
	err := s.db.QueryRow("SELECT expires FROM transfer WHERE key = ?", key).Scan(&expires)
	if err != nil {
		return false
	}
	return !expired(expires)
}

func (s *SQLite) Get(key string, def json.RawMessage) json.RawMessage {
	var expires int64
	var value []byte
	err := s.db.QueryRow("SELECT expires, value FROM transfer WHERE key = ?", key).Scan(&expires, &value)
	if err != nil || expired(expires) {
		return def
	}
	return value
}

// Set stores the value, replacing any previous one. Write errors are
// swallowed: the warm store is best effort by contract.
func (s *SQLite) Set(key string, value json.RawMessage) {
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()
	var expires int64
	if s.ttl != 0 {
		expires = time.Now().Add(s.ttl).Unix()
	}
	s.db.Exec("INSERT OR REPLACE INTO transfer (key, expires, value) VALUES (?, ?, ?)",
		key, expires, []byte(value))
}

func (s *SQLite) Remove(key string) {
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()
	s.db.Exec("DELETE FROM transfer WHERE key = ?", key)
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func expired(expires int64) bool {
	return expires != 0 && time.Now().After(time.Unix(expires, 0))
}
