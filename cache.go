// Link cache backed by SQLite.
//
// The cache maps each page to the page-name keywords appearing in its
// text, so backlink and forward-link queries do not rescan the store. Two
// tables mirror the desktop application's layout: items carries one row
// per page with its content digest, refs carries one row per keyword
// occurrence. Update diffs digests to reindex only new or changed pages.
package vpad

import (
	"database/sql"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

const cacheFile = "cache.db"

// Cache is an open link cache.
type Cache struct {
	db *sql.DB
}

// OpenCache opens (or creates) the cache for a store. Pass inMemory to
// keep the cache off disk; otherwise it lives as cache.db inside the
// store directory.
func OpenCache(storePath string, inMemory bool) (*Cache, error) {
	dsn := ":memory:"
	if !inMemory {
		dsn = filepath.Join(storePath, cacheFile)
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	c := &Cache{db: db}
	if err := c.init(); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

func (c *Cache) init() error {
	_, err := c.db.Exec(`
		create table if not exists items(uuid text, key text, displayname text, dataHash text);
		create table if not exists refs(wikiword text, uuid text, key text)`)
	return err
}

func (c *Cache) Close() error {
	return c.db.Close()
}

// Update synchronizes the cache with the store: new pages are inserted
// and indexed, pages whose digest changed are reindexed.
func (c *Cache) Update(s *Store) error {
	s.RegenerateTrie()

	var newItems, updated []string
	for _, id := range s.UUIDs() {
		it, _ := s.Record(id)
		var haveHash string
		err := c.db.QueryRow(`select dataHash from items where uuid = ?`, id).Scan(&haveHash)
		switch {
		case err == sql.ErrNoRows:
			newItems = append(newItems, id)
		case err != nil:
			return err
		case haveHash != it.DataHash:
			updated = append(updated, id)
		}
	}

	for _, id := range updated {
		it, _ := s.Record(id)
		if _, err := c.db.Exec(`delete from refs where uuid = ?`, id); err != nil {
			return err
		}
		if _, err := c.db.Exec(`update items set dataHash = ? where uuid = ?`, it.DataHash, id); err != nil {
			return err
		}
		if err := c.index(s, id); err != nil {
			return err
		}
	}

	for _, id := range newItems {
		it, _ := s.Record(id)
		_, err := c.db.Exec(`insert into items values (?, ?, ?, ?)`,
			id, it.Key, it.DisplayName, it.DataHash)
		if err != nil {
			return err
		}
		if err := c.index(s, id); err != nil {
			return err
		}
	}

	return nil
}

// index records the keywords appearing in one page's text.
func (c *Cache) index(s *Store, id string) error {
	text, ok := s.Item(id)
	if !ok {
		return nil // aliases have no text to index
	}
	for _, keyword := range Keywords(text, s.Trie()) {
		_, err := c.db.Exec(`insert into refs values (?, ?, ?)`,
			keyword, id, strings.ToLower(keyword))
		if err != nil {
			return err
		}
	}
	return nil
}

// Backlinks returns the pages whose text mentions the named page.
func (c *Cache) Backlinks(id string) ([]string, error) {
	var key string
	err := c.db.QueryRow(`select key from items where uuid = ?`, id).Scan(&key)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rows, err := c.db.Query(`select uuid from refs where key = ?`, key)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []string
	for rows.Next() {
		var ref string
		if err := rows.Scan(&ref); err != nil {
			return nil, err
		}
		links = append(links, ref)
	}
	return links, rows.Err()
}

// ForwardLinks returns the pages this page's text mentions.
func (c *Cache) ForwardLinks(id string) ([]string, error) {
	rows, err := c.db.Query(`select key from refs where uuid = ?`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var links []string
	for _, key := range keys {
		var target string
		err := c.db.QueryRow(`select uuid from items where key = ? and uuid != ?`, key, id).Scan(&target)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, err
		}
		links = append(links, target)
	}
	return links, nil
}

// Links returns key to display word for the keywords in one page.
func (c *Cache) Links(id string) (map[string]string, error) {
	rows, err := c.db.Query(`select key, wikiword from refs where uuid = ?`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	links := make(map[string]string)
	for rows.Next() {
		var key, word string
		if err := rows.Scan(&key, &word); err != nil {
			return nil, err
		}
		links[key] = word
	}
	return links, rows.Err()
}
