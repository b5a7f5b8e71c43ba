// Store lifecycle and the in-memory item tables.
//
// A Store owns its bundle directory exclusively: one process, no locking.
// Open loads every metadata record and every non-alias item's content into
// memory; AddItem is the only mutation and writes through to disk before
// touching the tables.
package vpad

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// The seed page every new store starts with.
const (
	defaultPageName = "Index"
	defaultPageText = "Write about Index here."
)

// Store is an open document bundle.
type Store struct {
	path    string
	codec   codec
	info    *StoreInfo
	props   *Properties
	records map[string]*Item  // every parsed metadata record, aliases included
	items   map[string]string // page text by identifier, aliases excluded
	trie    *WordTrie
	diags   []string
}

func newStore(path string) *Store {
	return &Store{
		path:    path,
		codec:   plainCodec{},
		records: make(map[string]*Item),
		items:   make(map[string]string),
	}
}

// Create provisions a new store at path and seeds it with the default
// page. The path must not already exist. No rollback is attempted on a
// partial failure; callers should discard the directory.
func Create(path string) (*Store, error) {
	if err := os.Mkdir(path, 0o755); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("%w: %s", ErrExists, path)
		}
		return nil, err
	}
	if err := os.Mkdir(filepath.Join(path, pagesDir), 0o755); err != nil {
		return nil, err
	}
	for i := 0; i < 16; i++ {
		shard := filepath.Join(path, pagesDir, fmt.Sprintf("%x", i))
		if err := os.Mkdir(shard, 0o755); err != nil {
			return nil, err
		}
	}

	s := newStore(path)
	storeUUID := uuid.NewString()
	s.info = &StoreInfo{
		IsEncrypted:   false,
		UUID:          storeUUID,
		BundleVersion: BundleVersion,
	}
	s.props = defaultProperties(storeUUID)

	indexUUID, err := s.AddItem(defaultPageName, defaultPageText, UTIMarkdown)
	if err != nil {
		return nil, err
	}
	s.props.DefaultPage = defaultPageName
	s.props.DefaultUUID = indexUUID

	if err := s.codec.saveRecord(filepath.Join(path, storeInfoFile), s.info); err != nil {
		return nil, err
	}
	if err := s.codec.saveRecord(filepath.Join(path, propertiesFile), s.props); err != nil {
		return nil, err
	}
	return s, nil
}

// Open loads the store at path. Structural problems (missing required
// files, an encrypted or wrong-version store) abort the open; individual
// unreadable items degrade to a diagnostic and are omitted.
func Open(path string) (*Store, error) {
	s := newStore(path)

	infoPath := filepath.Join(path, storeInfoFile)
	if _, err := os.Stat(infoPath); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, infoPath)
	}
	propsPath := filepath.Join(path, propertiesFile)
	if _, err := os.Stat(propsPath); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, propsPath)
	}

	var info StoreInfo
	if err := s.codec.loadRecord(infoPath, &info); err != nil {
		return nil, err
	}
	if info.IsEncrypted {
		return nil, ErrEncrypted
	}
	if info.BundleVersion != BundleVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, info.BundleVersion)
	}
	s.info = &info

	var props Properties
	if err := s.codec.loadRecord(propsPath, &props); err != nil {
		return nil, err
	}
	s.props = &props

	pages := filepath.Join(path, pagesDir)
	fi, err := os.Stat(pages)
	if err != nil || !fi.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, pages)
	}

	paths, err := recordPaths(pages)
	if err != nil {
		return nil, err
	}

	// The desktop application (or the platform libraries underneath it)
	// can emit invalid XML. Skip those records and keep loading.
	for _, p := range paths {
		id := strings.TrimSuffix(filepath.Base(p), recordExt)
		if id == "" {
			continue
		}
		var it Item
		if err := s.codec.loadRecord(p, &it); err != nil {
			if errors.Is(err, ErrMalformedRecord) {
				s.diags = append(s.diags, fmt.Sprintf("skipping %s: %v", id, err))
				continue
			}
			return nil, err
		}
		if err := it.check(); err != nil {
			s.diags = append(s.diags, fmt.Sprintf("skipping %s: %v", id, err))
			continue
		}
		s.records[id] = &it
	}

	for id, it := range s.records {
		if it.Alias() {
			continue
		}
		contentPath := s.itemPath(id)
		data, err := s.codec.loadFile(contentPath)
		if err != nil {
			// A parseable record with no content file is corruption,
			// not something to skip over.
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("%w: %s", ErrNotFound, contentPath)
			}
			return nil, err
		}
		if isComposite(data) {
			text, err := extractText(data)
			if err != nil {
				s.diags = append(s.diags, fmt.Sprintf("item %s: %v", id, err))
				s.items[id] = ""
				continue
			}
			s.items[id] = string(text)
			continue
		}
		s.items[id] = string(data)
	}

	return s, nil
}

// recordPaths lists metadata records under the shard directories. The walk
// is deliberately two-level: shard directory, then files with the record
// extension.
func recordPaths(pages string) ([]string, error) {
	shards, err := os.ReadDir(pages)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, shard := range shards {
		if !shard.IsDir() {
			continue
		}
		entries, err := os.ReadDir(filepath.Join(pages, shard.Name()))
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if strings.HasSuffix(e.Name(), recordExt) {
				paths = append(paths, filepath.Join(pages, shard.Name(), e.Name()))
			}
		}
	}
	return paths, nil
}

// AddItem writes a new page and returns its identifier. This is the only
// mutation the store supports: no edit, no delete. expectedPageCount in
// the properties is left alone, as the desktop application left it.
func (s *Store) AddItem(name, text, uti string) (string, error) {
	id := uuid.NewString()
	it := &Item{
		UUID:        id,
		Key:         strings.ToLower(name),
		DisplayName: name,
		UTI:         uti,
		DataHash:    hashText(text),
	}

	if err := s.codec.saveRecord(s.recordPath(id), it); err != nil {
		return "", err
	}
	if err := s.codec.saveFile(s.itemPath(id), []byte(text)); err != nil {
		return "", err
	}

	s.records[id] = it
	s.items[id] = text
	return id, nil
}

// Validate checks that each record's embedded identifier matches the
// identifier it is filed under. Mismatches are reported through
// Diagnostics, not repaired.
func (s *Store) Validate() bool {
	valid := true
	for _, id := range s.UUIDs() {
		if it := s.records[id]; it.UUID != id {
			valid = false
			s.diags = append(s.diags, fmt.Sprintf("uuid mismatch for %s", id))
		}
	}

	// TODO: Check that the default page exists.
	// TODO: Check expectedPageCount against the loaded table.
	// TODO: Check that alias targets resolve.

	return valid
}

// Path returns the store's root directory.
func (s *Store) Path() string { return s.path }

// Info returns the store identity record.
func (s *Store) Info() StoreInfo { return *s.info }

// Properties returns the store-wide settings record.
func (s *Store) Properties() *Properties { return s.props }

// UUIDs returns the identifiers of every loaded metadata record, sorted.
func (s *Store) UUIDs() []string {
	ids := make([]string, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Record returns the metadata record for an identifier.
func (s *Store) Record(id string) (*Item, bool) {
	it, ok := s.records[id]
	return it, ok
}

// Item returns the text content for an identifier. Aliases and skipped
// records have none.
func (s *Store) Item(id string) (string, bool) {
	text, ok := s.items[id]
	return text, ok
}

// Diagnostics returns the per-item problems accumulated so far: records
// skipped during Open and mismatches found by Validate.
func (s *Store) Diagnostics() []string { return s.diags }

// RegenerateTrie rebuilds the page-name trie handed to the keyword
// matcher. Names are lowercased before tokenization.
func (s *Store) RegenerateTrie() {
	s.trie = NewWordTrie()
	for _, it := range s.records {
		s.trie.Add(Tokenize(strings.ToLower(it.DisplayName)))
	}
}

// Trie returns the page-name trie, or nil before RegenerateTrie runs.
func (s *Store) Trie() *WordTrie { return s.trie }
