// Item metadata records and on-disk addressing.
//
// Every page is two files in a shard directory keyed by the leading hex
// character of its identifier: the raw content bytes under the identifier
// itself, and an XML property list under identifier + ".plist". The record
// carries the identifier again; Validate cross-checks the two.
package vpad

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"path/filepath"
)

// Reserved type tags. The two alias variants mark records that have no
// content file: a page alias points at another page, a file alias wraps an
// opaque platform bookmark blob.
const (
	UTIPlainText = "public.utf8-plain-text"
	UTIMarkdown  = "net.daringfireball.markdown"
	UTIPageAlias = "com.fm.page-alias"
	UTIFileAlias = "com.fm.file-alias"
)

// Item is the metadata record stored beside each page's content file.
type Item struct {
	UUID        string `plist:"uuid"`
	Key         string `plist:"key"`
	DisplayName string `plist:"displayName"`
	UTI         string `plist:"uti"`
	DataHash    string `plist:"dataHash"`
}

// Alias reports whether the record is a page or file alias. Aliases have a
// metadata record but no content file.
func (it *Item) Alias() bool {
	return it.UTI == UTIPageAlias || it.UTI == UTIFileAlias
}

// check rejects records missing required fields. Type errors surface here
// rather than on first use.
func (it *Item) check() error {
	if it.UUID == "" || it.UTI == "" {
		return fmt.Errorf("%w: missing required field", ErrMalformedRecord)
	}
	return nil
}

// hashText returns the SHA-1 hex digest of the UTF-8 text. The digest is
// part of the on-disk format; the algorithm cannot change.
func hashText(text string) string {
	sum := sha1.Sum([]byte(text))
	return hex.EncodeToString(sum[:])
}

// itemPath returns the content file path for an identifier. Items shard
// into sixteen buckets by the identifier's leading hex character; the
// bucket bounds directory fan-out and means nothing beyond routing.
func (s *Store) itemPath(id string) string {
	return filepath.Join(s.path, pagesDir, id[:1], id)
}

// recordPath returns the metadata record path for an identifier.
func (s *Store) recordPath(id string) string {
	return filepath.Join(s.path, pagesDir, id[:1], id+recordExt)
}
