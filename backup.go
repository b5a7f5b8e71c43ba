// Store backup archives.
//
// Backup writes the whole bundle as a gzip tarball with a trailing
// manifest.json recording the size and xxh3 fingerprint of every archived
// file, so two backups can be compared without unpacking either.
package vpad

import (
	"archive/tar"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	json "github.com/goccy/go-json"
	"github.com/klauspost/compress/gzip"
	"github.com/zeebo/xxh3"
)

const manifestName = "manifest.json"

// ManifestEntry describes one archived file.
type ManifestEntry struct {
	Path string `json:"path"` // slash-separated, relative to the store root
	Size int64  `json:"size"`
	Hash string `json:"hash"` // 16 hex chars, xxh3
}

// Backup archives the store directory to w.
func (s *Store) Backup(w io.Writer) error {
	gz := gzip.NewWriter(w)
	tw := tar.NewWriter(gz)

	var manifest []ManifestEntry
	err := filepath.WalkDir(s.path, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.path, path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		entry := ManifestEntry{
			Path: filepath.ToSlash(rel),
			Size: int64(len(data)),
			Hash: fmt.Sprintf("%016x", xxh3.Hash(data)),
		}
		manifest = append(manifest, entry)

		hdr := &tar.Header{Name: entry.Path, Mode: 0o644, Size: entry.Size}
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		_, err = tw.Write(data)
		return err
	})
	if err != nil {
		return err
	}

	data, err := json.Marshal(manifest)
	if err != nil {
		return err
	}
	hdr := &tar.Header{Name: manifestName, Mode: 0o644, Size: int64(len(data))}
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	if _, err := tw.Write(data); err != nil {
		return err
	}

	if err := tw.Close(); err != nil {
		return err
	}
	return gz.Close()
}

// ReadManifest extracts the manifest from an archive produced by Backup.
func ReadManifest(r io.Reader) ([]ManifestEntry, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if hdr.Name != manifestName {
			continue
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			return nil, err
		}
		var manifest []ManifestEntry
		if err := json.Unmarshal(data, &manifest); err != nil {
			return nil, err
		}
		return manifest, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, manifestName)
}
