// Storage codec capability.
//
// All file and record I/O goes through a codec so that plain and encrypted
// stores share one access path. The variant is chosen once at open or
// create and held by the Store; nothing branches per call. Open currently
// always selects plainCodec because encrypted stores are rejected outright
// (see crypt.go for the dormant encrypted variant).
package vpad

import (
	"fmt"
	"os"
	"path/filepath"

	"howett.net/plist"
)

type codec interface {
	loadFile(path string) ([]byte, error)
	saveFile(path string, data []byte) error
	loadRecord(path string, v any) error
	saveRecord(path string, v any) error
}

type plainCodec struct{}

func (plainCodec) loadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

func (plainCodec) saveFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (c plainCodec) loadRecord(path string, v any) error {
	data, err := c.loadFile(path)
	if err != nil {
		return err
	}
	return unmarshalRecord(data, v)
}

func (c plainCodec) saveRecord(path string, v any) error {
	data, err := marshalRecord(v)
	if err != nil {
		return err
	}
	return c.saveFile(path, data)
}

// unmarshalRecord decodes an XML property list. Any parse or type failure
// is a malformed record; the caller decides whether that is fatal.
func unmarshalRecord(data []byte, v any) error {
	if _, err := plist.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	return nil
}

func marshalRecord(v any) ([]byte, error) {
	return plist.MarshalIndent(v, plist.XMLFormat, "\t")
}
