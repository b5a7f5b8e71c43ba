// Composite-record decoder for the legacy RTFD container format.
//
// An RTFD content file is the magic "rtfd", a version word the decoder does
// not interpret, then one record. The grammar is consecutive little-endian
// uint32 fields: a tag selects leaf (1) or directory (3). A leaf is a sized
// byte blob, with a sentinel size marking oversized blobs that carry
// alignment padding. A directory is a count, that many length-prefixed
// names, that many sizes, then the encoded sub-records in the same order.
// There are no back-references, so no cycles; depth is bounded only by the
// input.
//
// The input is untrusted. Every read is bounds-checked and a read past the
// end fails with ErrTruncated rather than slicing out of range.
package vpad

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// rtfdMagic marks a composite document. Content files shorter than or
// equal to the magic itself are treated as plain text.
var rtfdMagic = []byte("rtfd")

// textStream is the directory entry holding the primary rich-text body.
const textStream = "TXT.rtf"

// oversized is the leaf-size sentinel: the real size follows a padding
// size, and the padding itself precedes the content.
const oversized = 0x80000000

const (
	tagLeaf      = 1
	tagDirectory = 3
)

// compositeRecord is either a leaf blob or an ordered directory of named
// sub-records.
type compositeRecord struct {
	leaf    []byte
	names   []string // directory entry names, insertion order
	entries map[string]*compositeRecord
}

// reader is a bounds-checked cursor over an untrusted byte stream.
type reader struct {
	data []byte
	off  int
}

func (r *reader) u8() (byte, error) {
	if r.off+1 > len(r.data) {
		return 0, ErrTruncated
	}
	b := r.data[r.off]
	r.off++
	return b, nil
}

func (r *reader) u32() (uint32, error) {
	if r.off+4 > len(r.data) {
		return 0, ErrTruncated
	}
	v := binary.LittleEndian.Uint32(r.data[r.off:])
	r.off += 4
	return v, nil
}

func (r *reader) bytes(n uint32) ([]byte, error) {
	if uint64(r.off)+uint64(n) > uint64(len(r.data)) {
		return nil, ErrTruncated
	}
	b := r.data[r.off : r.off+int(n)]
	r.off += int(n)
	return b, nil
}

// decodeComposite reads one record from r. Directory entry payloads are
// sized as encoded sub-records, so each recurses with a fresh cursor.
func decodeComposite(r *reader) (*compositeRecord, error) {
	tag, err := r.u32()
	if err != nil {
		return nil, err
	}

	switch tag {
	case tagLeaf:
		size, err := r.u32()
		if err != nil {
			return nil, err
		}
		if size == oversized {
			padding, err := r.u32()
			if err != nil {
				return nil, err
			}
			real, err := r.u32()
			if err != nil {
				return nil, err
			}
			if _, err := r.bytes(padding); err != nil {
				return nil, err
			}
			data, err := r.bytes(real)
			if err != nil {
				return nil, err
			}
			return &compositeRecord{leaf: data}, nil
		}
		data, err := r.bytes(size)
		if err != nil {
			return nil, err
		}
		return &compositeRecord{leaf: data}, nil

	case tagDirectory:
		count, err := r.u32()
		if err != nil {
			return nil, err
		}
		// count is attacker-controlled; let the reads fail rather than
		// pre-allocating by it.
		var names []string
		for i := uint32(0); i < count; i++ {
			nameLen, err := r.u32()
			if err != nil {
				return nil, err
			}
			name, err := r.bytes(nameLen)
			if err != nil {
				return nil, err
			}
			names = append(names, string(name))
		}
		var sizes []uint32
		for i := uint32(0); i < count; i++ {
			size, err := r.u32()
			if err != nil {
				return nil, err
			}
			sizes = append(sizes, size)
		}
		rec := &compositeRecord{names: names, entries: make(map[string]*compositeRecord)}
		for i, name := range names {
			raw, err := r.bytes(sizes[i])
			if err != nil {
				return nil, err
			}
			sub, err := decodeComposite(&reader{data: raw})
			if err != nil {
				return nil, err
			}
			rec.entries[name] = sub
		}
		return rec, nil

	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownTag, tag)
	}
}

// isComposite reports whether content bytes are an RTFD container. A file
// of exactly the magic and nothing else is plain text, matching the
// desktop application.
func isComposite(data []byte) bool {
	return len(data) > len(rtfdMagic) && bytes.HasPrefix(data, rtfdMagic)
}

// extractText recovers the primary rich-text stream from a composite
// document. The whole content file is passed in, magic included.
func extractText(data []byte) ([]byte, error) {
	if !bytes.HasPrefix(data, rtfdMagic) {
		return nil, ErrBadMagic
	}
	r := &reader{data: data, off: len(rtfdMagic) + 4} // skip magic and version word
	rec, err := decodeComposite(r)
	if err != nil {
		return nil, err
	}
	sub, ok := rec.entries[textStream]
	if !ok || sub == nil || sub.leaf == nil {
		return nil, ErrNoTextStream
	}
	return sub.leaf, nil
}
