// Package vpad reads and writes VoodooPad-style document bundles: a
// directory of page items sharded across sixteen hex-named subdirectories,
// each item a content file paired with an XML property-list metadata
// record. Two files at the bundle root identify the store (storeinfo) and
// carry its settings (properties).
//
// The store loads everything up front: Open parses every metadata record,
// reads each non-alias item's content, and routes legacy RTFD composite
// documents through the embedded container decoder to recover their rich
// text. A single unreadable record degrades to a diagnostic and an omitted
// item; missing required files abort the open.
package vpad

import "errors"

// Sentinel errors for programmatic handling. Callers can use errors.Is to
// distinguish structural failures (ErrNotFound, ErrUnsupportedVersion)
// from per-item conditions (ErrMalformedRecord, ErrTruncated) that the
// store reports but survives.
var (
	ErrExists             = errors.New("store already exists")
	ErrNotFound           = errors.New("not found")
	ErrEncrypted          = errors.New("encrypted stores are not supported")
	ErrUnsupportedVersion = errors.New("unsupported bundle version")
	ErrMalformedRecord    = errors.New("malformed metadata record")
	ErrTruncated          = errors.New("truncated record")
	ErrUnknownTag         = errors.New("unrecognized composite record type")
	ErrBadMagic           = errors.New("not a composite document")
	ErrNoTextStream       = errors.New("composite document has no text stream")
	ErrNotEncrypted       = errors.New("not an encrypted document")
	ErrInvalidPassword    = errors.New("invalid password")
	ErrAuthFailed         = errors.New("hmac verification failed")
)
