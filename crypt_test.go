package vpad

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func TestPKCS7RoundTrip(t *testing.T) {
	for _, n := range []int{0, 1, 15, 16, 17, 100} {
		data := bytes.Repeat([]byte{0xab}, n)
		padded := padPKCS7(data)
		if len(padded)%16 != 0 {
			t.Errorf("len %d: padded length %d not a block multiple", n, len(padded))
		}
		out, err := unpadPKCS7(padded)
		if err != nil {
			t.Fatalf("len %d: unpad: %v", n, err)
		}
		if !bytes.Equal(out, data) {
			t.Errorf("len %d: round trip mismatch", n)
		}
	}
}

func TestAEADRoundTrip(t *testing.T) {
	encKey := bytes.Repeat([]byte{1}, 32)
	macKey := bytes.Repeat([]byte{2}, 32)

	sealed, err := aeadSeal(encKey, macKey, []byte("secret payload"))
	if err != nil {
		t.Fatalf("aeadSeal: %v", err)
	}
	out, err := aeadOpen(encKey, macKey, sealed)
	if err != nil {
		t.Fatalf("aeadOpen: %v", err)
	}
	if string(out) != "secret payload" {
		t.Errorf("payload = %q, want %q", out, "secret payload")
	}
}

func TestAEADTamper(t *testing.T) {
	encKey := bytes.Repeat([]byte{1}, 32)
	macKey := bytes.Repeat([]byte{2}, 32)

	sealed, err := aeadSeal(encKey, macKey, []byte("secret payload"))
	if err != nil {
		t.Fatalf("aeadSeal: %v", err)
	}
	sealed[20] ^= 0xff
	if _, err := aeadOpen(encKey, macKey, sealed); !errors.Is(err, ErrAuthFailed) {
		t.Errorf("got %v, want ErrAuthFailed", err)
	}
}

func TestVDEHeaderRoundTrip(t *testing.T) {
	h := &vdeHeader{
		compatVersion:  1,
		featureVersion: 1,
		payloadOffset:  vdeHeaderSize,
		payloadLength:  1234,
		vdeOffset:      vdeHeaderSize + 1234,
		vdeLength:      99,
	}
	encoded := h.encode()
	if len(encoded) != vdeHeaderSize {
		t.Fatalf("len(encode) = %d, want %d", len(encoded), vdeHeaderSize)
	}
	parsed, err := parseVDEHeader(encoded)
	if err != nil {
		t.Fatalf("parseVDEHeader: %v", err)
	}
	if *parsed != *h {
		t.Errorf("parsed = %+v, want %+v", parsed, h)
	}
}

func TestVDEHeaderNotEncrypted(t *testing.T) {
	if _, err := parseVDEHeader([]byte("plain text file")); !errors.Is(err, ErrNotEncrypted) {
		t.Errorf("got %v, want ErrNotEncrypted", err)
	}
}

func TestVDESessionRoundTrip(t *testing.T) {
	s := &vdeSession{
		compatVersion:  1,
		featureVersion: 1,
		iterations:     40000,
		pbkdfSalt:      bytes.Repeat([]byte{3}, 32),
		hkdfSalt:       bytes.Repeat([]byte{4}, 32),
		dpk:            bytes.Repeat([]byte{5}, 114),
	}
	parsed, err := parseVDESession(s.encode())
	if err != nil {
		t.Fatalf("parseVDESession: %v", err)
	}
	if parsed.iterations != s.iterations ||
		!bytes.Equal(parsed.pbkdfSalt, s.pbkdfSalt) ||
		!bytes.Equal(parsed.hkdfSalt, s.hkdfSalt) ||
		!bytes.Equal(parsed.dpk, s.dpk) {
		t.Errorf("parsed = %+v, want %+v", parsed, s)
	}
}

func TestVDESessionTruncated(t *testing.T) {
	s := &vdeSession{iterations: 1, pbkdfSalt: []byte{1}, hkdfSalt: []byte{2}, dpk: []byte{3}}
	encoded := s.encode()
	if _, err := parseVDESession(encoded[:len(encoded)-2]); !errors.Is(err, ErrTruncated) {
		t.Errorf("got %v, want ErrTruncated", err)
	}
}

func TestEncryptDecrypt(t *testing.T) {
	ctx, err := NewEncryptionContext("hunter2")
	if err != nil {
		t.Fatalf("NewEncryptionContext: %v", err)
	}

	sealed, err := ctx.Encrypt([]byte("page content"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if !bytes.HasPrefix(sealed, []byte(vdeMagic)) {
		t.Errorf("envelope missing magic")
	}

	out, err := ctx.Decrypt(sealed)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if string(out) != "page content" {
		t.Errorf("payload = %q, want %q", out, "page content")
	}
}

// encryptedTestStore writes a minimal encrypted bundle: vde.plist plus one
// sealed item record and content file.
func encryptedTestStore(t *testing.T, password string) (path, itemID string) {
	t.Helper()
	path = filepath.Join(t.TempDir(), "enc.vpdoc")
	if err := os.MkdirAll(filepath.Join(path, pagesDir), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}

	ctx, err := NewEncryptionContext(password)
	if err != nil {
		t.Fatalf("NewEncryptionContext: %v", err)
	}
	if err := ctx.WriteKDF(path); err != nil {
		t.Fatalf("WriteKDF: %v", err)
	}

	c := encryptedCodec{ctx: ctx}
	s := &Store{path: path, codec: c}

	itemID = "ab12ab12-0000-4000-8000-000000000000"
	item := &Item{
		UUID:        itemID,
		Key:         "secret",
		DisplayName: "Secret",
		UTI:         UTIPlainText,
		DataHash:    hashText("hidden text"),
	}
	if err := c.saveRecord(s.recordPath(itemID), item); err != nil {
		t.Fatalf("saveRecord: %v", err)
	}
	if err := c.saveFile(s.itemPath(itemID), []byte("hidden text")); err != nil {
		t.Fatalf("saveFile: %v", err)
	}
	return path, itemID
}

func TestDecryptItems(t *testing.T) {
	path, itemID := encryptedTestStore(t, "hunter2")

	items, err := DecryptItems(path, "hunter2")
	if err != nil {
		t.Fatalf("DecryptItems: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("len(items) = %d, want 1", len(items))
	}
	if items[0].UUID != itemID {
		t.Errorf("UUID = %q, want %q", items[0].UUID, itemID)
	}
	if items[0].Record.DisplayName != "Secret" {
		t.Errorf("DisplayName = %q, want %q", items[0].Record.DisplayName, "Secret")
	}
	if string(items[0].Content) != "hidden text" {
		t.Errorf("Content = %q, want %q", items[0].Content, "hidden text")
	}
}

func TestDecryptItemsWrongPassword(t *testing.T) {
	path, _ := encryptedTestStore(t, "hunter2")

	if _, err := DecryptItems(path, "wrong"); !errors.Is(err, ErrInvalidPassword) {
		t.Errorf("got %v, want ErrInvalidPassword", err)
	}
}

func TestLoadEncryptionContextNotEncrypted(t *testing.T) {
	s := createTestStore(t)
	if _, err := LoadEncryptionContext(s.Path(), "pw"); !errors.Is(err, ErrNotEncrypted) {
		t.Errorf("got %v, want ErrNotEncrypted", err)
	}
}

func TestKeyDerivationIsDeterministic(t *testing.T) {
	salt := bytes.Repeat([]byte{9}, 32)
	a1, m1, err := deriveKeys("pw", salt, salt, 1000)
	if err != nil {
		t.Fatalf("deriveKeys: %v", err)
	}
	a2, m2, err := deriveKeys("pw", salt, salt, 1000)
	if err != nil {
		t.Fatalf("deriveKeys: %v", err)
	}
	if fmt.Sprintf("%x%x", a1, m1) != fmt.Sprintf("%x%x", a2, m2) {
		t.Errorf("same inputs produced different keys")
	}
	b1, _, err := deriveKeys("other", salt, salt, 1000)
	if err != nil {
		t.Fatalf("deriveKeys: %v", err)
	}
	if bytes.Equal(a1, b1) {
		t.Errorf("different passwords produced the same key")
	}
}
