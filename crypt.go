// Encrypted document container (VDE).
//
// Encrypted stores wrap every file in a vpvde envelope: a fixed 39-byte
// header, an AEAD-sealed payload, and a session block carrying the KDF
// parameters plus the wrapped per-file keys. The key schedule is
// PBKDF2-SHA512 over the password, expanded with HKDF-SHA256 into an
// AES-256-CBC key and an HMAC-SHA256 key; each file is sealed under fresh
// random keys which are themselves sealed under the derived pair.
//
// Store.Open refuses encrypted stores outright; this codec exists as the
// dormant variant behind the codec interface and for the standalone
// DecryptItems recovery path.
package vpad

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/pbkdf2"
)

const (
	vdeMagic      = "vpvde"
	vdeHeaderSize = 39
	vdePlistFile  = "vde.plist"

	// One KDF parameter set for all stores this package creates.
	defaultKDFIterations = 40000
)

var errBadPadding = errors.New("invalid pkcs7 padding")

// deriveKeys runs the password through the two-stage key schedule and
// splits the result into the cipher and MAC keys.
func deriveKeys(password string, pbkdfSalt, hkdfSalt []byte, iterations int) (aesKey, hmacKey []byte, err error) {
	master := pbkdf2.Key([]byte(password), pbkdfSalt, iterations, 64, sha512.New)
	expand := hkdf.New(sha256.New, master, hkdfSalt, []byte("MK-SUBKEY"))
	keys := make([]byte, 64)
	if _, err := io.ReadFull(expand, keys); err != nil {
		return nil, nil, err
	}
	return keys[:32], keys[32:], nil
}

func padPKCS7(data []byte) []byte {
	n := aes.BlockSize - len(data)%aes.BlockSize
	padded := make([]byte, len(data)+n)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(n)
	}
	return padded
}

func unpadPKCS7(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, errBadPadding
	}
	n := int(data[len(data)-1])
	if n < 1 || n > aes.BlockSize || n > len(data) {
		return nil, errBadPadding
	}
	return data[:len(data)-n], nil
}

// aeadSeal encrypts payload under encKey and authenticates with hmacKey.
// Layout: 16-byte IV, 2-byte associated-data length (always zero), the
// ciphertext, then a 32-byte HMAC over IV and ciphertext.
func aeadSeal(encKey, hmacKey, payload []byte) ([]byte, error) {
	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(encKey)
	if err != nil {
		return nil, err
	}
	padded := padPKCS7(payload)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	mac := hmac.New(sha256.New, hmacKey)
	mac.Write(iv)
	mac.Write(ciphertext)

	out := make([]byte, 0, len(iv)+2+len(ciphertext)+sha256.Size)
	out = append(out, iv...)
	out = binary.LittleEndian.AppendUint16(out, 0)
	out = append(out, ciphertext...)
	out = mac.Sum(out)
	return out, nil
}

// aeadOpen verifies and decrypts a sealed payload.
func aeadOpen(encKey, hmacKey, payload []byte) ([]byte, error) {
	if len(payload) < aes.BlockSize+2+sha256.Size {
		return nil, ErrTruncated
	}
	iv := payload[:aes.BlockSize]
	assocLen := binary.LittleEndian.Uint16(payload[aes.BlockSize:])
	if assocLen != 0 {
		return nil, fmt.Errorf("associated data is not supported")
	}
	tag := payload[len(payload)-sha256.Size:]
	ciphertext := payload[aes.BlockSize+2 : len(payload)-sha256.Size]

	mac := hmac.New(sha256.New, hmacKey)
	mac.Write(iv)
	mac.Write(ciphertext)
	if !hmac.Equal(mac.Sum(nil), tag) {
		return nil, ErrAuthFailed
	}

	if len(ciphertext)%aes.BlockSize != 0 {
		return nil, ErrTruncated
	}
	block, err := aes.NewCipher(encKey)
	if err != nil {
		return nil, err
	}
	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)
	return unpadPKCS7(plaintext)
}

// vdeHeader is the fixed envelope prefix locating the payload and session
// regions. All multi-byte fields are little-endian.
type vdeHeader struct {
	compatVersion  byte
	featureVersion byte
	payloadOffset  uint64
	payloadLength  uint64
	vdeOffset      uint64
	vdeLength      uint64
}

func parseVDEHeader(data []byte) (*vdeHeader, error) {
	if !bytes.HasPrefix(data, []byte(vdeMagic)) {
		return nil, ErrNotEncrypted
	}
	if len(data) < vdeHeaderSize {
		return nil, ErrTruncated
	}
	return &vdeHeader{
		compatVersion:  data[5],
		featureVersion: data[6],
		payloadOffset:  binary.LittleEndian.Uint64(data[7:15]),
		payloadLength:  binary.LittleEndian.Uint64(data[15:23]),
		vdeOffset:      binary.LittleEndian.Uint64(data[23:31]),
		vdeLength:      binary.LittleEndian.Uint64(data[31:39]),
	}, nil
}

func (h *vdeHeader) encode() []byte {
	buf := make([]byte, 0, vdeHeaderSize)
	buf = append(buf, vdeMagic...)
	buf = append(buf, h.compatVersion, h.featureVersion)
	buf = binary.LittleEndian.AppendUint64(buf, h.payloadOffset)
	buf = binary.LittleEndian.AppendUint64(buf, h.payloadLength)
	buf = binary.LittleEndian.AppendUint64(buf, h.vdeOffset)
	buf = binary.LittleEndian.AppendUint64(buf, h.vdeLength)
	return buf
}

// vdeSession carries the KDF parameters and the wrapped per-file keys.
type vdeSession struct {
	compatVersion  byte
	featureVersion byte
	iterations     uint32
	pbkdfSalt      []byte
	hkdfSalt       []byte
	dpk            []byte // wrapped payload keys
}

func parseVDESession(data []byte) (*vdeSession, error) {
	r := &reader{data: data}
	s := &vdeSession{}
	var err error
	if s.compatVersion, err = r.u8(); err != nil {
		return nil, err
	}
	if s.featureVersion, err = r.u8(); err != nil {
		return nil, err
	}
	if s.iterations, err = r.u32(); err != nil {
		return nil, err
	}
	for _, field := range []*[]byte{&s.pbkdfSalt, &s.hkdfSalt, &s.dpk} {
		n, err := r.u32()
		if err != nil {
			return nil, err
		}
		if *field, err = r.bytes(n); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *vdeSession) encode() []byte {
	var buf []byte
	buf = append(buf, s.compatVersion, s.featureVersion)
	buf = binary.LittleEndian.AppendUint32(buf, s.iterations)
	for _, field := range [][]byte{s.pbkdfSalt, s.hkdfSalt, s.dpk} {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(field)))
		buf = append(buf, field...)
	}
	return buf
}

// vdeKDF mirrors the kdf dictionary inside vde.plist.
type vdeKDF struct {
	HKDFSalt         []byte `plist:"hkdf_salt"`
	PBKDF2Salt       []byte `plist:"pbkdf2_salt"`
	PBKDF2Iterations int    `plist:"pbkdf2_iterations"`
}

type vdeInfo struct {
	CompatVersion  int    `plist:"compat_version"`
	FeatureVersion int    `plist:"feature_version"`
	KDF            vdeKDF `plist:"kdf"`
}

// EncryptionContext holds the keys derived from a store password.
type EncryptionContext struct {
	aesKey     []byte
	hmacKey    []byte
	pbkdfSalt  []byte
	hkdfSalt   []byte
	iterations int
}

// NewEncryptionContext derives a fresh context with random salts. Use
// WriteKDF to persist the parameters so the store can be reopened.
func NewEncryptionContext(password string) (*EncryptionContext, error) {
	pbkdfSalt := make([]byte, 32)
	hkdfSalt := make([]byte, 32)
	if _, err := rand.Read(pbkdfSalt); err != nil {
		return nil, err
	}
	if _, err := rand.Read(hkdfSalt); err != nil {
		return nil, err
	}

	aesKey, hmacKey, err := deriveKeys(password, pbkdfSalt, hkdfSalt, defaultKDFIterations)
	if err != nil {
		return nil, err
	}
	return &EncryptionContext{
		aesKey:     aesKey,
		hmacKey:    hmacKey,
		pbkdfSalt:  pbkdfSalt,
		hkdfSalt:   hkdfSalt,
		iterations: defaultKDFIterations,
	}, nil
}

// LoadEncryptionContext reads vde.plist from a store and derives the keys
// from the password. A store without vde.plist is not encrypted.
func LoadEncryptionContext(storePath, password string) (*EncryptionContext, error) {
	data, err := os.ReadFile(filepath.Join(storePath, vdePlistFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotEncrypted, storePath)
		}
		return nil, err
	}
	var info vdeInfo
	if err := unmarshalRecord(data, &info); err != nil {
		return nil, err
	}

	aesKey, hmacKey, err := deriveKeys(password, info.KDF.PBKDF2Salt, info.KDF.HKDFSalt, info.KDF.PBKDF2Iterations)
	if err != nil {
		return nil, err
	}
	return &EncryptionContext{
		aesKey:     aesKey,
		hmacKey:    hmacKey,
		pbkdfSalt:  info.KDF.PBKDF2Salt,
		hkdfSalt:   info.KDF.HKDFSalt,
		iterations: info.KDF.PBKDF2Iterations,
	}, nil
}

// WriteKDF persists the KDF parameters as vde.plist inside the store.
func (ctx *EncryptionContext) WriteKDF(storePath string) error {
	info := vdeInfo{
		CompatVersion:  1,
		FeatureVersion: 1,
		KDF: vdeKDF{
			HKDFSalt:         ctx.hkdfSalt,
			PBKDF2Salt:       ctx.pbkdfSalt,
			PBKDF2Iterations: ctx.iterations,
		},
	}
	data, err := marshalRecord(&info)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(storePath, vdePlistFile), data, 0o644)
}

// Encrypt seals payload into a vpvde envelope under fresh random keys.
func (ctx *EncryptionContext) Encrypt(payload []byte) ([]byte, error) {
	fileKeys := make([]byte, 64)
	if _, err := rand.Read(fileKeys); err != nil {
		return nil, err
	}

	sealed, err := aeadSeal(fileKeys[:32], fileKeys[32:], payload)
	if err != nil {
		return nil, err
	}
	wrapped, err := aeadSeal(ctx.aesKey, ctx.hmacKey, fileKeys)
	if err != nil {
		return nil, err
	}

	session := &vdeSession{
		compatVersion:  1,
		featureVersion: 1,
		iterations:     uint32(ctx.iterations),
		pbkdfSalt:      ctx.pbkdfSalt,
		hkdfSalt:       ctx.hkdfSalt,
		dpk:            wrapped,
	}
	sessionBytes := session.encode()

	header := &vdeHeader{
		compatVersion:  1,
		featureVersion: 1,
		payloadOffset:  vdeHeaderSize,
		payloadLength:  uint64(len(sealed)),
		vdeOffset:      vdeHeaderSize + uint64(len(sealed)),
		vdeLength:      uint64(len(sessionBytes)),
	}

	out := header.encode()
	out = append(out, sealed...)
	out = append(out, sessionBytes...)
	return out, nil
}

// Decrypt unseals a vpvde envelope. A wrong password surfaces as
// ErrInvalidPassword when the wrapped keys fail to authenticate.
func (ctx *EncryptionContext) Decrypt(data []byte) ([]byte, error) {
	header, err := parseVDEHeader(data)
	if err != nil {
		return nil, err
	}
	size := uint64(len(data))
	if header.payloadOffset > size || header.payloadLength > size-header.payloadOffset ||
		header.vdeOffset > size || header.vdeLength > size-header.vdeOffset {
		return nil, ErrTruncated
	}
	payload := data[header.payloadOffset : header.payloadOffset+header.payloadLength]

	session, err := parseVDESession(data[header.vdeOffset : header.vdeOffset+header.vdeLength])
	if err != nil {
		return nil, err
	}

	fileKeys, err := aeadOpen(ctx.aesKey, ctx.hmacKey, session.dpk)
	if err != nil {
		if errors.Is(err, ErrAuthFailed) {
			return nil, ErrInvalidPassword
		}
		return nil, err
	}
	if len(fileKeys) != 64 {
		return nil, ErrInvalidPassword
	}
	return aeadOpen(fileKeys[:32], fileKeys[32:], payload)
}

// encryptedCodec is the dormant codec variant for encrypted stores.
type encryptedCodec struct {
	ctx *EncryptionContext
}

func (c encryptedCodec) loadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return c.ctx.Decrypt(data)
}

func (c encryptedCodec) saveFile(path string, data []byte) error {
	sealed, err := c.ctx.Encrypt(data)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, sealed, 0o644)
}

func (c encryptedCodec) loadRecord(path string, v any) error {
	data, err := c.loadFile(path)
	if err != nil {
		return err
	}
	return unmarshalRecord(data, v)
}

func (c encryptedCodec) saveRecord(path string, v any) error {
	data, err := marshalRecord(v)
	if err != nil {
		return err
	}
	return c.saveFile(path, data)
}

// DecryptedItem is one page recovered from an encrypted store.
type DecryptedItem struct {
	UUID    string
	Record  *Item
	Content []byte // nil for aliases
}

// DecryptItems enumerates an encrypted store and unseals every item
// record and content file. This is the standalone recovery path; Open
// refuses encrypted stores, so this is the only way to read one.
func DecryptItems(path, password string) ([]DecryptedItem, error) {
	ctx, err := LoadEncryptionContext(path, password)
	if err != nil {
		return nil, err
	}
	c := encryptedCodec{ctx: ctx}

	paths, err := recordPaths(filepath.Join(path, pagesDir))
	if err != nil {
		return nil, err
	}

	var items []DecryptedItem
	for _, p := range paths {
		id := strings.TrimSuffix(filepath.Base(p), recordExt)
		if id == "" {
			continue
		}
		var it Item
		if err := c.loadRecord(p, &it); err != nil {
			return nil, err
		}

		item := DecryptedItem{UUID: id, Record: &it}
		if !it.Alias() {
			content, err := c.loadFile(strings.TrimSuffix(p, recordExt))
			if err != nil {
				return nil, err
			}
			item.Content = content
		}
		items = append(items, item)
	}
	return items, nil
}
