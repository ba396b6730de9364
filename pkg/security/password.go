package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode"

	"github.com/angelmondragon/thriftlane-backend/pkg/config"
	"golang.org/x/crypto/argon2"
)

// MinPasswordLength is the shortest password accepted at registration.
const MinPasswordLength = 8

var (
	ErrInvalidHash   = errors.New("invalid argon2id hash")
	ErrEmptyPassword = errors.New("password cannot be empty")
	ErrWeakPassword  = fmt.Errorf("password must be at least %d characters and mix letters and digits", MinPasswordLength)
)

var b64 = base64.RawStdEncoding

// argonHash is one stored credential in PHC string form:
// $argon2id$v=19$m=<kb>,t=<passes>,p=<lanes>$<salt>$<key>
type argonHash struct {
	memory uint32
	passes uint32
	lanes  uint8
	salt   []byte
	key    []byte
}

func (h argonHash) String() string {
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, h.memory, h.passes, h.lanes, b64.EncodeToString(h.salt), b64.EncodeToString(h.key))
}

func (h argonHash) derive(password string) []byte {
	return argon2.IDKey([]byte(password), h.salt, h.passes, h.memory, h.lanes, uint32(len(h.key)))
}

func parseArgonHash(encoded string) (argonHash, error) {
	fields := strings.Split(encoded, "$")
	if len(fields) != 6 || fields[0] != "" || fields[1] != "argon2id" {
		return argonHash{}, ErrInvalidHash
	}
	var version int
	if _, err := fmt.Sscanf(fields[2], "v=%d", &version); err != nil || version != argon2.Version {
		return argonHash{}, ErrInvalidHash
	}

	var h argonHash
	if _, err := fmt.Sscanf(fields[3], "m=%d,t=%d,p=%d", &h.memory, &h.passes, &h.lanes); err != nil {
		return argonHash{}, ErrInvalidHash
	}
	if h.passes == 0 || h.lanes == 0 {
		return argonHash{}, ErrInvalidHash
	}
	var err error
	if h.salt, err = b64.DecodeString(fields[4]); err != nil {
		return argonHash{}, ErrInvalidHash
	}
	if h.key, err = b64.DecodeString(fields[5]); err != nil || len(h.key) == 0 {
		return argonHash{}, ErrInvalidHash
	}
	return h, nil
}

// HashPassword derives a fresh Argon2id credential using the configured cost,
// clamped to sane bounds.
func HashPassword(password string, cfg config.PasswordConfig) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	h := argonHash{
		memory: uint32(bounded(cfg.ArgonMemoryKB, 8, 512*1024)),
		passes: uint32(bounded(cfg.ArgonTime, 1, 10)),
		lanes:  uint8(bounded(cfg.ArgonParallelism, 1, 255)),
		salt:   make([]byte, bounded(cfg.ArgonSaltLen, 8, 64)),
	}
	if _, err := rand.Read(h.salt); err != nil {
		return "", fmt.Errorf("read salt: %w", err)
	}
	h.key = make([]byte, bounded(cfg.ArgonKeyLen, 16, 64))
	h.key = h.derive(password)
	return h.String(), nil
}

// VerifyPassword reports whether password matches the stored credential.
// A malformed credential is an error, a mismatch is not.
func VerifyPassword(password, encoded string) (bool, error) {
	h, err := parseArgonHash(encoded)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare(h.key, h.derive(password)) == 1, nil
}

func bounded(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

// CheckPasswordPolicy enforces the registration password rules.
func CheckPasswordPolicy(password string) error {
	if len([]rune(password)) < MinPasswordLength {
		return ErrWeakPassword
	}
	hasLetter := strings.IndexFunc(password, unicode.IsLetter) >= 0
	hasDigit := strings.IndexFunc(password, unicode.IsDigit) >= 0
	if !hasLetter || !hasDigit {
		return ErrWeakPassword
	}
	return nil
}

var (
	decoyOnce sync.Once
	decoyHash string
)

// BurnVerify spends the same work as VerifyPassword so unknown accounts and
// wrong passwords take comparable time.
func BurnVerify(password string, cfg config.PasswordConfig) {
	decoyOnce.Do(func() {
		decoyHash, _ = HashPassword("thriftlane-decoy-password-1", cfg)
	})
	if decoyHash != "" {
		_, _ = VerifyPassword(password, decoyHash)
	}
}
