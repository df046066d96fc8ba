package services

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// PasswordScheme names a password hashing algorithm. The scheme is the tag
// stored at the start of every hash.
type PasswordScheme string

const (
	// SchemeArgon2id stores PHC strings: $argon2id$v=19$m=..,t=..,p=..$salt$key
	SchemeArgon2id PasswordScheme = "argon2id"
	// SchemeBcrypt stores $2a$/$2b$ strings
	SchemeBcrypt PasswordScheme = "bcrypt"
)

const (
	alphanumericChars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	punctuationChars  = "!@#&*(),.{}[];:"

	argon2SaltLength = 16

	// bcrypt only reads the first 72 bytes of a password
	bcryptMaxPasswordLength = 72
)

// Argon2Params controls the cost of argon2id hashing
type Argon2Params struct {
	Memory      uint32 // KiB
	Iterations  uint32
	Parallelism uint8
	KeyLength   uint32
}

// DefaultArgon2Params are the parameters used when none are configured
var DefaultArgon2Params = Argon2Params{
	Memory:      64 * 1024,
	Iterations:  1,
	Parallelism: 4,
	KeyLength:   32,
}

// HasherConfig selects the scheme used for new hashes
type HasherConfig struct {
	Scheme     PasswordScheme
	Argon2     Argon2Params
	BcryptCost int
}

// PasswordHasher produces salted password hashes and verifies stored ones.
// New hashes always use the configured scheme; verification accepts every
// supported scheme so stored hashes survive a scheme change.
type PasswordHasher struct {
	scheme     PasswordScheme
	argon      Argon2Params
	bcryptCost int

	decoyOnce sync.Once
	decoy     string
}

// NewPasswordHasher creates a hasher for the configured scheme
func NewPasswordHasher(cfg HasherConfig) (*PasswordHasher, error) {
	if cfg.Scheme == "" {
		cfg.Scheme = SchemeArgon2id
	}
	if cfg.Argon2 == (Argon2Params{}) {
		cfg.Argon2 = DefaultArgon2Params
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}

	switch cfg.Scheme {
	case SchemeArgon2id:
		if cfg.Argon2.Iterations == 0 || cfg.Argon2.Parallelism == 0 || cfg.Argon2.KeyLength == 0 {
			return nil, fmt.Errorf("invalid argon2id parameters: %+v", cfg.Argon2)
		}
	case SchemeBcrypt:
		if cfg.BcryptCost < bcrypt.MinCost || cfg.BcryptCost > bcrypt.MaxCost {
			return nil, fmt.Errorf("bcrypt cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownScheme, cfg.Scheme)
	}

	return &PasswordHasher{
		scheme:     cfg.Scheme,
		argon:      cfg.Argon2,
		bcryptCost: cfg.BcryptCost,
	}, nil
}

// Scheme returns the scheme used for new hashes
func (h *PasswordHasher) Scheme() PasswordScheme {
	return h.scheme
}

// Hash hashes password. With an empty salt a fresh random salt is generated.
// A non-empty salt is either a bare salt or a previously computed argon2id
// hash; in the latter case its salt and parameters are reused, so hashing
// the right password with a stored hash as salt reproduces the stored hash.
//
// An empty password yields an empty hash and ErrEmptyPassword.
func (h *PasswordHasher) Hash(password, salt string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	if salt == "" {
		return h.hashFresh(password)
	}

	switch schemeOf(salt) {
	case SchemeArgon2id:
		p, saltBytes, key, err := decodeArgon2(salt)
		if err != nil {
			return "", err
		}
		if len(key) > 0 {
			p.KeyLength = uint32(len(key))
		}
		return encodeArgon2(password, saltBytes, p), nil
	case SchemeBcrypt:
		return "", ErrSaltUnsupported
	}

	if strings.HasPrefix(salt, "$") {
		return "", fmt.Errorf("%w: unrecognized tag", ErrMalformedHash)
	}
	// bare salt, hashed with the configured argon2id parameters
	return encodeArgon2(password, []byte(salt), h.argon), nil
}

// Verify reports whether password matches the stored hash
func (h *PasswordHasher) Verify(password, stored string) bool {
	if password == "" || stored == "" {
		return false
	}

	switch schemeOf(stored) {
	case SchemeArgon2id:
		computed, err := h.Hash(password, stored)
		if err != nil {
			return false
		}
		return subtle.ConstantTimeCompare([]byte(computed), []byte(stored)) == 1
	case SchemeBcrypt:
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) == nil
	}
	return false
}

// VerifyDecoy spends the same work as Verify against a hash that no password
// matches. Lookups for unknown usernames call it so response time does not
// reveal which accounts exist.
func (h *PasswordHasher) VerifyDecoy(password string) {
	h.decoyOnce.Do(func() {
		phrase, err := MakePhrase(24, false)
		if err != nil {
			return
		}
		h.decoy, _ = h.hashFresh(phrase)
	})
	if h.decoy == "" {
		return
	}
	_ = h.Verify(password, h.decoy)
}

// NeedsRehash reports whether stored was produced by another scheme or
// with parameters other than the configured ones
func (h *PasswordHasher) NeedsRehash(stored string) bool {
	scheme := schemeOf(stored)
	if scheme != h.scheme {
		return true
	}

	switch scheme {
	case SchemeArgon2id:
		p, _, key, err := decodeArgon2(stored)
		if err != nil {
			return true
		}
		p.KeyLength = uint32(len(key))
		return p != h.argon
	case SchemeBcrypt:
		cost, err := bcrypt.Cost([]byte(stored))
		return err != nil || cost != h.bcryptCost
	}
	return true
}

func (h *PasswordHasher) hashFresh(password string) (string, error) {
	switch h.scheme {
	case SchemeBcrypt:
		if len(password) > bcryptMaxPasswordLength {
			return "", ErrPasswordTooLong
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(password), h.bcryptCost)
		if err != nil {
			return "", fmt.Errorf("failed to hash password: %w", err)
		}
		return string(hash), nil
	default:
		salt, err := MakePhrase(argon2SaltLength, false)
		if err != nil {
			return "", fmt.Errorf("failed to generate salt: %w", err)
		}
		return encodeArgon2(password, []byte(salt), h.argon), nil
	}
}

// MakePhrase returns a random phrase of length characters. Each character is
// chosen independently and uniformly from digits and letters, plus
// punctuation when alphanumeric is false.
func MakePhrase(length int, alphanumeric bool) (string, error) {
	charset := alphanumericChars
	if !alphanumeric {
		charset += punctuationChars
	}

	limit := big.NewInt(int64(len(charset)))
	phrase := make([]byte, length)
	for i := range phrase {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		phrase[i] = charset[n.Int64()]
	}
	return string(phrase), nil
}

func schemeOf(hash string) PasswordScheme {
	switch {
	case strings.HasPrefix(hash, "$argon2id$"):
		return SchemeArgon2id
	case strings.HasPrefix(hash, "$2a$"), strings.HasPrefix(hash, "$2b$"), strings.HasPrefix(hash, "$2y$"):
		return SchemeBcrypt
	}
	return ""
}

func encodeArgon2(password string, salt []byte, p Argon2Params) string {
	key := argon2.IDKey([]byte(password), salt, p.Iterations, p.Memory, p.Parallelism, p.KeyLength)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.Memory, p.Iterations, p.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	)
}

// decodeArgon2 parses "$argon2id$v=19$m=..,t=..,p=..$salt[$key]"
func decodeArgon2(s string) (Argon2Params, []byte, []byte, error) {
	var p Argon2Params

	parts := strings.Split(s, "$")
	if len(parts) != 5 && len(parts) != 6 {
		return p, nil, nil, fmt.Errorf("%w: expected 4 or 5 fields", ErrMalformedHash)
	}

	if parts[2] != "v="+strconv.Itoa(argon2.Version) {
		return p, nil, nil, fmt.Errorf("%w: unsupported version %q", ErrMalformedHash, parts[2])
	}

	var parallelism uint64
	for _, kv := range strings.Split(parts[3], ",") {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return p, nil, nil, fmt.Errorf("%w: bad parameter %q", ErrMalformedHash, kv)
		}
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return p, nil, nil, fmt.Errorf("%w: bad parameter %q", ErrMalformedHash, kv)
		}
		switch k {
		case "m":
			p.Memory = uint32(n)
		case "t":
			p.Iterations = uint32(n)
		case "p":
			parallelism = n
		default:
			return p, nil, nil, fmt.Errorf("%w: unknown parameter %q", ErrMalformedHash, k)
		}
	}
	if p.Memory == 0 || p.Iterations == 0 || parallelism == 0 || parallelism > 255 {
		return p, nil, nil, fmt.Errorf("%w: missing or invalid parameters", ErrMalformedHash)
	}
	p.Parallelism = uint8(parallelism)

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return p, nil, nil, fmt.Errorf("%w: bad salt", ErrMalformedHash)
	}

	var key []byte
	if len(parts) == 6 {
		key, err = base64.RawStdEncoding.DecodeString(parts[5])
		if err != nil || len(key) == 0 {
			return p, nil, nil, fmt.Errorf("%w: bad key", ErrMalformedHash)
		}
	}
	p.KeyLength = DefaultArgon2Params.KeyLength

	return p, salt, key, nil
}
