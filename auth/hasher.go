package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/argon2"
)

type (
	// Params controls the cost of the argon2id derivation
	Params struct {
		Memory  uint32
		Passes  uint32
		Lanes   uint8
		SaltLen uint32
		KeyLen  uint32
	}

	// Hasher turns plain text passwords into digests and back
	Hasher struct {
		params Params
		random io.Reader
	}
)

const (
	digestAlgorithm = "argon2id"
	// 1 GiB, anything above that is not a digest we produced
	maxDigestMemory = 1024 * 1024
	maxDigestPasses = 64
)

var (
	// DefaultParams follow the second recommended option from RFC 9106
	// (64 MiB, 3 passes) but with 2 lanes to keep login latency sane
	// on small machines.
	DefaultParams = Params{
		Memory:  64 * 1024,
		Passes:  3,
		Lanes:   2,
		SaltLen: 16,
		KeyLen:  32,
	}

	defaultHasher = NewHasher(DefaultParams)
)

func NewHasher(p Params) *Hasher {
	return &Hasher{params: p, random: rand.Reader}
}

// HashPassword computes a digest using DefaultParams
func HashPassword(plain string) (string, error) {
	return defaultHasher.Hash(plain)
}

// VerifyPassword checks plain against a digest produced by any Hasher
func VerifyPassword(digest, plain string) bool {
	return defaultHasher.Verify(digest, plain)
}

// Hash derives a new digest from plain using a fresh random salt,
// calling it twice with the same input yields different digests.
//
// Empty passwords are accepted, rejecting them is up to the caller.
func (h *Hasher) Hash(plain string) (string, error) {
	salt := make([]byte, h.params.SaltLen)
	if _, err := io.ReadFull(h.random, salt); err != nil {
		return "", fmt.Errorf("auth: unable to read salt, cause %w", err)
	}
	key := argon2.IDKey([]byte(plain), salt, h.params.Passes, h.params.Memory, h.params.Lanes, h.params.KeyLen)
	return encodeDigest(h.params, salt, key), nil
}

// Verify returns true only if plain derives to the same key stored in
// digest. The parameters embedded in the digest take precedence over
// the ones used to build h.
func (h *Hasher) Verify(digest, plain string) bool {
	p, salt, key, ok := decodeDigest(digest)
	if !ok {
		return false
	}
	candidate := argon2.IDKey([]byte(plain), salt, p.Passes, p.Memory, p.Lanes, uint32(len(key)))
	return subtle.ConstantTimeCompare(key, candidate) == 1
}

// encodeDigest uses the PHC string format:
// $argon2id$v=19$m=65536,t=3,p=2$<salt>$<key>
func encodeDigest(p Params, salt, key []byte) string {
	return fmt.Sprintf("$%v$v=%d$m=%d,t=%d,p=%d$%v$%v",
		digestAlgorithm, argon2.Version,
		p.Memory, p.Passes, p.Lanes,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key))
}

func decodeDigest(digest string) (Params, []byte, []byte, bool) {
	var p Params
	parts := strings.Split(digest, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != digestAlgorithm {
		return p, nil, nil, false
	}
	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return p, nil, nil, false
	}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Passes, &p.Lanes); err != nil {
		return p, nil, nil, false
	}
	// argon2.IDKey panics on zero passes or lanes
	if p.Passes == 0 || p.Lanes == 0 || p.Memory == 0 ||
		p.Memory > maxDigestMemory || p.Passes > maxDigestPasses {
		return p, nil, nil, false
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return p, nil, nil, false
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return p, nil, nil, false
	}
	p.SaltLen = uint32(len(salt))
	p.KeyLen = uint32(len(key))
	return p, salt, key, true
}
