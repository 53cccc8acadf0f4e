package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type (
	// Claims carried by every session token.
	//
	// Subject holds the account id in base 10, Admin is the admin flag
	// at the moment the token was issued.
	Claims struct {
		Admin bool `json:"admin"`
		jwt.RegisteredClaims
	}

	// Codec issues and decodes session tokens, the secret is read-only
	// after construction so a single Codec can be shared by all requests.
	Codec struct {
		secret []byte
		ttl    time.Duration
		now    func() time.Time
	}

	CodecOption func(*Codec)
)

const (
	// DefaultTokenTTL is how long a token is accepted after being issued
	DefaultTokenTTL = 24 * time.Hour

	// MinSecretLen is the smallest HS256 key we accept
	MinSecretLen = 32
)

var (
	// ErrInvalidToken is returned for every token that cannot be trusted.
	//
	// Tampered, malformed, expired or signed with another algorithm, the
	// caller cannot tell which one happened.
	ErrInvalidToken = errors.New("auth: token is invalid or expired")

	ErrSecretTooShort = fmt.Errorf("auth: secret must have at least %v bytes", MinSecretLen)
)

// WithTTL changes the validity window of issued tokens
func WithTTL(ttl time.Duration) CodecOption {
	return func(c *Codec) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock replaces time.Now, mostly useful for tests
func WithClock(now func() time.Time) CodecOption {
	return func(c *Codec) {
		if now != nil {
			c.now = now
		}
	}
}

func NewCodec(secret []byte, opts ...CodecOption) (*Codec, error) {
	if len(secret) < MinSecretLen {
		return nil, ErrSecretTooShort
	}
	c := &Codec{
		secret: append([]byte(nil), secret...),
		ttl:    DefaultTokenTTL,
		now:    time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// TTL returns the validity window used when issuing tokens
func (c *Codec) TTL() time.Duration {
	return c.ttl
}

// Issue signs a new token for the given account
func (c *Codec) Issue(accountID int64, admin bool) (string, error) {
	now := c.now()
	claims := Claims{
		Admin: admin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(accountID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
			ID:        uuid.NewString(),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("auth: unable to sign token, cause %w", err)
	}
	return token, nil
}

// Decode validates the token signature and expiration and returns its
// claims unmodified. Any failure is reported as ErrInvalidToken.
func (c *Codec) Decode(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if _, err := claims.AccountID(); err != nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// AccountID parses the subject claim
func (c *Claims) AccountID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("auth: subject %q is not an account id", c.Subject)
	}
	return id, nil
}

// Expiration returns the moment the token stops being valid, the zero
// time is returned if the claim is missing.
func (c *Claims) Expiration() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}
