package utils // package utils provides the token codec and password hashing helpers

import (
	"crypto/sha256" // SHA-256 hashing for stored refresh tokens
	"encoding/hex"  // hex encoding of digests
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5" // JWT library for creating and parsing signed tokens
)

var (
	// ErrTokenExpired is returned by Decode when the exp claim is in the past.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenMalformed covers every other decode failure: bad signature,
	// unexpected algorithm, missing exp, garbage input.
	ErrTokenMalformed = errors.New("token malformed")
)

// Claims is the claim set carried by both token kinds.  Refresh is a
// marker: refresh tokens carry `"refresh": 0`, access tokens omit the
// field entirely.  Only its presence matters.
type Claims struct {
	ID      uint64 `json:"id"`
	Refresh *int   `json:"refresh,omitempty"`
	jwt.RegisteredClaims
}

// IsRefresh reports whether the refresh marker is present.
func (c Claims) IsRefresh() bool { return c.Refresh != nil }

// AccessToken represents a signed JWT access token along with its expiry.
type AccessToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// RefreshToken represents a signed long-lived token used to obtain a new
// token pair.  Raw is returned to the client; only HashRefreshRaw(Raw) is
// persisted.
type RefreshToken struct {
	Raw string    // raw token string returned to the client
	Exp time.Time // UTC expiration time
}

// TokenCodec issues and decodes HS256 tokens with a process-wide secret.
// Now is the clock used for both issuance and expiry checks.
type TokenCodec struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	Now        func() time.Time
}

// NewTokenCodec builds a codec.  Non-positive TTLs fall back to one hour
// for access tokens and thirty days for refresh tokens.
func NewTokenCodec(secret string, accessTTL, refreshTTL time.Duration) *TokenCodec {
	if accessTTL <= 0 {
		accessTTL = time.Hour
	}
	if refreshTTL <= 0 {
		refreshTTL = 30 * 24 * time.Hour
	}
	return &TokenCodec{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		Now:        time.Now,
	}
}

// IssueAccess signs `{id, exp}` for userID.
func (c *TokenCodec) IssueAccess(userID uint64) (AccessToken, error) {
	exp := c.Now().UTC().Add(c.accessTTL)
	signed, err := c.sign(Claims{ID: userID}, exp)
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// IssueRefresh signs `{id, refresh: 0, exp}` for userID.
func (c *TokenCodec) IssueRefresh(userID uint64) (RefreshToken, error) {
	exp := c.Now().UTC().Add(c.refreshTTL)
	marker := 0
	signed, err := c.sign(Claims{ID: userID, Refresh: &marker}, exp)
	if err != nil {
		return RefreshToken{}, err
	}
	return RefreshToken{Raw: signed, Exp: exp}, nil
}

func (c *TokenCodec) sign(claims Claims, exp time.Time) (string, error) {
	claims.ExpiresAt = jwt.NewNumericDate(exp)
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(c.secret)
}

// Decode verifies the signature and expiry of raw and returns its claims.
func (c *TokenCodec) Decode(raw string) (Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.Now),
	)
	var claims Claims
	tok, err := parser.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrTokenExpired
		}
		return Claims{}, ErrTokenMalformed
	}
	if !tok.Valid {
		return Claims{}, ErrTokenMalformed
	}
	return claims, nil
}

// HashRefreshRaw returns the SHA-256 hash of the raw refresh token as a hex
// string.  Only the hash is stored in refresh_tokens.
func HashRefreshRaw(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
