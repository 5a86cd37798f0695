package utils // package utils provides helper functions for token creation and hashing

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iliyamo/tenant-auth-service/internal/model"
)

// ErrTokenInvalid is returned for every token that fails verification:
// bad signature, wrong algorithm, expired, or missing required claims.
var ErrTokenInvalid = errors.New("invalid token")

// ErrMissingSigningKey is returned by NewTokenIssuer when a key is empty.
var ErrMissingSigningKey = errors.New("missing signing key")

// Claims is the payload of both token kinds. Access tokens carry Tenant
// when the user belongs to one; refresh tokens carry RecordID, the primary
// key of the backing refresh_tokens row.
type Claims struct {
	Role     model.Role `json:"role"`
	Tenant   string     `json:"tenant,omitempty"`
	RecordID uint64     `json:"id,omitempty"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies access and refresh tokens. Both kinds are
// HS256 but use distinct keys, so a refresh token can never pass as an
// access token and vice versa.
type TokenIssuer struct {
	accessKey  []byte
	refreshKey []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenIssuer validates key material once at startup.
func NewTokenIssuer(accessKey, refreshKey string, accessTTL, refreshTTL time.Duration) (*TokenIssuer, error) {
	if accessKey == "" {
		return nil, fmt.Errorf("access token: %w", ErrMissingSigningKey)
	}
	if refreshKey == "" {
		return nil, fmt.Errorf("refresh token: %w", ErrMissingSigningKey)
	}
	return &TokenIssuer{
		accessKey:  []byte(accessKey),
		refreshKey: []byte(refreshKey),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        func() time.Time { return time.Now().UTC() },
	}, nil
}

// AccessTTL is the lifetime of issued access tokens.
func (t *TokenIssuer) AccessTTL() time.Duration { return t.accessTTL }

// RefreshTTL is the lifetime of issued refresh tokens.
func (t *TokenIssuer) RefreshTTL() time.Duration { return t.refreshTTL }

// IssueAccess builds and signs an access token for sub.
func (t *TokenIssuer) IssueAccess(sub string, role model.Role, tenant string) (string, error) {
	return t.sign(t.accessKey, t.accessTTL, Claims{Role: role, Tenant: tenant}, sub)
}

// IssueRefresh builds and signs a refresh token that points at the
// refresh_tokens row recordID.
func (t *TokenIssuer) IssueRefresh(sub string, role model.Role, recordID uint64) (string, error) {
	return t.sign(t.refreshKey, t.refreshTTL, Claims{Role: role, RecordID: recordID}, sub)
}

func (t *TokenIssuer) sign(key []byte, ttl time.Duration, claims Claims, sub string) (string, error) {
	now := t.now()
	claims.Subject = sub
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
}

// ParseAccess verifies an access token and returns its claims.
func (t *TokenIssuer) ParseAccess(raw string) (*Claims, error) {
	return t.parse(raw, t.accessKey)
}

// ParseRefresh verifies a refresh token and returns its claims. It does not
// consult storage; callers that need revocation checks must look the
// record up themselves.
func (t *TokenIssuer) ParseRefresh(raw string) (*Claims, error) {
	claims, err := t.parse(raw, t.refreshKey)
	if err != nil {
		return nil, err
	}
	if claims.RecordID == 0 {
		return nil, fmt.Errorf("%w: missing record id", ErrTokenInvalid)
	}
	return claims, nil
}

func (t *TokenIssuer) parse(raw string, key []byte) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (any, error) { return key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrTokenInvalid)
	}
	if !claims.Role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrTokenInvalid, claims.Role)
	}
	return claims, nil
}
