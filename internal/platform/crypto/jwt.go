package crypto

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"catalogservice/internal/platform/identity"

	"github.com/golang-jwt/jwt/v5"
)

// ErrMissingIdentity is returned for tokens that carry neither a username nor a subject.
var ErrMissingIdentity = errors.New("token carries no identity")

type RealmAccess struct {
	Roles []string `json:"roles,omitempty"`
}

// Claims follows the access tokens issued by the identity provider. Roles may come
// either as a top-level claim or nested under realm_access.
type Claims struct {
	PreferredUsername string       `json:"preferred_username,omitempty"`
	Roles             []string     `json:"roles,omitempty"`
	RealmAccess       *RealmAccess `json:"realm_access,omitempty"`
	jwt.RegisteredClaims
}

// Caller converts verified claims into the request identity.
func (c *Claims) Caller() (identity.Caller, error) {
	name := strings.TrimSpace(c.PreferredUsername)
	if name == "" {
		name = strings.TrimSpace(c.Subject)
	}
	if name == "" {
		return identity.Caller{}, ErrMissingIdentity
	}

	roles := append([]string{}, c.Roles...)
	if c.RealmAccess != nil {
		for _, role := range c.RealmAccess.Roles {
			if !contains(roles, role) {
				roles = append(roles, role)
			}
		}
	}
	return identity.Caller{Name: name, Roles: roles}, nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

// Verifier checks bearer tokens against the issuer's signing material.
type Verifier struct {
	issuer  string
	key     any
	methods []string
}

// NewHMACVerifier verifies HS256 tokens signed with a shared secret.
func NewHMACVerifier(issuer, secret string) (*Verifier, error) {
	if secret == "" {
		return nil, errors.New("hmac secret is empty")
	}
	return &Verifier{
		issuer:  issuer,
		key:     []byte(secret),
		methods: []string{jwt.SigningMethodHS256.Alg()},
	}, nil
}

// NewRSAVerifier verifies RS256 tokens with the issuer's PEM encoded public key.
func NewRSAVerifier(issuer string, publicKeyPEM []byte) (*Verifier, error) {
	key, err := jwt.ParseRSAPublicKeyFromPEM(publicKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("parse issuer public key: %w", err)
	}
	return &Verifier{
		issuer:  issuer,
		key:     key,
		methods: []string{jwt.SigningMethodRS256.Alg()},
	}, nil
}

// Verify parses tokenStr and returns the caller it identifies.
func (v *Verifier) Verify(tokenStr string) (identity.Caller, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods(v.methods),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(30 * time.Second),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	t, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		return v.key, nil
	}, opts...)
	if err != nil {
		return identity.Caller{}, err
	}
	claims, ok := t.Claims.(*Claims)
	if !ok || !t.Valid {
		return identity.Caller{}, jwt.ErrTokenInvalidClaims
	}
	return claims.Caller()
}

func generateJTI() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// GenerateToken issues an HS256 access token. It exists for tests and local tooling;
// production tokens come from the identity provider.
func GenerateToken(secret, issuer, username string, roles []string, ttl time.Duration) (string, string, error) {
	jti, err := generateJTI()
	if err != nil {
		return "", "", err
	}

	c := Claims{
		PreferredUsername: username,
		RealmAccess:       &RealmAccess{Roles: roles},
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Issuer:    issuer,
			Subject:   username,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	tokenStr, err := t.SignedString([]byte(secret))
	if err != nil {
		return "", "", err
	}
	return tokenStr, jti, nil
}
