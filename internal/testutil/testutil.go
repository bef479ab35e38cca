package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"time"

	"catalogservice/internal/platform/crypto"
	"catalogservice/internal/platform/identity"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// TestSecret signs every token built here.
	TestSecret = "test-secret-do-not-use"
	// TestIssuer is the issuer URI the test verifier expects.
	TestIssuer = "http://localhost:8080/realms/catalog"
)

// TestEmployee can manage the catalog.
var TestEmployee = identity.Caller{
	Name:  "isabelle",
	Roles: []string{identity.RoleEmployee, identity.RoleCustomer},
}

// TestCustomer can only browse.
var TestCustomer = identity.Caller{
	Name:  "bjorn",
	Roles: []string{identity.RoleCustomer},
}

// NewVerifier returns a verifier that accepts the tokens built by this package.
func NewVerifier() *crypto.Verifier {
	v, err := crypto.NewHMACVerifier(TestIssuer, TestSecret)
	if err != nil {
		panic(err)
	}
	return v
}

// GenerateTestToken issues a valid token for caller.
func GenerateTestToken(caller identity.Caller) string {
	token, _, _ := crypto.GenerateToken(TestSecret, TestIssuer, caller.Name, caller.Roles, time.Hour)
	return token
}

func EmployeeToken() string { return GenerateTestToken(TestEmployee) }

func CustomerToken() string { return GenerateTestToken(TestCustomer) }

// GenerateExpiredToken generates an expired JWT token for testing
func GenerateExpiredToken(caller identity.Caller) string {
	c := crypto.Claims{
		PreferredUsername: caller.Name,
		RealmAccess:       &crypto.RealmAccess{Roles: caller.Roles},
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    TestIssuer,
			Subject:   caller.Name,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	token, _ := t.SignedString([]byte(TestSecret))
	return token
}

// NewRequest creates a new HTTP request for testing
func NewRequest(method, path string, body interface{}) *http.Request {
	var bodyBytes []byte
	if body != nil {
		bodyBytes, _ = json.Marshal(body)
	}
	var r *http.Request
	if bodyBytes != nil {
		r = httptest.NewRequest(method, path, bytes.NewReader(bodyBytes))
		r.Header.Set("Content-Type", "application/json")
	} else {
		r = httptest.NewRequest(method, path, nil)
	}
	return r
}

// NewRequestWithAuth creates a new HTTP request with JWT auth for testing
func NewRequestWithAuth(method, path string, body interface{}, token string) *http.Request {
	r := NewRequest(method, path, body)
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	return r
}

// DecodeBody reads the recorded response body into v.
func DecodeBody(w *httptest.ResponseRecorder, v interface{}) error {
	result := w.Result()
	defer result.Body.Close()

	bodyBytes, err := io.ReadAll(result.Body)
	if err != nil {
		return err
	}
	return json.Unmarshal(bodyBytes, v)
}
