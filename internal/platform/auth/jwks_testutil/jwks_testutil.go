package jwks_testutil

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Keypair struct {
	Kid     string
	Private *rsa.PrivateKey
}

func GenerateRSAKeypair(kid string) (Keypair, error) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return Keypair{}, err
	}
	return Keypair{Kid: kid, Private: priv}, nil
}

// JWKSJSON renders the public halves of keys as a JWKS document.
func JWKSJSON(keys []Keypair) []byte {
	type jwk struct {
		Kty string `json:"kty"`
		Use string `json:"use"`
		Alg string `json:"alg"`
		Kid string `json:"kid"`
		N   string `json:"n"`
		E   string `json:"e"`
	}
	type jwks struct {
		Keys []jwk `json:"keys"`
	}
	out := jwks{Keys: make([]jwk, 0, len(keys))}
	for _, kp := range keys {
		pub := kp.Private.PublicKey
		out.Keys = append(out.Keys, jwk{
			Kty: "RSA",
			Use: "sig",
			Alg: "RS256",
			Kid: kp.Kid,
			N:   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
			// e is a big-endian unsigned int.
			E: base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
		})
	}
	b, _ := json.Marshal(out)
	return b
}

// NewRotatingJWKSServer returns a JWKS server whose key set can be swapped at runtime.
//
// The key set is served on every path, so the server URL can stand in for a
// Cognito endpoint. Use the returned func to rotate keys.
func NewRotatingJWKSServer() (*httptest.Server, func(keys []Keypair)) {
	var jwksJSON atomic.Value // []byte
	jwksJSON.Store([]byte(`{"keys":[]}`))

	setKeys := func(keys []Keypair) {
		jwksJSON.Store(JWKSJSON(keys))
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(jwksJSON.Load().([]byte))
	}))

	return srv, setKeys
}

// TokenOptions describes a Cognito-shaped token.
type TokenOptions struct {
	Issuer string
	// Audience may be a string or []string. Nil omits the claim.
	Audience any
	// Subject is omitted when empty.
	Subject  string
	Username string
	Email    string
	// Groups is written as cognito:groups verbatim, so tests can mint malformed values.
	Groups any

	Now       time.Time
	ExpiresIn time.Duration
	NotBefore *time.Duration

	Extra map[string]any
}

// MintRS256JWT creates a signed JWT using RS256 with the given keypair.
func MintRS256JWT(kp Keypair, opts TokenOptions) (string, error) {
	claims := jwt.MapClaims{
		"iss":       opts.Issuer,
		"exp":       opts.Now.Add(opts.ExpiresIn).Unix(),
		"iat":       opts.Now.Unix(),
		"token_use": "id",
	}
	if opts.Audience != nil {
		claims["aud"] = opts.Audience
	}
	if opts.Subject != "" {
		claims["sub"] = opts.Subject
	}
	if opts.Username != "" {
		claims["cognito:username"] = opts.Username
	}
	if opts.Email != "" {
		claims["email"] = opts.Email
	}
	if opts.Groups != nil {
		claims["cognito:groups"] = opts.Groups
	}
	if opts.NotBefore != nil {
		claims["nbf"] = opts.Now.Add(*opts.NotBefore).Unix()
	}
	for k, v := range opts.Extra {
		claims[k] = v
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = kp.Kid
	return tok.SignedString(kp.Private)
}
