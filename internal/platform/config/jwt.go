package config

import (
	"fmt"
	"strings"
	"time"
)

// JWTConfig configures verification of Cognito-issued JWTs against the user
// pool's JWKS endpoint.
type JWTConfig struct {
	Region     string
	UserPoolID string
	// ClientID is the accepted audience. Empty disables the audience check.
	ClientID string
	// Endpoint replaces https://cognito-idp.<region>.amazonaws.com, e.g. for a local dev issuer.
	Endpoint string

	ClockSkew              time.Duration
	JWKSRefreshInterval    time.Duration
	JWKSMinRefreshInterval time.Duration

	HTTPTimeout time.Duration
}

// Validate reports the configuration values required to build a verifier.
func (c JWTConfig) Validate() error {
	var missing []string
	if strings.TrimSpace(c.Region) == "" {
		missing = append(missing, "COGNITO_REGION")
	}
	if strings.TrimSpace(c.UserPoolID) == "" {
		missing = append(missing, "COGNITO_USER_POOL_ID")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Issuer is the expected "iss" claim.
func (c JWTConfig) Issuer() string {
	base := strings.TrimRight(c.Endpoint, "/")
	if base == "" {
		base = fmt.Sprintf("https://cognito-idp.%s.amazonaws.com", c.Region)
	}
	return base + "/" + c.UserPoolID
}

// JWKSURL is where the user pool publishes its signing keys.
func (c JWTConfig) JWKSURL() string {
	return c.Issuer() + "/.well-known/jwks.json"
}
