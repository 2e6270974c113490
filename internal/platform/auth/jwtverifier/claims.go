package jwtverifier

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Cognito claim names.
const (
	claimSubject  = "sub"
	claimEmail    = "email"
	claimUsername = "cognito:username"
	claimGroups   = "cognito:groups"
)

// Claims is the typed view of a verified token.
type Claims struct {
	Subject  string
	Email    *string
	Username *string
	// Groups is nil unless the token carries cognito:groups as an array of strings.
	Groups []string
	// Raw holds every verified claim as decoded from the token.
	Raw map[string]any
}

func decodeClaims(mc jwt.MapClaims) (Claims, error) {
	sub, _ := mc[claimSubject].(string)
	if sub == "" {
		return Claims{}, ErrMissingSubject
	}

	email, err := optionalString(mc, claimEmail)
	if err != nil {
		return Claims{}, err
	}
	username, err := optionalString(mc, claimUsername)
	if err != nil {
		return Claims{}, err
	}

	raw := make(map[string]any, len(mc))
	for k, v := range mc {
		raw[k] = v
	}

	return Claims{
		Subject:  sub,
		Email:    email,
		Username: username,
		Groups:   stringArray(mc[claimGroups]),
		Raw:      raw,
	}, nil
}

func optionalString(mc jwt.MapClaims, name string) (*string, error) {
	v, ok := mc[name]
	if !ok || v == nil {
		return nil, nil
	}
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("%w: claim %q must be a string", ErrUnauthorized, name)
	}
	if s == "" {
		return nil, nil
	}
	return &s, nil
}

// stringArray returns v as []string only if it is an array whose elements are
// all strings. Anything else is treated as absent.
func stringArray(v any) []string {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, e := range arr {
		s, ok := e.(string)
		if !ok {
			return nil
		}
		out = append(out, s)
	}
	return out
}
