// Package auth verifies Google-issued OpenID Connect ID tokens and turns
// them into request principals.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/api/idtoken"
	"google.golang.org/api/option"

	"github.com/playlistapp/playlist-server/internal/domain"
)

// ErrInvalidToken is returned for any token that does not yield a principal.
var ErrInvalidToken = errors.New("invalid identity token")

var googleIssuers = map[string]bool{
	"accounts.google.com":         true,
	"https://accounts.google.com": true,
}

// TokenVerifier turns a raw bearer token into a verified principal.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (domain.Principal, error)
}

// payloadValidator is the part of *idtoken.Validator the verifier uses.
type payloadValidator interface {
	Validate(ctx context.Context, idToken, audience string) (*idtoken.Payload, error)
}

// GoogleVerifier validates ID tokens against Google's published keys with
// the configured OAuth client id as audience.
type GoogleVerifier struct {
	validator payloadValidator
	clientID  string
}

// NewGoogleVerifier creates a verifier. Signing keys are fetched lazily and
// cached by the idtoken package.
func NewGoogleVerifier(ctx context.Context, clientID string) (*GoogleVerifier, error) {
	if clientID == "" {
		return nil, errors.New("client id is required")
	}

	httpClient := &http.Client{Timeout: 10 * time.Second}
	v, err := idtoken.NewValidator(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("create id token validator: %w", err)
	}

	return &GoogleVerifier{validator: v, clientID: clientID}, nil
}

// Verify checks signature, expiry, audience and issuer, then extracts the principal.
func (v *GoogleVerifier) Verify(ctx context.Context, token string) (domain.Principal, error) {
	if token == "" {
		return domain.Principal{}, ErrInvalidToken
	}

	payload, err := v.validator.Validate(ctx, token, v.clientID)
	if err != nil {
		return domain.Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return PrincipalFromPayload(payload)
}

// PrincipalFromPayload extracts sub, name and email from a validated payload.
func PrincipalFromPayload(p *idtoken.Payload) (domain.Principal, error) {
	if p == nil {
		return domain.Principal{}, ErrInvalidToken
	}
	if !googleIssuers[p.Issuer] {
		return domain.Principal{}, fmt.Errorf("%w: unexpected issuer %q", ErrInvalidToken, p.Issuer)
	}
	if p.Subject == "" {
		return domain.Principal{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	return domain.Principal{
		Subject: p.Subject,
		Name:    stringClaim(p.Claims, "name"),
		Email:   stringClaim(p.Claims, "email"),
	}, nil
}

func stringClaim(claims map[string]any, name string) string {
	s, _ := claims[name].(string)
	return s
}

// BearerToken extracts the token from an Authorization header value.
// The scheme is matched case-insensitively.
func BearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
