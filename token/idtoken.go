package token

import (
	"context"
	"crypto"
	"errors"
	"fmt"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	jwtlib "github.com/golang-jwt/jwt/v5"
)

var ErrNoIDToken = errors.New("no id_token in token response")

// IDTokenClaims is the subset of OpenID Connect claims shown to the user.
type IDTokenClaims struct {
	Iss   string         `json:"iss,omitempty"`   // Issuer of the token
	Sub   string         `json:"sub,omitempty"`   // User's unique ID at the provider
	Aud   []string       `json:"aud,omitempty"`   // Audience - the client ID that requested the token
	Exp   int64          `json:"exp,omitempty"`   // Expiration
	Iat   int64          `json:"iat,omitempty"`   // Issued at time
	Nonce string         `json:"nonce,omitempty"` // Echoed nonce, if one was sent
	Extra map[string]any `json:"extra,omitempty"` // Every other claim
}

// ParseIDTokenClaims decodes an id_token without verifying its signature.
// Only use the result for display; call IDTokenVerifier.Verify before trusting it.
func ParseIDTokenClaims(rawIDToken string) (*IDTokenClaims, error) {
	if strings.TrimSpace(rawIDToken) == "" {
		return nil, ErrNoIDToken
	}

	unverified, _, err := jwtlib.NewParser().ParseUnverified(rawIDToken, jwtlib.MapClaims{})
	if err != nil {
		return nil, fmt.Errorf("[token ParseIDTokenClaims] malformed id_token: %w", err)
	}
	mapClaims, ok := unverified.Claims.(jwtlib.MapClaims)
	if !ok {
		return nil, fmt.Errorf("[token ParseIDTokenClaims] unexpected claims type %T", unverified.Claims)
	}

	claims := &IDTokenClaims{Extra: map[string]any{}}
	claims.Iss, _ = mapClaims.GetIssuer()
	claims.Sub, _ = mapClaims.GetSubject()
	aud, _ := mapClaims.GetAudience()
	claims.Aud = aud
	if exp, _ := mapClaims.GetExpirationTime(); exp != nil {
		claims.Exp = exp.Unix()
	}
	if iat, _ := mapClaims.GetIssuedAt(); iat != nil {
		claims.Iat = iat.Unix()
	}
	claims.Nonce, _ = mapClaims["nonce"].(string)

	for k, v := range mapClaims {
		switch k {
		case "iss", "sub", "aud", "exp", "iat", "nonce":
			continue
		}
		claims.Extra[k] = v
	}
	return claims, nil
}

// IDTokenVerifier checks id_token signatures and standard claims.
type IDTokenVerifier struct {
	verifier *oidc.IDTokenVerifier
}

// NewIDTokenVerifier discovers the issuer's keys via OpenID Connect discovery.
func NewIDTokenVerifier(ctx context.Context, issuer, clientID string) (*IDTokenVerifier, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("[token NewIDTokenVerifier] failed to create OIDC provider: %w", err)
	}
	return &IDTokenVerifier{
		verifier: provider.Verifier(&oidc.Config{ClientID: clientID}),
	}, nil
}

// NewStaticIDTokenVerifier verifies against a fixed set of public keys.
func NewStaticIDTokenVerifier(issuer, clientID string, keys ...crypto.PublicKey) *IDTokenVerifier {
	keySet := &oidc.StaticKeySet{PublicKeys: keys}
	return &IDTokenVerifier{
		verifier: oidc.NewVerifier(issuer, keySet, &oidc.Config{ClientID: clientID}),
	}
}

// Verify validates the id_token and returns its claims.
func (v *IDTokenVerifier) Verify(ctx context.Context, rawIDToken string) (*IDTokenClaims, error) {
	if strings.TrimSpace(rawIDToken) == "" {
		return nil, ErrNoIDToken
	}
	if _, err := v.verifier.Verify(ctx, rawIDToken); err != nil {
		return nil, fmt.Errorf("[IDTokenVerifier Verify] id_token verification failed: %w", err)
	}
	return ParseIDTokenClaims(rawIDToken)
}
