package gateway

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
}

type passwordCredentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshCredentials struct {
	RefreshToken string `json:"refresh_token"`
}

// passwordSource signs a service account in, preferring the refresh grant
// once a refresh token is known
type passwordSource struct {
	client   *Client
	email    string
	password string

	mu      sync.Mutex
	refresh string
}

// PasswordTokenSource returns a cached source for a service account. Tokens
// are reused until the exp claim of the access token passes.
func (c *Client) PasswordTokenSource(email, password string) oauth2.TokenSource {
	return oauth2.ReuseTokenSource(nil, &passwordSource{client: c, email: email, password: password})
}

// BearerTokenSource passes a caller-supplied access token through unchanged
func BearerTokenSource(accessToken string) oauth2.TokenSource {
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
}

func (s *passwordSource) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.client.http.Timeout)
	defer cancel()

	if s.refresh != "" {
		tok, err := s.grant(ctx, "refresh_token", refreshCredentials{RefreshToken: s.refresh})
		if err == nil {
			return tok, nil
		}
		s.client.logger.Warn("Refresh grant failed, signing in again", zap.Error(err))
		s.refresh = ""
	}
	return s.grant(ctx, "password", passwordCredentials{Email: s.email, Password: s.password})
}

func (s *passwordSource) grant(ctx context.Context, grantType string, body interface{}) (*oauth2.Token, error) {
	var resp tokenResponse
	url := s.client.cfg.AuthURL + "/token?grant_type=" + grantType
	if _, _, err := s.client.do(ctx, http.MethodPost, url, "", body, &resp); err != nil {
		return nil, fmt.Errorf("%s grant: %w", grantType, err)
	}
	if resp.AccessToken == "" {
		return nil, fmt.Errorf("%s grant: empty access token", grantType)
	}
	if resp.RefreshToken != "" {
		s.refresh = resp.RefreshToken
	}

	tok := &oauth2.Token{
		AccessToken:  resp.AccessToken,
		TokenType:    resp.TokenType,
		RefreshToken: resp.RefreshToken,
		Expiry:       tokenExpiry(resp.AccessToken, resp.ExpiresIn, time.Now()),
	}
	s.client.logger.Info("Gateway token issued",
		zap.String("grant_type", grantType),
		zap.Time("expiry", tok.Expiry))
	return tok, nil
}

// tokenExpiry reads the exp claim without verifying the signature; the
// gateway verifies. Falls back to expires_in, then to no expiry.
func tokenExpiry(accessToken string, expiresIn int64, now time.Time) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser(jwt.WithoutClaimsValidation()).ParseUnverified(accessToken, claims); err == nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			return exp.Time
		}
	}
	if expiresIn > 0 {
		return now.Add(time.Duration(expiresIn) * time.Second)
	}
	return time.Time{}
}
