package service

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
)

type credentialsKey struct{}

// WithCredentials returns a context whose gateway calls authenticate with ts
// instead of the service account.
func WithCredentials(ctx context.Context, ts oauth2.TokenSource) context.Context {
	return context.WithValue(ctx, credentialsKey{}, ts)
}

// bearerToken fetches a token right before a call; sources are expected to
// cache and refresh on their own.
func bearerToken(ctx context.Context, fallback oauth2.TokenSource) (string, error) {
	ts := CredentialsFrom(ctx)
	if ts == nil {
		ts = fallback
	}
	if ts == nil {
		return "", ErrNoCredentials
	}
	tok, err := ts.Token()
	if err != nil {
		return "", fmt.Errorf("obtain token: %w", err)
	}
	return tok.AccessToken, nil
}

// CredentialsFrom returns the token source carried by ctx, if any
func CredentialsFrom(ctx context.Context) oauth2.TokenSource {
	ts, _ := ctx.Value(credentialsKey{}).(oauth2.TokenSource)
	return ts
}
