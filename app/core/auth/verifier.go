package auth

import (
	"context"
	"crypto/subtle"
	"errors"
)

// VerifierFunc adapts a function to the IdentityVerifier interface.
type VerifierFunc func(ctx context.Context, credential string) (string, error)

func (f VerifierFunc) Verify(ctx context.Context, credential string) (string, error) {
	return f(ctx, credential)
}

// StaticVerifier signs in the configured owner when the supplied
// credential matches a pre-shared sign-in secret. It stands in for the
// external OAuth provider in single-user deployments; an empty secret
// rejects everything.
type StaticVerifier struct {
	secret string
	email  string
}

func NewStaticVerifier(secret string, email string) *StaticVerifier {
	return &StaticVerifier{secret: secret, email: email}
}

func (v *StaticVerifier) Verify(ctx context.Context, credential string) (string, error) {
	if v.secret == "" || v.email == "" {
		return "", errors.New("sign-in is not configured")
	}
	if subtle.ConstantTimeCompare([]byte(credential), []byte(v.secret)) != 1 {
		return "", errors.New("invalid sign-in credential")
	}
	return v.email, nil
}
