// Package auth authenticates requests against the Token store:
// RESOURCE tokens bearer-authenticate Task Runners and API callers,
// PASSWORD_RESET tokens are single-use links. Secrets are never stored or
// compared in the clear, following a bcrypt-hash-plus-id-lookup pattern.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/cloud-scan/controlcenter/internal/ctlerr"
	"github.com/cloud-scan/controlcenter/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

// TokenStore is the subset of store.Store[*domain.Token] needed here.
type TokenStore interface {
	Get(id string) (*domain.Token, bool)
	Put(*domain.Token) error
	Remove(id string) error
}

// Authenticator verifies bearer credentials against the token store.
type Authenticator struct {
	tokens TokenStore
}

func New(tokens TokenStore) *Authenticator {
	return &Authenticator{tokens: tokens}
}

// Issue creates a new token of the given role, returning the token record
// and the one-time "<id>.<secret>" bearer credential — the only moment the
// plaintext secret is ever visible; only its bcrypt hash is persisted.
func Issue(tokens TokenStore, role domain.TokenRole, owner string, expires time.Time, params domain.ParamMap) (*domain.Token, string, error) {
	id, err := randomID()
	if err != nil {
		return nil, "", ctlerr.Internalf(err, "auth: generating token id")
	}
	secret, err := randomID()
	if err != nil {
		return nil, "", ctlerr.Internalf(err, "auth: generating token secret")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", ctlerr.Internalf(err, "auth: hashing token secret")
	}
	t := &domain.Token{
		ID: id, Role: role, Secret: string(hash), Owner: owner,
		CreateTime: time.Now(), Expires: expires, Params: params,
	}
	if err := tokens.Put(t); err != nil {
		return nil, "", ctlerr.Internalf(err, "auth: persisting token %s", id)
	}
	return t, id + "." + secret, nil
}

// Verify checks a "<id>.<secret>" bearer credential (used on agent sync
// and result-report calls) and returns the token record if it
// is valid, unexpired, and of the expected role.
func (a *Authenticator) Verify(bearer string, role domain.TokenRole, now time.Time) (*domain.Token, error) {
	id, secret, ok := splitBearer(bearer)
	if !ok {
		return nil, ctlerr.AccessDeniedf("auth: malformed bearer credential")
	}
	t, ok := a.tokens.Get(id)
	if !ok {
		return nil, ctlerr.AccessDeniedf("auth: unknown token %s", id)
	}
	if t.Role != role {
		return nil, ctlerr.AccessDeniedf("auth: token %s is not a %s token", id, role)
	}
	if t.IsExpired(now) {
		return nil, ctlerr.AccessDeniedf("auth: token %s has expired", id)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(t.Secret), []byte(secret)); err != nil {
		return nil, ctlerr.AccessDeniedf("auth: invalid secret for token %s", id)
	}
	return t, nil
}

// Revoke deletes a token (PASSWORD_RESET links and RESOURCE tokens are
// single-use or revocable on demand).
func (a *Authenticator) Revoke(id string) error {
	return a.tokens.Remove(id)
}

func splitBearer(bearer string) (id, secret string, ok bool) {
	for i := 0; i < len(bearer); i++ {
		if bearer[i] == '.' {
			return bearer[:i], bearer[i+1:], true
		}
	}
	return "", "", false
}

func randomID() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
