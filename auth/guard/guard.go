// Package guard protects http handlers, only requests carrying a valid
// session token for a live account get through.
package guard

import (
	"context"
	"net/http"
	"strings"

	"github.com/andrebq/todobox/auth"
	"github.com/andrebq/todobox/internal/apierr"
	"github.com/andrebq/todobox/internal/logutil"
	"github.com/andrebq/todobox/store"
)

type (
	// AccountFinder is the only thing the guard needs from the store
	AccountFinder interface {
		FindAccountByID(ctx context.Context, id int64) (store.Account, error)
	}

	// Denylist reports tokens revoked before their expiration
	Denylist interface {
		Revoked(ctx context.Context, tokenID string) (bool, error)
	}

	// AccountHandler is called once the request was admitted, acc is the
	// account as it was loaded from the store during this request.
	AccountHandler func(w http.ResponseWriter, r *http.Request, acc store.Account)

	Realm struct {
		accounts AccountFinder
		codec    *auth.Codec
		denylist Denylist
	}

	Option func(*Realm)

	ctxKey byte
)

const (
	MsgTokenMissing  = "Token is missing"
	MsgInvalidFormat = "Invalid token format"
	MsgInvalidToken  = "Token is invalid or expired"
	MsgUserNotFound  = "User not found"
	MsgAdminRequired = "Admin access required"

	accountKey = ctxKey(1)
	claimsKey  = ctxKey(2)
)

// WithDenylist makes the realm reject tokens revoked by logout
func WithDenylist(d Denylist) Option {
	return func(r *Realm) {
		r.denylist = d
	}
}

func NewRealm(accounts AccountFinder, codec *auth.Codec, opts ...Option) *Realm {
	r := &Realm{
		accounts: accounts,
		codec:    codec,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Protect only lets requests from authenticated accounts reach next.
//
// Every call performs exactly one account lookup, nothing is cached
// between requests.
func (s *Realm) Protect(next AccountHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := s.checkToken(r)
		if err != nil {
			apierr.Write(w, r, err)
			return
		}
		acc, err := s.loadAccount(r.Context(), claims)
		if err != nil {
			apierr.Write(w, r, err)
			return
		}
		s.admit(w, r, claims, acc, next)
	})
}

// ProtectAdmin is like Protect but the account must also be an admin.
//
// The admin claim in the token is only used to turn away regular
// accounts without touching the store, the flag loaded from the store
// is the one that decides. That way revoking admin privileges takes
// effect right away, even for tokens issued before the change.
func (s *Realm) ProtectAdmin(next AccountHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := s.checkToken(r)
		if err != nil {
			apierr.Write(w, r, err)
			return
		}
		if !claims.Admin {
			apierr.Write(w, r, apierr.Forbidden(MsgAdminRequired))
			return
		}
		acc, err := s.loadAccount(r.Context(), claims)
		if err != nil {
			apierr.Write(w, r, err)
			return
		}
		if !acc.IsAdmin {
			log := logutil.GetOrDefault(r.Context())
			log.Warn().Int64("account", acc.ID).Msg("Token claims admin but account is not an admin anymore")
			apierr.Write(w, r, apierr.Forbidden(MsgAdminRequired))
			return
		}
		s.admit(w, r, claims, acc, next)
	})
}

func (s *Realm) admit(w http.ResponseWriter, r *http.Request, claims *auth.Claims, acc store.Account, next AccountHandler) {
	ctx := context.WithValue(r.Context(), accountKey, acc)
	ctx = context.WithValue(ctx, claimsKey, claims)
	next(w, r.WithContext(ctx), acc)
}

func (s *Realm) checkToken(r *http.Request) (*auth.Claims, error) {
	token, err := BearerToken(r)
	if err != nil {
		return nil, err
	}
	claims, err := s.codec.Decode(token)
	if err != nil {
		return nil, apierr.Unauthenticated(MsgInvalidToken)
	}
	if s.denylist != nil {
		revoked, err := s.denylist.Revoked(r.Context(), claims.ID)
		if err != nil {
			return nil, apierr.Internal(err)
		} else if revoked {
			return nil, apierr.Unauthenticated(MsgInvalidToken)
		}
	}
	return claims, nil
}

func (s *Realm) loadAccount(ctx context.Context, claims *auth.Claims) (store.Account, error) {
	id, err := claims.AccountID()
	if err != nil {
		return store.Account{}, apierr.Unauthenticated(MsgInvalidToken)
	}
	acc, err := s.accounts.FindAccountByID(ctx, id)
	if store.IsNotFound(err) {
		return store.Account{}, apierr.Unauthenticated(MsgUserNotFound)
	} else if err != nil {
		return store.Account{}, apierr.Internal(err)
	}
	return acc, nil
}

// BearerToken extracts the token from the Authorization header.
//
// A missing header (or an empty token) is reported differently from a
// header that is not in the `Bearer <token>` form.
func BearerToken(r *http.Request) (string, error) {
	hdrVal := r.Header.Get("Authorization")
	if hdrVal == "" {
		return "", apierr.Unauthenticated(MsgTokenMissing)
	}
	scheme, token, found := strings.Cut(hdrVal, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", apierr.Unauthenticated(MsgInvalidFormat)
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", apierr.Unauthenticated(MsgTokenMissing)
	}
	if strings.ContainsAny(token, " \t") {
		return "", apierr.Unauthenticated(MsgInvalidFormat)
	}
	return token, nil
}

// AccountFrom returns the account admitted by Protect or ProtectAdmin
func AccountFrom(ctx context.Context) (store.Account, bool) {
	acc, ok := ctx.Value(accountKey).(store.Account)
	return acc, ok
}

// ClaimsFrom returns the claims of the token used to admit the request
func ClaimsFrom(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*auth.Claims)
	return claims, ok
}
