// Package api exposes the todo service over HTTP.
//
// Every response body is JSON, errors are always `{"error": "..."}`.
// Routes under /api/todos are restricted to the owner of each todo,
// routes under /api/admin go through the admin guard which checks the
// store on every request.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/andrebq/todobox/auth"
	"github.com/andrebq/todobox/auth/denylist"
	"github.com/andrebq/todobox/auth/guard"
	"github.com/andrebq/todobox/internal/apierr"
	"github.com/andrebq/todobox/internal/logutil"
	"github.com/andrebq/todobox/policy"
	"github.com/andrebq/todobox/store"
)

type (
	Options struct {
		Store *store.DB
		Codec *auth.Codec
		// Hasher defaults to auth.DefaultParams when nil
		Hasher *auth.Hasher
		// Denylist enables /api/logout when not nil
		Denylist denylist.Denylist
		// Policy is checked on every registration, nil accepts everything
		Policy policy.Checker
		// AllowAdminBootstrap enables /api/create-admin
		AllowAdminBootstrap bool
	}

	server struct {
		db       *store.DB
		codec    *auth.Codec
		hasher   *auth.Hasher
		denylist denylist.Denylist
		policy   policy.Checker
		realm    *guard.Realm

		// decoy is verified when the email is unknown, so both login
		// failures take about the same time
		decoy string
	}

	message struct {
		Message string `json:"message"`
	}
)

const (
	maxBodySize = 1 << 20

	msgNoData      = "No data provided"
	msgInvalidBody = "Invalid request body"
)

// AsHandler returns the full api, already wrapped with request logging
// using the logger from ctx.
func AsHandler(ctx context.Context, opts Options) (http.Handler, error) {
	if opts.Store == nil {
		return nil, errors.New("api: store is required")
	}
	if opts.Codec == nil {
		return nil, errors.New("api: token codec is required")
	}
	s := &server{
		db:       opts.Store,
		codec:    opts.Codec,
		hasher:   opts.Hasher,
		denylist: opts.Denylist,
		policy:   opts.Policy,
	}
	if s.hasher == nil {
		s.hasher = auth.NewHasher(auth.DefaultParams)
	}
	if s.policy == nil {
		s.policy = policy.Chain{}
	}
	var realmOpts []guard.Option
	if s.denylist != nil {
		realmOpts = append(realmOpts, guard.WithDenylist(s.denylist))
	}
	s.realm = guard.NewRealm(s.db, s.codec, realmOpts...)

	var err error
	s.decoy, err = s.hasher.Hash("todobox-decoy-password")
	if err != nil {
		return nil, fmt.Errorf("api: unable to prepare login decoy, cause %w", err)
	}

	router := httprouter.New()
	router.HandleMethodNotAllowed = true
	router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apierr.Write(w, r, apierr.NotFound("Not found"))
	})
	router.MethodNotAllowed = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apierr.WriteJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"})
	})

	router.HandlerFunc("GET", "/healthz", s.healthz)

	router.HandlerFunc("POST", "/api/register", s.register)
	router.HandlerFunc("POST", "/api/login", s.login)
	router.Handler("GET", "/api/me", s.realm.Protect(s.me))
	if s.denylist != nil {
		router.Handler("POST", "/api/logout", s.realm.Protect(s.logout))
	}

	router.Handler("GET", "/api/todos", s.realm.Protect(s.listTodos))
	router.Handler("POST", "/api/todos", s.realm.Protect(s.createTodo))
	router.Handler("PUT", "/api/todos/:id", s.realm.Protect(s.updateTodo))
	router.Handler("DELETE", "/api/todos/:id", s.realm.Protect(s.deleteTodo))

	router.Handler("GET", "/api/admin/users", s.realm.ProtectAdmin(s.listUsers))
	router.Handler("GET", "/api/admin/todos", s.realm.ProtectAdmin(s.listAllTodos))
	if opts.AllowAdminBootstrap {
		router.HandlerFunc("POST", "/api/create-admin", s.createAdmin)
	}

	return logutil.Middleware(logutil.GetOrDefault(ctx), router), nil
}

func (s *server) healthz(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(r.Context()); err != nil {
		log := logutil.GetOrDefault(r.Context())
		log.Error().Err(err).Msg("Health check failed")
		apierr.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	apierr.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readBody decodes the request body into out. Missing bodies, invalid
// JSON and empty objects are all reported as "No data provided".
func readBody(r *http.Request, out interface{}) error {
	buf, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize+1))
	if err != nil {
		return apierr.Validation(msgNoData)
	}
	if len(buf) > maxBodySize {
		return apierr.Validation(msgInvalidBody)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(buf, &fields); err != nil || len(fields) == 0 {
		return apierr.Validation(msgNoData)
	}
	if err := json.Unmarshal(buf, out); err != nil {
		return apierr.Validation(msgInvalidBody)
	}
	return nil
}
