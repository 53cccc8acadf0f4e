package api

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"unicode/utf8"

	"github.com/andrebq/todobox/auth/guard"
	"github.com/andrebq/todobox/internal/apierr"
	"github.com/andrebq/todobox/internal/logutil"
	"github.com/andrebq/todobox/policy"
	"github.com/andrebq/todobox/store"
)

type (
	registerRequest struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	loginRequest struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	loginResponse struct {
		Token string        `json:"token"`
		User  store.Account `json:"user"`
	}

	userResponse struct {
		User store.Account `json:"user"`
	}
)

const (
	msgEmailTaken    = "Email already registered"
	msgUsernameTaken = "Username already taken"

	bootstrapUsername = "admin"
	bootstrapEmail    = "admin@example.com"
)

func (s *server) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := readBody(r, &req); err != nil {
		apierr.Write(w, r, err)
		return
	}
	if req.Username == "" || req.Email == "" || req.Password == "" {
		apierr.Write(w, r, apierr.Validation("All fields required"))
		return
	}
	acc, err := s.createAccount(r, req, false)
	if err != nil {
		apierr.Write(w, r, err)
		return
	}
	log := logutil.GetOrDefault(r.Context())
	log.Info().Int64("account", acc.ID).Str("username", acc.Username).Msg("Account registered")
	apierr.WriteJSON(w, http.StatusCreated, message{Message: "User registered successfully"})
}

// createAccount runs the registration policy, checks email and username
// (in that order) and stores the new account.
func (s *server) createAccount(r *http.Request, req registerRequest, admin bool) (store.Account, error) {
	ctx := r.Context()
	if utf8.RuneCountInString(req.Username) > store.MaxUsername {
		return store.Account{}, apierr.Validation(fmt.Sprintf("Username must be at most %d characters", store.MaxUsername))
	}
	if utf8.RuneCountInString(req.Email) > store.MaxEmail {
		return store.Account{}, apierr.Validation(fmt.Sprintf("Email must be at most %d characters", store.MaxEmail))
	}
	err := s.policy.Check(ctx, policy.Registration{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	var rejected policy.Rejected
	if errors.As(err, &rejected) {
		return store.Account{}, apierr.Validation(rejected.Reason)
	} else if err != nil {
		return store.Account{}, apierr.Internal(err)
	}

	if _, err := s.db.FindAccountByEmail(ctx, req.Email); err == nil {
		return store.Account{}, apierr.Conflict(msgEmailTaken)
	} else if !store.IsNotFound(err) {
		return store.Account{}, apierr.Internal(err)
	}
	if _, err := s.db.FindAccountByUsername(ctx, req.Username); err == nil {
		return store.Account{}, apierr.Conflict(msgUsernameTaken)
	} else if !store.IsNotFound(err) {
		return store.Account{}, apierr.Internal(err)
	}

	digest, err := s.hasher.Hash(req.Password)
	if err != nil {
		return store.Account{}, apierr.Internal(err)
	}
	acc := store.Account{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: digest,
		IsAdmin:      admin,
	}
	err = s.db.CreateAccount(ctx, &acc)
	var conflict store.Conflict
	if errors.As(err, &conflict) {
		// someone else got there between the lookup and the insert
		if conflict.Field == "username" {
			return store.Account{}, apierr.Conflict(msgUsernameTaken)
		}
		return store.Account{}, apierr.Conflict(msgEmailTaken)
	} else if err != nil {
		return store.Account{}, apierr.Internal(err)
	}
	return acc, nil
}

func (s *server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := readBody(r, &req); err != nil {
		apierr.Write(w, r, err)
		return
	}
	if req.Email == "" || req.Password == "" {
		apierr.Write(w, r, apierr.Validation("Email and password required"))
		return
	}
	acc, err := s.db.FindAccountByEmail(r.Context(), req.Email)
	if store.IsNotFound(err) {
		s.hasher.Verify(s.decoy, req.Password)
		apierr.Write(w, r, apierr.Unauthenticated("Invalid credentials"))
		return
	} else if err != nil {
		apierr.Write(w, r, apierr.Internal(err))
		return
	}
	if !s.hasher.Verify(acc.PasswordHash, req.Password) {
		apierr.Write(w, r, apierr.Unauthenticated("Invalid credentials"))
		return
	}
	token, err := s.codec.Issue(acc.ID, acc.IsAdmin)
	if err != nil {
		apierr.Write(w, r, apierr.Internal(err))
		return
	}
	apierr.WriteJSON(w, http.StatusOK, loginResponse{Token: token, User: acc})
}

func (s *server) me(w http.ResponseWriter, r *http.Request, acc store.Account) {
	apierr.WriteJSON(w, http.StatusOK, userResponse{User: acc})
}

// logout revokes the token used in the request until it expires
func (s *server) logout(w http.ResponseWriter, r *http.Request, acc store.Account) {
	claims, ok := guard.ClaimsFrom(r.Context())
	if !ok || claims.ID == "" {
		apierr.Write(w, r, apierr.Unauthenticated(guard.MsgInvalidToken))
		return
	}
	if err := s.denylist.Revoke(r.Context(), claims.ID, claims.Expiration()); err != nil {
		apierr.Write(w, r, apierr.Internal(err))
		return
	}
	apierr.WriteJSON(w, http.StatusOK, message{Message: "Logged out"})
}

type bootstrapRequest struct {
	Password string `json:"password"`
}

// createAdmin creates the default admin account, the password is taken
// from the body or generated and written to the server log.
func (s *server) createAdmin(w http.ResponseWriter, r *http.Request) {
	log := logutil.GetOrDefault(r.Context())
	if _, err := s.db.FindAccountByEmail(r.Context(), bootstrapEmail); err == nil {
		apierr.WriteJSON(w, http.StatusOK, message{Message: "Admin already exists. Use " + bootstrapEmail + " to login."})
		return
	} else if !store.IsNotFound(err) {
		apierr.Write(w, r, apierr.Internal(err))
		return
	}

	var req bootstrapRequest
	if r.ContentLength != 0 {
		if err := readBody(r, &req); err != nil && !isNoData(err) {
			apierr.Write(w, r, err)
			return
		}
	}
	generated := req.Password == ""
	if generated {
		var err error
		req.Password, err = randomPassword()
		if err != nil {
			apierr.Write(w, r, apierr.Internal(err))
			return
		}
	}
	acc, err := s.createAccount(r, registerRequest{
		Username: bootstrapUsername,
		Email:    bootstrapEmail,
		Password: req.Password,
	}, true)
	if err != nil {
		apierr.Write(w, r, err)
		return
	}
	ev := log.Warn().Int64("account", acc.ID).Str("email", acc.Email)
	if generated {
		ev = ev.Str("password", req.Password)
	}
	ev.Msg("Admin account created")
	apierr.WriteJSON(w, http.StatusCreated, message{Message: "Admin created. Check console for credentials."})
}

func isNoData(err error) bool {
	var apiErr *apierr.Error
	return errors.As(err, &apiErr) && apiErr.Message == msgNoData
}

func randomPassword() (string, error) {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
