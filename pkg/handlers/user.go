package handlers

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"io/ioutil"
	"net/http"
	"strings"
	"time"

	"socialfeed/pkg/session"
	"socialfeed/pkg/user"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/argon2"
)

//go:generate mockgen -source=user.go -destination=mock_users_repo.go -package=handlers

const (
	DefaultSessionTTL = 7 * 24 * time.Hour
	saltLen           = 8
)

type UserHandler struct {
	Sm         session.SessionManager
	Repo       UsersRepo
	Logger     *zap.SugaredLogger
	SessionTTL time.Duration
}

type UsersRepo interface {
	GetByID(ctx context.Context, id int64) (*user.User, error)
	GetByUsername(ctx context.Context, username string) (*user.User, error)
	Add(ctx context.Context, user *user.User) (int64, error)
}

type AuthReq struct {
	Password *string `json:"password"`
	Username *string `json:"username"`
}

type AuthResponse struct {
	Token string `json:"token"`
}

func (r *AuthReq) validate() []*CustomError {
	usr := &Validator{value: r.Username, location: "body", field: "username"}
	usrErr := firstError(
		usr.Required,
		usr.Empty,
		func() *CustomError { return usr.MaxLength(32) },
		func() *CustomError {
			return usr.Custom(func(value string) bool {
				return strings.TrimSpace(value) == value
			}, "cannot start or end with whitespace")
		},
		func() *CustomError { return usr.Matches("^[a-zA-Z0-9_-]+$") },
	)

	pwd := &Validator{value: r.Password, location: "body", field: "password"}
	pwdErr := firstError(
		pwd.Required,
		pwd.Empty,
		func() *CustomError { return pwd.MinLength(8) },
		func() *CustomError { return pwd.MaxLength(72) },
	)

	return mergeErrors(usrErr, pwdErr)
}

func (u *UserHandler) readAuthReq(w http.ResponseWriter, r *http.Request) (*AuthReq, bool) {
	body, err := ioutil.ReadAll(r.Body)
	if err != nil {
		u.Logger.Errorw("cannot read request body", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return nil, false
	}

	var authReq AuthReq
	if err := json.Unmarshal(body, &authReq); err != nil {
		WriteResponse(w, "bad request", http.StatusBadRequest)
		return nil, false
	}

	if validationErrors := authReq.validate(); len(validationErrors) > 0 {
		writeErrorsResponse(w, validationErrors, http.StatusUnprocessableEntity)
		return nil, false
	}

	return &authReq, true
}

func (u *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	authReq, ok := u.readAuthReq(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	found, err := u.Repo.GetByUsername(ctx, *authReq.Username)
	if err != nil {
		u.Logger.Errorw("cannot load user", "username", *authReq.Username, "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	if found == nil {
		WriteResponse(w, "user not found", http.StatusUnauthorized)
		return
	}

	if !checkPass(found.Password, *authReq.Password) {
		WriteResponse(w, "invalid password", http.StatusUnauthorized)
		return
	}

	u.writeAuthResponse(ctx, w, found, http.StatusOK)
}

func (u *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	authReq, ok := u.readAuthReq(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	existUser, err := u.Repo.GetByUsername(ctx, *authReq.Username)
	if err != nil {
		u.Logger.Errorw("cannot load user", "username", *authReq.Username, "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	if existUser != nil {
		u.writeUserExists(w, *authReq.Username)
		return
	}

	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		u.Logger.Errorw("cannot generate salt", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	created := &user.User{
		Username: *authReq.Username,
		Password: HashPass(salt, *authReq.Password),
	}

	id, err := u.Repo.Add(ctx, created)
	if errors.Is(err, user.ErrUserExists) {
		u.writeUserExists(w, created.Username)
		return
	}
	if err != nil {
		u.Logger.Errorw("cannot add user", "username", created.Username, "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	created.ID = id

	u.Logger.Infow("user registered", "username", created.Username, "id", id)
	u.writeAuthResponse(ctx, w, created, http.StatusCreated)
}

func (u *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if err := u.Sm.Destroy(ctx, w, r); err != nil {
		u.Logger.Errorw("cannot destroy session", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	writeJSON(w, &SuccessResponse{Success: true}, http.StatusOK)
}

func (u *UserHandler) writeUserExists(w http.ResponseWriter, username string) {
	validationError := &CustomError{Location: "body", Param: "username", Value: username, Msg: "already exists"}
	writeErrorsResponse(w, []*CustomError{validationError}, http.StatusConflict)
}

func HashPass(salt []byte, plainPassword string) []byte {
	hashedPass := argon2.IDKey([]byte(plainPassword), salt, 1, 64*1024, 4, 32)
	res := make([]byte, 0, len(salt)+len(hashedPass))
	res = append(res, salt...)
	return append(res, hashedPass...)
}

func checkPass(passHash []byte, plainPassword string) bool {
	if len(passHash) < saltLen {
		return false
	}
	return bytes.Equal(HashPass(passHash[:saltLen], plainPassword), passHash)
}

func (u *UserHandler) writeAuthResponse(ctx context.Context, w http.ResponseWriter, found *user.User, status int) {
	ttl := u.SessionTTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}

	sessID := uuid.New().String()
	expiresAt := time.Now().Add(ttl).Unix()
	token, err := u.Sm.Create(ctx, w, &session.User{ID: found.ID, Username: found.Username}, sessID, expiresAt)
	if err != nil {
		u.Logger.Errorw("cannot create session", "username", found.Username, "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	writeJSON(w, &AuthResponse{Token: token}, status)
}
