package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sakif/attendance-tracker/internal/apperror"
	"github.com/sakif/attendance-tracker/internal/auth"
	"github.com/sakif/attendance-tracker/internal/model"
	"github.com/sakif/attendance-tracker/internal/service"
)

// AuthService is what the auth routes need from the service layer.
// *service.AuthService implements it.
type AuthService interface {
	Register(ctx context.Context, in service.RegisterInput) (*model.User, error)
	Login(ctx context.Context, name, password string) (string, error)
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	HashPassword(plaintext string) (string, error)
	VerifyPassword(digest, plaintext string) bool
}

// AuthHandler serves registration, login, the caller's profile and the
// optional password debug routes.
type AuthHandler struct {
	users   AuthService
	records RecordService
	logger  *slog.Logger
}

// NewAuthHandler creates an AuthHandler. records supplies today's stats for
// the profile.
func NewAuthHandler(users AuthService, records RecordService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{users: users, records: records, logger: logger}
}

// TokenResponse is the successful login body.
type TokenResponse struct {
	Result int    `json:"result"`
	Token  string `json:"token"`
}

// ProfileResponse is the caller's profile with today's counts.
type ProfileResponse struct {
	Name             string             `json:"name"`
	Avatar           string             `json:"avatar"`
	DisplayName      string             `json:"displayName"`
	TodayRecordsStat []model.ClassCount `json:"todayRecordsStat"`
}

// HandleRegister creates an account.
//
// HTTP: POST /api/register
// BODY (JSON or form): name|username, password, displayName?, avatarUrl|avatar?
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	body, err := readFields(w, r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	_, err = h.users.Register(r.Context(), service.RegisterInput{
		Name:        body.get("name", "username"),
		Password:    body.get("password"),
		DisplayName: body.get("displayName"),
		AvatarURL:   body.get("avatarUrl", "avatar"),
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, resultOK)
}

// HandleLogin exchanges credentials for an access token.
//
// HTTP: POST /api/login (also /api/authenticate)
// BODY (JSON or form): name|username, password
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	body, err := readFields(w, r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	token, err := h.users.Login(r.Context(), body.get("name", "username"), body.get("password"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, TokenResponse{Result: 1, Token: token})
}

// HandleProfile returns the caller's profile, read fresh from the store.
//
// HTTP: GET /api/profile (authenticated)
func (h *AuthHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, h.logger, apperror.Unauthorized(auth.MsgTokenNotProvided))
		return
	}

	user, err := h.users.GetUserByID(r.Context(), id.UserID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	stats, err := h.records.TodayStats(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, ProfileResponse{
		Name:             user.Name,
		Avatar:           user.AvatarURL,
		DisplayName:      user.DisplayName,
		TodayRecordsStat: stats,
	})
}

// HandleTestHash hashes the password query parameter.
//
// HTTP: GET /api/test-hash?password= (debug only)
func (h *AuthHandler) HandleTestHash(w http.ResponseWriter, r *http.Request) {
	digest, err := h.users.HashPassword(r.URL.Query().Get("password"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"hash": digest})
}

// HandleVerifyPassword checks a password against a digest.
//
// HTTP: GET /api/verify-password?password=&hash= (debug only)
func (h *AuthHandler) HandleVerifyPassword(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ok := h.users.VerifyPassword(q.Get("hash"), q.Get("password"))
	writeJSON(w, http.StatusOK, map[string]bool{"result": ok})
}
