package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/thebackstage/backstage/internal/ctxkeys"
	"github.com/thebackstage/backstage/internal/model"
	"github.com/thebackstage/backstage/internal/service"
)

// AuthHandler serves artist account endpoints: signup, login, magic links,
// and the current-user probe.
type AuthHandler struct {
	authService *service.AuthService
}

func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type userView struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	ArtistName string `json:"artistName"`
}

func newUserView(user *model.User) userView {
	return userView{
		ID:         user.ID,
		Email:      user.Email,
		ArtistName: user.ArtistName,
	}
}

type registerRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	ArtistName string `json:"artistName"`
}

// Register handles POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	err := decodeJSON(r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.authService.Register(req.Email, req.Password, req.ArtistName)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	h.issueSession(w, user)
	writeJSON(w, http.StatusCreated, newUserView(user))
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	err := decodeJSON(r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.authService.Login(req.Email, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	h.issueSession(w, user)
	writeJSON(w, http.StatusOK, newUserView(user))
}

type magicLinkRequest struct {
	Email string `json:"email"`
}

// MagicLink handles POST /api/auth/magic-link
// Always responds 200 so the endpoint can't be used to enumerate emails.
func (h *AuthHandler) MagicLink(w http.ResponseWriter, r *http.Request) {
	var req magicLinkRequest
	err := decodeJSON(r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err = h.authService.SendMagicLink(req.Email)
	if errors.Is(err, service.ErrInvalidEmail) {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}

// MagicLinkVerify handles GET /api/auth/magic-link/verify?token=
func (h *AuthHandler) MagicLinkVerify(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")

	user, err := h.authService.VerifyMagicLink(token)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	h.issueSession(w, user)
	writeJSON(w, http.StatusOK, newUserView(user))
}

// Logout handles POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.authService.ClearJWTCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

// Me handles GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	writeJSON(w, http.StatusOK, newUserView(user))
}

type updateProfileRequest struct {
	ArtistName string `json:"artistName"`
}

// UpdateProfile handles PATCH /api/auth/me
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	var req updateProfileRequest
	err := decodeJSON(r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := h.authService.UpdateArtistName(user.ID, req.ArtistName)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newUserView(updated))
}

func (h *AuthHandler) issueSession(w http.ResponseWriter, user *model.User) {
	token, err := h.authService.GenerateJWT(user)
	if err != nil {
		return
	}
	h.authService.SetJWTCookie(w, token, time.Now().Add(h.authService.JWTExpiry()))
}
