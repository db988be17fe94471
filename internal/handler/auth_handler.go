package handler

import (
	"encoding/json"
	"net/http"
	"net/mail"
	"strings"

	"go-auth-service/internal/middleware"
	"go-auth-service/internal/model"
	"go-auth-service/internal/service"
	"go-auth-service/pkg/apierror"
)

type AuthHandler struct {
	service *service.AuthService
}

func NewAuthHandler(service *service.AuthService) *AuthHandler {
	return &AuthHandler{service: service}
}

// Login consumes form-encoded credentials (the OAuth2 password form) and
// returns a bearer token on success.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid form body", "", http.StatusBadRequest))
		return
	}

	username := strings.TrimSpace(r.PostFormValue("username"))
	passwd := r.PostFormValue("password")
	if username == "" || passwd == "" {
		writeError(w, apierror.New("BAD_REQUEST", "username and password are required", "", http.StatusBadRequest))
		return
	}

	accessToken, err := h.service.Login(r.Context(), username, passwd)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusAccepted, model.TokenResponse{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   h.service.TokenTTL(),
	})
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid JSON body", "", http.StatusBadRequest))
		return
	}

	payload.Username = strings.TrimSpace(payload.Username)
	if payload.Email != nil {
		trimmed := strings.TrimSpace(*payload.Email)
		if trimmed == "" {
			payload.Email = nil
		} else {
			payload.Email = &trimmed
		}
	}

	if err := validateRegister(payload); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.service.Register(r.Context(), payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, model.RegisterResponse{
		Detail: "user registered successfully",
		User:   user.Account(),
	})
}

// Me returns the identity resolved by the auth middleware: the current
// stored record, not the claims snapshot from the token.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, apierror.New("UNAUTHORIZED", "authentication required", "", http.StatusUnauthorized))
		return
	}

	writeSuccess(w, http.StatusOK, user.Account())
}

// validateRegister is the shape precondition layer: field bounds and
// email syntax are settled here, before the core is invoked.
func validateRegister(req model.RegisterRequest) error {
	if n := len([]rune(req.Username)); n < 3 || n > 50 {
		return apierror.New("BAD_REQUEST", "username must be 3-50 characters", "username", http.StatusBadRequest)
	}

	if n := len(req.Password); n < 8 || n > 100 {
		return apierror.New("BAD_REQUEST", "password must be 8-100 characters", "password", http.StatusBadRequest)
	}

	if req.Email != nil {
		if _, err := mail.ParseAddress(*req.Email); err != nil {
			return apierror.New("BAD_REQUEST", "invalid email address", "email", http.StatusBadRequest)
		}
	}

	return nil
}
