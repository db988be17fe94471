package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-auth-service/internal/middleware"
	"go-auth-service/internal/model"
	"go-auth-service/internal/service"
	"go-auth-service/internal/token"
)

const testSecret = "handler-test-secret"

// memoryDirectory is an in-memory stand-in for the user directory with
// the same error contract as the PostgreSQL-backed one.
type memoryDirectory struct {
	mu    sync.Mutex
	users map[string]model.User
}

func newMemoryDirectory() *memoryDirectory {
	return &memoryDirectory{users: map[string]model.User{}}
}

func (d *memoryDirectory) FindByUsername(_ context.Context, username string) (model.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	user, ok := d.users[username]
	if !ok {
		return model.User{}, model.ErrUserNotFound
	}
	return user, nil
}

func (d *memoryDirectory) FindByEmail(_ context.Context, email string) (model.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, user := range d.users {
		if user.Email != nil && *user.Email == email {
			return user, nil
		}
	}
	return model.User{}, model.ErrUserNotFound
}

func (d *memoryDirectory) Create(_ context.Context, u model.User) (model.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.users[u.Username]; ok {
		return model.User{}, model.ErrDuplicateUsername
	}
	for _, existing := range d.users {
		if existing.Email != nil && u.Email != nil && *existing.Email == *u.Email {
			return model.User{}, model.ErrDuplicateEmail
		}
	}

	u.ID = uuid.NewString()
	u.CreatedAt = time.Now().UTC()
	d.users[u.Username] = u
	return u, nil
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	codec, err := token.NewCodec(testSecret, "HS256", 30*time.Minute)
	require.NoError(t, err)

	authService := service.NewAuthService(newMemoryDirectory(), codec)
	authHandler := NewAuthHandler(authService)
	authMiddleware := middleware.NewAuthMiddleware(authService)

	r := chi.NewRouter()
	r.Post("/api/v1/auth/login", authHandler.Login)
	r.Post("/api/v1/auth/register", authHandler.Register)
	r.With(authMiddleware.RequireAuth).Get("/api/v1/auth/me", authHandler.Me)
	return r
}

func doRegister(t *testing.T, router http.Handler, payload string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", bytes.NewBufferString(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func doLogin(t *testing.T, router http.Handler, username string, passwd string) *httptest.ResponseRecorder {
	t.Helper()

	form := url.Values{}
	form.Set("username", username)
	form.Set("password", passwd)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) (map[string]any, *model.APIError) {
	t.Helper()

	var envelope struct {
		Success bool            `json:"success"`
		Data    map[string]any  `json:"data"`
		Error   *model.APIError `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope.Data, envelope.Error
}

func TestRegister(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		router := newTestRouter(t)

		rec := doRegister(t, router, `{"username":"bob","email":"b@x.com","password":"longenoughpw"}`)
		require.Equal(t, http.StatusCreated, rec.Code)

		data, _ := decodeEnvelope(t, rec)
		user := data["user"].(map[string]any)
		assert.Equal(t, "bob", user["username"])
		assert.Equal(t, "b@x.com", user["email"])
		assert.NotEmpty(t, user["id"])
		assert.Nil(t, user["password_hash"])
	})

	t.Run("duplicate username then duplicate email", func(t *testing.T) {
		router := newTestRouter(t)

		rec := doRegister(t, router, `{"username":"alice","email":"a@x.com","password":"longenoughpw"}`)
		require.Equal(t, http.StatusCreated, rec.Code)

		rec = doRegister(t, router, `{"username":"alice","email":"other@x.com","password":"longenoughpw"}`)
		require.Equal(t, http.StatusConflict, rec.Code)
		_, apiErr := decodeEnvelope(t, rec)
		assert.Equal(t, "Username already registered", apiErr.Message)

		rec = doRegister(t, router, `{"username":"fresh","email":"a@x.com","password":"longenoughpw"}`)
		require.Equal(t, http.StatusConflict, rec.Code)
		_, apiErr = decodeEnvelope(t, rec)
		assert.Equal(t, "Email already registered", apiErr.Message)
	})

	t.Run("shape validation", func(t *testing.T) {
		router := newTestRouter(t)

		for name, payload := range map[string]string{
			"username too short": `{"username":"ab","password":"longenoughpw"}`,
			"password too short": `{"username":"bob","password":"short"}`,
			"invalid email":      `{"username":"bob","email":"not-an-email","password":"longenoughpw"}`,
			"invalid json":       `{"username":`,
		} {
			rec := doRegister(t, router, payload)
			assert.Equal(t, http.StatusBadRequest, rec.Code, name)
		}
	})
}

func TestLogin(t *testing.T) {
	router := newTestRouter(t)
	rec := doRegister(t, router, `{"username":"bob","email":"b@x.com","password":"longenoughpw"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	t.Run("success returns bearer token", func(t *testing.T) {
		rec := doLogin(t, router, "bob", "longenoughpw")
		require.Equal(t, http.StatusAccepted, rec.Code)

		data, _ := decodeEnvelope(t, rec)
		assert.NotEmpty(t, data["access_token"])
		assert.Equal(t, "Bearer", data["token_type"])
		assert.Equal(t, float64(1800), data["expires_in"])
	})

	t.Run("unknown username", func(t *testing.T) {
		rec := doLogin(t, router, "ghost", "longenoughpw")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("wrong password", func(t *testing.T) {
		rec := doLogin(t, router, "bob", "wrongpassword")
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		_, apiErr := decodeEnvelope(t, rec)
		assert.Equal(t, "INVALID_CREDENTIALS", apiErr.Code)
	})

	t.Run("missing fields", func(t *testing.T) {
		rec := doLogin(t, router, "bob", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestMe(t *testing.T) {
	router := newTestRouter(t)
	rec := doRegister(t, router, `{"username":"bob","email":"b@x.com","password":"longenoughpw"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	login := doLogin(t, router, "bob", "longenoughpw")
	require.Equal(t, http.StatusAccepted, login.Code)
	data, _ := decodeEnvelope(t, login)
	accessToken := data["access_token"].(string)

	t.Run("resolves identity from token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
		req.Header.Set("Authorization", "Bearer "+accessToken)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		me, _ := decodeEnvelope(t, rec)
		assert.Equal(t, "bob", me["username"])
		assert.Equal(t, "b@x.com", me["email"])
	})

	t.Run("no token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("tampered token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
		req.Header.Set("Authorization", "Bearer "+accessToken+"x")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("expired token", func(t *testing.T) {
		expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, token.Claims{
			Username: "bob",
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
			},
		}).SignedString([]byte(testSecret))
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
		req.Header.Set("Authorization", "Bearer "+expired)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
