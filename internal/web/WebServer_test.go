package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/aptlist/users/internal/log"
	"github.com/aptlist/users/internal/models/user"
	"github.com/aptlist/users/internal/services"
)

const testSecret = "test-secret"

type envelope struct {
	Error json.RawMessage `json:"error"`
	Data  *struct {
		Users []user.User `json:"users"`
	} `json:"data"`
}

func newTestServer(t *testing.T) *WebServer {
	t.Helper()
	logger := log.Wrap(zaptest.NewLogger(t))
	um := user.NewUserManager(user.NewMemoryStore(), user.NewPBKDF2Hasher("test-pepper", 1000), logger)
	return NewWebServer(testSecret, time.Hour, services.NewUserService(um, nil, logger), logger)
}

func do(t *testing.T, s *WebServer, method, target, body, token string) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, raw
}

func decode(t *testing.T, raw []byte) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(raw, &env))
	return env
}

func register(t *testing.T, s *WebServer, username string) user.User {
	t.Helper()
	status, raw := do(t, s, http.MethodPost, "/register",
		`{"username":"`+username+`","email":"`+username+`@example.com","password":"pw","cpassword":"pw"}`, "")
	require.Equal(t, http.StatusCreated, status, string(raw))
	env := decode(t, raw)
	require.NotNil(t, env.Data)
	require.Len(t, env.Data.Users, 1)
	return env.Data.Users[0]
}

func login(t *testing.T, s *WebServer, username string) string {
	t.Helper()
	status, raw := do(t, s, http.MethodPost, "/login", `{"username":"`+username+`","password":"pw"}`, "")
	require.Equal(t, http.StatusOK, status, string(raw))
	var body struct {
		JWTToken string `json:"jwtToken"`
	}
	require.NoError(t, json.Unmarshal(raw, &body))
	require.NotEmpty(t, body.JWTToken)
	return body.JWTToken
}

func TestRegister(t *testing.T) {
	s := newTestServer(t)

	u := register(t, s, "bob")
	assert.Equal(t, "bob", u.Username)
	assert.Equal(t, "bob@example.com", u.Email)
	assert.NotEqual(t, "pw", u.Password)

	t.Run("missing field", func(t *testing.T) {
		status, raw := do(t, s, http.MethodPost, "/register", `{"username":"x","password":"pw","cpassword":"pw"}`, "")
		assert.Equal(t, http.StatusBadRequest, status)
		assert.JSONEq(t, `"Bad request: email field is missing"`, string(decode(t, raw).Error))
	})

	t.Run("passwords do not match", func(t *testing.T) {
		status, raw := do(t, s, http.MethodPost, "/register",
			`{"username":"x","email":"x@example.com","password":"a","cpassword":"b"}`, "")
		assert.Equal(t, http.StatusBadRequest, status)
		assert.JSONEq(t, `"Passwords do not match"`, string(decode(t, raw).Error))
	})

	t.Run("malformed body", func(t *testing.T) {
		status, _ := do(t, s, http.MethodPost, "/register", `{"username":`, "")
		assert.Equal(t, http.StatusBadRequest, status)
	})
}

func TestLogin(t *testing.T) {
	s := newTestServer(t)
	u := register(t, s, "bob")

	tokenString := login(t, s, "bob")
	token, err := jwt.Parse(tokenString, func(*jwt.Token) (interface{}, error) { return []byte(testSecret), nil })
	require.NoError(t, err)
	claims := token.Claims.(jwt.MapClaims)
	assert.Equal(t, u.UserID(), claims["sub"])
	assert.Contains(t, claims, "exp")

	status, _ := do(t, s, http.MethodPost, "/login", `{"username":"bob","password":"wrong"}`, "")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, raw := do(t, s, http.MethodPost, "/login", `{"username":"bob"}`, "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, string(raw), "password")
}

func TestFindUsers(t *testing.T) {
	s := newTestServer(t)
	bob := register(t, s, "bob")
	register(t, s, "james")

	status, raw := do(t, s, http.MethodGet, "/users", "", "")
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode(t, raw).Data.Users, 2)

	status, raw = do(t, s, http.MethodGet, "/users?username=bob", "", "")
	require.Equal(t, http.StatusOK, status)
	env := decode(t, raw)
	require.Len(t, env.Data.Users, 1)
	assert.Equal(t, bob.ID, env.Data.Users[0].ID)

	status, raw = do(t, s, http.MethodGet, "/users?_id="+bob.UserID(), "", "")
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode(t, raw).Data.Users, 1)

	status, raw = do(t, s, http.MethodGet, "/users?username=", "", "")
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, decode(t, raw).Data.Users)

	t.Run("malformed id is a cast error", func(t *testing.T) {
		status, raw := do(t, s, http.MethodGet, "/users?_id=xyz", "", "")
		assert.Equal(t, http.StatusBadRequest, status)

		var body services.CastErrorBody
		require.NoError(t, json.Unmarshal(decode(t, raw).Error, &body))
		assert.Equal(t, "CastError", body.Name)
		assert.Equal(t, "xyz", body.Value)
	})
}

func TestUpdateUser(t *testing.T) {
	s := newTestServer(t)
	bob := register(t, s, "bob")
	token := login(t, s, "bob")

	status, _ := do(t, s, http.MethodPut, "/users/"+bob.UserID(), `{"username":"robert"}`, "")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = do(t, s, http.MethodPut, "/users/"+bob.UserID(), `{"username":"robert"}`, "not-a-token")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, raw := do(t, s, http.MethodPut, "/users/"+bob.UserID(), `{"username":"robert"}`, token)
	require.Equal(t, http.StatusOK, status, string(raw))
	env := decode(t, raw)
	require.Len(t, env.Data.Users, 1)
	assert.Equal(t, "robert", env.Data.Users[0].Username)
	assert.Equal(t, bob.Email, env.Data.Users[0].Email)

	status, raw = do(t, s, http.MethodPut, "/users/52d47b2c41534264425c6e16", `{"username":"x"}`, token)
	assert.Equal(t, http.StatusNotFound, status, string(raw))

	status, _ = do(t, s, http.MethodPut, "/users/xyz", `{"username":"x"}`, token)
	assert.Equal(t, http.StatusBadRequest, status)

	status, raw = do(t, s, http.MethodPut, "/users/"+bob.UserID(), `{"password":"new","cpassword":"other"}`, token)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.JSONEq(t, `"Passwords do not match"`, string(decode(t, raw).Error))

	status, raw = do(t, s, http.MethodPut, "/users/"+bob.UserID(), `{"password":"new"}`, token)
	require.Equal(t, http.StatusOK, status, string(raw))
	assert.NotEqual(t, "new", decode(t, raw).Data.Users[0].Password)

	status, _ = do(t, s, http.MethodPost, "/login", `{"username":"robert","password":"new"}`, "")
	assert.Equal(t, http.StatusOK, status)
}

func TestAuthenticate(t *testing.T) {
	s := newTestServer(t)
	sign := func(claims jwt.MapClaims, secret string) string {
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
		require.NoError(t, err)
		return signed
	}

	valid, err := s.issueToken("52d47b2c41534264425c6e16")
	require.NoError(t, err)
	userID, err := s.authenticate("Bearer " + valid)
	require.NoError(t, err)
	assert.Equal(t, "52d47b2c41534264425c6e16", userID)

	tests := []struct {
		name   string
		header string
		want   error
	}{
		{"missing header", "", errMissingAuthHeader},
		{"wrong scheme", "Basic " + valid, errAuthHeaderFormat},
		{"no token", "Bearer", errAuthHeaderFormat},
		{"garbage token", "Bearer not-a-token", errInvalidToken},
		{"other secret", "Bearer " + sign(jwt.MapClaims{"sub": "x"}, "other"), errInvalidToken},
		{"expired", "Bearer " + sign(jwt.MapClaims{"sub": "x", "exp": time.Now().Add(-time.Minute).Unix()}, testSecret), errInvalidToken},
		{"no subject", "Bearer " + sign(jwt.MapClaims{"exp": time.Now().Add(time.Minute).Unix()}, testSecret), errInvalidSubject},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.authenticate(tt.header)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestClaimsFor(t *testing.T) {
	now := time.Unix(1700000000, 0)

	s := newTestServer(t)
	claims := s.claimsFor("id", now)
	assert.Equal(t, "id", claims["sub"])
	assert.Equal(t, now.Add(time.Hour).Unix(), claims["exp"])

	s.jwtTTL = 0
	assert.NotContains(t, s.claimsFor("id", now), "exp")
}

func TestRemoveUser(t *testing.T) {
	s := newTestServer(t)
	bob := register(t, s, "bob")
	token := login(t, s, "bob")

	status, _ := do(t, s, http.MethodDelete, "/users/"+bob.UserID(), "", "")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, raw := do(t, s, http.MethodDelete, "/users/"+bob.UserID(), "", token)
	require.Equal(t, http.StatusOK, status, string(raw))

	status, raw = do(t, s, http.MethodDelete, "/users/"+bob.UserID(), "", token)
	assert.Equal(t, http.StatusNotFound, status)
	assert.JSONEq(t, `"The user id return an invalid number of users(0)"`, string(decode(t, raw).Error))

	status, raw = do(t, s, http.MethodGet, "/users", "", "")
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, decode(t, raw).Data.Users)
}

func TestHealthAndRoutes(t *testing.T) {
	s := newTestServer(t)

	status, raw := do(t, s, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "OK", string(raw))

	status, raw = do(t, s, http.MethodGet, "/routes", "", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(raw), "/users/:id")
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusOf(&user.Error{Kind: user.KindMissingID}))
	assert.Equal(t, http.StatusNotFound, statusOf(&user.Error{Kind: user.KindNotFound}))
	assert.Equal(t, http.StatusInternalServerError, statusOf(&user.Error{Kind: user.KindStore}))
	assert.Equal(t, http.StatusInternalServerError, statusOf(io.EOF))
}
