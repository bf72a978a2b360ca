package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/buildwise/backend/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const testSecret = "auth-test-secret"

type fakeUsers struct {
	users map[primitive.ObjectID]*models.User
}

func (f *fakeUsers) UserByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	return f.users[id], nil
}

func signToken(t *testing.T, userID primitive.ObjectID, secret string, expiry time.Duration) string {
	t.Helper()
	claims := Claims{
		UserID: userID.Hex(),
		Email:  "worker@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func runAuth(t *testing.T, loader UserLoader, header string) (*httptest.ResponseRecorder, *models.User) {
	t.Helper()
	var got *models.User
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = UserFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	r := httptest.NewRequest(http.MethodGet, "/api/projects", nil)
	if header != "" {
		r.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	Auth(testSecret, loader)(next).ServeHTTP(w, r)
	return w, got
}

func TestAuth(t *testing.T) {
	user := &models.User{ID: primitive.NewObjectID(), Email: "worker@example.com", Role: models.RoleUser, IsActive: true}
	loader := &fakeUsers{users: map[primitive.ObjectID]*models.User{user.ID: user}}

	t.Run("valid token loads user into context", func(t *testing.T) {
		token := signToken(t, user.ID, testSecret, time.Hour)
		w, got := runAuth(t, loader, "Bearer "+token)

		assert.Equal(t, http.StatusOK, w.Code)
		require.NotNil(t, got)
		assert.Equal(t, user.ID, got.ID)
	})

	t.Run("missing header", func(t *testing.T) {
		w, _ := runAuth(t, loader, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("malformed header", func(t *testing.T) {
		w, _ := runAuth(t, loader, "Token abc")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("wrong signature", func(t *testing.T) {
		token := signToken(t, user.ID, "some-other-secret", time.Hour)
		w, _ := runAuth(t, loader, "Bearer "+token)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("expired token", func(t *testing.T) {
		token := signToken(t, user.ID, testSecret, -time.Hour)
		w, _ := runAuth(t, loader, "Bearer "+token)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("unknown user", func(t *testing.T) {
		token := signToken(t, primitive.NewObjectID(), testSecret, time.Hour)
		w, _ := runAuth(t, loader, "Bearer "+token)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("deactivated user is rejected on every request", func(t *testing.T) {
		inactive := &models.User{ID: primitive.NewObjectID(), Role: models.RoleUser, IsActive: false}
		l := &fakeUsers{users: map[primitive.ObjectID]*models.User{inactive.ID: inactive}}
		token := signToken(t, inactive.ID, testSecret, time.Hour)
		w, _ := runAuth(t, l, "Bearer "+token)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestUserFromContext(t *testing.T) {
	_, ok := UserFromContext(context.Background())
	assert.False(t, ok)

	u := &models.User{ID: primitive.NewObjectID()}
	got, ok := UserFromContext(WithUser(context.Background(), u))
	assert.True(t, ok)
	assert.Equal(t, u, got)
}
