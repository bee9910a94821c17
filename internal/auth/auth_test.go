package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"wallet-service/internal/domain"
	"wallet-service/internal/repository/memstore"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

func sign(t *testing.T, key *rsa.PrivateKey, claims Claims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	require.NoError(t, err)
	return tok
}

func validClaims(uid string) Claims {
	return Claims{
		UserID: uid,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "auth-service",
			Audience:  jwt.ClaimStrings{"wallet-service"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
}

func TestVerifier(t *testing.T) {
	key := newKey(t)
	v := NewVerifier(&key.PublicKey, "auth-service", "wallet-service")

	t.Run("ok", func(t *testing.T) {
		claims, err := v.ParseAndValidate(sign(t, key, validClaims("usr_1")))
		require.NoError(t, err)
		require.Equal(t, "usr_1", claims.UserID)
	})

	t.Run("fail, expired", func(t *testing.T) {
		c := validClaims("usr_1")
		c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
		_, err := v.ParseAndValidate(sign(t, key, c))
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("fail, wrong audience", func(t *testing.T) {
		c := validClaims("usr_1")
		c.Audience = jwt.ClaimStrings{"other-service"}
		_, err := v.ParseAndValidate(sign(t, key, c))
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("fail, foreign key", func(t *testing.T) {
		_, err := v.ParseAndValidate(sign(t, newKey(t), validClaims("usr_1")))
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("fail, hmac token", func(t *testing.T) {
		tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, validClaims("usr_1")).SignedString([]byte("secret"))
		require.NoError(t, err)
		_, err = v.ParseAndValidate(tok)
		require.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestLoadRSAPublicKeyFromPEM(t *testing.T) {
	key := newKey(t)
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "pub.pem")
	require.NoError(t, os.WriteFile(path, pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), 0o600))

	pub, err := LoadRSAPublicKeyFromPEM(path)
	require.NoError(t, err)
	require.True(t, key.PublicKey.Equal(pub))

	_, err = ParseRSAPublicKeyPEM([]byte("not pem"))
	require.Error(t, err)
}

func TestMiddleware(t *testing.T) {
	key := newKey(t)
	store := memstore.New()
	require.NoError(t, store.CreateUser(t.Context(), &domain.User{ID: "usr_1", Email: "a@example.com", IsActive: true}))
	require.NoError(t, store.CreateUser(t.Context(), &domain.User{ID: "usr_off", Email: "b@example.com", IsActive: false}))

	mw := NewMiddleware(NewVerifier(&key.PublicKey, "auth-service", "wallet-service"), store.Users(), zap.NewNop())
	h := mw.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := GetUser(r.Context())
		require.True(t, ok)
		uid, ok := GetUserID(r.Context())
		require.True(t, ok)
		require.Equal(t, user.ID, uid)
		w.WriteHeader(http.StatusNoContent)
	}))

	do := func(authz string) int {
		req := httptest.NewRequest(http.MethodGet, "/wallet/balance", nil)
		if authz != "" {
			req.Header.Set("Authorization", authz)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	require.Equal(t, http.StatusNoContent, do("Bearer "+sign(t, key, validClaims("usr_1"))))
	require.Equal(t, http.StatusUnauthorized, do(""))
	require.Equal(t, http.StatusUnauthorized, do("Basic abc"))
	require.Equal(t, http.StatusUnauthorized, do("Bearer garbage"))
	require.Equal(t, http.StatusUnauthorized, do("Bearer "+sign(t, key, validClaims("usr_missing"))))
	require.Equal(t, http.StatusUnauthorized, do("Bearer "+sign(t, key, validClaims("usr_off"))))

	t.Run("ok, token query parameter", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/wallet/ws?token="+sign(t, key, validClaims("usr_1")), nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusNoContent, rec.Code)
	})
}
