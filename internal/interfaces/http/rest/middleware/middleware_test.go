package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	apperrors "hoopgraph-backend/pkg/errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestClientRateLimiterPerClient(t *testing.T) {
	l := NewClientRateLimiter(60, 2, time.Minute)

	assert.True(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.1"))
	assert.False(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.2"), "buckets are per client")
}

func TestClientRateLimiterSweepsIdleClients(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	l := NewClientRateLimiter(60, 1, time.Minute)
	l.now = func() time.Time { return now }
	l.lastSweep = now

	l.Allow("a")
	l.Allow("b")
	require.Equal(t, 2, l.Len())

	now = now.Add(2 * time.Minute)
	l.Allow("c")
	assert.Equal(t, 1, l.Len())
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.0.2.10:5555"
	assert.Equal(t, "192.0.2.10", ClientIP(r))

	r.RemoteAddr = "192.0.2.11"
	assert.Equal(t, "192.0.2.11", ClientIP(r))
}

func TestBearerToken(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, bearerToken(r))

	r.Header.Set("Authorization", "Basic abc")
	assert.Empty(t, bearerToken(r))

	r.Header.Set("Authorization", "bearer  tok-1 ")
	assert.Equal(t, "tok-1", bearerToken(r))
}

type verifierFunc func(ctx context.Context, token string) (string, error)

func (f verifierFunc) Verify(ctx context.Context, token string) (string, error) {
	return f(ctx, token)
}

func TestAuthenticateStoresUser(t *testing.T) {
	verifier := verifierFunc(func(_ context.Context, token string) (string, error) {
		if token == "ok" {
			return "user-7", nil
		}
		return "", errors.New("bad token")
	})

	var seen string
	h := Authenticate(verifier, apperrors.NewErrorHandler(zap.NewNop(), false), zap.NewNop())(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen, _ = UserID(r.Context())
		}),
	)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer ok")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-7", seen)

	r.Header.Set("Authorization", "Bearer nope")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticateWithoutVerifierFailsClosed(t *testing.T) {
	h := Authenticate(nil, apperrors.NewErrorHandler(nil, false), zap.NewNop())(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler must not run")
		}),
	)
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer anything")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTimeoutSetsDeadline(t *testing.T) {
	var deadline bool
	h := Timeout(time.Second)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, deadline = r.Context().Deadline()
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.True(t, deadline)
}

func signToken(t *testing.T, secret string, claims jwt.RegisteredClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestJWTVerifier(t *testing.T) {
	v := NewJWTVerifier("s3cret", "https://proj.supabase.co/auth/v1", "authenticated")
	valid := jwt.RegisteredClaims{
		Subject:   "user-42",
		Issuer:    "https://proj.supabase.co/auth/v1",
		Audience:  jwt.ClaimStrings{"authenticated"},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}

	userID, err := v.Verify(context.Background(), signToken(t, "s3cret", valid))
	require.NoError(t, err)
	assert.Equal(t, "user-42", userID)

	_, err = v.Verify(context.Background(), signToken(t, "other", valid))
	assert.Error(t, err, "wrong secret")

	expired := valid
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	_, err = v.Verify(context.Background(), signToken(t, "s3cret", expired))
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	wrongAudience := valid
	wrongAudience.Audience = jwt.ClaimStrings{"anon"}
	_, err = v.Verify(context.Background(), signToken(t, "s3cret", wrongAudience))
	assert.Error(t, err)

	noSubject := valid
	noSubject.Subject = ""
	_, err = v.Verify(context.Background(), signToken(t, "s3cret", noSubject))
	assert.Error(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, valid).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = v.Verify(context.Background(), unsigned)
	assert.Error(t, err, "alg none is rejected")
}
