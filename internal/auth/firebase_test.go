package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"encoding/pem"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testProjectID = "tasks-app"

type certServer struct {
	*httptest.Server
	key      *rsa.PrivateKey
	requests atomic.Int32
}

func newCertServer(t *testing.T, kid string) *certServer {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "securetoken.system.gserviceaccount.com"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})

	cs := &certServer{key: key}
	cs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cs.requests.Add(1)
		w.Header().Set("Cache-Control", "public, max-age=19000, must-revalidate, no-transform")
		json.NewEncoder(w).Encode(map[string]string{kid: string(certPEM)})
	}))
	t.Cleanup(cs.Close)
	return cs
}

func (cs *certServer) sign(t *testing.T, kid string, claims jwt.Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = kid
	signed, err := token.SignedString(cs.key)
	require.NoError(t, err)
	return signed
}

func validClaims() *FirebaseClaims {
	now := time.Now()
	return &FirebaseClaims{
		UserID: "uid-123",
		Email:  "user@example.com",
		StandardClaims: jwt.StandardClaims{
			Audience:  testProjectID,
			Issuer:    firebaseIssuerPrefix + testProjectID,
			Subject:   "uid-123",
			IssuedAt:  now.Add(-time.Minute).Unix(),
			ExpiresAt: now.Add(time.Hour).Unix(),
		},
	}
}

func TestFirebaseVerifier_ValidToken(t *testing.T) {
	server := newCertServer(t, "key-1")
	verifier := NewFirebaseVerifier(testProjectID, server.URL, zap.NewNop())

	identity, err := verifier.Verify(context.Background(), server.sign(t, "key-1", validClaims()))
	require.NoError(t, err)

	assert.Equal(t, "uid-123", identity.UID)
	assert.Equal(t, "user@example.com", identity.Email)
}

func TestFirebaseVerifier_CachesKeys(t *testing.T) {
	server := newCertServer(t, "key-1")
	verifier := NewFirebaseVerifier(testProjectID, server.URL, zap.NewNop())

	for i := 0; i < 3; i++ {
		_, err := verifier.Verify(context.Background(), server.sign(t, "key-1", validClaims()))
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), server.requests.Load())
}

func TestFirebaseVerifier_RefetchesAfterExpiry(t *testing.T) {
	server := newCertServer(t, "key-1")
	verifier := NewFirebaseVerifier(testProjectID, server.URL, zap.NewNop())
	now := time.Now()
	verifier.now = func() time.Time { return now }

	_, err := verifier.Verify(context.Background(), server.sign(t, "key-1", validClaims()))
	require.NoError(t, err)

	now = now.Add(19001 * time.Second)
	verifier.now = func() time.Time { return now }
	// The token itself would be expired at the shifted clock, so only check the fetch.
	_, _ = verifier.publicKey(context.Background(), "key-1")
	assert.Equal(t, int32(2), server.requests.Load())
}

func TestFirebaseVerifier_Rejections(t *testing.T) {
	server := newCertServer(t, "key-1")
	verifier := NewFirebaseVerifier(testProjectID, server.URL, zap.NewNop())

	tests := []struct {
		name    string
		kid     string
		mutate  func(c *FirebaseClaims)
		wantErr error
	}{
		{
			name:    "wrong audience",
			kid:     "key-1",
			mutate:  func(c *FirebaseClaims) { c.Audience = "other-project" },
			wantErr: ErrInvalidJWTToken,
		},
		{
			name:    "wrong issuer",
			kid:     "key-1",
			mutate:  func(c *FirebaseClaims) { c.Issuer = "https://evil.example.com/" + testProjectID },
			wantErr: ErrInvalidJWTToken,
		},
		{
			name:    "empty subject",
			kid:     "key-1",
			mutate:  func(c *FirebaseClaims) { c.Subject = "" },
			wantErr: ErrInvalidJWTToken,
		},
		{
			name:    "expired",
			kid:     "key-1",
			mutate:  func(c *FirebaseClaims) { c.ExpiresAt = time.Now().Add(-time.Minute).Unix() },
			wantErr: ErrExpiredJWTToken,
		},
		{
			name:    "unknown key id",
			kid:     "key-2",
			mutate:  func(c *FirebaseClaims) {},
			wantErr: ErrUnknownSigningKey,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims := validClaims()
			tt.mutate(claims)
			_, err := verifier.Verify(context.Background(), server.sign(t, tt.kid, claims))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestFirebaseVerifier_RejectsHMACToken(t *testing.T) {
	server := newCertServer(t, "key-1")
	verifier := NewFirebaseVerifier(testProjectID, server.URL, zap.NewNop())

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, validClaims())
	token.Header["kid"] = "key-1"
	signed, err := token.SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = verifier.Verify(context.Background(), signed)
	assert.ErrorIs(t, err, ErrInvalidJWTToken)
}

func TestFirebaseVerifier_CertEndpointDown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()
	verifier := NewFirebaseVerifier(testProjectID, server.URL, zap.NewNop())

	err := verifier.Refresh(context.Background())
	assert.Error(t, err)

	signer := newCertServer(t, "key-1")
	_, err = verifier.Verify(context.Background(), signer.sign(t, "key-1", validClaims()))
	assert.ErrorIs(t, err, ErrInvalidJWTToken)
}

func TestMaxAge(t *testing.T) {
	assert.Equal(t, 19000*time.Second, maxAge("public, max-age=19000, must-revalidate"))
	assert.Equal(t, defaultKeysMaxAge, maxAge(""))
	assert.Equal(t, defaultKeysMaxAge, maxAge("max-age=abc"))
}
