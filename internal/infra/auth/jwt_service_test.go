package auth

import (
	"testing"
	"time"

	"herald/config"
	"herald/internal/domain/credential"
	"herald/internal/domain/service"
	"herald/internal/errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		SecretKey: config.SecretKeyConfig{
			Access:  "test_access_secret_key_very_long_for_testing",
			Refresh: "test_refresh_secret_key_very_long_for_testing",
		},
		Auth: &config.AuthConfig{
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 7 * 24 * time.Hour,
		},
	}
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func newTestJWTService(t *testing.T) (*jwtService, *fakeClock) {
	t.Helper()

	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	svc, err := newJWTService(testConfig(), clock.Now)
	require.NoError(t, err)

	return svc, clock
}

func TestNewJWTService_FailsClosed(t *testing.T) {
	cfg := testConfig()
	cfg.SecretKey.Refresh = ""
	_, err := NewJWTService(cfg)
	assert.ErrorIs(t, err, ErrMissingSecrets)

	cfg = testConfig()
	cfg.SecretKey.Refresh = cfg.SecretKey.Access
	_, err = NewJWTService(cfg)
	assert.ErrorIs(t, err, ErrSharedSecret)
}

func TestJWTService_IssueAndVerify(t *testing.T) {
	svc, clock := newTestJWTService(t)
	accountID := uuid.New()

	pair, err := svc.IssuePair(accountID)
	require.NoError(t, err)
	assert.Equal(t, clock.t.Add(15*time.Minute), pair.AccessExpiresAt)
	assert.Equal(t, clock.t.Add(7*24*time.Hour), pair.RefreshExpiresAt)

	access, err := svc.VerifyAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, accountID, access.AccountID)
	assert.Equal(t, service.TokenTypeAccess, access.Type)
	assert.NotEmpty(t, access.ID)

	refresh, err := svc.VerifyRefresh(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, accountID, refresh.AccountID)
	assert.Equal(t, service.TokenTypeRefresh, refresh.Type)
}

func TestJWTService_PairsIssuedInSameSecondDiffer(t *testing.T) {
	svc, _ := newTestJWTService(t)
	accountID := uuid.New()

	first, err := svc.IssuePair(accountID)
	require.NoError(t, err)
	second, err := svc.IssuePair(accountID)
	require.NoError(t, err)

	assert.NotEqual(t, svc.Fingerprint(first.RefreshToken), svc.Fingerprint(second.RefreshToken))
}

func TestJWTService_VerifyFailures(t *testing.T) {
	svc, clock := newTestJWTService(t)
	pair, err := svc.IssuePair(uuid.New())
	require.NoError(t, err)

	t.Run("missing", func(t *testing.T) {
		_, err := svc.VerifyAccess("")
		assert.True(t, errors.Is(err, credential.ErrMissingToken))
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.VerifyAccess("clearly-not-a-jwt-token-format")
		assert.True(t, errors.Is(err, credential.ErrMalformedToken))
	})

	t.Run("refresh used as access", func(t *testing.T) {
		_, err := svc.VerifyAccess(pair.RefreshToken)
		assert.True(t, errors.Is(err, credential.ErrMalformedToken))
	})

	t.Run("access used as refresh", func(t *testing.T) {
		_, err := svc.VerifyRefresh(pair.AccessToken)
		assert.True(t, errors.Is(err, credential.ErrMalformedToken))
	})

	t.Run("wrong algorithm", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
			"sub": uuid.NewString(),
			"typ": "access",
			"exp": clock.t.Add(time.Minute).Unix(),
		})
		raw, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = svc.VerifyAccess(raw)
		assert.True(t, errors.Is(err, credential.ErrMalformedToken))
	})

	t.Run("expired", func(t *testing.T) {
		clock.t = clock.t.Add(16 * time.Minute)
		_, err := svc.VerifyAccess(pair.AccessToken)
		assert.True(t, errors.Is(err, credential.ErrExpiredToken))

		_, err = svc.VerifyRefresh(pair.RefreshToken)
		assert.NoError(t, err)
	})
}

func TestJWTService_Fingerprint(t *testing.T) {
	svc, _ := newTestJWTService(t)

	fp := svc.Fingerprint("abc")
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", fp)
	assert.Equal(t, fp, svc.Fingerprint("abc"))
}
