package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sn-foods/commerce-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-signing-secret"

func testValidator() *JWTValidator {
	return NewJWTValidator(&config.AuthConfig{
		JWTSecret: testSecret,
		Issuer:    "https://auth.snfoods.example",
		Audience:  "commerce-api",
	})
}

func signToken(t *testing.T, secret string, method jwt.SigningMethod, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(method, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func validClaims(userID uuid.UUID) jwt.MapClaims {
	return jwt.MapClaims{
		"sub":   userID.String(),
		"email": "dana@example.com",
		"name":  "Dana Wu",
		"iss":   "https://auth.snfoods.example",
		"aud":   "commerce-api",
		"exp":   time.Now().Add(time.Hour).Unix(),
		"iat":   time.Now().Unix(),
	}
}

func TestValidateTokenSuccess(t *testing.T) {
	userID := uuid.New()
	token := signToken(t, testSecret, jwt.SigningMethodHS256, validClaims(userID))

	claims, err := testValidator().ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "dana@example.com", claims.Email)
	assert.Equal(t, "Dana Wu", claims.Name)
}

func TestValidateTokenWrongSecret(t *testing.T) {
	token := signToken(t, "some-other-secret", jwt.SigningMethodHS256, validClaims(uuid.New()))

	_, err := testValidator().ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateTokenExpired(t *testing.T) {
	claims := validClaims(uuid.New())
	claims["exp"] = time.Now().Add(-time.Minute).Unix()
	token := signToken(t, testSecret, jwt.SigningMethodHS256, claims)

	_, err := testValidator().ValidateToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidateTokenMissingExpiry(t *testing.T) {
	claims := validClaims(uuid.New())
	delete(claims, "exp")
	token := signToken(t, testSecret, jwt.SigningMethodHS256, claims)

	_, err := testValidator().ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateTokenWrongIssuer(t *testing.T) {
	claims := validClaims(uuid.New())
	claims["iss"] = "https://evil.example"
	token := signToken(t, testSecret, jwt.SigningMethodHS256, claims)

	_, err := testValidator().ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateTokenSubjectMustBeUUID(t *testing.T) {
	claims := validClaims(uuid.New())
	claims["sub"] = "not-a-uuid"
	token := signToken(t, testSecret, jwt.SigningMethodHS256, claims)

	_, err := testValidator().ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateTokenRejectsUnsignedToken(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodNone, validClaims(uuid.New()))
	unsigned, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = testValidator().ValidateToken(unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateTokenNoSecretConfigured(t *testing.T) {
	validator := NewJWTValidator(&config.AuthConfig{})
	token := signToken(t, testSecret, jwt.SigningMethodHS256, validClaims(uuid.New()))

	_, err := validator.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateTokenNameFallbacks(t *testing.T) {
	claims := validClaims(uuid.New())
	delete(claims, "name")
	claims["preferred_username"] = "dana.wu"
	token := signToken(t, testSecret, jwt.SigningMethodHS256, claims)

	parsed, err := testValidator().ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "dana.wu", parsed.Name)
}
