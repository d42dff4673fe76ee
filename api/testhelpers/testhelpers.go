package testhelpers

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TestSecret signs the tokens handed out by Token
const TestSecret = "test-secret"

// Token returns a signed bearer token for userID valid for an hour
func Token(userID string) string {
	return SignedToken(TestSecret, jwt.MapClaims{
		"sub":      userID,
		"username": userID,
		"exp":      time.Now().Add(time.Hour).Unix(),
	})
}

// SignedToken signs claims with HS256 and secret
func SignedToken(secret string, claims jwt.MapClaims) string {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		panic(err)
	}
	return token
}

// BearerHeader is Token formatted for the Authorization header
func BearerHeader(userID string) string {
	return "Bearer " + Token(userID)
}
