package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenValidity = 24 * time.Hour

// CreateToken issues a session token bound to a username and the connection
// id minted at login.
func CreateToken(username, connectionID, secret string) (string, error) {
	claims := jwt.MapClaims{
		"sub": username,
		"cid": connectionID,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(tokenValidity).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ExtractSession validates a token and returns the username and connection
// id it was issued for.
func ExtractSession(tokenString, secret string) (username, connectionID string, err error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return "", "", err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", "", errors.New("invalid token")
	}

	username, _ = claims["sub"].(string)
	connectionID, _ = claims["cid"].(string)
	if username == "" || connectionID == "" {
		return "", "", errors.New("invalid token claims")
	}
	return username, connectionID, nil
}
