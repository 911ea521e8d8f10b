package fulfillment

import (
	"crypto/subtle"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Authorizer checks the Authorization header of fulfillment requests.
//
// A caller is allowed when it presents "Bearer <token>" or a bearer HS256
// JWT signed with token. The zero token allows everyone.
type Authorizer struct {
	token string
}

func NewAuthorizer(token string) *Authorizer {
	return &Authorizer{token: token}
}

// Enabled reports whether a token is required.
func (a *Authorizer) Enabled() bool {
	return a.token != ""
}

// Allow reports whether header carries an accepted credential.
func (a *Authorizer) Allow(header string) bool {
	if !a.Enabled() {
		return true
	}
	bearer, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || bearer == "" {
		return false
	}
	if subtle.ConstantTimeCompare([]byte(bearer), []byte(a.token)) == 1 {
		return true
	}

	_, err := jwt.Parse(bearer, func(*jwt.Token) (any, error) {
		return []byte(a.token), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	return err == nil
}
