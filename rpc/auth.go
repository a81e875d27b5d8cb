package rpc

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

const jwtClockSkew = 2 * time.Minute

// authenticator guards mutating methods. A request passes when its bearer
// token equals the static token or is an HS256 JWT signed with the secret.
type authenticator struct {
	token  string
	secret []byte
	issuer string
	now    func() time.Time
}

func newAuthenticator(token, secret, issuer string) *authenticator {
	return &authenticator{
		token:  strings.TrimSpace(token),
		secret: []byte(strings.TrimSpace(secret)),
		issuer: strings.TrimSpace(issuer),
		now:    time.Now,
	}
}

func (a *authenticator) enabled() bool {
	return a != nil && (a.token != "" || len(a.secret) > 0)
}

func (a *authenticator) authorize(r *http.Request) *RPCError {
	if !a.enabled() {
		return &RPCError{Code: codeUnauthorized, Message: "RPC authentication not configured"}
	}
	header := r.Header.Get("Authorization")
	if header == "" {
		return &RPCError{Code: codeUnauthorized, Message: "missing Authorization header"}
	}
	token := extractBearer(header)
	if token == "" {
		return &RPCError{Code: codeUnauthorized, Message: "Authorization header must use Bearer scheme"}
	}
	if a.token != "" && subtle.ConstantTimeCompare([]byte(token), []byte(a.token)) == 1 {
		return nil
	}
	if len(a.secret) > 0 {
		if err := a.verifyJWT(token); err == nil {
			return nil
		}
	}
	return &RPCError{Code: codeUnauthorized, Message: "invalid RPC credentials"}
}

func (a *authenticator) verifyJWT(tokenString string) error {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	},
		jwt.WithLeeway(jwtClockSkew),
		jwt.WithTimeFunc(a.now),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return err
	}
	if !token.Valid {
		return errors.New("token invalid")
	}
	if a.issuer != "" {
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return errors.New("claims not map")
		}
		if iss, _ := claims["iss"].(string); iss != a.issuer {
			return errors.New("issuer mismatch")
		}
	}
	return nil
}

func extractBearer(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
