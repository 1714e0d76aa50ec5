package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"cookbook/globals"
	"cookbook/utils"

	"github.com/golang-jwt/jwt/v5"
	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

var ErrMissingToken = errors.New("missing bearer token")

// Auth verifies HS256 bearer tokens and puts the subject into the request
// context under globals.UserIDKey.
type Auth struct {
	secret []byte
	logger *zap.Logger
}

func NewAuth(secret string, logger *zap.Logger) *Auth {
	return &Auth{secret: []byte(secret), logger: logger}
}

func (a *Auth) userID(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(raw) == "" {
		return "", ErrMissingToken
	}

	token, err := jwt.Parse(strings.TrimSpace(raw), func(token *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return "", err
	}
	sub, err := token.Claims.GetSubject()
	if err != nil {
		return "", err
	}
	if sub == "" {
		if claims, ok := token.Claims.(jwt.MapClaims); ok {
			sub, _ = claims["userId"].(string)
		}
	}
	if sub == "" {
		return "", jwt.ErrTokenInvalidSubject
	}
	return sub, nil
}

// Authenticate rejects requests without a valid token.
func (a *Auth) Authenticate(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		userID, err := a.userID(r)
		if err != nil {
			a.logger.Debug("authentication failed", zap.String("path", r.URL.Path), zap.Error(err))
			utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), globals.UserIDKey, userID)), ps)
	}
}

// OptionalAuth identifies the caller when a valid token is present and
// serves the request anonymously otherwise.
func (a *Auth) OptionalAuth(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if userID, err := a.userID(r); err == nil {
			r = r.WithContext(context.WithValue(r.Context(), globals.UserIDKey, userID))
		}
		next(w, r, ps)
	}
}
