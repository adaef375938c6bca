package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

type contextKey string

const CartSessionKey contextKey = "cart_session_id"

// SessionConfig describes the signed cart session cookie
type SessionConfig struct {
	CookieName string
	Secret     string
	MaxAge     time.Duration
	Secure     bool
}

// CartSessionMiddleware resolves the caller's cart session id from a signed
// cookie. Missing, expired or tampered cookies start a new session and the
// fresh cookie is written to the response.
func CartSessionMiddleware(cfg SessionConfig, newSessionID func() string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID, err := readSessionCookie(r, cfg)
			if err != nil {
				if !errors.Is(err, http.ErrNoCookie) {
					logger.Debug("Discarding invalid cart session cookie", zap.Error(err))
				}

				sessionID = newSessionID()
				token, err := signSession(sessionID, cfg, time.Now())
				if err != nil {
					logger.Error("Failed to sign cart session", zap.Error(err))
					RespondWithError(w, http.StatusInternalServerError, "internal server error")
					return
				}

				http.SetCookie(w, &http.Cookie{
					Name:     cfg.CookieName,
					Value:    token,
					Path:     "/",
					MaxAge:   int(cfg.MaxAge.Seconds()),
					HttpOnly: true,
					Secure:   cfg.Secure,
					SameSite: http.SameSiteLaxMode,
				})
				logger.Debug("Started cart session", zap.String("session_id", sessionID))
			}

			ctx := context.WithValue(r.Context(), CartSessionKey, sessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetCartSessionID extracts the cart session id from request context
func GetCartSessionID(ctx context.Context) (string, bool) {
	sessionID, ok := ctx.Value(CartSessionKey).(string)
	return sessionID, ok && sessionID != ""
}

func readSessionCookie(r *http.Request, cfg SessionConfig) (string, error) {
	cookie, err := r.Cookie(cfg.CookieName)
	if err != nil {
		return "", err
	}

	claims := &jwt.RegisteredClaims{}
	_, err = jwt.ParseWithClaims(cookie.Value, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(cfg.Secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return "", err
	}

	if claims.Subject == "" {
		return "", errors.New("cart session token has no subject")
	}
	return claims.Subject, nil
}

func signSession(sessionID string, cfg SessionConfig, now time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   sessionID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(cfg.MaxAge)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Secret))
}
