package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"net/http" // HTTP status codes for responses
	"strconv"
	"strings" // string utilities for prefix checking and trimming

	"github.com/golang-jwt/jwt/v5" // JWT library for parsing and validating tokens
	"github.com/labstack/echo/v4"  // Echo framework used for defining middleware and handlers

	"github.com/GHtech935/glampinghub/internal/model"
)

// sessionKey is the echo context key holding the caller's model.Session.
const sessionKey = "session"

// JWTAuth returns an Echo middleware that validates a Bearer access token and
// stores the caller as a model.Session in the request context. The token
// carries the subject (sub), the role and an optional zone_ids claim; a
// missing or null zone_ids means the caller may manage every zone. Handlers
// read the session with SessionFrom.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// A valid header starts with "Bearer " followed by the JWT.
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return unauthorized(c, "missing bearer token")
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			// Only HMAC tokens signed with our secret are accepted.
			tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, echo.ErrUnauthorized
				}
				return []byte(secret), nil
			})
			if err != nil || !tok.Valid {
				return unauthorized(c, "invalid token")
			}
			claims, ok := tok.Claims.(jwt.MapClaims)
			if !ok {
				return unauthorized(c, "invalid claims")
			}

			sess, ok := sessionFromClaims(claims)
			if !ok {
				return unauthorized(c, "invalid claims")
			}
			c.Set(sessionKey, sess)
			return next(c)
		}
	}
}

// sessionFromClaims converts token claims into a session. The subject must
// be a positive user ID, given either as a JSON number or a string.
func sessionFromClaims(claims jwt.MapClaims) (model.Session, bool) {
	var sess model.Session
	switch v := claims["sub"].(type) {
	case float64:
		if v <= 0 {
			return sess, false
		}
		sess.UserID = uint64(v)
	case string:
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil || n == 0 {
			return sess, false
		}
		sess.UserID = n
	default:
		return sess, false
	}
	role, _ := claims["role"].(string)
	sess.Role = strings.ToLower(strings.TrimSpace(role))

	// zone_ids absent or null: every zone. An empty list: none.
	if raw, ok := claims["zone_ids"].([]interface{}); ok {
		sess.AccessibleZoneIDs = make([]uint64, 0, len(raw))
		for _, z := range raw {
			f, ok := z.(float64)
			if !ok || f <= 0 {
				return sess, false
			}
			sess.AccessibleZoneIDs = append(sess.AccessibleZoneIDs, uint64(f))
		}
	}
	return sess, true
}

// SessionFrom returns the session stored by JWTAuth.
func SessionFrom(c echo.Context) (model.Session, bool) {
	sess, ok := c.Get(sessionKey).(model.Session)
	return sess, ok
}

// userID identifies the caller for rate-limit keys; "anon" when no session
// is present.
func userID(c echo.Context) string {
	if sess, ok := SessionFrom(c); ok && sess.UserID != 0 {
		return strconv.FormatUint(sess.UserID, 10)
	}
	return "anon"
}

func unauthorized(c echo.Context, msg string) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": echo.Map{"code": "unauthorized", "message": msg}})
}
