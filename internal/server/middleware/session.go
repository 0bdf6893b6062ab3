package middleware

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
)

const userIDKey = "user_id"

// SessionFunc reports the signed-in user id.
type SessionFunc func(ctx context.Context) (int64, bool)

// RequireSession rejects requests with 401 while nobody is signed in.
func RequireSession(session SessionFunc) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := session(c.Request().Context())
			if !ok {
				return &ResponseError{
					Status:       http.StatusUnauthorized,
					ErrorCode:    "unauthenticated",
					ErrorMessage: "sign in first",
				}
			}
			c.Set(userIDKey, id)
			return next(c)
		}
	}
}

// GetUserID returns the id stored by RequireSession, or 0.
func GetUserID(c echo.Context) int64 {
	id, _ := c.Get(userIDKey).(int64)
	return id
}
