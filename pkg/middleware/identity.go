package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/propertydeck/leadsync/pkg/models"
)

// Identity headers set by the upstream auth proxy
const (
	HeaderUserID   = "X-User-Id"
	HeaderUserName = "X-User-Name"
	HeaderUserRole = "X-User-Role"
)

// UserContextKey is where the acting user is stored on the echo context
const UserContextKey = "user"

// Identity extracts the acting user from the proxy headers. Requests
// without an asserted identity are rejected; this service never does its
// own authentication.
func Identity() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Request().Header.Get(HeaderUserID)
			if id == "" {
				return c.JSON(http.StatusUnauthorized, models.ErrorResponse{
					Error:   "unauthorized",
					Message: "Missing user identity",
				})
			}

			role := c.Request().Header.Get(HeaderUserRole)
			if role == "" {
				role = "agent"
			}

			c.Set(UserContextKey, &models.User{
				ID:   id,
				Name: c.Request().Header.Get(HeaderUserName),
				Role: role,
			})
			return next(c)
		}
	}
}

// UserFrom returns the user stored by Identity, or nil
func UserFrom(c echo.Context) *models.User {
	if u, ok := c.Get(UserContextKey).(*models.User); ok {
		return u
	}
	return nil
}
