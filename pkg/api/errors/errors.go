package errors

import (
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/propertydeck/leadsync/pkg/domain"
	"github.com/propertydeck/leadsync/pkg/models"
)

// ValidationError returns the validation failure with its user-facing reason
func ValidationError(c echo.Context, err error) error {
	return c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Error:   "validation_error",
		Message: domain.UserMessage(err),
	})
}

// InternalError returns a generic internal server error
func InternalError(c echo.Context, err error) error {
	// Log the actual error for debugging
	log.Printf("[INTERNAL ERROR] Path: %s, Error: %v", c.Request().URL.Path, err)

	return c.JSON(http.StatusInternalServerError, models.ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred. Please try again later.",
	})
}

// UpstreamError reports a failed record store call
func UpstreamError(c echo.Context, err error) error {
	// Log the actual error for debugging
	log.Printf("[UPSTREAM ERROR] Path: %s, Error: %v", c.Request().URL.Path, err)

	return c.JSON(http.StatusBadGateway, models.ErrorResponse{
		Error:   "upstream_error",
		Message: domain.UserMessage(err),
	})
}

// UnauthorizedError returns a generic unauthorized error
func UnauthorizedError(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, models.ErrorResponse{
		Error:   "unauthorized",
		Message: "You are not authorized to access this resource.",
	})
}

// ForbiddenError maps a permission denial. The message is distinct from
// validation failures so the client can tell them apart.
func ForbiddenError(c echo.Context, err error) error {
	return c.JSON(http.StatusForbidden, models.ErrorResponse{
		Error:   "forbidden",
		Message: domain.UserMessage(err),
	})
}

// NotFoundError returns a not found error
func NotFoundError(c echo.Context, err error) error {
	return c.JSON(http.StatusNotFound, models.ErrorResponse{
		Error:   "not_found",
		Message: domain.UserMessage(err),
	})
}

// ConflictError reports a refused conflicting operation
func ConflictError(c echo.Context, err error) error {
	return c.JSON(http.StatusConflict, models.ErrorResponse{
		Error:   "conflict",
		Message: domain.UserMessage(err),
	})
}

// FromDomain maps a domain error onto the matching HTTP response
func FromDomain(c echo.Context, err error) error {
	switch domain.GetErrorCode(err) {
	case domain.ErrCodeNotFound:
		return NotFoundError(c, err)
	case domain.ErrCodeValidation, domain.ErrCodeBadRequest:
		return ValidationError(c, err)
	case domain.ErrCodeForbidden:
		return ForbiddenError(c, err)
	case domain.ErrCodeConflict:
		return ConflictError(c, err)
	case domain.ErrCodeUpstream:
		return UpstreamError(c, err)
	}
	return InternalError(c, err)
}
