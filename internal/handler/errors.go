package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"scrapdeal/internal/auth"
	apperrors "scrapdeal/internal/errors"
	"scrapdeal/internal/logger"
)

// fail converts a service error into the JSON error envelope. Internal
// failures are logged with their cause.
func fail(c echo.Context, err error) error {
	httpErr := apperrors.MapErrorToHTTP(err)
	if httpErr.IsInternal() {
		logger.L.ErrorContext(c.Request().Context(), "request failed",
			slog.String("method", c.Request().Method),
			slog.String("path", c.Path()),
			slog.Int("status", httpErr.StatusCode),
			slog.String("error", err.Error()),
		)
	}
	return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
}

// bindAndValidate decodes the request into req and runs its validate tags.
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return apperrors.Validation("invalid request body")
	}
	if err := c.Validate(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return apperrors.Validation(fe.Field() + " failed on the '" + fe.Tag() + "' rule")
		}
		return apperrors.Validation(err.Error())
	}
	return nil
}

func pathUUID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, apperrors.Validation("invalid " + name)
	}
	return id, nil
}

func callerID(c echo.Context) (uuid.UUID, error) {
	claims, ok := auth.CurrentUser(c)
	if !ok {
		return uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, apperrors.ErrorResponse{
			Error: "missing or invalid token",
			Code:  "UNAUTHORIZED",
		})
	}
	id, err := claims.UserUUID()
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, apperrors.ErrorResponse{
			Error: "missing or invalid token",
			Code:  "UNAUTHORIZED",
		})
	}
	return id, nil
}

// MessageResponse is a plain acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}
