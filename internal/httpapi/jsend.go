package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// JSend status values.
const (
	statusSuccess = "success"
	statusFail    = "fail"
	statusError   = "error"
)

// jsendBody is the envelope every API response is wrapped in.
// Data carries the payload on success and the offending fields on fail.
type jsendBody struct {
	Status  string `json:"status"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}

func respond(c echo.Context, code int, body jsendBody) error {
	if c.Response().Committed {
		return nil
	}
	return c.JSON(code, body)
}

func success(c echo.Context, data any) error {
	return respond(c, http.StatusOK, jsendBody{Status: statusSuccess, Data: data})
}

// accepted answers a request whose work continues in the background.
func accepted(c echo.Context, data any) error {
	return respond(c, http.StatusAccepted, jsendBody{Status: statusSuccess, Data: data})
}

func fail(c echo.Context, code int, message string, data any) error {
	return respond(c, code, jsendBody{Status: statusFail, Message: message, Data: data})
}

func failValidation(c echo.Context, fieldErrors map[string]string) error {
	return fail(c, http.StatusBadRequest, "Validation failed", map[string]any{
		"validation_errors": fieldErrors,
	})
}

// failRequest reports a request the translator rejected as a whole.
func failRequest(c echo.Context, err error) error {
	return failValidation(c, map[string]string{"request": err.Error()})
}

func failNotFound(c echo.Context, message string) error {
	return fail(c, http.StatusNotFound, message, nil)
}

func serverError(c echo.Context, message string) error {
	return respond(c, http.StatusInternalServerError, jsendBody{
		Status:  statusError,
		Message: message,
		Code:    http.StatusInternalServerError,
	})
}
