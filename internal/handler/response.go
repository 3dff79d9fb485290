package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/locvowork/sheet_aggregator/internal/logger"
	"github.com/locvowork/sheet_aggregator/internal/service"
	"github.com/locvowork/sheet_aggregator/internal/source"
	"github.com/locvowork/sheet_aggregator/pkg/fielddata"
	"github.com/locvowork/sheet_aggregator/pkg/sheetmerge"
	"github.com/locvowork/sheet_aggregator/pkg/workbook"
)

// ==================== Response Types ====================

type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Message string      `json:"message,omitempty"`
}

func respondJSON(c echo.Context, status int, resp APIResponse) error {
	return c.JSON(status, resp)
}

// respondError maps err to a status code and writes the error envelope.
func respondError(c echo.Context, message string, err error) error {
	status := statusFor(err)
	ctx := c.Request().Context()
	if status >= http.StatusInternalServerError {
		logger.ErrorLog(ctx, err, "%s", message)
	} else {
		logger.WarnLog(ctx, "%s: %v", message, err)
	}
	return respondJSON(c, status, APIResponse{
		Success: false,
		Error:   err.Error(),
		Message: message,
	})
}

func statusFor(err error) int {
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		return he.Code
	case errors.Is(err, service.ErrInvalidRequest), errors.Is(err, fielddata.ErrInvalidPayload):
		return http.StatusBadRequest
	case errors.Is(err, workbook.ErrSheetNotFound), errors.Is(err, service.ErrSearchDisabled):
		return http.StatusNotFound
	case errors.Is(err, source.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, sheetmerge.ErrNoSources),
		errors.Is(err, workbook.ErrInvalidPackage),
		errors.Is(err, workbook.ErrNoSheets):
		return http.StatusUnprocessableEntity
	case errors.Is(err, source.ErrFetchFailed):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
