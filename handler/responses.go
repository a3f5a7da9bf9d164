// ABOUTME: This file defines the response envelope shared by all handlers
// ABOUTME: Success is code 0; failures carry the HTTP status as the code
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"rss-digest/domain"
	"rss-digest/utils"
)

// Envelope is the uniform response body: {"code": 0, "message": "success",
// "data": ...} on success, a non-zero code and a human message on failure.
type Envelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Pagination describes one page of a list response.
type Pagination struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
	Count   int `json:"count"`
}

func respondOK(c echo.Context, data any) error {
	return c.JSON(http.StatusOK, Envelope{Code: 0, Message: "success", Data: data})
}

func respondCreated(c echo.Context, data any) error {
	return c.JSON(http.StatusCreated, Envelope{Code: 0, Message: "success", Data: data})
}

func respondError(c echo.Context, status int, message string) error {
	return c.JSON(status, Envelope{Code: status, Message: message})
}

// respondDomainError maps domain sentinel errors onto HTTP statuses.
func respondDomainError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrFeedNotFound),
		errors.Is(err, domain.ErrArticleNotFound),
		errors.Is(err, domain.ErrDigestNotFound),
		errors.Is(err, domain.ErrRuleNotFound),
		errors.Is(err, domain.ErrProviderNotFound):
		return respondError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidRequest),
		errors.Is(err, domain.ErrUnknownProviderType):
		return respondError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNoArticles):
		return respondError(c, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrMissingCredential),
		errors.Is(err, domain.ErrProviderAuth):
		return respondError(c, http.StatusBadGateway, err.Error())
	case errors.Is(err, domain.ErrProviderRateLimited),
		errors.Is(err, domain.ErrProviderUnavailable),
		errors.Is(err, utils.ErrCircuitOpen):
		return respondError(c, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, domain.ErrUnsupportedOperation):
		return respondError(c, http.StatusNotImplemented, err.Error())
	default:
		return respondError(c, http.StatusInternalServerError, "internal server error")
	}
}

// pageParams reads the page/per_page query parameters with sane bounds.
func pageParams(c echo.Context) (page, perPage int) {
	page = intQuery(c, "page", 1)
	if page < 1 {
		page = 1
	}
	perPage = intQuery(c, "per_page", 20)
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	return page, perPage
}

func intQuery(c echo.Context, name string, fallback int) int {
	raw := c.QueryParam(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
