// ABOUTME: This file handles LLM provider management and connectivity probes
// ABOUTME: API keys are accepted on the way in and always masked on the way out
package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"rss-digest/domain"
	"rss-digest/service"
)

// ProviderRequest is the request body for creating and updating providers.
type ProviderRequest struct {
	Name         string `json:"name"`
	ProviderType string `json:"provider_type"`
	Description  string `json:"description"`
	APIKey       string `json:"api_key"`
	APIBaseURL   string `json:"api_base_url"`
	DefaultModel string `json:"default_model"`
	IsActive     *bool  `json:"is_active"`
}

// ProviderTestRequest is the optional body for POST /v1/providers/:id/test.
// Either field probes with a one-off value instead of the stored one.
type ProviderTestRequest struct {
	APIKey     string `json:"api_key"`
	APIBaseURL string `json:"api_base_url"`
}

// ProviderResponse is the API shape of a provider, key masked.
type ProviderResponse struct {
	ID             int64      `json:"id"`
	Name           string     `json:"name"`
	ProviderType   string     `json:"provider_type"`
	Description    string     `json:"description,omitempty"`
	APIKey         string     `json:"api_key,omitempty"`
	APIBaseURL     string     `json:"api_base_url,omitempty"`
	DefaultModel   string     `json:"default_model,omitempty"`
	IsActive       bool       `json:"is_active"`
	LastVerifiedAt *time.Time `json:"last_verified_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// ProviderHandler handles provider management requests.
type ProviderHandler struct {
	registry service.ProviderRegistryService
	gateway  service.ProviderGatewayService
	logger   *slog.Logger
}

// NewProviderHandler creates a new provider handler.
func NewProviderHandler(registry service.ProviderRegistryService, gateway service.ProviderGatewayService, logger *slog.Logger) *ProviderHandler {
	return &ProviderHandler{
		registry: registry,
		gateway:  gateway,
		logger:   logger,
	}
}

// Create handles POST /v1/providers.
func (h *ProviderHandler) Create(c echo.Context) error {
	ctx := c.Request().Context()

	var req ProviderRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, http.StatusBadRequest, "invalid request format")
	}

	provider := &domain.Provider{
		Name:         req.Name,
		ProviderType: domain.ProviderType(req.ProviderType),
		Description:  req.Description,
		APIKey:       req.APIKey,
		APIBaseURL:   req.APIBaseURL,
		DefaultModel: req.DefaultModel,
		IsActive:     true,
	}
	if req.IsActive != nil {
		provider.IsActive = *req.IsActive
	}

	created, err := h.registry.Create(ctx, provider)
	if err != nil {
		return respondDomainError(c, err)
	}

	return respondCreated(c, toProviderResponse(created))
}

// List handles GET /v1/providers.
func (h *ProviderHandler) List(c echo.Context) error {
	providers, err := h.registry.List(c.Request().Context())
	if err != nil {
		return respondDomainError(c, err)
	}

	responses := make([]*ProviderResponse, 0, len(providers))
	for _, provider := range providers {
		responses = append(responses, toProviderResponse(provider))
	}

	return respondOK(c, map[string]any{"providers": responses})
}

// Get handles GET /v1/providers/:id.
func (h *ProviderHandler) Get(c echo.Context) error {
	id, err := providerID(c)
	if err != nil {
		return respondError(c, http.StatusBadRequest, "provider id must be an integer")
	}

	provider, err := h.registry.Get(c.Request().Context(), id)
	if err != nil {
		return respondDomainError(c, err)
	}

	return respondOK(c, toProviderResponse(provider))
}

// Update handles PUT /v1/providers/:id.
func (h *ProviderHandler) Update(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := providerID(c)
	if err != nil {
		return respondError(c, http.StatusBadRequest, "provider id must be an integer")
	}

	existing, err := h.registry.Get(ctx, id)
	if err != nil {
		return respondDomainError(c, err)
	}

	var req ProviderRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, http.StatusBadRequest, "invalid request format")
	}

	provider := *existing
	if req.Name != "" {
		provider.Name = req.Name
	}
	if req.ProviderType != "" {
		provider.ProviderType = domain.ProviderType(req.ProviderType)
	}
	if req.Description != "" {
		provider.Description = req.Description
	}
	// The registry treats the masked placeholder as "keep the stored key".
	provider.APIKey = req.APIKey
	if req.APIBaseURL != "" {
		provider.APIBaseURL = req.APIBaseURL
	}
	if req.DefaultModel != "" {
		provider.DefaultModel = req.DefaultModel
	}
	if req.IsActive != nil {
		provider.IsActive = *req.IsActive
	}

	updated, err := h.registry.Update(ctx, &provider)
	if err != nil {
		return respondDomainError(c, err)
	}

	return respondOK(c, toProviderResponse(updated))
}

// Delete handles DELETE /v1/providers/:id.
func (h *ProviderHandler) Delete(c echo.Context) error {
	id, err := providerID(c)
	if err != nil {
		return respondError(c, http.StatusBadRequest, "provider id must be an integer")
	}

	if err := h.registry.Delete(c.Request().Context(), id); err != nil {
		return respondDomainError(c, err)
	}

	return respondOK(c, nil)
}

// Test handles POST /v1/providers/:id/test.
func (h *ProviderHandler) Test(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := providerID(c)
	if err != nil {
		return respondError(c, http.StatusBadRequest, "provider id must be an integer")
	}

	var req ProviderTestRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, http.StatusBadRequest, "invalid request format")
	}

	var override *service.CredentialOverride
	if req.APIKey != "" || req.APIBaseURL != "" {
		override = &service.CredentialOverride{APIKey: req.APIKey, APIBaseURL: req.APIBaseURL}
	}

	result, err := h.gateway.TestConnection(ctx, id, override)
	if err != nil {
		return respondDomainError(c, err)
	}

	return respondOK(c, result)
}

// Models handles GET /v1/providers/:id/models.
func (h *ProviderHandler) Models(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := providerID(c)
	if err != nil {
		return respondError(c, http.StatusBadRequest, "provider id must be an integer")
	}

	models, err := h.gateway.ListModels(ctx, id, nil)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list provider models", "provider_id", id, "error", err)
		return respondDomainError(c, err)
	}

	return respondOK(c, map[string]any{"models": models})
}

func providerID(c echo.Context) (int64, error) {
	return strconv.ParseInt(c.Param("id"), 10, 64)
}

func toProviderResponse(p *domain.Provider) *ProviderResponse {
	return &ProviderResponse{
		ID:             p.ID,
		Name:           p.Name,
		ProviderType:   string(p.ProviderType),
		Description:    p.Description,
		APIKey:         p.APIKey,
		APIBaseURL:     p.APIBaseURL,
		DefaultModel:   p.DefaultModel,
		IsActive:       p.IsActive,
		LastVerifiedAt: p.LastVerifiedAt,
		CreatedAt:      p.CreatedAt,
	}
}
