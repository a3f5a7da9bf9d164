// ABOUTME: This file handles digest generation, browsing and digest rule CRUD
// ABOUTME: Generation is synchronous; concurrent requests share one build
package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"rss-digest/domain"
	"rss-digest/repository"
	"rss-digest/service"
)

// GenerateDigestRequest is the request body for POST /v1/digests/generate.
type GenerateDigestRequest struct {
	Date   string `json:"date"`
	RuleID string `json:"rule_id"`
	Force  bool   `json:"force"`
}

// DigestRuleRequest is the request body for creating and updating rules.
type DigestRuleRequest struct {
	Name              string   `json:"name"`
	DigestType        string   `json:"digest_type"`
	FeedIDs           []string `json:"feed_ids"`
	Keywords          []string `json:"keywords"`
	SummaryLength     int      `json:"summary_length"`
	IncludeCategories *bool    `json:"include_categories"`
	IncludeKeywords   *bool    `json:"include_keywords"`
	PromptTemplate    string   `json:"prompt_template"`
	ProviderID        *int64   `json:"provider_id"`
	Model             string   `json:"model"`
	Temperature       float64  `json:"temperature"`
	MaxTokens         int      `json:"max_tokens"`
	ScheduleTime      string   `json:"schedule_time"`
	IsActive          *bool    `json:"is_active"`
}

// DigestHandler handles digest and digest rule requests.
type DigestHandler struct {
	digestRepo   repository.DigestRepository
	orchestrator service.DigestOrchestratorService
	logger       *slog.Logger
}

// NewDigestHandler creates a new digest handler.
func NewDigestHandler(digestRepo repository.DigestRepository, orchestrator service.DigestOrchestratorService, logger *slog.Logger) *DigestHandler {
	return &DigestHandler{
		digestRepo:   digestRepo,
		orchestrator: orchestrator,
		logger:       logger,
	}
}

// Generate handles POST /v1/digests/generate. The date defaults to
// yesterday, matching the scheduled morning build.
func (h *DigestHandler) Generate(c echo.Context) error {
	ctx := c.Request().Context()

	var req GenerateDigestRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, http.StatusBadRequest, "invalid request format")
	}

	date := time.Now().AddDate(0, 0, -1)
	if req.Date != "" {
		parsed, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			return respondError(c, http.StatusBadRequest, "date must be a YYYY-MM-DD date")
		}
		date = parsed
	}

	digest, err := h.orchestrator.Generate(ctx, service.GenerateRequest{
		UserID: userIDFrom(c),
		Date:   date,
		RuleID: req.RuleID,
		Force:  req.Force,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "digest generation failed",
			"date", date.Format("2006-01-02"), "rule_id", req.RuleID, "error", err)
		return respondDomainError(c, err)
	}

	return respondOK(c, digest)
}

// List handles GET /v1/digests. type, status, from/to (on source date) and
// title query parameters narrow the result.
func (h *DigestHandler) List(c echo.Context) error {
	ctx := c.Request().Context()

	filter := repository.DigestFilter{
		DigestType: domain.DigestType(c.QueryParam("type")),
		Status:     domain.DigestStatus(c.QueryParam("status")),
		Title:      c.QueryParam("title"),
	}
	if filter.DigestType != "" && !domain.ValidDigestType(filter.DigestType) {
		return respondError(c, http.StatusBadRequest, "unknown digest type")
	}
	if filter.Status != "" && !validDigestStatus(filter.Status) {
		return respondError(c, http.StatusBadRequest, "unknown digest status")
	}

	if raw := c.QueryParam("from"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return respondError(c, http.StatusBadRequest, "from must be a YYYY-MM-DD date")
		}
		filter.From = parsed
	}
	if raw := c.QueryParam("to"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return respondError(c, http.StatusBadRequest, "to must be a YYYY-MM-DD date")
		}
		filter.To = parsed
	}

	page, perPage := pageParams(c)

	digests, err := h.digestRepo.ListDigests(ctx, filter, perPage, (page-1)*perPage)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list digests", "error", err)
		return respondDomainError(c, err)
	}

	return respondOK(c, map[string]any{
		"digests":    digests,
		"pagination": Pagination{Page: page, PerPage: perPage, Count: len(digests)},
	})
}

// Get handles GET /v1/digests/:id.
func (h *DigestHandler) Get(c echo.Context) error {
	digest, err := h.digestRepo.GetDigestByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondDomainError(c, err)
	}
	return respondOK(c, digest)
}

// UpdateStatus handles PUT /v1/digests/:id/status.
func (h *DigestHandler) UpdateStatus(c echo.Context) error {
	ctx := c.Request().Context()

	var req struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return respondError(c, http.StatusBadRequest, "invalid request format")
	}

	status := domain.DigestStatus(req.Status)
	if !validDigestStatus(status) {
		return respondError(c, http.StatusBadRequest, "unknown digest status")
	}

	if err := h.digestRepo.UpdateDigestStatus(ctx, c.Param("id"), status); err != nil {
		return respondDomainError(c, err)
	}

	return respondOK(c, nil)
}

// Delete handles DELETE /v1/digests/:id.
func (h *DigestHandler) Delete(c echo.Context) error {
	if err := h.digestRepo.DeleteDigest(c.Request().Context(), c.Param("id")); err != nil {
		return respondDomainError(c, err)
	}
	return respondOK(c, nil)
}

// CreateRule handles POST /v1/digest-rules.
func (h *DigestHandler) CreateRule(c echo.Context) error {
	ctx := c.Request().Context()

	rule, err := h.bindRule(c, domain.DefaultDailyRule())
	if err != nil {
		return respondError(c, http.StatusBadRequest, err.Error())
	}
	rule.UserID = userIDFrom(c)

	if err := h.digestRepo.CreateRule(ctx, rule); err != nil {
		h.logger.ErrorContext(ctx, "failed to create digest rule", "name", rule.Name, "error", err)
		return respondDomainError(c, err)
	}

	return respondCreated(c, rule)
}

// ListRules handles GET /v1/digest-rules.
func (h *DigestHandler) ListRules(c echo.Context) error {
	rules, err := h.digestRepo.ListRules(c.Request().Context(), c.QueryParam("active") == "true")
	if err != nil {
		return respondDomainError(c, err)
	}
	return respondOK(c, map[string]any{"rules": rules})
}

// GetRule handles GET /v1/digest-rules/:id.
func (h *DigestHandler) GetRule(c echo.Context) error {
	rule, err := h.digestRepo.GetRuleByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondDomainError(c, err)
	}
	return respondOK(c, rule)
}

// UpdateRule handles PUT /v1/digest-rules/:id.
func (h *DigestHandler) UpdateRule(c echo.Context) error {
	ctx := c.Request().Context()

	existing, err := h.digestRepo.GetRuleByID(ctx, c.Param("id"))
	if err != nil {
		return respondDomainError(c, err)
	}

	rule, err := h.bindRule(c, existing)
	if err != nil {
		return respondError(c, http.StatusBadRequest, err.Error())
	}

	if err := h.digestRepo.UpdateRule(ctx, rule); err != nil {
		return respondDomainError(c, err)
	}

	return respondOK(c, rule)
}

// DeleteRule handles DELETE /v1/digest-rules/:id.
func (h *DigestHandler) DeleteRule(c echo.Context) error {
	if err := h.digestRepo.DeleteRule(c.Request().Context(), c.Param("id")); err != nil {
		return respondDomainError(c, err)
	}
	return respondOK(c, nil)
}

// bindRule overlays the request body onto base and validates the result.
func (h *DigestHandler) bindRule(c echo.Context, base *domain.DigestRule) (*domain.DigestRule, error) {
	var req DigestRuleRequest
	if err := c.Bind(&req); err != nil {
		return nil, domain.ErrInvalidRequest
	}

	rule := *base
	if req.Name != "" {
		rule.Name = req.Name
	}
	if req.DigestType != "" {
		digestType := domain.DigestType(req.DigestType)
		if !domain.ValidDigestType(digestType) {
			return nil, domain.ErrInvalidRequest
		}
		rule.DigestType = digestType
	}
	if req.FeedIDs != nil {
		rule.FeedIDs = req.FeedIDs
	}
	if req.Keywords != nil {
		rule.Keywords = req.Keywords
	}
	if req.SummaryLength > 0 {
		rule.SummaryLength = req.SummaryLength
	}
	if req.IncludeCategories != nil {
		rule.IncludeCategories = *req.IncludeCategories
	}
	if req.IncludeKeywords != nil {
		rule.IncludeKeywords = *req.IncludeKeywords
	}
	if req.PromptTemplate != "" {
		rule.PromptTemplate = req.PromptTemplate
	}
	if req.ProviderID != nil {
		rule.ProviderID = req.ProviderID
	}
	if req.Model != "" {
		rule.Model = req.Model
	}
	if req.Temperature > 0 {
		rule.Temperature = req.Temperature
	}
	if req.MaxTokens > 0 {
		rule.MaxTokens = req.MaxTokens
	}
	if req.ScheduleTime != "" {
		rule.ScheduleTime = req.ScheduleTime
	}
	if req.IsActive != nil {
		rule.IsActive = *req.IsActive
	} else if base.ID == "" {
		rule.IsActive = true
	}

	return &rule, nil
}

func validDigestStatus(s domain.DigestStatus) bool {
	switch s {
	case domain.DigestStatusDraft, domain.DigestStatusPublished, domain.DigestStatusFailed:
		return true
	}
	return false
}

// userIDFrom reads the upstream-auth user header. Auth itself lives in the
// gateway in front of this service.
func userIDFrom(c echo.Context) string {
	if id := c.Request().Header.Get("X-User-ID"); id != "" {
		return id
	}
	return "default"
}
