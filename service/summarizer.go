// ABOUTME: This file turns a day's articles into digest content
// ABOUTME: Prefers an LLM completion and degrades to extractive summarization
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"rss-digest/config"
	"rss-digest/domain"
	"rss-digest/driver/llm"
	"rss-digest/summarize"
)

type summarizerService struct {
	gateway   ProviderGatewayService
	extractor *summarize.Extractor
	cfg       config.DigestConfig
	logger    *slog.Logger
}

// NewSummarizerService creates a new summarizer service.
func NewSummarizerService(gateway ProviderGatewayService, extractor *summarize.Extractor, cfg config.DigestConfig, logger *slog.Logger) SummarizerService {
	return &summarizerService{
		gateway:   gateway,
		extractor: extractor,
		cfg:       cfg,
		logger:    logger,
	}
}

// feedGroup keeps the articles of one feed together, in selection order.
type feedGroup struct {
	title    string
	articles []*domain.ArticleWithFeed
}

func (s *summarizerService) Summarize(ctx context.Context, req SummarizeRequest) (*SummarizeResult, error) {
	title := fmt.Sprintf("%s reading digest", req.Date.Format("2006-01-02"))
	groups := groupByFeed(req.Articles)

	resp, err := s.complete(ctx, req, groups)
	if err == nil {
		return &SummarizeResult{Title: title, Content: resp.Content, Model: resp.Model}, nil
	}

	s.logger.WarnContext(ctx, "LLM summarization failed, using extractive fallback",
		"date", req.Date.Format("2006-01-02"), "error", err)

	return &SummarizeResult{
		Title:    title,
		Content:  s.extractiveContent(req.Rule, groups),
		Fallback: true,
	}, nil
}

// complete sends the prompt to the rule's provider, or to any active
// provider when the rule does not pin one.
func (s *summarizerService) complete(ctx context.Context, req SummarizeRequest, groups []feedGroup) (*llm.ChatResponse, error) {
	if s.gateway == nil {
		return nil, domain.ErrMissingCredential
	}

	chatReq := llm.ChatRequest{
		Model:       req.Rule.Model,
		Temperature: req.Rule.Temperature,
		MaxTokens:   req.Rule.MaxTokens,
		Messages: []llm.Message{
			{Role: "system", Content: "You are an editor writing a concise reading digest from RSS articles."},
			{Role: "user", Content: s.buildPrompt(req, groups)},
		},
	}

	if req.Rule.ProviderID != nil {
		return s.gateway.ChatComplete(ctx, *req.Rule.ProviderID, chatReq, nil)
	}

	resp, _, err := s.gateway.ChatCompleteAny(ctx, chatReq)
	return resp, err
}

// buildPrompt renders the article listing into the rule's template, or the
// default instruction when the rule has none. Templates reference the
// listing as {articles} and the digest date as {date}.
func (s *summarizerService) buildPrompt(req SummarizeRequest, groups []feedGroup) string {
	var listing strings.Builder
	for _, group := range groups {
		fmt.Fprintf(&listing, "## %s\n", group.title)
		for i, article := range group.articles {
			if i >= s.cfg.PromptItemsPerFeed {
				break
			}
			fmt.Fprintf(&listing, "- %s\n", article.Title)
			if excerpt := truncateRunes(article.Summary, s.cfg.ExcerptRunes); excerpt != "" {
				fmt.Fprintf(&listing, "  %s\n", excerpt)
			}
		}
		listing.WriteString("\n")
	}

	date := req.Date.Format("2006-01-02")

	if req.Rule.PromptTemplate != "" {
		prompt := strings.ReplaceAll(req.Rule.PromptTemplate, "{articles}", listing.String())
		return strings.ReplaceAll(prompt, "{date}", date)
	}

	words := req.Rule.SummaryLength
	if words <= 0 {
		words = s.cfg.DefaultSummaryWords
	}

	return fmt.Sprintf(
		"Write a reading digest for %s in roughly %d words. Group related stories, highlight what matters, and skip boilerplate.\n\nArticles:\n\n%s",
		date, words, listing.String())
}

// extractiveContent builds the fallback digest body without any provider:
// per-feed sections of headlines plus an extractive summary, and a hot
// keyword list when the rule asks for one.
func (s *summarizerService) extractiveContent(rule *domain.DigestRule, groups []feedGroup) string {
	var b strings.Builder
	var titles []string

	for _, group := range groups {
		fmt.Fprintf(&b, "## %s\n\n", group.title)

		var texts []string
		for _, article := range group.articles {
			fmt.Fprintf(&b, "- [%s](%s)\n", article.Title, article.Link)
			titles = append(titles, article.Title)
			if article.Summary != "" {
				texts = append(texts, article.Summary)
			}
		}

		if summary := s.extractor.Summarize(strings.Join(texts, " "), s.cfg.FallbackSentences); summary != "" {
			fmt.Fprintf(&b, "\n%s\n", summary)
		}
		b.WriteString("\n")
	}

	if rule.IncludeKeywords {
		if keywords := s.extractor.Keywords(titles, s.cfg.HotKeywords); len(keywords) > 0 {
			b.WriteString("## Hot keywords\n\n")
			b.WriteString(strings.Join(keywords, ", "))
			b.WriteString("\n")
		}
	}

	return strings.TrimSpace(b.String())
}

func groupByFeed(articles []*domain.ArticleWithFeed) []feedGroup {
	index := make(map[string]int)
	var groups []feedGroup

	for _, article := range articles {
		title := article.FeedTitle
		if title == "" {
			title = "Uncategorized"
		}
		i, ok := index[title]
		if !ok {
			i = len(groups)
			index[title] = i
			groups = append(groups, feedGroup{title: title})
		}
		groups[i].articles = append(groups[i].articles, article)
	}

	return groups
}

func truncateRunes(s string, limit int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "…"
}
