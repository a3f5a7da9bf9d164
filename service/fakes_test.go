// ABOUTME: Hand-written fakes shared by the service layer tests
// ABOUTME: Each fake records calls and serves canned data or errors
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"rss-digest/domain"
	"rss-digest/driver/llm"
	"rss-digest/repository"
)

type fakeFeedRepo struct {
	mu sync.Mutex

	feeds map[string]*domain.Feed

	listErr   error
	updateErr error

	fetchStateCalls []fetchStateCall
}

type fetchStateCall struct {
	feed        domain.Feed
	nextFetchAt time.Time
}

func newFakeFeedRepo(feeds ...*domain.Feed) *fakeFeedRepo {
	repo := &fakeFeedRepo{feeds: make(map[string]*domain.Feed)}
	for _, feed := range feeds {
		repo.feeds[feed.ID] = feed
	}
	return repo
}

func (r *fakeFeedRepo) Create(ctx context.Context, feed *domain.Feed) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.feeds[feed.ID] = feed
	return nil
}

func (r *fakeFeedRepo) GetByID(ctx context.Context, id string) (*domain.Feed, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	feed, ok := r.feeds[id]
	if !ok {
		return nil, domain.ErrFeedNotFound
	}
	return feed, nil
}

func (r *fakeFeedRepo) GetByURL(ctx context.Context, url string) (*domain.Feed, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, feed := range r.feeds {
		if feed.URL == url {
			return feed, nil
		}
	}
	return nil, domain.ErrFeedNotFound
}

func (r *fakeFeedRepo) List(ctx context.Context, activeOnly bool) ([]*domain.Feed, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	var feeds []*domain.Feed
	for _, feed := range r.feeds {
		if activeOnly && !feed.IsActive {
			continue
		}
		feeds = append(feeds, feed)
	}
	return feeds, nil
}

func (r *fakeFeedRepo) ListDue(ctx context.Context, now time.Time) ([]*domain.Feed, error) {
	return r.List(ctx, true)
}

func (r *fakeFeedRepo) Update(ctx context.Context, feed *domain.Feed) error {
	return r.Create(ctx, feed)
}

func (r *fakeFeedRepo) UpdateFetchState(ctx context.Context, feed *domain.Feed, nextFetchAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	r.fetchStateCalls = append(r.fetchStateCalls, fetchStateCall{feed: *feed, nextFetchAt: nextFetchAt})
	return nil
}

func (r *fakeFeedRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.feeds, id)
	return nil
}

type fakeArticleRepo struct {
	mu sync.Mutex

	articles  []*domain.ArticleWithFeed
	listErr   error
	insertErr error
	insertN   int64

	insertedBatches [][]*domain.Article
	processedIDs    []string
}

func (r *fakeArticleRepo) InsertBatch(ctx context.Context, articles []*domain.Article) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.insertErr != nil {
		return 0, r.insertErr
	}
	r.insertedBatches = append(r.insertedBatches, articles)
	if r.insertN > 0 {
		return r.insertN, nil
	}
	return int64(len(articles)), nil
}

func (r *fakeArticleRepo) GetByID(ctx context.Context, id string) (*domain.Article, error) {
	return nil, domain.ErrArticleNotFound
}

func (r *fakeArticleRepo) ListByDateRange(ctx context.Context, from, to time.Time, filter *repository.ArticleFilter) ([]*domain.ArticleWithFeed, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	return r.articles, nil
}

func (r *fakeArticleRepo) MarkProcessed(ctx context.Context, ids []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.processedIDs = append(r.processedIDs, ids...)
	return nil
}

type fakeDigestRepo struct {
	mu sync.Mutex

	digests map[string]*domain.Digest
	rules   map[string]*domain.DigestRule

	createDigestCalls int
	deletedDigestIDs  []string
	nextID            int
}

func newFakeDigestRepo() *fakeDigestRepo {
	return &fakeDigestRepo{
		digests: make(map[string]*domain.Digest),
		rules:   make(map[string]*domain.DigestRule),
	}
}

func (r *fakeDigestRepo) fingerprintOf(d *domain.Digest) string {
	fp := domain.Fingerprint{SourceDate: d.SourceDate, DigestType: d.DigestType, RuleID: d.RuleID}
	return fp.Key()
}

func (r *fakeDigestRepo) CreateDigest(ctx context.Context, digest *domain.Digest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.createDigestCalls++
	r.nextID++
	digest.ID = fmt.Sprintf("digest-%d", r.nextID)
	r.digests[r.fingerprintOf(digest)] = digest
	return nil
}

func (r *fakeDigestRepo) GetDigestByID(ctx context.Context, id string) (*domain.Digest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, digest := range r.digests {
		if digest.ID == id {
			return digest, nil
		}
	}
	return nil, domain.ErrDigestNotFound
}

func (r *fakeDigestRepo) GetDigestByFingerprint(ctx context.Context, fp domain.Fingerprint) (*domain.Digest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	digest, ok := r.digests[fp.Key()]
	if !ok {
		return nil, domain.ErrDigestNotFound
	}
	return digest, nil
}

func (r *fakeDigestRepo) ListDigests(ctx context.Context, filter repository.DigestFilter, limit, offset int) ([]*domain.Digest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var digests []*domain.Digest
	for _, digest := range r.digests {
		digests = append(digests, digest)
	}
	return digests, nil
}

func (r *fakeDigestRepo) UpdateDigestStatus(ctx context.Context, id string, status domain.DigestStatus) error {
	return nil
}

func (r *fakeDigestRepo) DeleteDigest(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, digest := range r.digests {
		if digest.ID == id {
			delete(r.digests, key)
			r.deletedDigestIDs = append(r.deletedDigestIDs, id)
			return nil
		}
	}
	return domain.ErrDigestNotFound
}

func (r *fakeDigestRepo) CreateRule(ctx context.Context, rule *domain.DigestRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules[rule.ID] = rule
	return nil
}

func (r *fakeDigestRepo) GetRuleByID(ctx context.Context, id string) (*domain.DigestRule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rule, ok := r.rules[id]
	if !ok {
		return nil, domain.ErrRuleNotFound
	}
	return rule, nil
}

func (r *fakeDigestRepo) ListRules(ctx context.Context, activeOnly bool) ([]*domain.DigestRule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var rules []*domain.DigestRule
	for _, rule := range r.rules {
		if activeOnly && !rule.IsActive {
			continue
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func (r *fakeDigestRepo) UpdateRule(ctx context.Context, rule *domain.DigestRule) error {
	return r.CreateRule(ctx, rule)
}

func (r *fakeDigestRepo) DeleteRule(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rules, id)
	return nil
}

type fakeProviderRepo struct {
	mu sync.Mutex

	providers map[int64]*domain.Provider
	nextID    int64

	verifiedIDs []int64
}

func newFakeProviderRepo(providers ...*domain.Provider) *fakeProviderRepo {
	repo := &fakeProviderRepo{providers: make(map[int64]*domain.Provider)}
	for _, provider := range providers {
		repo.providers[provider.ID] = provider
		if provider.ID > repo.nextID {
			repo.nextID = provider.ID
		}
	}
	return repo
}

func (r *fakeProviderRepo) Create(ctx context.Context, provider *domain.Provider) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	provider.ID = r.nextID
	stored := *provider
	r.providers[provider.ID] = &stored
	return nil
}

func (r *fakeProviderRepo) GetByID(ctx context.Context, id int64) (*domain.Provider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	provider, ok := r.providers[id]
	if !ok {
		return nil, domain.ErrProviderNotFound
	}
	clone := *provider
	return &clone, nil
}

func (r *fakeProviderRepo) List(ctx context.Context) ([]*domain.Provider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	providers := make([]*domain.Provider, 0, len(r.providers))
	for id := int64(1); id <= r.nextID; id++ {
		if provider, ok := r.providers[id]; ok {
			clone := *provider
			providers = append(providers, &clone)
		}
	}
	return providers, nil
}

func (r *fakeProviderRepo) Update(ctx context.Context, provider *domain.Provider) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.providers[provider.ID]; !ok {
		return domain.ErrProviderNotFound
	}
	stored := *provider
	r.providers[provider.ID] = &stored
	return nil
}

func (r *fakeProviderRepo) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.providers[id]; !ok {
		return domain.ErrProviderNotFound
	}
	delete(r.providers, id)
	return nil
}

func (r *fakeProviderRepo) TouchVerified(ctx context.Context, id int64, verifiedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.verifiedIDs = append(r.verifiedIDs, id)
	return nil
}

type fakeFetcher struct {
	outcomes map[string]*FetchOutcome
}

func (f *fakeFetcher) Fetch(ctx context.Context, feed *domain.Feed) *FetchOutcome {
	if outcome, ok := f.outcomes[feed.ID]; ok {
		return outcome
	}
	return &FetchOutcome{}
}

type fakeSummarizer struct {
	mu    sync.Mutex
	calls int
	delay time.Duration

	result *SummarizeResult
	err    error
}

func (f *fakeSummarizer) Summarize(ctx context.Context, req SummarizeRequest) (*SummarizeResult, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &SummarizeResult{
		Title:   req.Date.Format("2006-01-02") + " reading digest",
		Content: "digest body",
	}, nil
}

type fakeGateway struct {
	mu sync.Mutex

	chatResp *llm.ChatResponse
	chatErr  error
	models   []llm.ModelInfo
	vectors  [][]float32
	embedErr error

	chatCalls  int
	embedCalls int
}

func (g *fakeGateway) ListModels(ctx context.Context, providerID int64, override *CredentialOverride) ([]llm.ModelInfo, error) {
	return g.models, nil
}

func (g *fakeGateway) ChatComplete(ctx context.Context, providerID int64, req llm.ChatRequest, override *CredentialOverride) (*llm.ChatResponse, error) {
	g.mu.Lock()
	g.chatCalls++
	g.mu.Unlock()
	if g.chatErr != nil {
		return nil, g.chatErr
	}
	return g.chatResp, nil
}

func (g *fakeGateway) Embed(ctx context.Context, providerID int64, model string, input []string) ([][]float32, error) {
	g.mu.Lock()
	g.embedCalls++
	g.mu.Unlock()
	if g.embedErr != nil {
		return nil, g.embedErr
	}
	return g.vectors, nil
}

func (g *fakeGateway) TestConnection(ctx context.Context, providerID int64, override *CredentialOverride) (*ConnectionTestResult, error) {
	return &ConnectionTestResult{Success: true}, nil
}

func (g *fakeGateway) ChatCompleteAny(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, int64, error) {
	resp, err := g.ChatComplete(ctx, 1, req, nil)
	return resp, 1, err
}

type fakeLLMClient struct {
	mu sync.Mutex

	models   []llm.ModelInfo
	chatResp *llm.ChatResponse
	errs     []error

	calls int
}

func (c *fakeLLMClient) nextErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if len(c.errs) == 0 {
		return nil
	}
	err := c.errs[0]
	c.errs = c.errs[1:]
	return err
}

func (c *fakeLLMClient) ListModels(ctx context.Context) ([]llm.ModelInfo, error) {
	if err := c.nextErr(); err != nil {
		return nil, err
	}
	return c.models, nil
}

func (c *fakeLLMClient) ChatComplete(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	if err := c.nextErr(); err != nil {
		return nil, err
	}
	return c.chatResp, nil
}

func (c *fakeLLMClient) Embed(ctx context.Context, model string, input []string) ([][]float32, error) {
	if err := c.nextErr(); err != nil {
		return nil, err
	}
	return [][]float32{{0.1, 0.2}}, nil
}
