package exercises

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/2beens/fitcrm/internal/telemetry/metrics"
	"github.com/2beens/fitcrm/internal/telemetry/tracing"

	"github.com/coocood/freecache"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

const (
	// each exercise is cached under its own key, freecache drops entries over 1/1024 of its size
	poolCacheKeyPrefix = "catalog::pool::"
	poolCacheCountKey  = "catalog::pool::count"
	// language=2 is English, status=2 are the approved exercises
	catalogQuery = "language=2&status=2&limit=500"
)

var ErrCatalogUnavailable = errors.New("exercise catalog unavailable")

type catalogResponse struct {
	Results []catalogEntry `json:"results"`
}

type catalogEntry struct {
	Name            string `json:"name"`
	Description     string `json:"description"`
	LongDescription string `json:"long_description"`
}

// Provider suggests exercises from the wger catalog, falling back to a fixed local
// list whenever the catalog cannot be used.
type Provider struct {
	catalogURL string
	httpClient *http.Client
	cache      *freecache.Cache
	cacheTTL   time.Duration
	sanitizer  *textSanitizer
	metrics    *metrics.Manager

	rngMu sync.Mutex
	rng   *rand.Rand
}

type ProviderOption func(p *Provider)

// WithRand sets the generator used for sampling, so tests can get a stable order.
func WithRand(rng *rand.Rand) ProviderOption {
	return func(p *Provider) {
		p.rng = rng
	}
}

// WithCacheTTL sets how long a fetched catalog is reused. Zero disables the cache.
func WithCacheTTL(ttl time.Duration) ProviderOption {
	return func(p *Provider) {
		p.cacheTTL = ttl
	}
}

func NewProvider(
	catalogURL string,
	httpClient *http.Client,
	metricsManager *metrics.Manager,
	opts ...ProviderOption,
) *Provider {
	megabyte := 1024 * 1024
	cacheSize := 5 * megabyte

	p := &Provider{
		catalogURL: catalogURL,
		httpClient: httpClient,
		cache:      freecache.NewCache(cacheSize),
		cacheTTL:   time.Hour,
		sanitizer:  newTextSanitizer(),
		metrics:    metricsManager,
		rng:        rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Suggest returns exactly count exercises (none for count <= 0) and where they came from.
// It never fails: any catalog problem is logged and answered from the fallback list.
func (p *Provider) Suggest(ctx context.Context, count int) ([]Suggestion, Source) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "provider.exercises.suggest")
	defer span.End()
	span.SetAttributes(attribute.Int("count", count))

	if count <= 0 {
		return []Suggestion{}, SourceFallback
	}

	pool, err := p.pool(ctx)
	if err != nil {
		log.Warnf("couldn't fetch exercises from catalog, using local suggestions: %s", err)
		span.SetAttributes(attribute.String("source", string(SourceFallback)))
		return Fallback(count), SourceFallback
	}
	if len(pool) == 0 {
		log.Warnln("exercise catalog returned no usable exercises, using local suggestions")
		span.SetAttributes(attribute.String("source", string(SourceFallback)))
		return Fallback(count), SourceFallback
	}

	picks := p.sample(pool, count)
	source := SourceRemote
	if missing := count - len(picks); missing > 0 {
		picks = append(picks, Fallback(missing)...)
		source = SourceMixed
	}

	span.SetAttributes(attribute.String("source", string(source)))
	return picks, source
}

// sample picks min(n, len(pool)) entries uniformly without replacement (partial Fisher-Yates).
func (p *Provider) sample(pool []Suggestion, n int) []Suggestion {
	shuffled := make([]Suggestion, len(pool))
	copy(shuffled, pool)
	if n > len(shuffled) {
		n = len(shuffled)
	}

	p.rngMu.Lock()
	defer p.rngMu.Unlock()
	for i := 0; i < n; i++ {
		j := i + p.rng.IntN(len(shuffled)-i)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}

	return shuffled[:n]
}

func (p *Provider) pool(ctx context.Context) ([]Suggestion, error) {
	if p.cacheTTL > 0 {
		if pool, ok := p.cachedPool(); ok {
			log.Tracef("found %d catalog exercises in cache", len(pool))
			p.countFetch("cache_hit")
			return pool, nil
		}
	}

	pool, err := p.fetch(ctx)
	if err != nil {
		p.countFetch("error")
		return nil, err
	}
	p.countFetch("ok")

	if p.cacheTTL > 0 && len(pool) > 0 {
		if err := p.cachePool(pool); err != nil {
			log.Errorf("failed to cache exercise pool: %s", err)
		}
	}

	return pool, nil
}

// cachedPool reports a miss unless the count and every entry are still cached.
func (p *Provider) cachedPool() ([]Suggestion, bool) {
	countBytes, err := p.cache.Get([]byte(poolCacheCountKey))
	if err != nil {
		return nil, false
	}
	count, err := strconv.Atoi(string(countBytes))
	if err != nil || count <= 0 {
		log.Errorf("invalid cached exercise pool count: %q", countBytes)
		return nil, false
	}

	pool := make([]Suggestion, 0, count)
	for i := 0; i < count; i++ {
		entryBytes, err := p.cache.Get(poolEntryKey(i))
		if err != nil {
			log.Tracef("cached exercise %d gone: %s", i, err)
			return nil, false
		}
		var s Suggestion
		if err := json.Unmarshal(entryBytes, &s); err != nil {
			log.Errorf("failed to unmarshal cached exercise %d: %s", i, err)
			return nil, false
		}
		pool = append(pool, s)
	}

	return pool, true
}

// cachePool writes the entries first and the count last, so a partly written pool is a miss.
func (p *Provider) cachePool(pool []Suggestion) error {
	expire := expireSeconds(p.cacheTTL)
	for i, s := range pool {
		entryBytes, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("marshal exercise %d: %w", i, err)
		}
		if err := p.cache.Set(poolEntryKey(i), entryBytes, expire); err != nil {
			return fmt.Errorf("cache exercise %d [%s]: %w", i, s.Name, err)
		}
	}
	return p.cache.Set([]byte(poolCacheCountKey), []byte(strconv.Itoa(len(pool))), expire)
}

func poolEntryKey(i int) []byte {
	return []byte(poolCacheKeyPrefix + strconv.Itoa(i))
}

func (p *Provider) fetch(ctx context.Context) (_ []Suggestion, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "provider.exercises.fetch")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	start := time.Now()
	defer func() {
		if p.metrics != nil {
			p.metrics.HistCatalogFetchDuration.Observe(time.Since(start).Seconds())
		}
	}()

	catalogURL, err := p.requestURL()
	if err != nil {
		return nil, err
	}
	log.Debugf("calling exercise catalog: %s", catalogURL)

	req, err := http.NewRequestWithContext(ctx, "GET", catalogURL, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http client do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d", ErrCatalogUnavailable, resp.StatusCode)
	}

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read catalog response: %w", err)
	}

	var catalog catalogResponse
	if err := json.Unmarshal(respBytes, &catalog); err != nil {
		return nil, fmt.Errorf("unmarshal catalog response: %w", err)
	}
	if catalog.Results == nil {
		return nil, fmt.Errorf("%w: response has no results", ErrCatalogUnavailable)
	}

	pool := make([]Suggestion, 0, len(catalog.Results))
	for _, entry := range catalog.Results {
		name := strings.TrimSpace(entry.Name)
		if name == "" {
			continue
		}
		description := entry.Description
		if strings.TrimSpace(description) == "" {
			description = entry.LongDescription
		}
		pool = append(pool, Suggestion{
			Name:        name,
			Description: p.sanitizer.Text(description),
		})
	}

	span.SetAttributes(attribute.Int("catalog.results", len(catalog.Results)))
	span.SetAttributes(attribute.Int("catalog.usable", len(pool)))
	return pool, nil
}

func (p *Provider) requestURL() (string, error) {
	u, err := url.Parse(p.catalogURL)
	if err != nil {
		return "", fmt.Errorf("parse catalog url: %w", err)
	}
	if u.RawQuery == "" {
		u.RawQuery = catalogQuery
	}
	return u.String(), nil
}

func (p *Provider) countFetch(outcome string) {
	if p.metrics != nil {
		p.metrics.CounterCatalogFetches.WithLabelValues(outcome).Inc()
	}
}

// expireSeconds converts the ttl for freecache, where 0 would mean "never expire".
func expireSeconds(ttl time.Duration) int {
	if secs := int(ttl.Seconds()); secs > 0 {
		return secs
	}
	return 1
}
