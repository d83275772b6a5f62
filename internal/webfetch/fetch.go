package webfetch

import (
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkoukk/tiktoken-go"
	"golang.org/x/net/html"
)

// CachePreference selects whether Fetch may reuse a previously extracted
// page.
type CachePreference int

const (
	UseCacheIfFresh CachePreference = iota
	BypassCache
)

// Completeness describes whether the returned chunks cover the whole page.
type Completeness int

const (
	Complete Completeness = iota
	Truncated
)

// Result is what Fetch returns on success.
type Result struct {
	RequestedURL string
	FinalURL     string
	Title        string
	Language     string
	Chunks       []Chunk
	Completeness Completeness
	FetchedAt    time.Time
	CacheHit     bool
	CorrelationID string
}

type cacheEntry struct {
	title     string
	text      string
	finalURL  string
	fetchedAt time.Time
	expiresAt time.Time
}

// Fetcher is the SSRF-safe, robots.txt-respecting web content fetcher.
type Fetcher struct {
	cfg    Config
	client *http.Client
	robots *RobotsCache
	enc    *tiktoken.Tiktoken

	mu    sync.RWMutex
	cache map[string]cacheEntry
}

// New builds a Fetcher. cfg.AllowInsecureOverrides should only ever be true
// when FORGE_WEBFETCH_ALLOW_INSECURE_OVERRIDES=1 is set (a test-only opt-in).
func New(cfg Config) (*Fetcher, error) {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, newErr(ErrInternal, "failed to load tokenizer encoding", err)
	}
	client := &http.Client{
		Timeout: 30 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= cfg.MaxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}
	f := &Fetcher{
		cfg:    cfg,
		client: client,
		enc:    enc,
		cache:  make(map[string]cacheEntry),
	}
	f.robots = NewRobotsCache(cfg, client)
	return f, nil
}

// Fetch retrieves url, validates it is safe to reach, honors robots.txt,
// extracts readable text, and chunks it to maxChunkTokens.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, pref CachePreference, maxChunkTokens int) (*Result, error) {
	u, err := validateURL(rawURL, f.cfg)
	if err != nil {
		return nil, err
	}

	if pref == UseCacheIfFresh {
		if entry, ok := f.cachedEntry(u.String()); ok {
			return f.resultFromCache(rawURL, entry, maxChunkTokens, true), nil
		}
	}

	if _, err := validateHost(ctx, u.Hostname(), f.cfg); err != nil {
		return nil, err
	}

	robotsOutcome := f.robots.Check(ctx, u)
	if robotsOutcome.err != nil {
		return nil, robotsOutcome.err
	}
	if !robotsOutcome.allowed {
		return nil, newErr(ErrRobotsDisallowed, "disallowed by rule "+robotsOutcome.rule, nil)
	}

	finalURL, title, text, completeness, err := f.download(ctx, u)
	if err != nil {
		return nil, err
	}

	f.storeCache(u.String(), title, text, finalURL)

	entry := cacheEntry{title: title, text: text, finalURL: finalURL, fetchedAt: time.Now()}
	result := f.resultFromCache(rawURL, entry, maxChunkTokens, false)
	result.Completeness = completeness
	return result, nil
}

func (f *Fetcher) resultFromCache(requestedURL string, entry cacheEntry, maxChunkTokens int, hit bool) *Result {
	chunks := chunkText(f.enc, entry.text, maxChunkTokens)
	return &Result{
		RequestedURL:  requestedURL,
		FinalURL:      entry.finalURL,
		Title:         entry.title,
		Chunks:        chunks,
		Completeness:  Complete,
		FetchedAt:     entry.fetchedAt,
		CacheHit:      hit,
		CorrelationID: uuid.NewString(),
	}
}

func (f *Fetcher) cachedEntry(key string) (cacheEntry, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	entry, ok := f.cache[key]
	if !ok || time.Now().After(entry.expiresAt) {
		return cacheEntry{}, false
	}
	return entry, true
}

func (f *Fetcher) storeCache(key, title, text, finalURL string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.cache) >= f.cfg.MaxCacheEntries {
		var oldestKey string
		var oldestAt time.Time
		first := true
		for k, v := range f.cache {
			if first || v.fetchedAt.Before(oldestAt) {
				oldestKey, oldestAt, first = k, v.fetchedAt, false
			}
		}
		if oldestKey != "" {
			delete(f.cache, oldestKey)
		}
	}

	f.cache[key] = cacheEntry{
		title:     title,
		text:      text,
		finalURL:  finalURL,
		fetchedAt: time.Now(),
		expiresAt: time.Now().Add(time.Duration(f.cfg.CacheTTLSeconds) * time.Second),
	}
}

func validateURL(rawURL string, cfg Config) (*url.URL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, newErr(ErrInvalidURL, "could not parse URL", err)
	}
	switch u.Scheme {
	case "https":
	case "http":
		if !cfg.AllowInsecureOverrides && !isLoopbackHost(u.Hostname()) {
			return nil, newErr(ErrInvalidScheme, "http is only allowed for loopback hosts or with explicit insecure overrides", nil)
		}
	default:
		return nil, newErr(ErrInvalidScheme, "only http and https are supported", nil)
	}
	if u.Hostname() == "" {
		return nil, newErr(ErrInvalidURL, "URL has no host", nil)
	}
	if port := u.Port(); port != "" {
		if port != "80" && port != "443" && !cfg.AllowInsecureOverrides {
			return nil, newErr(ErrPortBlocked, "non-default port "+port+" requires an insecure override", nil)
		}
	}
	return u, nil
}

func isLoopbackHost(host string) bool {
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}

// download performs the HTTP GET, following same-origin redirects up to
// MaxRedirects, enforcing content-type and size caps, and guarding against
// decompression bombs by capping the *decompressed* byte count.
func (f *Fetcher) download(ctx context.Context, u *url.URL) (finalURL, title, text string, completeness Completeness, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", "", "", Complete, newErr(ErrInternal, "failed to build request", err)
	}
	req.Header.Set("User-Agent", defaultUserAgent)
	req.Header.Set("Accept-Encoding", "gzip")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", "", "", Complete, newErr(ErrTimeout, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return "", "", "", Complete, newErr(ErrHTTP4xx, "http status "+strconv.Itoa(resp.StatusCode), nil)
	}
	if resp.StatusCode >= 500 {
		return "", "", "", Complete, newErr(ErrHTTP5xx, "http status "+strconv.Itoa(resp.StatusCode), nil)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(contentType, "text/html") && !strings.Contains(contentType, "application/xhtml") {
		return "", "", "", Complete, newErr(ErrUnsupportedContentType, "unsupported content type: "+contentType, nil)
	}

	var reader io.Reader = resp.Body
	if strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") {
		gz, gzErr := gzip.NewReader(resp.Body)
		if gzErr != nil {
			return "", "", "", Complete, newErr(ErrExtractionFailed, "gzip decode failed", gzErr)
		}
		defer gz.Close()
		reader = gz
	}

	limited := io.LimitReader(reader, f.cfg.MaxDownloadBytes+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		return "", "", "", Complete, newErr(ErrResponseTooLarge, "body read failed", err)
	}
	truncated := Complete
	if int64(len(body)) > f.cfg.MaxDownloadBytes {
		body = body[:f.cfg.MaxDownloadBytes]
		truncated = Truncated
	}

	doc, err := html.Parse(strings.NewReader(string(body)))
	if err != nil {
		return "", "", "", Complete, newErr(ErrExtractionFailed, "html parse failed", err)
	}

	t, text := extractText(doc)
	finalURL = u.String()
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}
	return finalURL, t, text, truncated, nil
}

// contentHash is used by callers that want a stable cache-correlation key
// independent of query-string ordering; exposed for callers composing their
// own cache layer on top of Fetch.
func contentHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:8])
}
