// Package fetch retrieves the raw session list from the lobby directory,
// falling back through a prioritized list of relay routes when the
// direct route is blocked and remembering the most recently successful
// route for subsequent fetches.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/lobbyscope-project/lobbyscope/internal/lobby"
	"github.com/lobbyscope-project/lobbyscope/internal/util"
)

// Status is a discrete fetch lifecycle event reported to the observer.
type Status string

const (
	StatusAttemptingPrimary  Status = "attempting_primary"
	StatusPrimarySucceeded   Status = "primary_succeeded"
	StatusPrimaryFailed      Status = "primary_failed"
	StatusAttemptingFallback Status = "attempting_fallback"
	StatusFallbackSucceeded  Status = "fallback_succeeded"
	StatusFallbackFailed     Status = "fallback_failed"
	StatusAllFailed          Status = "all_failed"
)

// StatusFunc observes fetch lifecycle events. route is empty for the
// primary-route events and the terminal all-failed event.
type StatusFunc func(status Status, route string)

// Options configures one fetch. The zero value fetches the well-known
// directory endpoint through the primary route with fallback and
// cache-busting enabled.
type Options struct {
	// SpecificRoute bypasses the fallback strategy entirely: only this
	// route is attempted and its failure is the caller's failure.
	SpecificRoute *Route
	// TargetEndpoint overrides the directory URL.
	TargetEndpoint string
	// DisableCacheBust leaves the URL untouched instead of appending a
	// monotonically-changing query parameter.
	DisableCacheBust bool
	// OnStatus, if set, receives lifecycle events.
	OnStatus StatusFunc
}

// Result is a successful fetch: the decoded record collection, the
// untouched response body, and the route that produced it.
type Result struct {
	Records   *lobby.RawGameList
	RawBody   []byte
	RouteUsed string
	FetchedAt time.Time
}

// Fetcher retrieves raw record collections from the directory. Route
// preference lives in the caller-owned RouteMemory, not in the Fetcher,
// so concurrent pipelines do not cross-contaminate each other.
type Fetcher struct {
	client    *http.Client
	fallbacks []Route
	memory    *RouteMemory
	logger    zerolog.Logger
	now       func() time.Time
}

// New creates a Fetcher with the given fallback routes and route memory.
// A nil fallback slice means the built-in relay routes.
func New(fallbacks []Route, memory *RouteMemory) *Fetcher {
	if fallbacks == nil {
		fallbacks = DefaultFallbackRoutes()
	}
	return &Fetcher{
		client: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:       10,
				IdleConnTimeout:    90 * time.Second,
				DisableCompression: false,
			},
		},
		fallbacks: fallbacks,
		memory:    memory,
		logger:    util.ComponentLogger("fetcher"),
		now:       time.Now,
	}
}

// FetchRawRecords retrieves the raw record collection. Routes are tried
// strictly sequentially: a route must definitively fail before the next
// is attempted. It either fully succeeds or returns an aggregate error;
// partial or stale data is never returned.
func (f *Fetcher) FetchRawRecords(ctx context.Context, opts Options) (*Result, error) {
	target := opts.TargetEndpoint
	if target == "" {
		target = DefaultDirectoryURL
	}

	notify := opts.OnStatus
	if notify == nil {
		notify = func(Status, string) {}
	}

	if opts.SpecificRoute != nil {
		res, err := f.fetchRoute(ctx, *opts.SpecificRoute, target, opts.DisableCacheBust)
		if err != nil {
			return nil, fmt.Errorf("route %s: %w", opts.SpecificRoute.Name, err)
		}
		f.memory.Remember(opts.SpecificRoute.Name)
		return res, nil
	}

	var attemptErrs []error

	notify(StatusAttemptingPrimary, "")
	res, err := f.fetchRoute(ctx, DirectRoute(), target, opts.DisableCacheBust)
	if err == nil {
		notify(StatusPrimarySucceeded, "")
		f.memory.Remember(DirectRouteName)
		return res, nil
	}
	notify(StatusPrimaryFailed, "")
	f.logger.Warn().Err(err).Msg("primary route failed, trying fallbacks")
	attemptErrs = append(attemptErrs, fmt.Errorf("direct: %w", err))

	for _, route := range orderFallbacks(f.fallbacks, f.memory.Last()) {
		notify(StatusAttemptingFallback, route.Name)
		res, err = f.fetchRoute(ctx, route, target, opts.DisableCacheBust)
		if err == nil {
			notify(StatusFallbackSucceeded, route.Name)
			f.memory.Remember(route.Name)
			f.logger.Info().Str("route", route.Name).Msg("fallback route succeeded")
			return res, nil
		}
		notify(StatusFallbackFailed, route.Name)
		f.logger.Warn().Err(err).Str("route", route.Name).Msg("fallback route failed")
		attemptErrs = append(attemptErrs, fmt.Errorf("%s: %w", route.Name, err))
	}

	notify(StatusAllFailed, "")
	return nil, fmt.Errorf("every directory route failed: %w", errors.Join(attemptErrs...))
}

// fetchRoute performs one GET through one route and decodes the list.
func (f *Fetcher) fetchRoute(ctx context.Context, route Route, target string, noBust bool) (*Result, error) {
	reqURL := route.Wrap(target)
	if !noBust {
		reqURL = appendCacheBust(reqURL, f.now().UnixNano())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("directory returned status %d", resp.StatusCode)
	}

	var list lobby.RawGameList
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("failed to parse directory response: %w", err)
	}

	return &Result{
		Records:   &list,
		RawBody:   body,
		RouteUsed: route.Name,
		FetchedAt: f.now(),
	}, nil
}

// appendCacheBust adds a monotonically-changing query parameter so
// intermediary caches cannot serve a stale list.
func appendCacheBust(rawURL string, nonce int64) string {
	sep := "?"
	if strings.Contains(rawURL, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%st=%d", rawURL, sep, nonce)
}
