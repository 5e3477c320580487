// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides the HTTP helpers shared by provider adapters:
// status classification into the provider error taxonomy and JSON GETs.
// Retrying is the provider client's job, so nothing here sleeps or loops.
package httputil

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/bibtools/pkg/types"
)

// maxBodyBytes bounds a decoded response body.
const maxBodyBytes = 16 << 20

// Classify maps a non-2xx response to a *types.ProviderError wrapping the
// matching sentinel: 404 is ErrNotFound, 429 is ErrRateLimited (with the
// Retry-After hint), 5xx and 408 are ErrProviderUnavailable, and every other
// 4xx is ErrProviderRejected. It returns nil for 2xx responses.
func Classify(provider string, resp *http.Response) error {
	code := resp.StatusCode
	if code >= 200 && code < 300 {
		return nil
	}

	pe := &types.ProviderError{Provider: provider, StatusCode: code}
	switch {
	case code == http.StatusNotFound:
		pe.Err = types.ErrNotFound
	case code == http.StatusTooManyRequests:
		pe.Err = types.ErrRateLimited
		pe.RetryAfter = RetryAfter(resp.Header.Get("Retry-After"), time.Now())
	case code == http.StatusRequestTimeout || code >= 500:
		pe.Err = types.ErrProviderUnavailable
		pe.RetryAfter = RetryAfter(resp.Header.Get("Retry-After"), time.Now())
	default:
		pe.Err = types.ErrProviderRejected
	}
	if snippet := bodySnippet(resp.Body); snippet != "" {
		pe.Err = fmt.Errorf("%w: %s", pe.Err, snippet)
	}
	return pe
}

// RetryAfter parses a Retry-After header given in seconds or as an HTTP
// date. Unparseable or past values yield zero.
func RetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := t.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}

// GetJSON issues a GET to rawURL and decodes a 2xx JSON body into out.
// Transport failures and undecodable bodies are ErrProviderUnavailable;
// error statuses are classified by Classify.
func GetJSON(ctx context.Context, client *http.Client, provider, rawURL string, header http.Header, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return &types.ProviderError{Provider: provider, Err: fmt.Errorf("%w: building request: %w", types.ErrProviderRejected, err)}
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return &types.ProviderError{Provider: provider, Err: fmt.Errorf("%w: %w", types.ErrProviderUnavailable, err)}
	}
	defer resp.Body.Close()

	if err := Classify(provider, resp); err != nil {
		return err
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(out); err != nil {
		return &types.ProviderError{
			Provider:   provider,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%w: decoding response: %w", types.ErrProviderUnavailable, err),
		}
	}
	return nil
}

// UserAgent builds a polite User-Agent carrying a contact address, as
// Crossref and OpenAlex ask of API clients.
func UserAgent(base, email string) string {
	if email == "" {
		return base
	}
	return fmt.Sprintf("%s (mailto:%s)", base, email)
}

func bodySnippet(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, 256))
	return strings.TrimSpace(string(b))
}
