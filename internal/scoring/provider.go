// Package scoring wraps the external compatibility-score provider.
//
// The provider is best-effort by contract: it may time out, return partial
// results, or be down entirely. Callers substitute Neutral for any missing
// score and keep going — a degraded feed beats no feed.
package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Neutral is the fallback compatibility score used when the provider is
// unreachable or omits a candidate. Chosen as the midpoint of the [0,1]
// scale so degraded ranking stays unbiased.
const Neutral = 0.5

// Provider returns a compatibility score per candidate on a [0,1] scale.
// Implementations may return partial maps; absent candidates fall back to
// Neutral at the call site.
type Provider interface {
	Score(ctx context.Context, userID uint64, candidateIDs []uint64) (map[uint64]float64, error)
}

// HTTPProvider calls a remote scoring model over HTTP with a bounded
// timeout per request.
type HTTPProvider struct {
	url    string
	client *http.Client
}

// NewHTTPProvider builds a provider against the given endpoint. The
// timeout bounds the whole exchange; expiry surfaces as an error and the
// caller degrades to Neutral.
func NewHTTPProvider(url string, timeout time.Duration) *HTTPProvider {
	return &HTTPProvider{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

type scoreRequest struct {
	UserID       uint64   `json:"user_id"`
	CandidateIDs []uint64 `json:"candidate_ids"`
}

type scoreResponse struct {
	Scores map[uint64]float64 `json:"scores"`
}

func (p *HTTPProvider) Score(ctx context.Context, userID uint64, candidateIDs []uint64) (map[uint64]float64, error) {
	body, err := json.Marshal(scoreRequest{UserID: userID, CandidateIDs: candidateIDs})
	if err != nil {
		return nil, fmt.Errorf("encode score request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build score request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("score provider call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("score provider returned status %d", resp.StatusCode)
	}

	var out scoreResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode score response: %w", err)
	}
	return out.Scores, nil
}

// Unavailable is a provider that always fails. Used when no provider URL
// is configured; every feed then ranks on the neutral fallback.
type Unavailable struct{}

func (Unavailable) Score(context.Context, uint64, []uint64) (map[uint64]float64, error) {
	return nil, fmt.Errorf("no scoring provider configured")
}
