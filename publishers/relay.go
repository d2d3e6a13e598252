package publishers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"CrossPostAPI/models"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

var ErrTokenExpired = errors.New("access token expired")

// RelayPublisher posts content to a delivery relay that fronts the real
// platform API: POST {baseURL}/{platform}/posts with the user's bearer token.
type RelayPublisher struct {
	platform models.Platform
	endpoint string
	client   *http.Client
	limiter  *rate.Limiter
}

type RelayOption func(*RelayPublisher)

func WithHTTPClient(c *http.Client) RelayOption {
	return func(r *RelayPublisher) { r.client = c }
}

type relayRequest struct {
	Content string `json:"content"`
}

type relayErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error"`
}

func NewRelayPublisher(platform models.Platform, baseURL string, rps float64, opts ...RelayOption) *RelayPublisher {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	r := &RelayPublisher{
		platform: platform,
		endpoint: fmt.Sprintf("%s/%s/posts", strings.TrimRight(baseURL, "/"), platform),
		client:   &http.Client{Timeout: 30 * time.Second},
		limiter:  rate.NewLimiter(limit, 1),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *RelayPublisher) Deliver(ctx context.Context, cred *models.Credential, content string) (*Delivery, error) {
	if cred == nil || cred.AccessToken == "" {
		return nil, fmt.Errorf("missing %s credentials", r.platform)
	}

	token := &oauth2.Token{AccessToken: cred.AccessToken, RefreshToken: cred.RefreshToken, TokenType: "Bearer"}
	if cred.ExpiresAt != nil {
		token.Expiry = *cred.ExpiresAt
	}
	if !token.Valid() {
		return nil, fmt.Errorf("%s: %w", r.platform, ErrTokenExpired)
	}

	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%s rate limit wait: %w", r.platform, err)
	}

	body, err := json.Marshal(relayRequest{Content: content})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	client := oauth2.NewClient(context.WithValue(ctx, oauth2.HTTPClient, r.client), oauth2.StaticTokenSource(token))
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", r.platform, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%s read response: %w", r.platform, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr relayErrorResponse
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Message != "" {
			return nil, fmt.Errorf("%s API error (%d): %s", r.platform, resp.StatusCode, apiErr.Error.Message)
		}
		return nil, fmt.Errorf("%s API returned status %d", r.platform, resp.StatusCode)
	}

	var delivery Delivery
	if err := json.Unmarshal(respBody, &delivery); err != nil {
		return nil, fmt.Errorf("%s decode response: %w", r.platform, err)
	}
	if delivery.ExternalPostID == "" {
		return nil, fmt.Errorf("%s response missing post id", r.platform)
	}
	return &delivery, nil
}
