package vendorapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/vantrack/fleetsync-go/internal/config"
	"github.com/vantrack/fleetsync-go/internal/models"
	"github.com/vantrack/fleetsync-go/internal/observability"
)

// Vendor status codes; zero is success
const (
	StatusOK          = 0
	StatusRateLimited = 8902
)

// Vendor actions
const (
	ActionQueryTrips    = "querytrips"
	ActionLastPositions = "lastposition"
)

// RawResponse is the vendor's envelope for every action
type RawResponse struct {
	Status  int             `json:"status"`
	Cause   string          `json:"cause,omitempty"`
	Records json.RawMessage `json:"records,omitempty"`
}

// Client is the sole choke point for vendor calls. Every call passes through
// the shared Limiter before touching the network.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	utcOffset  int
	limiter    *Limiter

	rateLimitRetries int
	transientRetries int
	transientBackoff time.Duration
}

// NewClient creates a rate-limited vendor client
func NewClient(vcfg config.VendorConfig, rcfg config.RateLimitConfig, limiter *Limiter) *Client {
	timeout := time.Duration(vcfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		httpClient:       &http.Client{Timeout: timeout},
		baseURL:          vcfg.BaseURL,
		token:            vcfg.Token,
		utcOffset:        vcfg.VendorUTCOffsetHours,
		limiter:          limiter,
		rateLimitRetries: rcfg.RateLimitRetries,
		transientRetries: rcfg.TransientRetries,
		transientBackoff: rcfg.TransientBackoff,
	}
}

// Call issues one vendor action with bounded retries. Transient failures get
// a short fixed backoff; throttling publishes a shared exponential backoff
// every caller must sit out before the next attempt.
func (c *Client) Call(ctx context.Context, action string, params map[string]interface{}) (*RawResponse, error) {
	var rlAttempts, trAttempts int

	for {
		if err := c.limiter.Acquire(ctx); err != nil {
			return nil, &TransientError{Action: action, Err: err}
		}

		resp, err := c.do(ctx, action, params)
		if err != nil {
			observability.VendorCalls.WithLabelValues(action, "transient").Inc()
			if trAttempts < c.transientRetries {
				trAttempts++
				if serr := sleep(ctx, c.transientBackoff); serr != nil {
					return nil, &TransientError{Action: action, Err: serr}
				}
				continue
			}
			return nil, &TransientError{Action: action, Err: err}
		}

		switch {
		case resp.Status == StatusOK:
			observability.VendorCalls.WithLabelValues(action, "ok").Inc()
			return resp, nil

		case resp.Status == StatusRateLimited:
			observability.VendorCalls.WithLabelValues(action, "rate_limited").Inc()
			observability.VendorBackoffs.Inc()
			delay, berr := c.limiter.PublishBackoff(ctx, rlAttempts)
			if berr != nil {
				return nil, berr
			}
			if rlAttempts < c.rateLimitRetries {
				rlAttempts++
				// Acquire will honor the published backoff on the next pass
				continue
			}
			return nil, &RateLimitedError{Action: action, RetryAfter: delay}

		default:
			observability.VendorCalls.WithLabelValues(action, "rejected").Inc()
			return nil, &VendorError{Action: action, Status: resp.Status, Message: resp.Cause}
		}
	}
}

// do performs a single HTTP round trip; network, timeout and 5xx failures
// are all surfaced as plain errors for the retry loop to classify
func (c *Client) do(ctx context.Context, action string, params map[string]interface{}) (*RawResponse, error) {
	start := time.Now()
	defer observability.ObserveVendorCall(start)

	body, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshal params: %w", err)
	}

	u := fmt.Sprintf("%s?action=%s&token=%s", c.baseURL, url.QueryEscape(action), url.QueryEscape(c.token))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode >= 500 {
		return nil, fmt.Errorf("vendor returned HTTP %d", httpResp.StatusCode)
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("vendor returned unexpected HTTP %d", httpResp.StatusCode)
	}

	var resp RawResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &resp, nil
}

// QueryTrips fetches the vendor's trip summaries for one device and window.
// Window bounds are formatted in the vendor's fixed zone.
func (c *Client) QueryTrips(ctx context.Context, deviceID string, begin, end time.Time) ([]models.RawTrip, error) {
	resp, err := c.Call(ctx, ActionQueryTrips, map[string]interface{}{
		"deviceid":  deviceID,
		"begintime": FormatVendorTime(begin, c.utcOffset),
		"endtime":   FormatVendorTime(end, c.utcOffset),
	})
	if err != nil {
		return nil, err
	}

	var trips []models.RawTrip
	if len(resp.Records) > 0 {
		if err := json.Unmarshal(resp.Records, &trips); err != nil {
			return nil, &VendorError{Action: ActionQueryTrips, Status: resp.Status,
				Message: fmt.Sprintf("malformed trip records: %v", err)}
		}
	}
	return trips, nil
}

// LastPositions fetches the latest raw position records for the given devices
func (c *Client) LastPositions(ctx context.Context, deviceIDs []string) ([]models.RawRecord, error) {
	resp, err := c.Call(ctx, ActionLastPositions, map[string]interface{}{
		"deviceids": deviceIDs,
	})
	if err != nil {
		return nil, err
	}

	var records []models.RawRecord
	if len(resp.Records) > 0 {
		if err := json.Unmarshal(resp.Records, &records); err != nil {
			return nil, &VendorError{Action: ActionLastPositions, Status: resp.Status,
				Message: fmt.Sprintf("malformed position records: %v", err)}
		}
	}
	return records, nil
}

// IsRetryable reports whether err is worth retrying on a later run
func IsRetryable(err error) bool {
	var rl *RateLimitedError
	var tr *TransientError
	return errors.As(err, &rl) || errors.As(err, &tr)
}
