package fxrate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"

	"procure/internal/config"
	"procure/internal/storage"
	"procure/internal/tracker"
)

// MetadataKey holds the last synced USD to INR rate.
const MetadataKey = "fx_usd_inr"

var ErrNoRate = errors.New("fx response has no INR rate")

type Client struct {
	cfg        config.Config
	httpClient *http.Client
	limiter    *RateLimiter
}

type latestResponse struct {
	Result     string             `json:"result"`
	ErrorType  string             `json:"error-type"`
	BaseCode   string             `json:"base_code"`
	Rates      map[string]float64 `json:"rates"`
	LastUpdate string             `json:"time_last_update_utc"`
}

func NewClient(cfg config.Config) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: time.Duration(cfg.FXTimeoutMs) * time.Millisecond},
		limiter:    NewRateLimiter(cfg.FXRateLimitRPS),
	}
}

// FetchUSDINR asks the configured endpoint for the latest USD based rates.
func (c *Client) FetchUSDINR(ctx context.Context) (float64, error) {
	var out latestResponse
	if err := c.fetchJSON(ctx, c.cfg.FXAPIURL, &out); err != nil {
		return 0, err
	}
	if out.Result != "" && out.Result != "success" {
		return 0, fmt.Errorf("fx api returned %s: %s", out.Result, out.ErrorType)
	}
	rate, ok := out.Rates["INR"]
	if !ok || rate <= 0 {
		return 0, ErrNoRate
	}
	return rate, nil
}

func (c *Client) fetchJSON(ctx context.Context, url string, out any) error {
	var lastErr error
	for attempt := 1; attempt <= 5; attempt++ {
		c.limiter.WaitTurn()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		if token := strings.TrimSpace(c.cfg.FXAPIToken); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
		} else {
			body, readErr := io.ReadAll(resp.Body)
			resp.Body.Close()
			if readErr != nil {
				lastErr = readErr
			} else if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				if err := json.Unmarshal(body, out); err != nil {
					return fmt.Errorf("decode fx response: %w", err)
				}
				return nil
			} else {
				lastErr = fmt.Errorf("fx api status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
				if !isRetryableStatus(resp.StatusCode) {
					return lastErr
				}
			}
		}

		if attempt < 5 {
			backoff := time.Duration(250*(1<<(attempt-1))+rand.Intn(100)) * time.Millisecond
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}
	}
	return lastErr
}

func isRetryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// Sync fetches the current rate, checks it against the configured bounds and
// stores it as the default for monthly reports.
func Sync(ctx context.Context, db *storage.DB, client *Client) (float64, error) {
	rate, err := client.FetchUSDINR(ctx)
	if err != nil {
		return 0, err
	}
	if err := tracker.ValidateRate(rate, client.cfg.USDINRRateMin, client.cfg.USDINRRateMax); err != nil {
		return 0, err
	}
	if err := db.SetMetadata(MetadataKey, strconv.FormatFloat(rate, 'f', 4, 64)); err != nil {
		return 0, err
	}
	_ = db.SetMetadata(MetadataKey+".synced_at", time.Now().UTC().Format(time.RFC3339))
	return rate, nil
}

// DefaultRate returns the synced rate when one is stored and in range,
// otherwise the configured USD_INR_RATE.
func DefaultRate(db *storage.DB, cfg config.Config) float64 {
	if db == nil {
		return cfg.USDINRRate
	}
	stored, err := db.GetMetadata(MetadataKey)
	if err != nil || stored == nil {
		return cfg.USDINRRate
	}
	rate, err := strconv.ParseFloat(*stored, 64)
	if err != nil || tracker.ValidateRate(rate, cfg.USDINRRateMin, cfg.USDINRRateMax) != nil {
		return cfg.USDINRRate
	}
	return rate
}
