package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client is a minimal typed client for the platform admin API. The auth
// subsystem only needs it to register webhook subscriptions after install;
// it deliberately grows no domain-schema surface.
type Client struct {
	HTTPClient  *http.Client
	ShopDomain  string
	AccessToken string
	APIVersion  string
}

func (c Client) doJSON(ctx context.Context, method, path string, reqBody any, respBody any) (int, error) {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 20 * time.Second}
	}
	if c.APIVersion == "" {
		c.APIVersion = "2025-10"
	}
	if c.ShopDomain == "" || c.AccessToken == "" {
		return 0, fmt.Errorf("missing shop domain or access token")
	}

	var buf bytes.Buffer
	if reqBody != nil {
		if err := json.NewEncoder(&buf).Encode(reqBody); err != nil {
			return 0, err
		}
	}

	u := fmt.Sprintf("https://%s/admin/api/%s%s", c.ShopDomain, c.APIVersion, path)
	req, err := http.NewRequestWithContext(ctx, method, u, &buf)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Platform-Access-Token", c.AccessToken)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	b, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return resp.StatusCode, readErr
	}

	// Surface the platform's error body for non-2xx so callers can see
	// missing scopes, etc.
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if len(b) > 0 {
			return resp.StatusCode, fmt.Errorf("platform api error: status=%d body=%s", resp.StatusCode, string(b))
		}
		return resp.StatusCode, fmt.Errorf("platform api error: status=%d", resp.StatusCode)
	}

	if respBody != nil && len(b) > 0 {
		if err := json.Unmarshal(b, respBody); err != nil {
			return resp.StatusCode, fmt.Errorf("decode platform response failed: %w body=%s", err, string(b))
		}
	}

	return resp.StatusCode, nil
}

type webhookCreateRequest struct {
	Webhook webhookSubscription `json:"webhook"`
}

type webhookSubscription struct {
	Topic   string `json:"topic"`
	Address string `json:"address"`
	Format  string `json:"format"`
}

type webhookCreateResponse struct {
	Webhook struct {
		ID int64 `json:"id"`
	} `json:"webhook"`
}

// CreateWebhook registers a webhook subscription delivering the given topic
// to address as JSON.
func (c Client) CreateWebhook(ctx context.Context, topic, address string) error {
	topic = strings.TrimSpace(topic)
	address = strings.TrimSpace(address)
	if topic == "" || address == "" {
		return fmt.Errorf("missing topic or address")
	}

	req := webhookCreateRequest{
		Webhook: webhookSubscription{
			Topic:   topic,
			Address: address,
			Format:  "json",
		},
	}
	var resp webhookCreateResponse
	status, err := c.doJSON(ctx, http.MethodPost, "/webhooks.json", req, &resp)
	if err != nil {
		return err
	}
	if status < 200 || status >= 300 {
		return fmt.Errorf("create webhook failed: status=%d", status)
	}
	return nil
}
