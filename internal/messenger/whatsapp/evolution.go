package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/llevisouza/gestao-cobrancas/internal/messenger"
	"github.com/llevisouza/gestao-cobrancas/pkg/circuitbreaker"
)

const connectionStateKey = "connection_state"

// Config for the Evolution API gateway.
type Config struct {
	BaseURL  string        `yaml:"base_url" validate:"required,url"`
	APIKey   string        `yaml:"api_key" validate:"required"`
	Instance string        `yaml:"instance" validate:"required"`
	Timeout  time.Duration `yaml:"timeout"`
}

// Client sends WhatsApp messages through an Evolution API instance.
type Client struct {
	cfg        Config
	httpClient *http.Client
	cb         *circuitbreaker.CircuitBreaker
	// stateCache holds the last connection check so status polls do not hit
	// the gateway on every request.
	stateCache *cache.Cache
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		cb: circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
			Name:        "evolution-api",
			MaxRequests: 5,
			Interval:    30 * time.Second,
			Timeout:     time.Minute,
		}),
		stateCache: cache.New(30*time.Second, time.Minute),
	}
}

type sendTextRequest struct {
	Number string `json:"number"`
	Text   string `json:"text"`
}

type sendTextResponse struct {
	Key struct {
		ID string `json:"id"`
	} `json:"key"`
	Status string `json:"status"`
}

// Send delivers a text message to a phone number in international format.
func (c *Client) Send(ctx context.Context, destination, body string) (*messenger.SendResult, error) {
	payload, err := json.Marshal(sendTextRequest{Number: destination, Text: body})
	if err != nil {
		return nil, fmt.Errorf("failed to encode message: %w", err)
	}

	url := fmt.Sprintf("%s/message/sendText/%s", c.cfg.BaseURL, c.cfg.Instance)
	var result *messenger.SendResult
	err = c.cb.Execute(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("apikey", c.cfg.APIKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("evolution request failed: %w", err)
		}
		defer resp.Body.Close()

		raw, _ := io.ReadAll(resp.Body)
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			result = &messenger.SendResult{
				Success: false,
				Error:   fmt.Sprintf("evolution returned %d: %s", resp.StatusCode, string(raw)),
			}
			return fmt.Errorf("evolution returned status %d", resp.StatusCode)
		}

		var body sendTextResponse
		if err := json.Unmarshal(raw, &body); err != nil {
			return fmt.Errorf("failed to decode evolution response: %w", err)
		}
		result = &messenger.SendResult{Success: true, MessageID: body.Key.ID}
		return nil
	})
	if err != nil {
		if result != nil {
			return result, nil
		}
		return nil, err
	}
	return result, nil
}

type connectionStateResponse struct {
	Instance struct {
		State string `json:"state"`
	} `json:"instance"`
}

// CheckConnection queries the instance session state. Results are cached
// briefly so frequent status polls do not hammer the gateway.
func (c *Client) CheckConnection(ctx context.Context) (*messenger.ConnectionStatus, error) {
	if cached, ok := c.stateCache.Get(connectionStateKey); ok {
		return cached.(*messenger.ConnectionStatus), nil
	}

	url := fmt.Sprintf("%s/instance/connectionState/%s", c.cfg.BaseURL, c.cfg.Instance)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("apikey", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &messenger.ConnectionStatus{Connected: false, State: "unreachable"}, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &messenger.ConnectionStatus{Connected: false, State: fmt.Sprintf("http_%d", resp.StatusCode)}, nil
	}

	var body connectionStateResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode connection state: %w", err)
	}

	status := &messenger.ConnectionStatus{
		Connected: body.Instance.State == "open",
		State:     body.Instance.State,
	}
	c.stateCache.Set(connectionStateKey, status, cache.DefaultExpiration)
	return status, nil
}
