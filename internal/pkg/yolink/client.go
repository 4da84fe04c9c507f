package yolink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/anicoll/yolink-integration/internal/pkg/config"
	"go.uber.org/zap"
)

// Client talks to the YoLink open api on behalf of one account.
type Client struct {
	cfg        *config.YolinkConfig
	httpClient *http.Client
	logger     *zap.Logger
	now        func() time.Time
}

// NewHTTPClient returns the client shared by the token manager and the api client.
// The timeout bounds every single request.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
	}
}

func NewClient(cfg *config.YolinkConfig, httpClient *http.Client) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: httpClient,
		logger:     zap.L(), // returns the global logger.
		now:        time.Now,
	}
}

func (c *Client) post(ctx context.Context, token string, body any) (*http.Response, []byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint(c.cfg.Host, apiPath), bytes.NewReader(payload))
	if err != nil {
		return nil, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("send request: %w", err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return res, nil, fmt.Errorf("read response: %w", err)
	}
	return res, data, nil
}

func endpoint(host, path string) string {
	return strings.TrimRight(host, "/") + path
}
