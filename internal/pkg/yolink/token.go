package yolink

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/anicoll/yolink-integration/internal/pkg/config"
)

type Credentials struct {
	ClientID     string
	ClientSecret string
}

type AccessToken struct {
	Token     string
	ExpiresAt time.Time
}

// Valid reports whether the token can still be used at now.
func (t AccessToken) Valid(now time.Time) bool {
	return t.Token != "" && now.Before(t.ExpiresAt)
}

// TokenManager caches the account token and refreshes it through a client credentials exchange.
// Concurrent callers share a single in-flight refresh.
type TokenManager struct {
	creds      Credentials
	host       string
	httpClient *http.Client
	logger     *zap.Logger
	now        func() time.Time

	mu    sync.RWMutex
	token AccessToken
	group singleflight.Group
}

func NewTokenManager(cfg *config.YolinkConfig, httpClient *http.Client) *TokenManager {
	return &TokenManager{
		creds: Credentials{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
		},
		host:       cfg.Host,
		httpClient: httpClient,
		logger:     zap.L(),
		now:        time.Now,
	}
}

func (tm *TokenManager) cached() (AccessToken, bool) {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	return tm.token, tm.token.Valid(tm.now())
}

// ValidToken returns the cached token, refreshing it first when it has expired.
func (tm *TokenManager) ValidToken(ctx context.Context) (AccessToken, error) {
	if tok, ok := tm.cached(); ok {
		return tok, nil
	}
	// the refresh is shared, so one caller giving up must not fail the others. Requests are
	// still bounded by the http client timeout.
	refreshCtx := context.WithoutCancel(ctx)
	ch := tm.group.DoChan("token", func() (any, error) {
		// another caller may have refreshed while we were waiting.
		if tok, ok := tm.cached(); ok {
			return tok, nil
		}
		return tm.refresh(refreshCtx)
	})
	select {
	case <-ctx.Done():
		return AccessToken{}, &AuthError{Err: ctx.Err()}
	case res := <-ch:
		if res.Err != nil {
			return AccessToken{}, res.Err
		}
		if res.Shared {
			tm.logger.Debug("shared in-flight token refresh")
		}
		return res.Val.(AccessToken), nil
	}
}

// Invalidate drops the cached token so the next call refreshes.
func (tm *TokenManager) Invalidate() {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.token = AccessToken{}
}

func (tm *TokenManager) refresh(ctx context.Context) (AccessToken, error) {
	tm.logger.Info("requesting new token")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint(tm.host, tokenPath), strings.NewReader(tm.formBody()))
	if err != nil {
		return AccessToken{}, &AuthError{Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := tm.httpClient.Do(req)
	if err != nil {
		tm.logger.Error("failed to get access token", zap.Error(err))
		return AccessToken{}, &AuthError{Err: err}
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return AccessToken{}, &AuthError{Err: err}
	}

	tokenRes := tokenResponse{}
	if err := json.Unmarshal(data, &tokenRes); err != nil {
		if res.StatusCode < 200 || res.StatusCode > 299 {
			return AccessToken{}, &AuthError{Code: fmt.Sprint(res.StatusCode)}
		}
		return AccessToken{}, &AuthError{Err: fmt.Errorf("decode token response: %w", err)}
	}
	if res.StatusCode < 200 || res.StatusCode > 299 || tokenRes.AccessToken == "" {
		authErr := &AuthError{Desc: tokenRes.Desc, Code: fmt.Sprint(tokenRes.Code)}
		if tokenRes.Code == nil {
			authErr.Code = fmt.Sprint(res.StatusCode)
		}
		tm.logger.Error("failed to get access token", zap.Error(authErr), zap.Int("status", res.StatusCode))
		return AccessToken{}, authErr
	}

	// tokens are used for 90% of their lifetime so none expires mid request.
	validity := time.Duration(tokenRes.ExpiresIn*float64(time.Second)) * 9 / 10
	tok := AccessToken{
		Token:     tokenRes.AccessToken,
		ExpiresAt: tm.now().Add(validity),
	}

	tm.mu.Lock()
	tm.token = tok
	tm.mu.Unlock()

	tm.logger.Info("obtained new access token", zap.Duration("valid_for", validity))
	return tok, nil
}

var uriComponentReplacer = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// encodeURIComponent escapes s the way the platform's reference clients do.
func encodeURIComponent(s string) string {
	return uriComponentReplacer.Replace(url.QueryEscape(s))
}

func (tm *TokenManager) formBody() string {
	return "grant_type=client_credentials&client_id=" + encodeURIComponent(tm.creds.ClientID) +
		"&client_secret=" + encodeURIComponent(tm.creds.ClientSecret)
}
