package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"tradecopier/internal/models"
)

// credentialShape is one of the three probe orders the connection protocol
// tries against each auth endpoint.
type credentialShape struct {
	name string
	body func(cfg ConnectConfig) (map[string]interface{}, bool)
}

var credentialShapes = []credentialShape{
	{
		name: "email_password",
		body: func(cfg ConnectConfig) (map[string]interface{}, bool) {
			if cfg.Credentials.Email == nil || cfg.Credentials.Password == nil {
				return nil, false
			}
			return map[string]interface{}{
				"email":    *cfg.Credentials.Email,
				"password": *cfg.Credentials.Password,
			}, true
		},
	},
	{
		name: "api_key_secret",
		body: func(cfg ConnectConfig) (map[string]interface{}, bool) {
			if cfg.Credentials.APIKey == nil || cfg.Credentials.APISecret == nil {
				return nil, false
			}
			return map[string]interface{}{
				"apiKey":    *cfg.Credentials.APIKey,
				"apiSecret": *cfg.Credentials.APISecret,
			}, true
		},
	},
	{
		name: "username_password",
		body: func(cfg ConnectConfig) (map[string]interface{}, bool) {
			if cfg.AccountNumber == "" || cfg.Credentials.Password == nil {
				return nil, false
			}
			return map[string]interface{}{
				"username": cfg.AccountNumber,
				"password": *cfg.Credentials.Password,
			}, true
		},
	},
}

// authEndpoints is the fixed probe order from the connection protocol.
var authEndpoints = []string{
	"/auth/login",
	"/api/auth/login",
	"/v1/auth/login",
	"/login",
	"/api/login",
	"/authenticate",
	"/api/authenticate",
	"/oauth/token",
}

// ResolvedEndpoint is the (baseUrl, authEndpoint, authShape) tuple cached
// for the session once the auth probe succeeds, per Design Notes
// "endpoint discovery is an expensive one-shot".
type ResolvedEndpoint struct {
	BaseURL       string
	AuthEndpoint  string
	CredShape     string
	SessionToken  string
	AccountsPath  string
	TradesPath    string
}

// DiscoveryCache persists a ResolvedEndpoint across process restarts so a
// reconnecting account skips re-probing. Implemented by internal/cache
// against Redis; a nil cache degrades to always-probe.
type DiscoveryCache interface {
	Get(ctx context.Context, accountID string) (*ResolvedEndpoint, bool)
	Set(ctx context.Context, accountID string, resolved ResolvedEndpoint) error
}

// Transport is the shared "wire + auth" helper every concrete adapter
// wraps, generalising the request-signing/retry split
// from one platform to many.
type Transport struct {
	Platform        models.Platform
	BaseURLs        []string // per-firm overrides first, then platform defaults
	AccountsPath    string
	TradesPath      string
	OrderPath       string
	CancelPath      string
	ModifyPath      string
	ClosePath       string

	httpClient *http.Client
	limiter    *rate.Limiter
	cache      DiscoveryCache

	resolved *ResolvedEndpoint
}

// NewTransport builds a Transport. requestsPerMinute sizes the rate
// limiter from config (MaxAPIRequestsPerMinute), matching the
// config fields that were previously threaded through but never wired to
// an actual limiter.
func NewTransport(platform models.Platform, baseURLs []string, requestsPerMinute int, cache DiscoveryCache) *Transport {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 60
	}
	return &Transport{
		Platform:     platform,
		BaseURLs:     baseURLs,
		AccountsPath: "/account",
		TradesPath:   "/trades",
		OrderPath:    "/order",
		CancelPath:   "/order/cancel",
		ModifyPath:   "/order/modify",
		ClosePath:    "/position/close",
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		limiter:      rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), requestsPerMinute),
		cache:        cache,
	}
}

// Authenticate runs the connection protocol: base-URL selection, then
// auth-endpoint x credential-shape probing until one combination
// succeeds. The first 2xx response wins and is cached for the session
// (and, when a DiscoveryCache is wired, across restarts for accountID).
func (t *Transport) Authenticate(ctx context.Context, accountID string, cfg ConnectConfig) error {
	if t.cache != nil {
		if resolved, ok := t.cache.Get(ctx, accountID); ok {
			t.resolved = resolved
			return nil
		}
	}

	candidates := t.BaseURLs
	if cfg.BaseURLOverride != "" {
		candidates = append([]string{cfg.BaseURLOverride}, candidates...)
	}
	if len(candidates) == 0 {
		return &models.AuthError{Platform: t.Platform, Reason: "no candidate base URLs configured"}
	}
	if !cfg.DiscoveryEnabled {
		candidates = candidates[:1]
	}

	for _, base := range candidates {
		for _, endpoint := range authEndpoints {
			for _, shape := range credentialShapes {
				body, ok := shape.body(cfg)
				if !ok {
					continue
				}
				token, status, err := t.tryAuth(ctx, base, endpoint, body)
				if err != nil {
					return &models.TransportError{Op: "authenticate", Err: err}
				}
				if status >= 200 && status < 300 {
					resolved := ResolvedEndpoint{
						BaseURL:      base,
						AuthEndpoint: endpoint,
						CredShape:    shape.name,
						SessionToken: token,
						AccountsPath: t.AccountsPath,
						TradesPath:   t.TradesPath,
					}
					if ok := t.probeAccounts(ctx, resolved); ok {
						t.resolved = &resolved
						if t.cache != nil {
							_ = t.cache.Set(ctx, accountID, resolved)
						}
						return nil
					}
				}
				if status >= 500 {
					// 5xx moves to the next base URL; stop trying more
					// endpoints/shapes against this one.
					goto nextBase
				}
				// 4xx moves to the next endpoint.
			}
		}
	nextBase:
	}

	return &models.AuthError{Platform: t.Platform, Reason: "no base URL / endpoint / credential combination succeeded"}
}

func (t *Transport) tryAuth(ctx context.Context, base, endpoint string, body map[string]interface{}) (token string, status int, err error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return "", 0, err
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	var parsed struct {
		Token string `json:"token"`
	}
	_ = json.Unmarshal(raw, &parsed)
	return parsed.Token, resp.StatusCode, nil
}

func (t *Transport) probeAccounts(ctx context.Context, resolved ResolvedEndpoint) bool {
	if resolved.SessionToken == "" {
		// No session token means the polling fallback path; account probe
		// isn't meaningful without a credential-bearing request, accept it.
		return true
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resolved.BaseURL+resolved.AccountsPath, nil)
	if err != nil {
		return false
	}
	req.Header.Set("Authorization", "Bearer "+resolved.SessionToken)
	resp, err := t.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

func (t *Transport) Resolved() *ResolvedEndpoint { return t.resolved }

// DoJSON issues a rate-limited, session-authenticated JSON request against
// the resolved base URL.
func (t *Transport) DoJSON(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	if t.resolved == nil {
		return &models.NotConnectedError{}
	}
	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, t.resolved.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if t.resolved.SessionToken != "" {
		req.Header.Set("Authorization", "Bearer "+t.resolved.SessionToken)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return &models.TransportError{Op: fmt.Sprintf("%s %s", method, path), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return &models.TransportError{Op: fmt.Sprintf("%s %s", method, path), Err: fmt.Errorf("status %d: %s", resp.StatusCode, raw)}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (t *Transport) Reset() {
	t.resolved = nil
}
