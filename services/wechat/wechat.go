// Package wechat exchanges a mini-program authorization code for the user's
// stable openid via the jscode2session endpoint. The rest of the system only
// depends on ExchangeCode; any provider failure surfaces as ErrAuthFailed.
package wechat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// ErrAuthFailed covers every provider-side failure: transport errors,
// non-JSON bodies and WeChat business errcodes alike.
var ErrAuthFailed = errors.New("wechat: code exchange failed")

const defaultBaseURL = "https://api.weixin.qq.com"

// Client calls the WeChat session endpoint.
type Client struct {
	appID      string
	appSecret  string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Client with the given mini-program credentials.
func NewClient(appID, appSecret string) *Client {
	return &Client{
		appID:      appID,
		appSecret:  appSecret,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// WithBaseURL overrides the endpoint base, used in tests.
func (c *Client) WithBaseURL(base string) *Client {
	c.baseURL = base
	return c
}

type sessionResponse struct {
	OpenID     string `json:"openid"`
	SessionKey string `json:"session_key"`
	ErrCode    int    `json:"errcode"`
	ErrMsg     string `json:"errmsg"`
}

// ExchangeCode resolves an opaque login code to the user's openid.
func (c *Client) ExchangeCode(ctx context.Context, code string) (string, error) {
	if code == "" {
		return "", ErrAuthFailed
	}

	q := url.Values{}
	q.Set("appid", c.appID)
	q.Set("secret", c.appSecret)
	q.Set("js_code", code)
	q.Set("grant_type", "authorization_code")
	endpoint := c.baseURL + "/sns/jscode2session?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}
	defer resp.Body.Close()

	var session sessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return "", fmt.Errorf("%w: invalid response", ErrAuthFailed)
	}
	if session.ErrCode != 0 || session.OpenID == "" {
		return "", fmt.Errorf("%w: errcode %d %s", ErrAuthFailed, session.ErrCode, session.ErrMsg)
	}
	return session.OpenID, nil
}
