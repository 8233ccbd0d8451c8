// Package supabase is a client for the Supabase GoTrue auth REST API.
package supabase

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"styleswap/internal/styleswap"
)

const defaultTimeout = 30 * time.Second

type Config struct {
	URL     string
	AnonKey string
	Timeout time.Duration
}

// ConfigFromEnv reads SUPABASE_URL and SUPABASE_ANON_KEY.
func ConfigFromEnv() Config {
	return Config{
		URL:     os.Getenv("SUPABASE_URL"),
		AnonKey: os.Getenv("SUPABASE_ANON_KEY"),
	}
}

type Client struct {
	http *resty.Client
}

func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("supabase URL is required")
	}
	if cfg.AnonKey == "" {
		return nil, fmt.Errorf("supabase anon key is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	httpClient := resty.New().
		SetBaseURL(strings.TrimSuffix(cfg.URL, "/")+"/auth/v1").
		SetTimeout(timeout).
		SetHeader("apikey", cfg.AnonKey).
		SetHeader("Content-Type", "application/json").
		SetAuthToken(cfg.AnonKey)
	return &Client{http: httpClient}, nil
}

type user struct {
	Id           string                 `json:"id"`
	Email        string                 `json:"email"`
	UserMetadata map[string]interface{} `json:"user_metadata"`
}

func (u user) identity() styleswap.Identity {
	identity := styleswap.Identity{Id: u.Id, Email: u.Email}
	if name, ok := u.UserMetadata["full_name"].(string); ok {
		identity.FullName = name
	}
	if avatar, ok := u.UserMetadata["avatar_url"].(string); ok {
		identity.AvatarUrl = avatar
	}
	return identity
}

type session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	User         *user  `json:"user"`

	// Sign-up without auto-confirm returns the bare user.
	user
}

func (s session) authSession() *styleswap.AuthSession {
	u := s.user
	if s.User != nil {
		u = *s.User
	}
	return &styleswap.AuthSession{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		ExpiresIn:    s.ExpiresIn,
		Identity:     u.identity(),
	}
}

// apiError covers both GoTrue error shapes: {"error","error_description"}
// and {"code","error_code","msg"}.
type apiError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	ErrorCode        string `json:"error_code"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
}

func authError(resp *resty.Response, e *apiError) error {
	err := &styleswap.AuthError{Status: resp.StatusCode()}
	if e != nil {
		err.Code = e.ErrorCode
		if err.Code == "" {
			err.Code = e.Error
		}
		for _, m := range []string{e.Msg, e.ErrorDescription, e.Message} {
			if m != "" {
				err.Message = m
				break
			}
		}
	}
	if err.Message == "" {
		err.Message = http.StatusText(resp.StatusCode())
	}
	return err
}

func (c *Client) do(ctx context.Context, method, path string, req *resty.Request) (*resty.Response, error) {
	var apiErr apiError
	resp, err := req.SetContext(ctx).SetError(&apiErr).Execute(method, path)
	if err != nil {
		return nil, fmt.Errorf("supabase %s %s: %w", method, path, err)
	}
	if resp.IsError() {
		return resp, authError(resp, &apiErr)
	}
	return resp, nil
}

func (c *Client) SignUp(ctx context.Context, email, password string, attrs map[string]interface{}) (*styleswap.AuthSession, error) {
	var out session
	req := c.http.R().
		SetBody(map[string]interface{}{"email": email, "password": password, "data": attrs}).
		SetResult(&out)
	if _, err := c.do(ctx, http.MethodPost, "/signup", req); err != nil {
		return nil, err
	}
	return out.authSession(), nil
}

func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*styleswap.AuthSession, error) {
	var out session
	req := c.http.R().
		SetQueryParam("grant_type", "password").
		SetBody(map[string]string{"email": email, "password": password}).
		SetResult(&out)
	if _, err := c.do(ctx, http.MethodPost, "/token", req); err != nil {
		return nil, err
	}
	return out.authSession(), nil
}

func (c *Client) SendPasswordReset(ctx context.Context, email, redirectURL string) error {
	req := c.http.R().
		SetQueryParam("redirect_to", redirectURL).
		SetBody(map[string]string{"email": email})
	_, err := c.do(ctx, http.MethodPost, "/recover", req)
	return err
}

func (c *Client) UpdatePassword(ctx context.Context, accessToken, password string) error {
	req := c.http.R().
		SetAuthToken(accessToken).
		SetBody(map[string]string{"password": password})
	_, err := c.do(ctx, http.MethodPut, "/user", req)
	return err
}

func (c *Client) GetUser(ctx context.Context, accessToken string) (*styleswap.Identity, error) {
	var out user
	req := c.http.R().SetAuthToken(accessToken).SetResult(&out)
	if _, err := c.do(ctx, http.MethodGet, "/user", req); err != nil {
		return nil, err
	}
	identity := out.identity()
	return &identity, nil
}

func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	req := c.http.R().SetAuthToken(accessToken)
	_, err := c.do(ctx, http.MethodPost, "/logout", req)
	return err
}
