package shopware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/Get-Company/GC-Bridge-4/internal/infrastructure/config"
)

// ErrNotFound is returned when a search for a single entity yields no rows.
var ErrNotFound = errors.New("shopware: entity not found")

// tokenMargin is subtracted from the token lifetime so a token is refreshed
// before the platform rejects it.
const tokenMargin = 30 * time.Second

// connectionOptions is the validated subset of the platform configuration a
// client cannot operate without.
type connectionOptions struct {
	BaseURL      string `validate:"required,url"`
	ClientID     string `validate:"required_without=Username"`
	ClientSecret string
	Username     string
	Password     string `validate:"required_with=Username"`
}

// Client talks to the Shopware 6 Admin API. All entity payloads are kept as
// generic maps; the ingest layer normalizes them before mapping to domain
// types.
type Client struct {
	http   *resty.Client
	cfg    config.ShopwareConfig
	logger *zap.Logger

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// SearchResponse is the envelope of a POST /api/search/{entity} call.
type SearchResponse struct {
	Total int              `json:"total"`
	Data  []map[string]any `json:"data"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

type apiError struct {
	Errors []struct {
		Status string `json:"status"`
		Code   string `json:"code"`
		Title  string `json:"title"`
		Detail string `json:"detail"`
	} `json:"errors"`
}

func (e *apiError) message() string {
	if e == nil || len(e.Errors) == 0 {
		return ""
	}
	first := e.Errors[0]
	if first.Detail != "" {
		return first.Detail
	}
	return first.Title
}

// NewClient creates an Admin API client. BaseURL is the shop root without
// the /api suffix.
func NewClient(cfg config.ShopwareConfig, logger *zap.Logger) (*Client, error) {
	opts := connectionOptions{
		BaseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Username:     cfg.Username,
		Password:     cfg.Password,
	}
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(opts); err != nil {
		return nil, fmt.Errorf("shopware: invalid connection settings: %w", err)
	}

	httpClient := resty.New().
		SetBaseURL(opts.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(cfg.RetryWait).
		SetRetryMaxWaitTime(5 * cfg.RetryWait).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() >= http.StatusInternalServerError ||
				r.StatusCode() == http.StatusTooManyRequests
		})

	return &Client{
		http:   httpClient,
		cfg:    cfg,
		logger: logger,
	}, nil
}

// ensureToken returns a cached access token, authenticating when the cached
// one is missing or about to expire.
func (c *Client) ensureToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		return c.token, nil
	}
	return c.authenticate(ctx)
}

// invalidateToken drops the cached token so the next call re-authenticates.
func (c *Client) invalidateToken() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}

func (c *Client) authenticate(ctx context.Context) (string, error) {
	payload := map[string]string{
		"grant_type":    "client_credentials",
		"client_id":     c.cfg.ClientID,
		"client_secret": c.cfg.ClientSecret,
	}
	if c.cfg.Username != "" {
		payload = map[string]string{
			"grant_type": "password",
			"client_id":  "administration",
			"username":   c.cfg.Username,
			"password":   c.cfg.Password,
		}
		if c.cfg.ClientID != "" {
			payload["client_id"] = c.cfg.ClientID
			payload["client_secret"] = c.cfg.ClientSecret
		}
	}

	var token tokenResponse
	var apiErr apiError
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(payload).
		SetResult(&token).
		SetError(&apiErr).
		Post("/api/oauth/token")
	if err != nil {
		return "", fmt.Errorf("shopware: token request failed: %w", err)
	}
	if resp.IsError() || token.AccessToken == "" {
		c.logger.Error("Shopware authentication failed",
			zap.Int("status_code", resp.StatusCode()),
			zap.String("detail", apiErr.message()),
		)
		return "", fmt.Errorf("shopware: authentication failed (%d): %s",
			resp.StatusCode(), apiErr.message())
	}

	c.token = token.AccessToken
	lifetime := time.Duration(token.ExpiresIn) * time.Second
	if lifetime > tokenMargin {
		lifetime -= tokenMargin
	}
	c.tokenExpiry = time.Now().Add(lifetime)

	c.logger.Debug("Shopware access token refreshed",
		zap.Time("expiry", c.tokenExpiry),
	)
	return c.token, nil
}

// do performs an authenticated request. A 401 response invalidates the
// cached token and is retried once with a fresh one.
func (c *Client) do(ctx context.Context, method, path string, body any, result any) error {
	for attempt := 0; attempt < 2; attempt++ {
		token, err := c.ensureToken(ctx)
		if err != nil {
			return err
		}

		var apiErr apiError
		req := c.http.R().
			SetContext(ctx).
			SetAuthToken(token).
			SetError(&apiErr)
		if body != nil {
			req.SetBody(body)
		}
		if result != nil {
			req.SetResult(result)
		}

		resp, err := req.Execute(method, path)
		if err != nil {
			return fmt.Errorf("shopware: %s %s failed: %w", method, path, err)
		}
		if resp.StatusCode() == http.StatusUnauthorized && attempt == 0 {
			c.invalidateToken()
			continue
		}
		if resp.IsError() {
			c.logger.Error("Shopware request failed",
				zap.String("method", method),
				zap.String("path", path),
				zap.Int("status_code", resp.StatusCode()),
				zap.String("detail", apiErr.message()),
			)
			return fmt.Errorf("shopware: %s %s failed (%d): %s",
				method, path, resp.StatusCode(), apiErr.message())
		}
		return nil
	}
	return fmt.Errorf("shopware: %s %s failed: unauthorized", method, path)
}

// Search runs one page of a criteria search against an entity.
func (c *Client) Search(ctx context.Context, entity string, criteria *Criteria) (*SearchResponse, error) {
	var result SearchResponse
	path := "/api/search/" + entity
	if err := c.do(ctx, resty.MethodPost, path, criteria, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SearchAll pages through a criteria search and returns all rows. The
// criteria's limit is used as page size, falling back to the configured one.
func (c *Client) SearchAll(ctx context.Context, entity string, criteria *Criteria) ([]map[string]any, error) {
	limit := criteria.Limit
	if limit <= 0 {
		limit = c.cfg.PageLimit
	}
	criteria.Limit = limit
	criteria.TotalCountMode = 1

	var rows []map[string]any
	page := 1
	total := 0
	for {
		criteria.Page = page
		resp, err := c.Search(ctx, entity, criteria)
		if err != nil {
			return nil, err
		}
		rows = append(rows, resp.Data...)
		if resp.Total > 0 {
			total = resp.Total
		}

		if len(resp.Data) == 0 {
			break
		}
		if total > 0 && len(rows) >= total {
			break
		}
		if len(resp.Data) < limit {
			break
		}
		page++
	}

	c.logger.Debug("Shopware search complete",
		zap.String("entity", entity),
		zap.Int("rows", len(rows)),
		zap.Int("pages", page),
	)
	return rows, nil
}

// searchOne runs a limit-1 search and returns the single row, or ErrNotFound.
func (c *Client) searchOne(ctx context.Context, entity string, criteria *Criteria) (map[string]any, error) {
	criteria.Limit = 1
	resp, err := c.Search(ctx, entity, criteria)
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, ErrNotFound
	}
	return resp.Data[0], nil
}

// Patch updates an entity via PATCH /api/{entity}/{id}.
func (c *Client) Patch(ctx context.Context, entity, id string, payload map[string]any) error {
	path := fmt.Sprintf("/api/%s/%s", entity, id)
	return c.do(ctx, resty.MethodPatch, path, payload, nil)
}
