// Package ticketapi is the REST client for the remote ticketing API.
//
// The API owns authentication, roles, workflows and persistence; this client
// only maps its endpoints onto the ports the services depend on. The bearer
// token travels in the request context (see WithAccessToken).
package ticketapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	jmespath "github.com/jmespath-community/go-jmespath"
	"golang.org/x/net/publicsuffix"

	apperrors "github.com/ticketdesk/admin-console/internal/errors"
)

// DefaultItemsPath selects the array of items from a list response envelope.
const DefaultItemsPath = "data"

const maxResponseBytes = 4 << 20

// Config configures a Client.
type Config struct {
	BaseURL string
	Timeout time.Duration
	// ItemsPath is a JMESPath expression selecting the pending-approval array.
	ItemsPath string
	// SessionTTL is used when an access token carries no exp claim.
	SessionTTL time.Duration
	UserAgent  string
	HTTPClient *http.Client
	Logger     *slog.Logger
	Now        func() time.Time
}

// Client talks to the ticketing API. It is safe for concurrent use.
type Client struct {
	base       *url.URL
	itemsPath  string
	sessionTTL time.Duration
	userAgent  string
	hc         *http.Client
	logger     *slog.Logger
	now        func() time.Time
}

// NewClient validates cfg and builds a client with its own cookie jar.
func NewClient(cfg Config) (*Client, error) {
	raw := strings.TrimSpace(cfg.BaseURL)
	if raw == "" {
		return nil, errors.New("ticketapi: base url is required")
	}
	base, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("ticketapi: invalid base url %q", raw)
	}

	itemsPath := strings.TrimSpace(cfg.ItemsPath)
	if itemsPath == "" {
		itemsPath = DefaultItemsPath
	}
	if _, err := jmespath.Compile(itemsPath); err != nil {
		return nil, fmt.Errorf("ticketapi: invalid items path %q: %w", itemsPath, err)
	}

	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, fmt.Errorf("ticketapi: cookie jar: %w", err)
		}
		hc = &http.Client{Timeout: timeout, Jar: jar}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = 8 * time.Hour
	}

	return &Client{
		base:       base,
		itemsPath:  itemsPath,
		sessionTTL: ttl,
		userAgent:  fallback(cfg.UserAgent, "ticketdesk-console"),
		hc:         hc,
		logger:     logger.With("component", "ticketapi"),
		now:        now,
	}, nil
}

type tokenKey struct{}

// WithAccessToken returns a context whose requests carry token as a bearer credential.
func WithAccessToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// AccessTokenFrom returns the token stored by WithAccessToken.
func AccessTokenFrom(ctx context.Context) string {
	tok, _ := ctx.Value(tokenKey{}).(string)
	return tok
}

type request struct {
	method string
	path   string
	query  url.Values
	body   any
}

// do performs req and returns the raw 2xx body. Non-2xx statuses become AppErrors.
func (c *Client) do(ctx context.Context, req request) ([]byte, error) {
	u := *c.base
	u.Path = strings.TrimRight(c.base.Path, "/") + req.path
	if len(req.query) > 0 {
		u.RawQuery = req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		buf, err := json.Marshal(req.body)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s: %w", req.method, req.path, err)
		}
		body = bytes.NewReader(buf)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("create request %s %s: %w", req.method, req.path, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)
	httpReq.Header.Set("X-Request-Id", uuid.NewString())
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if tok := AccessTokenFrom(ctx); tok != "" {
		httpReq.Header.Set("Authorization", "Bearer "+tok)
	}

	start := c.now()
	resp, err := c.hc.Do(httpReq)
	if err != nil {
		return nil, apperrors.MapTransportError(fmt.Errorf("%s %s: %w", req.method, req.path, err))
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, apperrors.MapTransportError(fmt.Errorf("read %s %s: %w", req.method, req.path, err))
	}
	c.logger.DebugContext(ctx, "ticketapi request",
		"method", req.method,
		"path", req.path,
		"status", resp.StatusCode,
		"duration", c.now().Sub(start),
		"request_id", httpReq.Header.Get("X-Request-Id"),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apperrors.FromStatus(resp.StatusCode, errorMessage(payload))
	}
	return payload, nil
}

// errorMessage extracts {"message"} or {"error"} from an error body.
func errorMessage(body []byte) string {
	var e struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &e) != nil {
		return ""
	}
	return fallback(e.Message, e.Error)
}

// decodeData unmarshals the "data" member of a response envelope into out.
func decodeData(body []byte, out any) error {
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "malformed response from ticketing service")
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return apperrors.Internal("ticketing service response has no data")
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "malformed response from ticketing service")
	}
	return nil
}

func fallback(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
