package authority

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/diploma-portal/internal/models"
	"github.com/noah-isme/diploma-portal/pkg/config"
	"github.com/noah-isme/diploma-portal/pkg/middleware/requestid"
)

const (
	defaultTimeout = 5 * time.Second
	maxBodyBytes   = 32 << 20

	mediaJSON = "application/json"
	mediaPDF  = "application/pdf"
)

// Observer receives the timing of every authority call.
type Observer interface {
	ObserveAuthorityCall(operation, outcome string, duration time.Duration)
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithObserver attaches a metrics observer.
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// WithLogger attaches a logger for call diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// Client talks to the external issuing and verification authority. It never
// retries and never caches.
type Client struct {
	baseURL  string
	scheme   string
	paths    config.AuthorityPaths
	http     *http.Client
	observer Observer
	logger   *zap.Logger
}

// NewClient constructs a Client from configuration.
func NewClient(cfg config.AuthorityConfig, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		scheme:  cfg.AuthScheme,
		paths:   cfg.Paths,
		http:    &http.Client{Timeout: timeout},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Login exchanges credentials for an authority token and profile.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return nil, err
	}
	var out LoginResult
	if _, err := c.call(ctx, "login", mediaJSON, http.MethodPost, c.paths.Login, "", bytes.NewReader(body), mediaJSON, &out); err != nil {
		return nil, err
	}
	if out.Token == "" {
		return nil, &Error{Op: "login", Kind: ErrUnavailable, Err: errors.New("response carries no token")}
	}
	return &out, nil
}

// List returns every record visible to token.
func (c *Client) List(ctx context.Context, token string) ([]models.Diploma, error) {
	var out models.DiplomaList
	if _, err := c.call(ctx, "list", mediaJSON, http.MethodGet, c.paths.List, token, nil, "", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Diploma fetches the authoritative copy of a record.
func (c *Client) Diploma(ctx context.Context, id string) (*models.Diploma, error) {
	var out models.Diploma
	if _, err := c.call(ctx, "diploma", mediaJSON, http.MethodGet, joinID(c.paths.Diploma, id), "", nil, "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Issue creates a diploma and returns its id.
func (c *Client) Issue(ctx context.Context, token string, payload IssuePayload) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	var out issueResponse
	if _, err := c.call(ctx, "issue", mediaJSON, http.MethodPost, c.paths.Issue, token, bytes.NewReader(body), mediaJSON, &out); err != nil {
		return "", err
	}
	id := out.DiplomaID
	if id == "" {
		id = out.ID
	}
	if id == "" {
		return "", &Error{Op: "issue", Kind: ErrUnavailable, Err: errors.New("response carries no diploma id")}
	}
	return id, nil
}

// IssueBulk uploads a CSV file as multipart field "file".
func (c *Client) IssueBulk(ctx context.Context, token, filename string, content []byte) (*BulkResult, error) {
	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(content); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	var out BulkResult
	if _, err := c.call(ctx, "issue_bulk", mediaJSON, http.MethodPost, c.paths.IssueBulk, token, buf, writer.FormDataContentType(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Verify forwards the candidate bytes unchanged and returns the verdict.
func (c *Client) Verify(ctx context.Context, candidate []byte) (*VerifyResult, error) {
	var out VerifyResult
	if _, err := c.call(ctx, "verify", mediaJSON, http.MethodPost, c.paths.Verify, "", bytes.NewReader(candidate), mediaJSON, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Revoke marks a diploma revoked. A conflict answer means it already was.
func (c *Client) Revoke(ctx context.Context, token, id string) (*RevokeResult, error) {
	body, err := json.Marshal(map[string]string{"id": id})
	if err != nil {
		return nil, err
	}
	raw, err := c.call(ctx, "revoke", mediaJSON, http.MethodPost, c.paths.Revoke, token, bytes.NewReader(body), mediaJSON, nil)
	if err != nil {
		if StatusOf(err) == http.StatusConflict {
			return &RevokeResult{AlreadyRevoked: true, Message: MessageOf(err)}, nil
		}
		return nil, err
	}
	var msg messageBody
	_ = json.Unmarshal(raw, &msg)
	text := msg.text()
	return &RevokeResult{
		AlreadyRevoked: strings.Contains(strings.ToLower(text), "already"),
		Message:        text,
	}, nil
}

// DownloadPDF returns the rendered PDF of a diploma.
func (c *Client) DownloadPDF(ctx context.Context, token, id string) ([]byte, error) {
	return c.call(ctx, "download_pdf", mediaPDF, http.MethodGet, joinID(c.paths.PDF, id), token, nil, "", nil)
}

// Ping checks that the authority answers at all. Any HTTP response counts.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return &Error{Op: "ping", Kind: ErrUnavailable, Err: err}
	}
	_ = resp.Body.Close()
	return nil
}

func (c *Client) call(ctx context.Context, op, accept, method, path, token string, body io.Reader, contentType string, out interface{}) (raw []byte, err error) {
	start := time.Now()
	defer func() {
		if c.observer != nil {
			c.observer.ObserveAuthorityCall(op, outcomeLabel(err), time.Since(start))
		}
	}()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", op, err)
	}
	req.Header.Set("Accept", accept)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", c.authorization(token))
	}
	if id := requestid.FromContext(ctx); id != "" {
		req.Header.Set(requestid.Header, id)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("authority call failed", zap.String("operation", op), zap.Error(err))
		return nil, &Error{Op: op, Kind: ErrUnavailable, Err: err}
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, err = io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &Error{Op: op, Status: resp.StatusCode, Kind: ErrUnavailable, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var msg messageBody
		_ = json.Unmarshal(raw, &msg)
		c.logger.Debug("authority answered with error",
			zap.String("operation", op), zap.Int("status", resp.StatusCode))
		return nil, &Error{Op: op, Status: resp.StatusCode, Message: msg.text(), Kind: kindForStatus(resp.StatusCode)}
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return nil, &Error{Op: op, Status: resp.StatusCode, Kind: ErrUnavailable, Err: fmt.Errorf("decode response: %w", err)}
		}
	}
	return raw, nil
}

func (c *Client) authorization(token string) string {
	if c.scheme == "" {
		return token
	}
	return c.scheme + " " + token
}

func joinID(base, id string) string {
	return strings.TrimRight(base, "/") + "/" + url.PathEscape(id)
}

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrRejected):
		return "rejected"
	default:
		return "unavailable"
	}
}
