// Package upload publishes generated calendars to a pastebin service so
// they can be subscribed to by URL.
package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
)

// Options selects the paste to create or update.
type Options struct {
	// BaseURL is the service root. Used to create a new paste.
	BaseURL string
	// ManageURL, when set, updates an existing paste instead.
	ManageURL string
	// Expiration is passed through as the "e" field when non-empty.
	Expiration string
	// Filename of the multipart "c" part. Defaults to "calendar.ics".
	Filename string
}

// Result is the service's JSON reply.
type Result struct {
	URL       string
	ManageURL string
	Raw       map[string]any
}

// StatusError is a non-2xx reply.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("pastebin: HTTP %d", e.Code)
	}
	return fmt.Sprintf("pastebin: HTTP %d: %s", e.Code, e.Body)
}

type Client struct {
	http       *http.Client
	maxRetries uint64
	baseDelay  time.Duration
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithRetry sets how often to retry network errors and 5xx replies.
func WithRetry(maxRetries uint64, baseDelay time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = maxRetries
		c.baseDelay = baseDelay
	}
}

func New(opts ...Option) *Client {
	c := &Client{
		http:       &http.Client{Timeout: 15 * time.Second},
		maxRetries: 3,
		baseDelay:  500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Publish creates a private paste holding body (POST to BaseURL/), or
// replaces the content of an existing one (PUT to ManageURL).
func (c *Client) Publish(ctx context.Context, body []byte, opts Options) (Result, error) {
	method, target := http.MethodPost, strings.TrimRight(opts.BaseURL, "/")+"/"
	if opts.ManageURL != "" {
		method, target = http.MethodPut, opts.ManageURL
	} else if opts.BaseURL == "" {
		return Result{}, errors.New("pastebin: base_url is empty")
	}

	payload, contentType, err := buildForm(body, opts, method == http.MethodPost)
	if err != nil {
		return Result{}, err
	}

	var res Result
	backoff := retry.WithMaxRetries(c.maxRetries, retry.NewExponential(c.baseDelay))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, method, target, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return retry.RetryableError(err)
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			serr := &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(data))}
			if resp.StatusCode >= 500 {
				return retry.RetryableError(serr)
			}
			return serr
		}

		res, err = decodeResult(data)
		return err
	})
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

func buildForm(body []byte, opts Options, private bool) ([]byte, string, error) {
	filename := opts.Filename
	if filename == "" {
		filename = "calendar.ics"
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("c", filename)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(body); err != nil {
		return nil, "", err
	}
	if private {
		if err := w.WriteField("p", "true"); err != nil {
			return nil, "", err
		}
	}
	if opts.Expiration != "" && opts.Expiration != "0" {
		if err := w.WriteField("e", opts.Expiration); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

func decodeResult(data []byte) (Result, error) {
	raw := map[string]any{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Result{}, fmt.Errorf("pastebin: decode reply: %w", err)
	}
	res := Result{Raw: raw}
	res.URL, _ = raw["url"].(string)
	for _, key := range []string{"manage_url", "manageUrl", "manage"} {
		if s, ok := raw[key].(string); ok && s != "" {
			res.ManageURL = s
			break
		}
	}
	return res, nil
}

// RedactURL keeps only scheme and host, for logging management URLs that
// embed secrets.
//
//	https://example.com/abcd/secret -> https://example.com/...(redacted)
func RedactURL(u string) string {
	const redactedSuffix = "/...(redacted)"

	_, rest, ok := strings.Cut(u, "://")
	if !ok {
		return "...(redacted)"
	}
	host, _, _ := strings.Cut(rest, "/")
	return u[:len(u)-len(rest)] + host + redactedSuffix
}
