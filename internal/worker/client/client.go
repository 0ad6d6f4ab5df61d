// Package client is the worker agent's HTTP client for the coordinator's
// control surface: register, ping, pull, push, failure, info.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(opts Options) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("baseURL required")
	}

	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}

	return &Client{baseURL: baseURL, httpClient: hc}, nil
}

// Info is the parsed /info response (spec.md section 6).
type Info struct {
	FFmpegCommand string
	FileExtension string
	CompletedPath string
	RsyncUser     string
}

// CommandError and FailureReport mirror the coordinator's wire types. The
// ffmepg_conversion field name preserves a misspelling present in the wire
// format that must round-trip unchanged.
type CommandError struct {
	ExitCode int    `json:"exit_code"`
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
}

type FailureReport struct {
	UUID             string       `json:"uuid"`
	TimestampUTC     string       `json:"timestamp_utc"`
	FfmepgConversion CommandError `json:"ffmepg_conversion"`
	RsyncFrom        CommandError `json:"rsync_from"`
	RsyncTo          CommandError `json:"rsync_to"`
}

// Register calls GET /register and parses the returned URN as a worker id.
func (c *Client) Register(ctx context.Context) (uuid.UUID, error) {
	body, _, err := c.get(ctx, "/register", uuid.Nil)
	if err != nil {
		return uuid.Nil, err
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return uuid.Nil, errors.New("register: empty response body")
	}
	id, err := uuid.Parse(body)
	if err != nil {
		return uuid.Nil, fmt.Errorf("register: parse worker id %q: %w", body, err)
	}
	return id, nil
}

// Ping calls GET /ping with the worker id header.
func (c *Client) Ping(ctx context.Context, id uuid.UUID) error {
	_, _, err := c.get(ctx, "/ping", id)
	return err
}

// Pull calls GET /pull and returns the assigned path, or "" if there is
// none. An empty body means either "no work" or "unknown worker" — the
// coordinator deliberately conflates the two (spec.md section 4.4).
func (c *Client) Pull(ctx context.Context, id uuid.UUID) (string, error) {
	body, _, err := c.get(ctx, "/pull", id)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(body), nil
}

// Push calls GET /push and returns the raw response body.
func (c *Client) Push(ctx context.Context, id uuid.UUID) (string, error) {
	body, _, err := c.get(ctx, "/push", id)
	return strings.TrimSpace(body), err
}

// Failure posts a structured failure report.
func (c *Client) Failure(ctx context.Context, report FailureReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode failure report: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/failure", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("failure report rejected: status=%d body=%s", resp.StatusCode, string(b))
	}
	return nil
}

// Info calls GET /info and parses the four configuration lines.
func (c *Client) Info(ctx context.Context) (Info, error) {
	body, status, err := c.get(ctx, "/info", uuid.Nil)
	if err != nil {
		return Info{}, err
	}
	if status >= 400 {
		return Info{}, fmt.Errorf("info: coordinator returned status %d", status)
	}

	var info Info
	for _, line := range strings.Split(body, "\n") {
		k, v, ok := strings.Cut(line, ": ")
		if !ok {
			continue
		}
		switch strings.TrimSpace(k) {
		case "ffmpeg":
			info.FFmpegCommand = v
		case "file_extension":
			info.FileExtension = v
		case "completed":
			info.CompletedPath = v
		case "rsync_user":
			info.RsyncUser = v
		}
	}
	return info, nil
}

func (c *Client) get(ctx context.Context, path string, id uuid.UUID) (string, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return "", 0, err
	}
	if id != uuid.Nil {
		req.Header.Set("uuid", id.String())
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", resp.StatusCode, err
	}
	if resp.StatusCode >= 400 {
		return string(b), resp.StatusCode, fmt.Errorf("%s: coordinator returned status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(b)))
	}
	return string(b), resp.StatusCode, nil
}
