// Package client talks to the rvsim HTTP API.
package client

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
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ssuji15/rvsim/model"
)

var ErrNotReady = errors.New("result not ready")

// APIError is a non-success response from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Status)
	}
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New returns a client for the server at baseURL. token is the session
// token sent as the jwt cookie; it may be empty for unauthenticated calls.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 90 * time.Second},
	}
}

func (c *Client) Submit(ctx context.Context, ticks uint32, code []byte) (uuid.UUID, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("ticks", strconv.FormatUint(uint64(ticks), 10)); err != nil {
		return uuid.Nil, err
	}
	fw, err := mw.CreateFormFile("file", "program.s")
	if err != nil {
		return uuid.Nil, err
	}
	if _, err := fw.Write(code); err != nil {
		return uuid.Nil, err
	}
	if err := mw.Close(); err != nil {
		return uuid.Nil, err
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/submit", &body)
	if err != nil {
		return uuid.Nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return uuid.Nil, fmt.Errorf("submit: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		return uuid.Nil, readAPIError(resp)
	}
	var out model.SubmitResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return uuid.Nil, fmt.Errorf("decode submit response: %w", err)
	}
	return out.ID, nil
}

// Result fetches the result document once. It returns ErrNotReady while the
// server answers 404.
func (c *Client) Result(ctx context.Context, id uuid.UUID) ([]byte, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/submission?id="+url.QueryEscape(id.String()), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch result: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return io.ReadAll(resp.Body)
	case http.StatusNotFound:
		return nil, ErrNotReady
	default:
		return nil, readAPIError(resp)
	}
}

// Wait polls Result every interval until the document is ready or ctx ends.
func (c *Client) Wait(ctx context.Context, id uuid.UUID, interval time.Duration) ([]byte, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		data, err := c.Result(ctx, id)
		if !errors.Is(err, ErrNotReady) {
			return data, err
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for %s: %w", id, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (c *Client) List(ctx context.Context, limit int) ([]*model.Submission, error) {
	path := "/api/submissions"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, readAPIError(resp)
	}
	var subs []*model.Submission
	if err := json.NewDecoder(resp.Body).Decode(&subs); err != nil {
		return nil, fmt.Errorf("decode submissions: %w", err)
	}
	return subs, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.AddCookie(&http.Cookie{Name: "jwt", Value: c.token})
	}
	return req, nil
}

func readAPIError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	apiErr := &APIError{Status: resp.StatusCode}

	var body model.ErrorResponse
	if json.Unmarshal(raw, &body) == nil && body.Error != "" {
		apiErr.Message = body.Error
	} else if s := strings.TrimSpace(string(raw)); s != "null" {
		apiErr.Message = s
	}
	return apiErr
}
