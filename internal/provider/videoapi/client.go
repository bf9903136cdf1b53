// Package videoapi talks to an OpenAI style /videos generation API.
package videoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/SscSPs/credit_ledger/internal/apperrors"
	"github.com/SscSPs/credit_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/credit_ledger/internal/core/ports/services"
	"golang.org/x/oauth2"
)

// maxErrorBody caps how much of a failed response is quoted in errors.
const maxErrorBody = 2048

type Client struct {
	baseURL    string
	httpClient *http.Client
}

var _ portssvc.JobProvider = (*Client)(nil)

// NewClient builds a client that authenticates every call with apiKey as a bearer token.
// Callers bound each call through its context; there is no client-wide timeout
// because content downloads stream.
func NewClient(baseURL, apiKey string) *Client {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: apiKey, TokenType: "Bearer"})
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: oauth2.NewClient(context.Background(), ts),
	}
}

type videoError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// videoResponse is the provider's video object.
type videoResponse struct {
	ID        string      `json:"id"`
	Object    string      `json:"object"`
	CreatedAt int64       `json:"created_at"`
	Status    string      `json:"status"`
	Model     string      `json:"model"`
	Progress  *int        `json:"progress"`
	Seconds   string      `json:"seconds"`
	Size      string      `json:"size"`
	Error     *videoError `json:"error"`
}

func (v videoResponse) toDomain() *domain.ProviderJob {
	job := &domain.ProviderJob{ID: v.ID, Status: mapStatus(v.Status)}
	if v.Progress != nil {
		job.Progress = *v.Progress
	}
	if v.Error != nil {
		job.ErrorMessage = v.Error.Message
	}
	return job
}

func mapStatus(raw string) domain.JobStatus {
	switch s := domain.JobStatus(raw); s {
	case domain.JobStatusQueued, domain.JobStatusInProgress, domain.JobStatusCompleted, domain.JobStatusFailed:
		return s
	case "cancelled", "expired":
		return domain.JobStatusFailed
	default:
		return domain.JobStatusInProgress
	}
}

// Submit creates a video job with a multipart form.
func (c *Client) Submit(ctx context.Context, spec domain.JobSpec) (*domain.ProviderJob, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	fields := [][2]string{
		{"model", spec.Model},
		{"prompt", spec.Prompt},
		{"size", spec.Size},
		{"seconds", strconv.Itoa(spec.Seconds)},
	}
	for _, f := range fields {
		if err := form.WriteField(f[0], f[1]); err != nil {
			return nil, fmt.Errorf("%w: build request: %v", apperrors.ErrProviderFailure, err)
		}
	}
	if err := form.Close(); err != nil {
		return nil, fmt.Errorf("%w: build request: %v", apperrors.ErrProviderFailure, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/videos", &body)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", apperrors.ErrProviderFailure, err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	var v videoResponse
	if err := c.doJSON(req, &v); err != nil {
		return nil, err
	}
	if v.ID == "" {
		return nil, fmt.Errorf("%w: provider response has no video id", apperrors.ErrProviderFailure)
	}
	return v.toDomain(), nil
}

func (c *Client) GetStatus(ctx context.Context, providerJobID string) (*domain.ProviderJob, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/videos/"+url.PathEscape(providerJobID), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", apperrors.ErrProviderFailure, err)
	}
	var v videoResponse
	if err := c.doJSON(req, &v); err != nil {
		return nil, err
	}
	return v.toDomain(), nil
}

// FetchContent streams one asset of a finished job. The caller closes the body.
func (c *Client) FetchContent(ctx context.Context, providerJobID string, variant domain.ContentVariant) (*domain.Content, error) {
	u := c.baseURL + "/videos/" + url.PathEscape(providerJobID) + "/content?variant=" + url.QueryEscape(string(variant))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", apperrors.ErrProviderFailure, err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrProviderFailure, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, statusError(resp)
	}
	return &domain.Content{
		Body:          resp.Body,
		ContentType:   resp.Header.Get("Content-Type"),
		ContentLength: resp.ContentLength,
	}, nil
}

func (c *Client) doJSON(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrProviderFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: failed to parse provider response: %v", apperrors.ErrProviderFailure, err)
	}
	return nil
}

func statusError(resp *http.Response) error {
	text, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return fmt.Errorf("%w: provider API error (%d): %s", apperrors.ErrProviderFailure, resp.StatusCode, strings.TrimSpace(string(text)))
}
