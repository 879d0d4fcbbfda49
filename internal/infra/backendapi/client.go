package backendapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/urbansims/microgreens/internal/domain/cultivation"
	"github.com/urbansims/microgreens/internal/domain/dashboard"
	apperrors "github.com/urbansims/microgreens/pkg/errors"
)

type bearerKey struct{}

// WithBearer stores the caller's access token so backend calls act on their behalf.
func WithBearer(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, bearerKey{}, token)
}

// BearerFrom returns the token attached by WithBearer, or "".
func BearerFrom(ctx context.Context) string {
	token, _ := ctx.Value(bearerKey{}).(string)
	return token
}

type clientIPKey struct{}

// WithClientIP records the end user's address. It is sent as
// X-Forwarded-For so the backend rate limits the user rather than the
// dashboard host.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey{}, ip)
}

// ClientIPFrom returns the address attached by WithClientIP, or "".
func ClientIPFrom(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey{}).(string)
	return ip
}

// StatusError carries a non-2xx backend response.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend %s %s: status=%d body=%s", e.Method, e.Path, e.StatusCode, e.Body)
}

// Client talks to the tracker REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
}

// NewClient builds a backend client. timeout bounds every single request.
func NewClient(baseURL string, timeout time.Duration, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: httpClient,
		timeout:    timeout,
	}
}

func (c *Client) GetCrop(ctx context.Context, cropID int64) (cultivation.Crop, error) {
	var out wireCrop
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/crops/%d", cropID), nil, &out); err != nil {
		return cultivation.Crop{}, err
	}
	return out.toDomain(), nil
}

func (c *Client) ListCrops(ctx context.Context, query dashboard.CropQuery) ([]cultivation.Crop, error) {
	params := url.Values{}
	if query.Status != "" {
		params.Set("status", query.Status)
	}
	if query.SeedID != 0 {
		params.Set("seed_id", strconv.FormatInt(query.SeedID, 10))
	}
	path := "/api/crops"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}
	var out []wireCrop
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	crops := make([]cultivation.Crop, 0, len(out))
	for _, crop := range out {
		crops = append(crops, crop.toDomain())
	}
	return crops, nil
}

func (c *Client) DeleteCrop(ctx context.Context, cropID int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/crops/%d", cropID), nil, nil)
}

func (c *Client) ListLogs(ctx context.Context, cropID int64) ([]cultivation.DailyLog, error) {
	var out []cultivation.DailyLog
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/crops/%d/logs", cropID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateLog(ctx context.Context, cropID int64, input dashboard.LogInput) (cultivation.DailyLog, error) {
	var out cultivation.DailyLog
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/crops/%d/logs", cropID), input, &out)
	return out, err
}

func (c *Client) Prediction(ctx context.Context, cropID int64) (cultivation.Prediction, error) {
	var out cultivation.Prediction
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/crops/%d/prediction", cropID), nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode backend request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build backend request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := BearerFrom(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if ip := ClientIPFrom(ctx); ip != "" {
		req.Header.Set("X-Forwarded-For", ip)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeUpstream, "backend unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		statusErr := &StatusError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: string(payload)}
		return apperrors.Wrap(codeForStatus(resp.StatusCode), messageFrom(payload, resp.StatusCode), statusErr)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.Wrap(apperrors.CodeUpstream, "decode backend response", err)
	}
	return nil
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusNotFound:
		return apperrors.CodeNotFound
	case http.StatusForbidden:
		return apperrors.CodeForbidden
	case http.StatusUnauthorized:
		return apperrors.CodeUnauthenticated
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return apperrors.CodeInvalidInput
	case http.StatusConflict:
		return apperrors.CodeConflict
	default:
		return apperrors.CodeUpstream
	}
}

func messageFrom(payload []byte, status int) string {
	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(payload, &envelope); err == nil {
		if msg := strings.TrimSpace(envelope.Error.Message); msg != "" {
			return msg
		}
		if msg := strings.TrimSpace(envelope.Detail); msg != "" {
			return msg
		}
	}
	return fmt.Sprintf("backend responded %d", status)
}

var _ dashboard.Backend = (*Client)(nil)
