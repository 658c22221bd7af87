package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultHTTPTimeout = 10 * time.Second
	httpTimeoutEnvKey  = "STREAMIFY_HTTP_TIMEOUT"
	apiTokenEnvKey     = "STREAMIFY_API_TOKEN"
)

// Client is a simple HTTP client for the streamify API.
type Client struct {
	baseURL   string
	http      *http.Client
	stream    *http.Client
	authToken string
	owner     string
}

// NewClient creates a new API client. Uploads and fetches use a client
// without an overall timeout since media bodies can be large.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      &http.Client{Timeout: httpTimeoutFromEnv()},
		stream:    &http.Client{},
		authToken: strings.TrimSpace(os.Getenv(apiTokenEnvKey)),
	}
}

// WithOwner sets the X-Owner header used when the server has no tokens.
func (c *Client) WithOwner(owner string) *Client {
	c.owner = strings.TrimSpace(owner)
	return c
}

// Ping checks whether the API server is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil, nil)
}

func (c *Client) GetInfo(ctx context.Context) (InfoResponse, error) {
	var resp InfoResponse
	err := c.do(ctx, http.MethodGet, "/v1/info", nil, nil, &resp)
	return resp, err
}

// UploadMedia streams content as a multipart upload.
func (c *Client) UploadMedia(ctx context.Context, req MediaUploadRequest, content io.Reader) (MediaResponse, error) {
	var resp MediaResponse
	if content == nil {
		return resp, fmt.Errorf("content is required")
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeUploadForm(mw, req, content))
	}()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/media", pr)
	if err != nil {
		pr.Close()
		return resp, err
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())
	c.setAuthHeader(httpReq)

	httpResp, err := c.stream.Do(httpReq)
	if err != nil {
		pr.Close()
		return resp, err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode >= 400 {
		return resp, decodeError(httpResp)
	}
	err = json.NewDecoder(httpResp.Body).Decode(&resp)
	return resp, err
}

func writeUploadForm(mw *multipart.Writer, req MediaUploadRequest, content io.Reader) error {
	if err := mw.WriteField("title", req.Title); err != nil {
		return err
	}
	if req.Description != "" {
		if err := mw.WriteField("description", req.Description); err != nil {
			return err
		}
	}

	filename := req.Filename
	if filename == "" {
		filename = "upload"
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	contentType := req.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)

	part, err := mw.CreatePart(header)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, content); err != nil {
		return err
	}
	return mw.Close()
}

func (c *Client) GetMedia(ctx context.Context, id string) (MediaResponse, error) {
	var resp MediaResponse
	err := c.do(ctx, http.MethodGet, "/v1/media/"+url.PathEscape(id), nil, nil, &resp)
	return resp, err
}

func (c *Client) ListMedia(ctx context.Context, query url.Values) (MediaListResponse, error) {
	var resp MediaListResponse
	err := c.do(ctx, http.MethodGet, "/v1/media", query, nil, &resp)
	return resp, err
}

func (c *Client) Related(ctx context.Context, id string) ([]MediaResponse, error) {
	var resp []MediaResponse
	err := c.do(ctx, http.MethodGet, "/v1/media/"+url.PathEscape(id)+"/related", nil, nil, &resp)
	return resp, err
}

func (c *Client) UpdateMedia(ctx context.Context, id string, req MediaUpdateRequest) (MediaResponse, error) {
	var resp MediaResponse
	err := c.do(ctx, http.MethodPatch, "/v1/media/"+url.PathEscape(id), nil, req, &resp)
	return resp, err
}

func (c *Client) DeleteMedia(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/v1/media/"+url.PathEscape(id), nil, nil, nil)
}

// Orphans lists blobs that no media record references. Requires an admin
// token when authentication is enabled.
func (c *Client) Orphans(ctx context.Context) ([]OrphanBlob, error) {
	var resp []OrphanBlob
	err := c.do(ctx, http.MethodGet, "/v1/admin/orphans", nil, nil, &resp)
	return resp, err
}

// FetchResult describes a completed stream download.
type FetchResult struct {
	StatusCode   int
	ContentType  string
	ContentRange string
	Written      int64
}

// Fetch streams media bytes into w. rangeHeader is sent verbatim when set.
func (c *Client) Fetch(ctx context.Context, id, rangeHeader string, w io.Writer) (FetchResult, error) {
	var result FetchResult
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/media/"+url.PathEscape(id)+"/stream", nil)
	if err != nil {
		return result, err
	}
	if rangeHeader != "" {
		req.Header.Set("Range", rangeHeader)
	}
	c.setAuthHeader(req)

	resp, err := c.stream.Do(req)
	if err != nil {
		return result, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return result, decodeError(resp)
	}

	result.StatusCode = resp.StatusCode
	result.ContentType = resp.Header.Get("Content-Type")
	result.ContentRange = resp.Header.Get("Content-Range")
	result.Written, err = io.Copy(w, resp.Body)
	return result, err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.setAuthHeader(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}

	if out == nil {
		return nil
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	var errResp ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Error != "" {
		apiErr.Code = errResp.Code
		apiErr.ErrorCode = errResp.ErrorCode
		apiErr.Message = errResp.Error
		return apiErr
	}
	apiErr.Message = "api error: " + resp.Status
	return apiErr
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

func (c *Client) setAuthHeader(req *http.Request) {
	if req == nil {
		return
	}
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}
	if c.owner != "" {
		req.Header.Set("X-Owner", c.owner)
	}
}

func httpTimeoutFromEnv() time.Duration {
	value := strings.TrimSpace(os.Getenv(httpTimeoutEnvKey))
	if value == "" {
		return defaultHTTPTimeout
	}

	if duration, err := time.ParseDuration(value); err == nil && duration > 0 {
		return duration
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}

	return defaultHTTPTimeout
}
