package blobstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

var ErrUploadFailed = errors.New("blob upload failed")

// Client is the interface to the blob store.
type Client interface {
	// Put stores data under path and returns the public URL.
	Put(ctx context.Context, path string, data []byte) (string, error)
}

// HTTPClient implements Client with plain HTTP PUTs into a bucket.
type HTTPClient struct {
	baseURL    string
	bucket     string
	httpClient *http.Client
}

func NewHTTPClient(baseURL, bucket string) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		bucket:  bucket,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *HTTPClient) Put(ctx context.Context, path string, data []byte) (string, error) {
	url := fmt.Sprintf("%s/%s/%s", c.baseURL, c.bucket, path)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("%w: status %d", ErrUploadFailed, resp.StatusCode)
	}

	return url, nil
}
