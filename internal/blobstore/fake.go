package blobstore

import (
	"context"
	"sync"
)

// FakeClient is a test implementation of Client that keeps blobs in memory.
type FakeClient struct {
	mu    sync.Mutex
	Blobs map[string][]byte

	// Fail, when set, makes every Put return ErrUploadFailed.
	Fail bool
}

func NewFakeClient() *FakeClient {
	return &FakeClient{Blobs: make(map[string][]byte)}
}

func (c *FakeClient) Put(ctx context.Context, path string, data []byte) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Fail {
		return "", ErrUploadFailed
	}
	c.Blobs[path] = data
	return "https://blobs.test/" + path, nil
}
