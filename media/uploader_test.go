package media

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/berizaryad/maintenance-backend/internal/blobstore"
)

func TestUploadNamespacesPathByStationAndTime(t *testing.T) {
	blobs := blobstore.NewFakeClient()
	u := NewUploader(blobs)
	u.now = func() time.Time { return time.UnixMilli(1700000000000) }

	url, err := u.Upload(context.Background(), 42, []byte("jpeg"))
	require.NoError(t, err)

	assert.Equal(t, "https://blobs.test/stations/42_1700000000000.jpg", url)
	assert.Contains(t, blobs.Blobs, "stations/42_1700000000000.jpg")
}

func TestConcurrentUploadsGetDistinctPaths(t *testing.T) {
	blobs := blobstore.NewFakeClient()
	u := NewUploader(blobs)

	ts := int64(1700000000000)
	u.now = func() time.Time {
		ts++
		return time.UnixMilli(ts)
	}

	first, err := u.Upload(context.Background(), 7, []byte("a"))
	require.NoError(t, err)
	second, err := u.Upload(context.Background(), 7, []byte("b"))
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Len(t, blobs.Blobs, 2)
}

func TestUploadPassesThroughFailure(t *testing.T) {
	blobs := blobstore.NewFakeClient()
	blobs.Fail = true
	u := NewUploader(blobs)

	_, err := u.Upload(context.Background(), 1, []byte("x"))
	assert.ErrorIs(t, err, blobstore.ErrUploadFailed)
}
