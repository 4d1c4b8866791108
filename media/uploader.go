package media

import (
	"context"
	"fmt"
	"time"

	"github.com/berizaryad/maintenance-backend/internal/blobstore"
)

// Uploader pushes captured photos to the blob store. It is a pass-through:
// no retry, no rollback of blobs whose attach step later fails.
type Uploader struct {
	blobs blobstore.Client
	now   func() time.Time
}

func NewUploader(blobs blobstore.Client) *Uploader {
	return &Uploader{blobs: blobs, now: time.Now}
}

// Upload stores the image and returns its URL. The path carries the station
// id and an upload timestamp so concurrent uploads for one station land under
// distinct keys.
func (u *Uploader) Upload(ctx context.Context, stationID int64, data []byte) (string, error) {
	path := fmt.Sprintf("stations/%d_%d.jpg", stationID, u.now().UnixMilli())
	return u.blobs.Put(ctx, path, data)
}
