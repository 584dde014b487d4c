package export

import (
	"context"
	"fmt"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/s3blob"
)

// OpenBucket opens a bucket URL: file:///path for the local filesystem,
// gs://name for Google Cloud Storage or s3://name for AWS S3. Cloud
// buckets use the ambient credentials of the environment.
func OpenBucket(ctx context.Context, url string) (*blob.Bucket, error) {
	b, err := blob.OpenBucket(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("export: open bucket %s: %w", url, err)
	}
	return b, nil
}
