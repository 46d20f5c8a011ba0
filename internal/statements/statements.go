// Package statements syncs raw platform export files from a GCS bucket
// into the local data directory, so the pipeline can run against exports
// uploaded from other machines. Application Default Credentials are
// assumed.
package statements

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/rs/zerolog"
	"google.golang.org/api/iterator"
)

// FetchFromGCS downloads the file bytes from the given gs:// URI.
func FetchFromGCS(ctx context.Context, gcsURI string) ([]byte, error) {
	bucket, object, err := splitGCSURI(gcsURI)
	if err != nil {
		return nil, err
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("FetchFromGCS: creating storage client: %w", err)
	}
	defer client.Close()

	rc, err := client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("FetchFromGCS: reading object %s/%s: %w", bucket, object, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("FetchFromGCS: reading bytes: %w", err)
	}
	return data, nil
}

// SyncBucket downloads every statement export in the bucket into dataDir,
// skipping files that already exist locally. Export files keep their
// object base names, which is what the platform parsers glob on.
func SyncBucket(ctx context.Context, log zerolog.Logger, bucket, dataDir string) (int, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return 0, fmt.Errorf("SyncBucket: creating storage client: %w", err)
	}
	defer client.Close()

	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return 0, fmt.Errorf("SyncBucket: %w", err)
	}

	fetched := 0
	it := client.Bucket(bucket).Objects(ctx, nil)
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return fetched, fmt.Errorf("SyncBucket: listing bucket %s: %w", bucket, err)
		}

		name := path.Base(attrs.Name)
		local := filepath.Join(dataDir, name)
		if _, err := os.Stat(local); err == nil {
			log.Debug().Str("file", name).Msg("already present, skipping")
			continue
		}

		rc, err := client.Bucket(bucket).Object(attrs.Name).NewReader(ctx)
		if err != nil {
			return fetched, fmt.Errorf("SyncBucket: reading object %s: %w", attrs.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return fetched, fmt.Errorf("SyncBucket: reading bytes of %s: %w", attrs.Name, err)
		}

		if err := os.WriteFile(local, data, 0o644); err != nil {
			return fetched, fmt.Errorf("SyncBucket: writing %s: %w", local, err)
		}
		log.Info().Str("file", name).Int("bytes", len(data)).Msg("statement fetched")
		fetched++
	}
	return fetched, nil
}

// splitGCSURI splits "gs://bucket/path/to/file" into bucket and object.
func splitGCSURI(uri string) (bucket, object string, err error) {
	if !strings.HasPrefix(uri, "gs://") {
		return "", "", fmt.Errorf("invalid GCS URI: %s", uri)
	}
	trimmed := strings.TrimPrefix(uri, "gs://")
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) != 2 || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", uri)
	}
	return parts[0], parts[1], nil
}

// FilenameFromGCSURI extracts the base filename from a GCS URI.
func FilenameFromGCSURI(uri string) string {
	trimmed := strings.TrimPrefix(uri, "gs://")
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) < 2 {
		return trimmed
	}
	return path.Base(parts[1])
}
