package avatars

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Store mirrors provider-hosted profile photos into a MinIO bucket so the
// frontend can serve them without depending on the provider's CDN. Mirroring
// is best-effort: callers log failures and move on.
type Store struct {
	client *minio.Client
	bucket string
	http   *http.Client
}

// NewStore creates the MinIO client and ensures the bucket exists.
func NewStore(cfg *MinIOConfig) (*Store, error) {
	if cfg == nil || cfg.Endpoint == "" {
		return nil, fmt.Errorf("minio config missing")
	}
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio new: %w", err)
	}
	s := &Store{client: mc, bucket: cfg.Bucket, http: &http.Client{Timeout: 15 * time.Second}}
	// ensure bucket exists (idempotent)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := mc.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		exist, xerr := mc.BucketExists(ctx, s.bucket)
		if xerr != nil || !exist {
			return nil, fmt.Errorf("minio bucket ensure: %w", err)
		}
	}
	return s, nil
}

// Mirror downloads the photo at photoURL and stores it under
// "avatars/<subjectID>", overwriting any previous copy for that subject.
func (s *Store) Mirror(ctx context.Context, subjectID, photoURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, photoURL, nil)
	if err != nil {
		return fmt.Errorf("avatar fetch request: %w", err)
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("avatar fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("avatar fetch returned %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	key := "avatars/" + subjectID
	_, err = s.client.PutObject(ctx, s.bucket, key, resp.Body, resp.ContentLength, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("avatar put: %w", err)
	}
	return nil
}
