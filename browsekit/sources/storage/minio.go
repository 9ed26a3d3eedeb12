package storage

import (
	"bytes"
	"context"
	"crypto/md5" // For simple URL hashing
	"encoding/json"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"browsekit/browsekit/config"
)

// ObjectStore is the subset of the MinIO client the archive needs.
type ObjectStore interface {
	PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	GetObject(ctx context.Context, bucket, key string, opts minio.GetObjectOptions) (*minio.Object, error)
}

type MinIOClient struct {
	client ObjectStore
	bucket string
	now    func() time.Time
}

// ScrapeObject is the archived form of one scrape result.
type ScrapeObject struct {
	URL       string         `json:"url"`
	Data      map[string]any `json:"data"`
	Timestamp time.Time      `json:"timestamp"`
}

func NewMinIOClient(ctx context.Context, cfg config.Config) (*MinIOClient, error) {
	client, err := minio.New(
		cfg.MinioEndpoint,
		&minio.Options{
			Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
			Secure: cfg.MinioUseSSL,
		},
	)
	if err != nil {
		return nil, err
	}
	// Create bucket if not exists
	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{}); err != nil {
			return nil, err
		}
	}
	return NewArchive(client, cfg.MinioBucket), nil
}

// NewArchive wraps an existing object store.
func NewArchive(store ObjectStore, bucket string) *MinIOClient {
	return &MinIOClient{client: store, bucket: bucket, now: time.Now}
}

func urlHash(url string) string {
	return fmt.Sprintf("%x", md5.Sum([]byte(url)))
}

// ScrapeKey is where the latest scrape of url is stored.
func ScrapeKey(url string) string {
	return path.Join("scrapes", urlHash(url)+".json")
}

// UploadScrape overwrites the latest scrape snapshot for url.
func (m *MinIOClient) UploadScrape(ctx context.Context, url string, data map[string]any) (string, error) {
	key := ScrapeKey(url)
	obj := ScrapeObject{URL: url, Data: data, Timestamp: m.now().UTC()}
	body, err := json.Marshal(obj)
	if err != nil {
		return "", err
	}
	_, err = m.client.PutObject(ctx, m.bucket, key, bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return "", err
	}
	return key, nil
}

// UploadScreenshot stores img under screenshots/<url hash>/<id>.<ext>.
func (m *MinIOClient) UploadScreenshot(ctx context.Context, url string, img []byte, contentType, ext string) (string, error) {
	key := path.Join("screenshots", urlHash(url), uuid.NewString()+ext)
	_, err := m.client.PutObject(ctx, m.bucket, key, bytes.NewReader(img), int64(len(img)), minio.PutObjectOptions{
		ContentType:  contentType,
		UserMetadata: map[string]string{"source-url": url},
	})
	if err != nil {
		return "", err
	}
	return key, nil
}

func (m *MinIOClient) GetScrape(ctx context.Context, key string) (*ScrapeObject, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, err
	}
	var out ScrapeObject
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
