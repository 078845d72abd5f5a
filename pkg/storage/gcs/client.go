package gcs

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/prairieworks/grainledger-backend/pkg/config"
	"github.com/prairieworks/grainledger-backend/pkg/logger"
)

const pingTimeout = 5 * time.Second

// Client signs upload/download URLs for ticket image objects.
type Client struct {
	client *storage.Client
	bucket string
	cfg    config.GCSConfig
}

// Pinger exposes the health-check surface.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewClient builds a GCS client for the configured bucket.
func NewClient(ctx context.Context, cfg config.GCSConfig, gcp config.GCPConfig, logg *logger.Logger) (*Client, error) {
	if cfg.BucketName == "" {
		return nil, errors.New("gcs bucket name is required")
	}

	var opts []option.ClientOption
	if gcp.ApplicationCredentials != "" {
		opts = append(opts, option.WithCredentialsFile(gcp.ApplicationCredentials))
	}

	raw, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating gcs client: %w", err)
	}

	client := &Client{
		client: raw,
		bucket: cfg.BucketName,
		cfg:    cfg,
	}

	if err := client.Ping(ctx); err != nil {
		_ = raw.Close()
		return nil, fmt.Errorf("gcs health check failed: %w", err)
	}

	if logg != nil {
		logg.Info(ctx, "gcs client initialized")
	}

	return client, nil
}

// Ping verifies the bucket is reachable.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	_, err := c.client.Bucket(c.bucket).Attrs(ctx)
	return err
}

// SignUploadURL returns a V4 signed URL allowing a single PUT of the object.
func (c *Client) SignUploadURL(object, contentType string) (string, error) {
	if object == "" {
		return "", errors.New("object key is required")
	}
	return c.client.Bucket(c.bucket).SignedURL(object, &storage.SignedURLOptions{
		Scheme:      storage.SigningSchemeV4,
		Method:      http.MethodPut,
		ContentType: contentType,
		Expires:     time.Now().Add(c.cfg.UploadURLExpiry),
	})
}

// SignDownloadURL returns a V4 signed URL allowing a single GET of the object.
func (c *Client) SignDownloadURL(object string) (string, error) {
	if object == "" {
		return "", errors.New("object key is required")
	}
	return c.client.Bucket(c.bucket).SignedURL(object, &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  http.MethodGet,
		Expires: time.Now().Add(c.cfg.DownloadURLExpiry),
	})
}

// Delete removes the object; missing objects are not an error.
func (c *Client) Delete(ctx context.Context, object string) error {
	if object == "" {
		return errors.New("object key is required")
	}
	err := c.client.Bucket(c.bucket).Object(object).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil
	}
	return err
}

// Close releases the underlying connections.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}
