// Package gcs uploads event files to a Google Cloud Storage bucket over the JSON API.
package gcs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"

	"github.com/leshachaplin/mmpgen/internal/domain"
	"github.com/leshachaplin/mmpgen/internal/storage/jsonl"
)

const (
	DefaultEndpoint    = "https://storage.googleapis.com"
	DefaultMaxAttempts = 3
	DefaultRetryBase   = time.Second

	contentType    = "application/jsonl"
	defaultTimeout = 30 * time.Second
)

var (
	ErrNoBucket     = errors.New("bucket is not specified")
	ErrUploadFailed = errors.New("upload failed")
	ErrNotExist     = errors.New("blob does not exist")
)

type Config struct {
	Bucket      string        `mapstructure:"bucket" validate:"omitempty,bucket"`
	Prefix      string        `mapstructure:"prefix"`
	Endpoint    string        `mapstructure:"endpoint"`
	AccessToken string        `mapstructure:"access_token"`
	MaxAttempts int           `mapstructure:"max_attempts" validate:"min=0"`
	RetryBase   time.Duration `mapstructure:"retry_base"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type Uploader struct {
	bucket      string
	endpoint    string
	token       string
	maxAttempts int
	client      *retryablehttp.Client
	logger      zerolog.Logger
}

func New(cfg Config, logger zerolog.Logger) (*Uploader, error) {
	if cfg.Bucket == "" {
		return nil, ErrNoBucket
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = DefaultRetryBase
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	client := retryablehttp.NewClient()
	client.HTTPClient.Timeout = cfg.Timeout
	client.RetryMax = cfg.MaxAttempts - 1
	client.RetryWaitMin = cfg.RetryBase
	client.RetryWaitMax = cfg.RetryBase << uint(cfg.MaxAttempts)
	client.Backoff = exponentialBackoff
	client.Logger = leveledLogger{logger: logger}

	return &Uploader{
		bucket:      cfg.Bucket,
		endpoint:    cfg.Endpoint,
		token:       cfg.AccessToken,
		maxAttempts: cfg.MaxAttempts,
		client:      client,
		logger:      logger,
	}, nil
}

// exponentialBackoff waits base * 2^attempt, attempt counting from zero.
func exponentialBackoff(min, max time.Duration, attemptNum int, _ *http.Response) time.Duration {
	wait := min << uint(attemptNum)
	if wait > max || wait <= 0 {
		return max
	}
	return wait
}

// URI returns the gs:// address of a blob in the bucket.
func (u *Uploader) URI(blobName string) string {
	if blobName == "" {
		return fmt.Sprintf("gs://%s", u.bucket)
	}
	return fmt.Sprintf("gs://%s/%s", u.bucket, blobName)
}

// Upload stores the events as a JSONL blob and returns its URI.
func (u *Uploader) Upload(ctx context.Context, events []domain.Event, blobName string) (string, error) {
	data, err := jsonl.Encode(events)
	if err != nil {
		return "", err
	}

	q := url.Values{}
	q.Set("uploadType", "media")
	q.Set("name", blobName)
	endpoint := fmt.Sprintf("%s/upload/storage/v1/b/%s/o?%s", u.endpoint, url.PathEscape(u.bucket), q.Encode())

	req, err := u.newRequest(ctx, http.MethodPost, endpoint, data)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", contentType)

	res, err := u.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w after %d attempts: %w", ErrUploadFailed, u.maxAttempts, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: %s", ErrUploadFailed, statusError(res))
	}

	uri := u.URI(blobName)
	u.logger.Info().Str("uri", uri).Int("bytes", len(data)).Int("events", len(events)).Msg("Successfully uploaded.")
	return uri, nil
}

type object struct {
	Name string `json:"name"`
	Size string `json:"size"`
}

// Size returns the stored size of a blob in bytes.
func (u *Uploader) Size(ctx context.Context, blobName string) (int64, error) {
	obj, err := u.object(ctx, blobName)
	if err != nil {
		return 0, err
	}
	size, err := strconv.ParseInt(obj.Size, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse size %q: %w", obj.Size, err)
	}
	return size, nil
}

func (u *Uploader) Exists(ctx context.Context, blobName string) (bool, error) {
	_, err := u.object(ctx, blobName)
	if errors.Is(err, ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// List returns the names of all blobs starting with prefix.
func (u *Uploader) List(ctx context.Context, prefix string) ([]string, error) {
	names := make([]string, 0)
	pageToken := ""
	for {
		q := url.Values{}
		if prefix != "" {
			q.Set("prefix", prefix)
		}
		if pageToken != "" {
			q.Set("pageToken", pageToken)
		}
		endpoint := fmt.Sprintf("%s/storage/v1/b/%s/o?%s", u.endpoint, url.PathEscape(u.bucket), q.Encode())

		var page struct {
			Items         []object `json:"items"`
			NextPageToken string   `json:"nextPageToken"`
		}
		if err := u.getJSON(ctx, endpoint, &page); err != nil {
			return nil, err
		}
		for _, item := range page.Items {
			names = append(names, item.Name)
		}
		if page.NextPageToken == "" {
			return names, nil
		}
		pageToken = page.NextPageToken
	}
}

func (u *Uploader) object(ctx context.Context, blobName string) (object, error) {
	endpoint := fmt.Sprintf("%s/storage/v1/b/%s/o/%s", u.endpoint, url.PathEscape(u.bucket), url.PathEscape(blobName))

	var obj object
	if err := u.getJSON(ctx, endpoint, &obj); err != nil {
		return object{}, err
	}
	return obj, nil
}

func (u *Uploader) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := u.newRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	res, err := u.client.Do(req)
	if err != nil {
		return fmt.Errorf("could not send request: %w", err)
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return ErrNotExist
	default:
		return errors.New(statusError(res))
	}

	if err = json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (u *Uploader) newRequest(ctx context.Context, method, endpoint string, body []byte) (*retryablehttp.Request, error) {
	var rawBody interface{}
	if body != nil {
		rawBody = body
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, endpoint, rawBody)
	if err != nil {
		return nil, fmt.Errorf("could not create request: %w", err)
	}
	if u.token != "" {
		req.Header.Set("Authorization", "Bearer "+u.token)
	}
	return req, nil
}

func statusError(res *http.Response) string {
	body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
	return fmt.Sprintf("unexpected status code: %d: %s", res.StatusCode, body)
}
