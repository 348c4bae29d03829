// Package storage persists generated artifacts to S3 under project-scoped keys.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/coedaniel/bedrock-mcp-backend-multi-herramienta/internal/apperr"
	"github.com/coedaniel/bedrock-mcp-backend-multi-herramienta/internal/config"
	"github.com/coedaniel/bedrock-mcp-backend-multi-herramienta/internal/models"
)

const (
	keyTimeLayout = "20060102_150405"
	maxListLimit  = 1000
)

// API is the subset of the S3 client used by the store.
type API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// Presigner issues time-limited GET URLs.
type Presigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Object is a payload to upload along with its scoping.
type Object struct {
	Data        []byte
	ContentType string
	Category    string
	Project     string
	Tool        string
	Filename    string
}

// Stored describes an uploaded object.
type Stored struct {
	Key         string
	URL         string
	ExpiringURL string
	Size        int
	ContentType string
}

// ObjectInfo is a listing entry.
type ObjectInfo struct {
	Key          string    `json:"key"`
	Filename     string    `json:"filename"`
	URL          string    `json:"url"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

// Store uploads and retrieves artifacts.
type Store struct {
	api       API
	presigner Presigner
	bucket    string
	region    string
	endpoint  string
	presign   bool
	expiry    time.Duration
	logger    zerolog.Logger
	now       func() time.Time
	suffix    func() string
}

// New constructs a store. presigner may be nil when presigning is disabled.
func New(api API, presigner Presigner, cfg config.StorageConfig, region string, logger zerolog.Logger) (*Store, error) {
	if api == nil {
		return nil, errors.New("s3 client must not be nil")
	}
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("bucket must not be empty")
	}
	if cfg.Presign && presigner == nil {
		return nil, errors.New("presigner must not be nil when presigning is enabled")
	}
	if cfg.Region != "" {
		region = cfg.Region
	}

	return &Store{
		api:       api,
		presigner: presigner,
		bucket:    cfg.Bucket,
		region:    region,
		endpoint:  strings.TrimRight(cfg.Endpoint, "/"),
		presign:   cfg.Presign,
		expiry:    cfg.PresignExpiry,
		logger:    logger.With().Str("component", "storage").Logger(),
		now:       time.Now,
		suffix:    func() string { return uuid.NewString()[:8] },
	}, nil
}

// Bucket returns the configured bucket name.
func (s *Store) Bucket() string {
	return s.bucket
}

// Key builds {category}/{project}/{tool}/{timestamp}_{suffix}_{filename}.
func (s *Store) Key(category, project, tool, filename string) string {
	return path.Join(
		Segment(category),
		Segment(project),
		Segment(tool),
		fmt.Sprintf("%s_%s_%s", s.now().UTC().Format(keyTimeLayout), s.suffix(), Filename(filename)),
	)
}

// Put uploads the object under a fresh unique key.
func (s *Store) Put(ctx context.Context, obj Object) (*Stored, error) {
	if len(obj.Data) == 0 {
		return nil, fmt.Errorf("%w: refusing to store empty object %q", apperr.ErrStorage, obj.Filename)
	}
	contentType := obj.ContentType
	if contentType == "" {
		contentType = models.ContentTypeFor(obj.Filename)
	}

	key := s.Key(obj.Category, obj.Project, obj.Tool, obj.Filename)
	_, err := s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(obj.Data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(obj.Data))),
		Metadata: map[string]string{
			"original-filename": Filename(obj.Filename),
			"project":           Segment(obj.Project),
			"tool":              Segment(obj.Tool),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: put %s: %v", apperr.ErrStorage, key, err)
	}

	stored := &Stored{
		Key:         key,
		URL:         s.URL(key),
		Size:        len(obj.Data),
		ContentType: contentType,
	}
	if s.presign {
		signed, err := s.Presign(ctx, key)
		if err != nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("presign failed, returning durable url only")
		} else {
			stored.ExpiringURL = signed
		}
	}

	s.logger.Info().Str("key", key).Int("size", stored.Size).Str("content_type", contentType).Msg("artifact stored")
	return stored, nil
}

// Presign returns a time-limited GET URL for key.
func (s *Store) Presign(ctx context.Context, key string) (string, error) {
	if s.presigner == nil {
		return "", fmt.Errorf("%w: presigning not configured", apperr.ErrStorage)
	}
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, func(o *s3.PresignOptions) {
		o.Expires = s.expiry
	})
	if err != nil {
		return "", fmt.Errorf("%w: presign %s: %v", apperr.ErrStorage, key, err)
	}
	return req.URL, nil
}

// Get downloads the object at key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %v", apperr.ErrStorage, key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", apperr.ErrStorage, key, err)
	}
	return data, nil
}

// List returns up to limit objects under prefix, newest first.
func (s *Store) List(ctx context.Context, prefix string, limit int) ([]ObjectInfo, error) {
	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}

	var out []ObjectInfo
	p := s3.NewListObjectsV2Paginator(s.api, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: list %s: %v", apperr.ErrStorage, prefix, err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			out = append(out, ObjectInfo{
				Key:          key,
				Filename:     path.Base(key),
				URL:          s.URL(key),
				Size:         aws.ToInt64(obj.Size),
				LastModified: aws.ToTime(obj.LastModified),
			})
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].LastModified.After(out[j].LastModified) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Delete removes the object identified by a key or by one of its URLs.
func (s *Store) Delete(ctx context.Context, keyOrURL string) (string, error) {
	key := keyOrURL
	if strings.HasPrefix(keyOrURL, "http://") || strings.HasPrefix(keyOrURL, "https://") {
		k, err := s.KeyFromURL(keyOrURL)
		if err != nil {
			return "", err
		}
		key = k
	}
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("%w: empty key", apperr.ErrValidation)
	}

	if _, err := s.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return "", fmt.Errorf("%w: delete %s: %v", apperr.ErrStorage, key, err)
	}
	s.logger.Info().Str("key", key).Msg("artifact deleted")
	return key, nil
}

// Ping checks that the bucket is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if _, err := s.api.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)}); err != nil {
		return fmt.Errorf("%w: head bucket %s: %v", apperr.ErrStorage, s.bucket, err)
	}
	return nil
}

// URL returns the durable object URL for key.
func (s *Store) URL(key string) string {
	escaped := escapeKey(key)
	if s.endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", s.endpoint, s.bucket, escaped)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, escaped)
}

// KeyFromURL recovers the object key from a durable or presigned URL of this bucket.
func (s *Store) KeyFromURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: parse url: %v", apperr.ErrValidation, err)
	}
	p := strings.TrimPrefix(u.Path, "/")

	switch {
	case strings.HasPrefix(u.Host, s.bucket+".s3"):
	case strings.HasPrefix(p, s.bucket+"/"):
		p = strings.TrimPrefix(p, s.bucket+"/")
	default:
		return "", fmt.Errorf("%w: url %q does not belong to bucket %s", apperr.ErrValidation, raw, s.bucket)
	}
	if p == "" {
		return "", fmt.Errorf("%w: url %q has no object key", apperr.ErrValidation, raw)
	}
	return p, nil
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}

// Segment reduces s to the key path segment objects are stored under.
func Segment(s string) string {
	s = clean(s, false)
	if s == "" {
		return "default"
	}
	return s
}

// Filename reduces name to a safe base name.
func Filename(name string) string {
	name = clean(path.Base(strings.ReplaceAll(name, "\\", "/")), true)
	name = strings.TrimLeft(name, ".")
	if name == "" {
		return "file"
	}
	return name
}

func clean(s string, allowDot bool) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == '.' && allowDot:
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	return strings.Trim(b.String(), "-")
}
