package report

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	mtaerrors "github.com/ggs134/meeting-transcript-analyzer/pkg/errors"
)

// Content types used for report files.
const (
	ContentTypeMarkdown = "text/markdown; charset=utf-8"
	ContentTypeJSON     = "application/json"
	ContentTypeCSV      = "text/csv; charset=utf-8"
)

// Sink stores rendered reports under a slash-separated key.
type Sink interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	// Location describes where key ends up, for user-facing output.
	Location(key string) string
}

// DailyKey names a daily report file: daily_report_YYYYMMDD_YYYYMMDD_HHMMSS.ext.
func DailyKey(target, generatedAt time.Time, ext string) string {
	return fmt.Sprintf("daily_report_%s_%s.%s", target.Format("20060102"), generatedAt.Format("20060102_150405"), ext)
}

// RunKey names a report file for an analysis run.
func RunKey(kind, runID string, generatedAt time.Time, ext string) string {
	return fmt.Sprintf("%s_%s_%s.%s", kind, generatedAt.Format("20060102_150405"), runID, ext)
}

// LocalSink writes reports into a directory.
type LocalSink struct {
	Dir string
}

// NewLocalSink creates the directory if needed.
func NewLocalSink(dir string) (*LocalSink, error) {
	if dir == "" {
		dir = "output"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating report directory: %w", err)
	}
	return &LocalSink{Dir: dir}, nil
}

// Put writes data to Dir/key.
func (s *LocalSink) Put(_ context.Context, key string, data []byte, _ string) error {
	target, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return fmt.Errorf("writing report %s: %w", key, err)
	}
	return nil
}

// Location returns the file path for key.
func (s *LocalSink) Location(key string) string {
	p, err := s.path(key)
	if err != nil {
		return key
	}
	return p
}

func (s *LocalSink) path(key string) (string, error) {
	clean := path.Clean("/" + key)
	if clean == "/" {
		return "", fmt.Errorf("report key %q: %w", key, mtaerrors.ErrValidation)
	}
	return filepath.Join(s.Dir, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}

// S3Options configures an S3Sink.
type S3Options struct {
	Bucket          string
	Region          string
	Endpoint        string
	Prefix          string
	AccessKeyID     string
	SecretAccessKey string
}

// S3API is the subset of the S3 client used by S3Sink.
type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Sink uploads reports to an S3 bucket or an S3-compatible store.
type S3Sink struct {
	client S3API
	bucket string
	prefix string
}

// NewS3Sink builds an S3 client from opts. Static credentials are used when
// both keys are set, otherwise the default AWS credential chain. A custom
// endpoint (MinIO, R2) switches to path-style addressing.
func NewS3Sink(ctx context.Context, opts S3Options) (*S3Sink, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("s3 sink: bucket: %w", mtaerrors.ErrNotConfigured)
	}
	region := opts.Region
	if region == "" {
		region = "us-east-1"
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	var clientOpts []func(*s3.Options)
	if opts.Endpoint != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		})
	}
	return NewS3SinkWithClient(s3.NewFromConfig(cfg, clientOpts...), opts.Bucket, opts.Prefix), nil
}

// NewS3SinkWithClient wraps an existing client.
func NewS3SinkWithClient(client S3API, bucket, prefix string) *S3Sink {
	return &S3Sink{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

// Put uploads data as prefix/key.
func (s *S3Sink) Put(ctx context.Context, key string, data []byte, contentType string) error {
	in := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(key)),
		Body:   bytes.NewReader(data),
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}
	if _, err := s.client.PutObject(ctx, in); err != nil {
		return fmt.Errorf("uploading report %s: %w", key, err)
	}
	return nil
}

// Location returns the s3:// URL for key.
func (s *S3Sink) Location(key string) string {
	return fmt.Sprintf("s3://%s/%s", s.bucket, s.key(key))
}

func (s *S3Sink) key(key string) string {
	key = strings.TrimPrefix(key, "/")
	if s.prefix == "" {
		return key
	}
	return s.prefix + "/" + key
}

// MultiSink writes to every sink in order, stopping at the first error.
type MultiSink []Sink

// Put implements Sink.
func (m MultiSink) Put(ctx context.Context, key string, data []byte, contentType string) error {
	for _, s := range m {
		if err := s.Put(ctx, key, data, contentType); err != nil {
			return err
		}
	}
	return nil
}

// Location joins the locations of every sink.
func (m MultiSink) Location(key string) string {
	locs := make([]string, 0, len(m))
	for _, s := range m {
		locs = append(locs, s.Location(key))
	}
	return strings.Join(locs, ", ")
}
