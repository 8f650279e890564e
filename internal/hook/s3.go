package hook

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/spf13/afero"

	"firestige.xyz/pcapture/internal/config"
)

const pcapContentType = "application/vnd.tcpdump.pcap"

// Uploader is the subset of *s3manager.Uploader used by the S3 hook.
type Uploader interface {
	UploadWithContext(ctx aws.Context, input *s3manager.UploadInput, opts ...func(*s3manager.Uploader)) (*s3manager.UploadOutput, error)
}

// S3 uploads the capture file to bucket/prefix/<file name>.
type S3 struct {
	uploader Uploader
	fs       afero.Fs
	bucket   string
	prefix   string
	timeout  time.Duration
}

// NewS3 creates an S3 hook. Credentials come from the default AWS chain.
func NewS3(cfg config.S3HookConfig, fs afero.Fs) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}
	sess, err := session.NewSession(awsConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("aws session: %w", err)
	}
	return NewS3WithUploader(s3manager.NewUploader(sess), fs, cfg.Bucket, cfg.Prefix, cfg.Timeout), nil
}

// NewS3WithUploader creates an S3 hook around an existing uploader. A positive timeout
// bounds each upload.
func NewS3WithUploader(u Uploader, fs afero.Fs, bucket, prefix string, timeout time.Duration) *S3 {
	return &S3{uploader: u, fs: fs, bucket: bucket, prefix: prefix, timeout: timeout}
}

func awsConfig(cfg config.S3HookConfig) *aws.Config {
	region := cfg.Region
	if region == "" {
		region = os.Getenv("AWS_REGION")
		if region == "" {
			region = "us-east-1"
		}
	}

	awsCfg := &aws.Config{Region: aws.String(region)}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
		awsCfg.S3ForcePathStyle = aws.Bool(true)
	}
	awsCfg.CredentialsChainVerboseErrors = aws.Bool(true)
	return awsCfg
}

// Name implements Hook.
func (s *S3) Name() string { return "s3" }

// Key returns the object key for a local capture path.
func (s *S3) Key(localPath string) string {
	return path.Join(s.prefix, filepath.Base(localPath))
}

// Run uploads r.Path.
func (s *S3) Run(ctx context.Context, r Result) error {
	f, err := s.fs.Open(r.Path)
	if err != nil {
		return fmt.Errorf("open capture: %w", err)
	}
	defer f.Close()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	key := s.Key(r.Path)
	out, err := s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(pcapContentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s to %s/%s: %w", r.Path, s.bucket, key, err)
	}
	slog.Info("capture uploaded", "bucket", s.bucket, "key", key, "location", out.Location)
	return nil
}
