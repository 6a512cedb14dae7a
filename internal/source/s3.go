package source

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"apub-go/internal/config"
	"apub-go/internal/pub"
)

const s3Scheme = "s3://"

// S3Source downloads archives from S3 into a local directory using the
// transfer manager.
type S3Source struct {
	downloader *manager.Downloader
	bucket     string
	prefix     string
	dir        string
	logger     pub.Logger
}

var _ pub.Source = (*S3Source)(nil)

// NewS3Source creates an S3Source. bucket and prefix are used for refs
// that are bare keys rather than s3:// URLs.
func NewS3Source(client manager.DownloadAPIClient, bucket, prefix, dir string, logger pub.Logger) *S3Source {
	return &S3Source{
		downloader: manager.NewDownloader(client),
		bucket:     bucket,
		prefix:     prefix,
		dir:        dir,
		logger:     logger,
	}
}

// NewS3SourceFromConfig loads AWS configuration and builds an S3Source.
// Static credentials from cfg take precedence over the default chain.
func NewS3SourceFromConfig(ctx context.Context, cfg config.ArchiveConfig, logger pub.Logger) (*S3Source, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.S3Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.S3Region))
	}
	if cfg.S3AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKeyID, cfg.S3SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewS3Source(client, cfg.S3Bucket, cfg.S3Prefix, cfg.DownloadDir, logger), nil
}

// Open downloads ref, either "s3://bucket/key" or a key in the configured
// bucket, to a temp file that is removed when the archive is closed.
func (s *S3Source) Open(ctx context.Context, ref string) (*pub.LocalArchive, error) {
	bucket, key, err := s.locate(ref)
	if err != nil {
		return nil, err
	}

	s.logger.Info("downloading archive", "bucket", bucket, "key", key)
	f, err := createTemp(s.dir, path.Base(key))
	if err != nil {
		return nil, err
	}
	tmp := f.Name()

	n, err := s.downloader.Download(ctx, f, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmp)
		return nil, fmt.Errorf("downloading s3://%s/%s: %w", bucket, key, err)
	}

	s.logger.Info("archive downloaded", "bytes", n, "path", tmp)
	return pub.NewLocalArchive(tmp, path.Base(key), func() { os.Remove(tmp) }), nil
}

func (s *S3Source) locate(ref string) (bucket, key string, err error) {
	if rest, ok := strings.CutPrefix(ref, s3Scheme); ok {
		bucket, key, _ = strings.Cut(rest, "/")
	} else {
		bucket = s.bucket
		key = path.Join(s.prefix, ref)
	}
	if bucket == "" || key == "" || key == "." {
		return "", "", fmt.Errorf("invalid S3 archive reference %q: %w", ref, pub.ErrConfigurationMissing)
	}
	return bucket, key, nil
}
