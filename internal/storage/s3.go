package storage

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"reviewetl/internal/logger"
)

// S3Backup mirrors the local data directory to an S3 bucket. It is a
// write-only collaborator: a failed upload is logged and skipped, and the
// pipeline result does not depend on it.
type S3Backup struct {
	client *s3.Client
	bucket string
	prefix string
	log    *logger.Logger
}

// NewS3Backup creates a backup client using the default AWS credential
// chain (credentials come from the environment, never from YAML).
func NewS3Backup(ctx context.Context, region, bucket, prefix string, log *logger.Logger) (*S3Backup, error) {
	if region == "" {
		region = os.Getenv("AWS_REGION")
		if region == "" {
			region = "us-east-1"
		}
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &S3Backup{
		client: s3.NewFromConfig(awsCfg),
		bucket: bucket,
		prefix: strings.TrimSuffix(prefix, "/"),
		log:    log.With("stage", "backup"),
	}, nil
}

// BackupDir walks dataDir and uploads every file under the key
// <prefix>/<relative path>. Returns the number of files uploaded.
func (b *S3Backup) BackupDir(ctx context.Context, dataDir string) (int, error) {
	uploaded := 0

	err := filepath.WalkDir(dataDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(dataDir, path)
		if err != nil {
			return err
		}

		key := filepath.ToSlash(rel)
		if b.prefix != "" {
			key = b.prefix + "/" + key
		}

		if err := b.uploadFile(ctx, path, key); err != nil {
			b.log.Error("upload failed, skipping file", "file", path, "error", err)

			return nil
		}

		uploaded++

		return nil
	})
	if err != nil {
		return uploaded, fmt.Errorf("backup walk %s: %w", dataDir, err)
	}

	b.log.Info("backup complete", "bucket", b.bucket, "files", uploaded)

	return uploaded, nil
}

func (b *S3Backup) uploadFile(ctx context.Context, path, key string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
		Body:   f,
	})

	return err
}
