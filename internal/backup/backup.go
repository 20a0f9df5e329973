package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"solitaire-ledger/internal/config"
	"solitaire-ledger/internal/ledger"
)

var ErrNoBucket = errors.New("backup bucket is not configured")

// ObjectPutter is the part of the S3 client the uploader needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Source is what gets backed up.
type Source interface {
	Snapshot() ledger.Snapshot
}

type Uploader struct {
	client ObjectPutter
	bucket string
}

// New builds an uploader for an S3 compatible bucket. A custom endpoint
// (R2, MinIO) switches the client to path style addressing.
func New(ctx context.Context, cfg config.BackupConfig) (*Uploader, error) {
	if cfg.Bucket == "" {
		return nil, ErrNoBucket
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load backup config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewWithClient(client, cfg.Bucket), nil
}

func NewWithClient(client ObjectPutter, bucket string) *Uploader {
	return &Uploader{client: client, bucket: bucket}
}

func ObjectKey(sequence uint32, savedAt time.Time) string {
	return fmt.Sprintf("ledger/%d-%d.json", sequence, savedAt.Unix())
}

// Backup uploads the current snapshot of src and returns its object key.
func (u *Uploader) Backup(ctx context.Context, src Source) (string, error) {
	snap := src.Snapshot()

	data, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("failed to encode snapshot: %w", err)
	}

	key := ObjectKey(snap.Sequence, time.UnixMilli(snap.SavedAt))
	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload snapshot: %w", err)
	}
	return key, nil
}
