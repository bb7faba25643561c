package filestore

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pkg/errors"

	"github.com/trezcool/kia/core"
)

// S3Storage keeps files in an S3 bucket; URLs point at the bucket's public endpoint.
type S3Storage struct {
	client  *s3.Client
	bucket  string
	baseURL string
}

var _ core.FileStorage = (*S3Storage)(nil)

// NewS3Storage uses the default AWS credentials chain (env, shared config, instance role).
func NewS3Storage(ctx context.Context, conf *core.Config) (*S3Storage, error) {
	if conf.Storage.S3Bucket == "" {
		return nil, errors.New("storage.s3Bucket is required")
	}
	awsConf, err := config.LoadDefaultConfig(ctx, config.WithRegion(conf.Storage.S3Region))
	if err != nil {
		return nil, errors.Wrap(err, "loading AWS config")
	}
	return &S3Storage{
		client:  s3.NewFromConfig(awsConf),
		bucket:  conf.Storage.S3Bucket,
		baseURL: fmt.Sprintf("https://%s.s3.%s.amazonaws.com", conf.Storage.S3Bucket, conf.Storage.S3Region),
	}, nil
}

func (s *S3Storage) Save(ctx context.Context, folder string, upload core.Upload) (string, error) {
	key := objectKey(folder, upload.Filename)
	in := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   upload.Content,
	}
	if upload.ContentType != "" {
		in.ContentType = aws.String(upload.ContentType)
	}
	if _, err := s.client.PutObject(ctx, in); err != nil {
		return "", errors.Wrap(err, "uploading to S3")
	}
	return s.baseURL + "/" + key, nil
}

func (s *S3Storage) Delete(ctx context.Context, url string) (bool, error) {
	if !strings.HasPrefix(url, s.baseURL+"/") {
		return false, nil
	}
	key := strings.TrimPrefix(url, s.baseURL+"/")
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return false, errors.Wrap(err, "deleting from S3")
	}
	return true, nil
}
