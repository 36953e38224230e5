package uploadsvc

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
)

type s3Uploader struct {
	client  *s3.Client
	bucket  string
	baseURL string
}

var _ core.Uploader = (*s3Uploader)(nil)

// NewS3Uploader returns a core.Uploader storing the uploads in the configured S3 (compatible) bucket.
// Static credentials are used when configured, the default AWS credentials chain otherwise.
func NewS3Uploader(ctx context.Context, conf *core.Config) (*s3Uploader, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(conf.Storage.Region)}
	if conf.Storage.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(conf.Storage.AccessKeyID, conf.Storage.SecretAccessKey, ""),
		))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "loading aws config")
	}

	endpoint := conf.Storage.Endpoint
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	baseURL := strings.TrimSuffix(conf.Storage.BaseURL, "/")
	if baseURL == "" {
		if endpoint != "" {
			baseURL = strings.TrimSuffix(endpoint, "/") + "/" + conf.Storage.Bucket
		} else {
			baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", conf.Storage.Bucket, conf.Storage.Region)
		}
	}

	return &s3Uploader{
		client:  client,
		bucket:  conf.Storage.Bucket,
		baseURL: baseURL,
	}, nil
}

func (u *s3Uploader) Upload(ctx context.Context, payload, folder string) (core.Asset, error) {
	data, contentType, ext, err := decodePayload(payload)
	if err != nil {
		return core.Asset{}, err
	}

	key := path.Join(folder, core.NewID()+ext)
	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return core.Asset{}, errors.Wrap(err, "putting s3 object")
	}
	return core.Asset{PublicID: key, URL: u.baseURL + "/" + key}, nil
}

func (u *s3Uploader) Destroy(ctx context.Context, publicID string) error {
	_, err := u.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(publicID),
	})
	return errors.Wrap(err, "deleting s3 object")
}
