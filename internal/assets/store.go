// internal/assets/store.go
//
// S3-backed storage for website image assets.
//
// Context
// -------
// Assets are opaque to the page model: a page document references them by
// URL only.  The store validates size and sniffed content type before
// anything touches the bucket, keys objects under the owning website id,
// and hands back the public URL.  Deleting a website removes its whole
// key prefix.

package assets

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/gabriel-vasile/mimetype"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/yanizio/forge/internal/config"
	"github.com/yanizio/forge/internal/fault"
)

// allowedTypes is the image allow-list; anything else is rejected before
// upload.
var allowedTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

const (
	defaultMaxSize = 10 << 20 // 10 MiB
	keyAlphabet    = "0123456789abcdefghijklmnopqrstuvwxyz"
	keyLength      = 14
)

// API is the slice of the S3 client the store uses.  Narrowed for tests.
type API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	DeleteObjects(ctx context.Context, in *s3.DeleteObjectsInput, opts ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

// Store uploads and removes website assets in one bucket.
type Store struct {
	client  API
	bucket  string
	baseURL string
	maxSize int64
}

// New builds a Store against an S3-compatible endpoint using static
// credentials from config.
func New(ctx context.Context, cfg config.Assets) (*Store, error) {
	const op = "assets.new"

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	awscfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fault.Wrap(fault.Internal, op, err)
	}

	client := s3.NewFromConfig(awscfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	maxSize := cfg.MaxSize
	if maxSize <= 0 {
		maxSize = defaultMaxSize
	}
	return &Store{
		client:  client,
		bucket:  cfg.Bucket,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		maxSize: maxSize,
	}, nil
}

// NewWithClient wires a pre-built client; used by tests.
func NewWithClient(client API, bucket, baseURL string, maxSize int64) *Store {
	if maxSize <= 0 {
		maxSize = defaultMaxSize
	}
	return &Store{client: client, bucket: bucket, baseURL: strings.TrimRight(baseURL, "/"), maxSize: maxSize}
}

// Put validates and uploads one asset for a website, returning its public
// URL.  The object key is `<website id>/<random id>.<ext>` with the
// extension taken from the sniffed type, never from the client.
func (s *Store) Put(ctx context.Context, websiteID string, data []byte) (string, error) {
	const op = "assets.put"

	if int64(len(data)) > s.maxSize {
		return "", fault.New(fault.InvalidInput, op,
			"asset exceeds %d byte limit", s.maxSize)
	}
	mt := mimetype.Detect(data)
	if !allowedTypes[mt.String()] {
		return "", fault.New(fault.InvalidInput, op,
			"unsupported content type %q", mt.String())
	}

	id, err := gonanoid.Generate(keyAlphabet, keyLength)
	if err != nil {
		return "", fault.Wrap(fault.Internal, op, err)
	}
	key := fmt.Sprintf("%s/%s%s", websiteID, id, mt.Extension())

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(mt.String()),
	})
	if err != nil {
		return "", fault.ProviderErr(op, err, true)
	}
	return s.URL(key), nil
}

// Remove deletes one object; a missing key is success.
func (s *Store) Remove(ctx context.Context, key string) error {
	const op = "assets.remove"
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fault.ProviderErr(op, err, true)
	}
	return nil
}

// RemoveForWebsite deletes every object under the website's key prefix.
// Part of the website delete cascade.
func (s *Store) RemoveForWebsite(ctx context.Context, websiteID string) error {
	const op = "assets.remove_website"

	prefix := websiteID + "/"
	var token *string
	for {
		page, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.bucket),
			Prefix:            aws.String(prefix),
			ContinuationToken: token,
		})
		if err != nil {
			return fault.ProviderErr(op, err, true)
		}
		if len(page.Contents) > 0 {
			ids := make([]types.ObjectIdentifier, 0, len(page.Contents))
			for _, obj := range page.Contents {
				ids = append(ids, types.ObjectIdentifier{Key: obj.Key})
			}
			_, err = s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
				Bucket: aws.String(s.bucket),
				Delete: &types.Delete{Objects: ids, Quiet: aws.Bool(true)},
			})
			if err != nil {
				return fault.ProviderErr(op, err, true)
			}
		}
		if page.IsTruncated == nil || !*page.IsTruncated {
			return nil
		}
		token = page.NextContinuationToken
	}
}

// URL returns the public URL for a stored key.
func (s *Store) URL(key string) string {
	return s.baseURL + "/" + key
}
