// Package media stores user-uploaded recipe images and videos in S3.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/pageza/cookistry/backend/config"
)

// Kind is the class of media being stored. It picks the key prefix and the
// accepted file extensions.
type Kind string

const (
	KindImage Kind = "images"
	KindVideo Kind = "videos"
)

var (
	ErrUnsupportedType = errors.New("unsupported media type")
	ErrTooLarge        = errors.New("media file is too large")
)

var allowedExtensions = map[Kind]map[string]string{
	KindImage: {".jpg": "image/jpeg", ".jpeg": "image/jpeg", ".png": "image/png", ".gif": "image/gif", ".webp": "image/webp"},
	KindVideo: {".mp4": "video/mp4", ".webm": "video/webm", ".mov": "video/quicktime"},
}

var maxBytes = map[Kind]int64{
	KindImage: 5 << 20,
	KindVideo: 100 << 20,
}

// Upload is one file received from a client.
type Upload struct {
	Filename string
	Size     int64
	Body     io.Reader
}

// PutObjectAPI is the slice of the S3 client the store needs.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type S3Store struct {
	client  PutObjectAPI
	bucket  string
	baseURL string
}

func NewS3Store(cfg *config.S3Config) *S3Store {
	return NewS3StoreWithClient(cfg.Client, cfg.BucketName, cfg.PublicBaseURL)
}

func NewS3StoreWithClient(client PutObjectAPI, bucket, baseURL string) *S3Store {
	return &S3Store{client: client, bucket: bucket, baseURL: strings.TrimSuffix(baseURL, "/")}
}

// Save uploads the file under a random key and returns its public URL.
func (s *S3Store) Save(ctx context.Context, kind Kind, up Upload) (string, error) {
	ext := strings.ToLower(filepath.Ext(up.Filename))
	contentType, ok := allowedExtensions[kind][ext]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, ext)
	}
	if up.Size > maxBytes[kind] {
		return "", ErrTooLarge
	}

	key := fmt.Sprintf("%s/%s%s", kind, uuid.NewString(), ext)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          up.Body,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(up.Size),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}
	return s.baseURL + "/" + key, nil
}
