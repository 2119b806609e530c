package filestore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"familybank/internal/config"
)

// PublicPrefix is where locally stored files are served from.
const PublicPrefix = "/uploads/"

var ErrInvalidName = errors.New("invalid file name")

// Store saves uploaded pictures and returns the path clients use to fetch them.
type Store interface {
	Save(ctx context.Context, folder, filename string, r io.Reader) (string, error)
}

func New(cfg config.Config) Store {
	if cfg.S3.Enabled() {
		return NewS3Store(newS3Client(cfg.S3), cfg.S3)
	}
	return NewLocalStore(cfg.UploadDir)
}

// objectName keeps the base name of the upload and makes it unique.
func objectName(folder, filename string) (string, error) {
	base := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		return "", ErrInvalidName
	}
	folder = strings.Trim(path.Clean("/"+folder), "/")
	if folder == "" {
		return "", ErrInvalidName
	}
	return folder + "/" + uuid.NewString() + "_" + base, nil
}

type LocalStore struct {
	root string
}

func NewLocalStore(root string) *LocalStore {
	return &LocalStore{root: root}
}

func (s *LocalStore) Root() string {
	return s.root
}

func (s *LocalStore) Save(ctx context.Context, folder, filename string, r io.Reader) (string, error) {
	key, err := objectName(folder, filename)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	target := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	f, err := os.Create(target)
	if err != nil {
		return "", fmt.Errorf("create upload: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(target)
		return "", fmt.Errorf("write upload: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close upload: %w", err)
	}
	return PublicPrefix + key, nil
}

// s3API is the part of the S3 client the store uses.
type s3API interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type S3Store struct {
	client s3API
	cfg    config.S3Config
}

func NewS3Store(client s3API, cfg config.S3Config) *S3Store {
	return &S3Store{client: client, cfg: cfg}
}

func newS3Client(cfg config.S3Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

func (s *S3Store) Save(ctx context.Context, folder, filename string, r io.Reader) (string, error) {
	key, err := objectName(folder, filename)
	if err != nil {
		return "", err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if _, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.cfg.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	}); err != nil {
		return "", fmt.Errorf("upload to s3: %w", err)
	}
	return s.url(key), nil
}

func (s *S3Store) url(key string) string {
	if s.cfg.Endpoint != "" {
		return strings.TrimRight(s.cfg.Endpoint, "/") + "/" + s.cfg.Bucket + "/" + key
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.cfg.Bucket, s.cfg.Region, key)
}
