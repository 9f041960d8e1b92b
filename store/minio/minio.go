package minio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/sirupsen/logrus"

	"git.wyat.me/object-store/object"
	"git.wyat.me/object-store/store"
)

// Config locates the bucket backing a MinioStore.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type MinioStore struct {
	client *minio.Client
	bucket string
	format object.Format
	log    logrus.FieldLogger
}

func New(cfg Config, opts ...store.Option) (*MinioStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	ctx := context.Background()
	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("%w: check bucket: %w", object.ErrIO, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("%w: create bucket: %w", object.ErrIO, err)
		}
	}

	o := store.Apply(opts...)
	return &MinioStore{client: client, bucket: cfg.Bucket, format: o.Format, log: o.Log}, nil
}

func (s *MinioStore) Format() object.Format { return s.format }

// objectName mirrors the loose layout: objects/<2 hex>/<rest>.
func objectName(sha string) string {
	return path.Join("objects", sha[:2], sha[2:])
}

func (s *MinioStore) Put(obj *object.Object) (string, error) {
	compressed, sha, err := s.format.Serialize(obj)
	if err != nil {
		return "", fmt.Errorf("serialize: %w", err)
	}

	exists, err := s.Exists(sha)
	if err != nil {
		return "", err
	}
	if exists {
		return sha, nil
	}

	_, err = s.client.PutObject(
		context.Background(),
		s.bucket,
		objectName(sha),
		bytes.NewReader(compressed),
		int64(len(compressed)),
		minio.PutObjectOptions{ContentType: "application/octet-stream"},
	)
	if err != nil {
		return "", fmt.Errorf("%w: put object: %w", object.ErrIO, err)
	}

	s.log.WithFields(logrus.Fields{"sha": sha, "type": obj.Type, "bucket": s.bucket}).Debug("object stored")
	return sha, nil
}

func (s *MinioStore) Get(sha string) (*object.Object, error) {
	if err := s.format.Hash.Validate(sha); err != nil {
		return nil, err
	}

	obj, err := s.client.GetObject(
		context.Background(),
		s.bucket,
		objectName(sha),
		minio.GetObjectOptions{},
	)
	if err != nil {
		return nil, s.translate(sha, "get object", err)
	}
	defer obj.Close()

	compressed, err := io.ReadAll(obj)
	if err != nil {
		return nil, s.translate(sha, "read object", err)
	}

	return store.Decode(s.format, sha, compressed)
}

func (s *MinioStore) Exists(sha string) (bool, error) {
	if err := s.format.Hash.Validate(sha); err != nil {
		return false, err
	}

	_, err := s.client.StatObject(
		context.Background(),
		s.bucket,
		objectName(sha),
		minio.StatObjectOptions{},
	)
	if err != nil {
		errResp := minio.ToErrorResponse(err)
		if errResp.Code == "NoSuchKey" {
			return false, nil
		}
		return false, fmt.Errorf("%w: stat object: %w", object.ErrIO, err)
	}
	return true, nil
}

func (s *MinioStore) translate(sha, op string, err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return fmt.Errorf("%w: %s", object.ErrNotFound, sha)
	}
	return fmt.Errorf("%w: %s %s: %w", object.ErrIO, op, sha, err)
}

// Flush removes all objects from the bucket. Used after benchmarks to avoid
// leaving test data in the bucket.
func (s *MinioStore) Flush() error {
	ctx := context.Background()

	objectsCh := make(chan minio.ObjectInfo)
	go func() {
		defer close(objectsCh)
		for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Recursive: true}) {
			if obj.Err != nil {
				return
			}
			objectsCh <- obj
		}
	}()

	for result := range s.client.RemoveObjects(ctx, s.bucket, objectsCh, minio.RemoveObjectsOptions{}) {
		if result.Err != nil {
			return fmt.Errorf("remove object %s: %w", result.ObjectName, result.Err)
		}
	}

	return nil
}

// Close is a no-op; the minio client holds no resources that need release.
func (s *MinioStore) Close() error { return nil }
