package kv

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/kuitang/agent-dashboard/internal/s3client"
)

const s3Suffix = ".json"

// S3 stores each key as the object <root>/<key>.json.
type S3 struct {
	client *s3client.Client
	root   string
}

// NewS3 stores objects under root inside the client's bucket.
func NewS3(client *s3client.Client, root string) *S3 {
	return &S3{client: client, root: strings.Trim(root, "/")}
}

func (s *S3) objectKey(key string) string {
	if s.root == "" {
		return key + s3Suffix
	}
	return s.root + "/" + key + s3Suffix
}

func (s *S3) storeKey(objectKey string) (string, bool) {
	k := objectKey
	if s.root != "" {
		if !strings.HasPrefix(k, s.root+"/") {
			return "", false
		}
		k = strings.TrimPrefix(k, s.root+"/")
	}
	if !strings.HasSuffix(k, s3Suffix) {
		return "", false
	}
	return strings.TrimSuffix(k, s3Suffix), true
}

func (s *S3) Read(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := s.client.GetObject(ctx, s.objectKey(key))
	if errors.Is(err, s3client.ErrObjectNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (s *S3) Write(ctx context.Context, key string, value []byte) error {
	return s.client.PutObject(ctx, s.objectKey(key), value, "application/json")
}

func (s *S3) Remove(ctx context.Context, key string) error {
	return s.client.DeleteObject(ctx, s.objectKey(key))
}

func (s *S3) Keys(ctx context.Context, prefix string) ([]string, error) {
	listPrefix := prefix
	if s.root != "" {
		listPrefix = s.root + "/" + prefix
	}
	objects, err := s.client.ListKeys(ctx, listPrefix)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(objects))
	for _, obj := range objects {
		if k, ok := s.storeKey(obj); ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}
