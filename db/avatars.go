package db

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	storage_go "github.com/supabase-community/storage-go"
)

// AvatarStore keeps profile pictures in a public storage bucket.
type AvatarStore struct {
	storage *storage_go.Client
	bucket  string
}

func NewAvatarStore(storage *storage_go.Client, bucket string) *AvatarStore {
	return &AvatarStore{storage: storage, bucket: bucket}
}

func (s *AvatarStore) Upload(ctx context.Context, path, contentType string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	upsert := true
	_, err := s.storage.UploadFile(s.bucket, path, bytes.NewReader(data), storage_go.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	})
	if err != nil {
		return fmt.Errorf("failed to upload avatar to Supabase: %w", err)
	}
	return nil
}

func (s *AvatarStore) PublicURL(path string) string {
	return s.storage.GetPublicUrl(s.bucket, path).SignedURL
}

// PathOf returns the object path behind a public URL of this bucket.
func (s *AvatarStore) PathOf(publicURL string) (string, bool) {
	path, ok := strings.CutPrefix(publicURL, s.PublicURL(""))
	if !ok || path == "" {
		return "", false
	}
	return path, true
}

func (s *AvatarStore) Remove(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.storage.RemoveFile(s.bucket, []string{path}); err != nil {
		return fmt.Errorf("remove avatar %s: %w", path, err)
	}
	return nil
}
