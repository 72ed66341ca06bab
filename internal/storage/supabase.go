package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"gwi.com/chart-bot/internal/supabase"
)

// SupabaseStorage keeps objects in one Supabase Storage bucket.
type SupabaseStorage struct {
	client  *resty.Client
	baseURL string
	bucket  string
}

func NewSupabaseStorage(url, serviceKey, bucket string, timeout time.Duration) *SupabaseStorage {
	return &SupabaseStorage{
		client:  supabase.NewClient(url, "/storage/v1", serviceKey, timeout),
		baseURL: strings.TrimRight(url, "/"),
		bucket:  bucket,
	}
}

func (s *SupabaseStorage) objectURL(objectPath string) string {
	return "/object/" + s.bucket + "/" + objectPath
}

func (s *SupabaseStorage) Upload(ctx context.Context, objectPath, contentType string, data []byte) error {
	p, err := CleanPath(objectPath)
	if err != nil {
		return err
	}
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", contentType).
		SetHeader("cache-control", "3600").
		SetHeader("x-upsert", "false").
		SetBody(data).
		Post(s.objectURL(p))
	return supabase.CheckResponse(resp, err, "upload "+p)
}

func (s *SupabaseStorage) Download(ctx context.Context, objectPath string) ([]byte, error) {
	p, err := CleanPath(objectPath)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.R().SetContext(ctx).Get(s.objectURL(p))
	if err := supabase.CheckResponse(resp, err, "download "+p); err != nil {
		if supabase.IsNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, p)
		}
		return nil, err
	}
	return resp.Body(), nil
}

func (s *SupabaseStorage) Delete(ctx context.Context, objectPath string) error {
	p, err := CleanPath(objectPath)
	if err != nil {
		return err
	}
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(map[string][]string{"prefixes": {p}}).
		Delete("/object/" + s.bucket)
	return supabase.CheckResponse(resp, err, "delete "+p)
}

func (s *SupabaseStorage) PublicURL(objectPath string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.baseURL, s.bucket, strings.TrimPrefix(objectPath, "/"))
}
