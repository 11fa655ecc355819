package storage

import (
	"context"
	"fmt"
	"io"
)

type UploadResult struct {
	Key      string
	Location string
	ETag     string
}

// FileUploader - хранилище demo-архивов завершённых карт.
type FileUploader interface {
	Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error)
	Delete(ctx context.Context, key string) error
	GetPublicURL(key string) string
}

// DemoKey - каноничный ключ demo-файла карты в бакете.
func DemoKey(matchSlug string, mapNumber int) string {
	return fmt.Sprintf("demos/%s/map%d.dem", matchSlug, mapNumber)
}
