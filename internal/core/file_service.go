package core

import (
	"context"
	"fmt"
	"math/rand/v2"
	"path"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"gwi.com/chart-bot/internal/dataset"
	"gwi.com/chart-bot/internal/storage"
)

const (
	FileTypeCSV  = "csv"
	FileTypeJSON = "json"
	FileTypePNG  = "png"
)

var contentTypes = map[string]string{
	FileTypeCSV:  "text/csv",
	FileTypeJSON: "application/json",
	FileTypePNG:  "image/png",
}

// UploadResult describes a stored file: parsed rows for data files, a
// public URL for images.
type UploadResult struct {
	Path       string           `json:"path"`
	FileType   string           `json:"fileType"`
	ParsedData *dataset.Dataset `json:"parsedData,omitempty"`
	ImageURL   string           `json:"imageUrl,omitempty"`
}

type FileService struct {
	files  storage.FileStore
	logger *zap.Logger
	now    func() time.Time
}

func NewFileService(files storage.FileStore, logger *zap.Logger) *FileService {
	return &FileService{files: files, logger: logger, now: time.Now}
}

// Upload validates and stores one file under the conversation's folder.
// Data files are parsed before they are stored, so malformed ones never land.
func (s *FileService) Upload(ctx context.Context, conversationID, name, contentType string, data []byte) (*UploadResult, error) {
	if strings.TrimSpace(conversationID) == "" {
		return nil, ErrConversationRequired
	}
	fileType := detectFileType(name, contentType)
	if fileType == "" {
		return nil, ErrUnsupportedFile
	}

	result := &UploadResult{
		Path:     s.objectPath(conversationID, fileType),
		FileType: fileType,
	}
	if fileType != FileTypePNG {
		ds, err := dataset.ParseFile("upload."+fileType, data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", name, err)
		}
		result.ParsedData = ds
	}

	if err := s.files.Upload(ctx, result.Path, contentTypes[fileType], data); err != nil {
		return nil, fmt.Errorf("failed to upload %s: %w", name, err)
	}
	if fileType == FileTypePNG {
		result.ImageURL = s.files.PublicURL(result.Path)
	}

	s.logger.Info("file uploaded",
		zap.String("conversationID", conversationID),
		zap.String("path", result.Path),
		zap.Int("bytes", len(data)))
	return result, nil
}

// Get downloads a stored file and parses it by extension.
func (s *FileService) Get(ctx context.Context, objectPath string) (*UploadResult, error) {
	fileType := detectFileType(objectPath, "")
	if fileType == "" {
		return nil, ErrUnsupportedFile
	}
	result := &UploadResult{Path: objectPath, FileType: fileType}
	if fileType == FileTypePNG {
		result.ImageURL = s.files.PublicURL(objectPath)
		return result, nil
	}

	data, err := s.files.Download(ctx, objectPath)
	if err != nil {
		return nil, err
	}
	ds, err := dataset.ParseFile(objectPath, data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", objectPath, err)
	}
	result.ParsedData = ds
	return result, nil
}

func (s *FileService) Delete(ctx context.Context, objectPath string) error {
	return s.files.Delete(ctx, objectPath)
}

func (s *FileService) objectPath(conversationID, ext string) string {
	random := strconv.FormatUint(rand.Uint64(), 36)
	return fmt.Sprintf("%s/%d-%s.%s", conversationID, s.now().UnixMilli(), random, ext)
}

// detectFileType accepts csv, json and png by content type or extension.
func detectFileType(name, contentType string) string {
	ct := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	for fileType, want := range contentTypes {
		if ct == want {
			return fileType
		}
	}
	switch ext := strings.ToLower(strings.TrimPrefix(path.Ext(name), ".")); ext {
	case FileTypeCSV, FileTypeJSON, FileTypePNG:
		return ext
	}
	return ""
}
