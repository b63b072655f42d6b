package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/templui/codekeeper/internal/imagecodec"
	"github.com/templui/codekeeper/internal/model"
	"github.com/templui/codekeeper/internal/repository"
	"github.com/templui/codekeeper/internal/storage"
)

// FileService archives proof photos in object storage with a files row per photo.
type FileService struct {
	fileRepo repository.FileRepository
	storage  storage.Storage
}

func NewFileService(fileRepo repository.FileRepository, storage storage.Storage) *FileService {
	return &FileService{
		fileRepo: fileRepo,
		storage:  storage,
	}
}

// SaveProof stores a proof photo given as a data URI and records the verdict it got.
func (s *FileService) SaveProof(ctx context.Context, goal *model.Goal, proofDataURI string, verified bool) (*model.File, error) {
	mimeType, data, err := imagecodec.Bytes(proofDataURI)
	if err != nil {
		return nil, fmt.Errorf("failed to decode proof: %w", err)
	}

	filename := uuid.New().String() + extensionFor(mimeType)
	storagePath := path.Join("private", "proofs", goal.UserID, filename)

	err = s.storage.Save(ctx, storagePath, bytes.NewReader(data), mimeType)
	if err != nil {
		return nil, fmt.Errorf("failed to save file: %w", err)
	}

	file := &model.File{
		ID:           uuid.New().String(),
		UserID:       goal.UserID,
		OwnerType:    model.OwnerTypeGoal,
		OwnerID:      goal.ID,
		Type:         model.FileTypeProof,
		Filename:     filename,
		OriginalName: filename,
		MimeType:     mimeType,
		Size:         int64(len(data)),
		StoragePath:  storagePath,
		Verified:     verified,
		CreatedAt:    time.Now(),
	}

	err = s.fileRepo.Create(ctx, file)
	if err != nil {
		delErr := s.storage.Delete(ctx, storagePath)
		if delErr != nil {
			slog.Error("failed to delete file from storage during cleanup", "error", delErr, "path", storagePath)
		}
		return nil, fmt.Errorf("failed to create file record: %w", err)
	}

	return file, nil
}

func (s *FileService) ProofFiles(ctx context.Context, goalID string) ([]*model.File, error) {
	files, err := s.fileRepo.Files(ctx, model.OwnerTypeGoal, goalID)
	if err != nil {
		return nil, fmt.Errorf("failed to list proofs: %w", err)
	}
	return files, nil
}

// Download is either a presigned URL or an open body, never both.
type Download struct {
	File *model.File
	URL  string
	Body io.ReadCloser
}

// Locate finds a file the user owns. Backends that can presign hand back a URL.
func (s *FileService) Locate(ctx context.Context, userID, fileID string) (*Download, error) {
	file, err := s.fileRepo.ByID(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if file.UserID != userID {
		return nil, repository.ErrFileNotFound
	}

	presigner, ok := s.storage.(storage.Presigner)
	if ok {
		url, err := presigner.PresignedURL(ctx, file.StoragePath)
		if err == nil {
			return &Download{File: file, URL: url}, nil
		}
		slog.Warn("failed to presign file, streaming instead", "error", err, "file_id", file.ID)
	}

	body, err := s.storage.Open(ctx, file.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return &Download{File: file, Body: body}, nil
}

// Delete removes a file from storage and database.
func (s *FileService) Delete(ctx context.Context, userID, fileID string) error {
	file, err := s.fileRepo.ByID(ctx, fileID)
	if err != nil {
		return fmt.Errorf("failed to get file: %w", err)
	}
	if file.UserID != userID {
		return repository.ErrFileNotFound
	}

	// Best effort; the row goes either way.
	delErr := s.storage.Delete(ctx, file.StoragePath)
	if delErr != nil {
		slog.Error("failed to delete file from storage", "error", delErr, "path", file.StoragePath)
	}

	err = s.fileRepo.Delete(ctx, fileID)
	if err != nil {
		return fmt.Errorf("failed to delete file record: %w", err)
	}

	return nil
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	}
	exts, err := mime.ExtensionsByType(mimeType)
	if err != nil || len(exts) == 0 {
		return ".bin"
	}
	return exts[0]
}
