package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/templui/codekeeper/internal/crypto"
	"github.com/templui/codekeeper/internal/model"
	"github.com/templui/codekeeper/internal/repository"
)

var (
	ErrVisionKeyMissing  = errors.New("no vision API key saved")
	ErrVisionKeyRejected = errors.New("the vision service rejected this API key")
)

// VisionClient is what the app needs from a vision model client.
type VisionClient interface {
	Verify(ctx context.Context, goal, proofDataURI string) bool
	Ping(ctx context.Context) error
}

// VisionFactory builds a client for one API key.
type VisionFactory func(ctx context.Context, apiKey string) (VisionClient, error)

// VisionKeyService stores per-user vision API keys, sealed, after one ping call.
type VisionKeyService struct {
	repo    repository.VisionKeyRepository
	sealer  *crypto.Sealer
	factory VisionFactory
}

func NewVisionKeyService(repo repository.VisionKeyRepository, sealer *crypto.Sealer, factory VisionFactory) *VisionKeyService {
	return &VisionKeyService{
		repo:    repo,
		sealer:  sealer,
		factory: factory,
	}
}

func (s *VisionKeyService) Save(ctx context.Context, userID, apiKey string) error {
	apiKey = strings.TrimSpace(apiKey)

	client, err := s.factory(ctx, apiKey)
	if err != nil {
		return fmt.Errorf("failed to create vision client: %w", err)
	}

	err = client.Ping(ctx)
	if err != nil {
		slog.Warn("vision key check failed", "error", err, "user_id", userID)
		return ErrVisionKeyRejected
	}

	sealed, err := s.sealer.Seal(apiKey)
	if err != nil {
		return fmt.Errorf("failed to seal vision key: %w", err)
	}

	now := time.Now()
	err = s.repo.Save(ctx, &model.VisionKey{
		UserID:     userID,
		SealedKey:  sealed,
		Hint:       keyHint(apiKey),
		VerifiedAt: now,
		CreatedAt:  now,
	})
	if err != nil {
		return fmt.Errorf("failed to save vision key: %w", err)
	}

	slog.Info("vision key saved", "user_id", userID)
	return nil
}

// Status returns the saved key metadata, or nil when the user has none.
func (s *VisionKeyService) Status(ctx context.Context, userID string) (*model.VisionKey, error) {
	key, err := s.repo.ByUserID(ctx, userID)
	if errors.Is(err, repository.ErrVisionKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	key.SealedKey = ""
	return key, nil
}

func (s *VisionKeyService) HasKey(ctx context.Context, userID string) (bool, error) {
	key, err := s.Status(ctx, userID)
	if err != nil {
		return false, err
	}
	return key != nil, nil
}

func (s *VisionKeyService) Remove(ctx context.Context, userID string) error {
	err := s.repo.Delete(ctx, userID)
	if err != nil && !errors.Is(err, repository.ErrVisionKeyNotFound) {
		return fmt.Errorf("failed to remove vision key: %w", err)
	}

	slog.Info("vision key removed", "user_id", userID)
	return nil
}

// Client opens the user's key and builds a client for it.
func (s *VisionKeyService) Client(ctx context.Context, userID string) (VisionClient, error) {
	key, err := s.repo.ByUserID(ctx, userID)
	if errors.Is(err, repository.ErrVisionKeyNotFound) {
		return nil, ErrVisionKeyMissing
	}
	if err != nil {
		return nil, err
	}

	apiKey, err := s.sealer.Open(key.SealedKey)
	if err != nil {
		return nil, fmt.Errorf("failed to open vision key: %w", err)
	}

	return s.factory(ctx, apiKey)
}

func keyHint(apiKey string) string {
	if len(apiKey) <= 4 {
		return apiKey
	}
	return apiKey[len(apiKey)-4:]
}
