package service

import (
	"context"
	"log/slog"

	"github.com/templui/codekeeper/internal/config"
	"github.com/templui/codekeeper/internal/model"
)

// VerificationService picks the vision credentials for a goal's owner, asks
// the model for a verdict and archives the proof photo with it.
type VerificationService struct {
	mode       string
	deployment VisionClient
	keys       *VisionKeyService
	files      *FileService
}

// NewVerificationService takes the deployment client for "deployment" mode and
// the key service for "user" mode. Either may be nil when its mode is unused.
func NewVerificationService(mode string, deployment VisionClient, keys *VisionKeyService, files *FileService) *VerificationService {
	return &VerificationService{
		mode:       mode,
		deployment: deployment,
		keys:       keys,
		files:      files,
	}
}

// RequiresUserKey reports whether users must save their own key first.
func (s *VerificationService) RequiresUserKey() bool {
	return s.mode == config.VisionCredentialsUser
}

// Verify returns the model's verdict on proof. Every failure is a false verdict.
func (s *VerificationService) Verify(ctx context.Context, goal *model.Goal, proof string) bool {
	client := s.client(ctx, goal.UserID)
	if client == nil {
		return false
	}

	verified := client.Verify(ctx, goal.Description, proof)

	if s.files != nil {
		_, err := s.files.SaveProof(ctx, goal, proof, verified)
		if err != nil {
			slog.Error("failed to archive proof photo", "error", err, "user_id", goal.UserID, "goal_id", goal.ID)
		}
	}

	return verified
}

func (s *VerificationService) client(ctx context.Context, userID string) VisionClient {
	if !s.RequiresUserKey() {
		if s.deployment == nil {
			slog.Error("vision client not configured (missing GEMINI_API_KEY)")
		}
		return s.deployment
	}

	if s.keys == nil {
		slog.Error("vision key service not configured")
		return nil
	}

	client, err := s.keys.Client(ctx, userID)
	if err != nil {
		slog.Warn("failed to load user vision key", "error", err, "user_id", userID)
		return nil
	}
	return client
}
