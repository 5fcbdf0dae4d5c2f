package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/neurobridge/scheduling-api/internal/models"
	"github.com/neurobridge/scheduling-api/internal/repository"
	appErrors "github.com/neurobridge/scheduling-api/pkg/errors"
)

type blockStore interface {
	Exists(ctx context.Context, educatorID, familyID string) (bool, error)
	Create(ctx context.Context, block *models.BlockRelationship) error
	Delete(ctx context.Context, id string) error
	ListByEducator(ctx context.Context, educatorID string) ([]models.BlockRelationship, error)
}

// CreateBlockRequest establishes a block between an educator and a family.
type CreateBlockRequest struct {
	EducatorID string `json:"educator_id" validate:"required"`
	FamilyID   string `json:"family_id" validate:"required"`
	Reason     string `json:"reason"`
}

// BlockService manages educator-family block relationships. A block is a
// moderation tool: existing appointments are untouched, only new proposals
// between the pair are rejected.
type BlockService struct {
	blocks    blockStore
	audit     auditRecorder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewBlockService creates a service instance.
func NewBlockService(blocks blockStore, audit auditRecorder, validate *validator.Validate, logger *zap.Logger) *BlockService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BlockService{blocks: blocks, audit: audit, validator: validate, logger: logger}
}

// Create establishes a block. Creating an already existing block is a
// conflict, not a silent success, so moderation tooling notices double entry.
func (s *BlockService) Create(ctx context.Context, actor string, req CreateBlockRequest) (*models.BlockRelationship, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid block payload")
	}

	block := &models.BlockRelationship{
		EducatorID: req.EducatorID,
		FamilyID:   req.FamilyID,
		Reason:     req.Reason,
	}
	if err := s.blocks.Create(ctx, block); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "this pair is already blocked")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create block")
	}

	if s.audit != nil {
		s.audit.Record(actor, models.AuditActionBlockCreate, "block", block.ID, req.Reason)
	}
	return block, nil
}

// Remove lifts a block by id.
func (s *BlockService) Remove(ctx context.Context, id, actor string) error {
	if err := s.blocks.Delete(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "block not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove block")
	}
	if s.audit != nil {
		s.audit.Record(actor, models.AuditActionBlockRemove, "block", id, "")
	}
	return nil
}

// ListByEducator returns the educator's blocks for moderation review.
func (s *BlockService) ListByEducator(ctx context.Context, educatorID string) ([]models.BlockRelationship, error) {
	if educatorID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "educatorId is required")
	}
	blocks, err := s.blocks.ListByEducator(ctx, educatorID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list blocks")
	}
	return blocks, nil
}
