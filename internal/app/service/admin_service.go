package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/sifan077/MailPulse/internal/app/model"
	"github.com/sifan077/MailPulse/internal/app/repository"
	"go.uber.org/zap"
)

// WipeConfirmation must be supplied verbatim to clear the database.
const WipeConfirmation = "DELETE ALL"

// AdminService holds operator-only maintenance operations.
type AdminService interface {
	ClearDatabase(ctx context.Context, confirmation string, caller model.Caller) (repository.WipeResult, error)
}

type adminService struct {
	repo   repository.TrackingRepository
	logger *zap.Logger
}

// NewAdminService returns an AdminService.
func NewAdminService(repo repository.TrackingRepository, logger *zap.Logger) AdminService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &adminService{repo: repo, logger: logger}
}

func (s *adminService) ClearDatabase(ctx context.Context, confirmation string, caller model.Caller) (repository.WipeResult, error) {
	if !caller.IsAdmin {
		return repository.WipeResult{}, ErrAdminRequired
	}
	if strings.TrimSpace(confirmation) != WipeConfirmation {
		return repository.WipeResult{}, ErrInvalidConfirmation
	}

	res, err := s.repo.DeleteAll(ctx)
	if err != nil {
		return repository.WipeResult{}, fmt.Errorf("clear database: %w", err)
	}

	s.logger.Warn("tracking data cleared",
		zap.String("user_id", caller.UserID),
		zap.Int64("records", res.Records),
		zap.Int64("opens", res.Opens),
		zap.Int64("clicks", res.Clicks),
	)
	return res, nil
}
