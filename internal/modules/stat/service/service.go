package service

import (
	"context"

	"anoa.com/labeebacademy/internal/entity"
	"anoa.com/labeebacademy/internal/modules/user/repository"
	videoRepo "anoa.com/labeebacademy/internal/modules/video/repository"
)

type Summary struct {
	Students int64 `json:"students"`
	Admins   int64 `json:"admins"`
	Videos   int64 `json:"videos"`
}

type StatService interface {
	GetSummary(ctx context.Context) (*Summary, error)
}

type statService struct {
	userRepo  repository.UserRepository
	videoRepo videoRepo.VideoRepository
}

func NewStatService(userRepo repository.UserRepository, videoRepo videoRepo.VideoRepository) StatService {
	return &statService{
		userRepo:  userRepo,
		videoRepo: videoRepo,
	}
}

// GetSummary feeds the admin dashboard counters.
func (s *statService) GetSummary(ctx context.Context) (*Summary, error) {
	students, err := s.userRepo.CountByRole(ctx, entity.RoleStudent)
	if err != nil {
		return nil, err
	}
	admins, err := s.userRepo.CountByRole(ctx, entity.RoleAdmin)
	if err != nil {
		return nil, err
	}
	videos, err := s.videoRepo.Count(ctx)
	if err != nil {
		return nil, err
	}

	return &Summary{Students: students, Admins: admins, Videos: videos}, nil
}
