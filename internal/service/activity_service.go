package service

import (
	"context"

	"go-gin-event-management/internal/model"
	"go-gin-event-management/internal/repository"
)

type ActivityService interface {
	// 寫入報名紀錄（Queue 持久化），重送同一筆不會重複寫入
	Record(ctx context.Context, activity *model.RegistrationActivity) error
}

type ActivityServiceImpl struct {
	repository repository.ActivityRepository
}

func NewActivityService(repository repository.ActivityRepository) ActivityService {
	return &ActivityServiceImpl{repository: repository}
}

func (s *ActivityServiceImpl) Record(ctx context.Context, activity *model.RegistrationActivity) error {
	return s.repository.Create(ctx, activity)
}
