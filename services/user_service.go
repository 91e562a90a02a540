package services

import (
	"context"
	"log/slog"
	"strings"

	"foodgram-api/apperrors"
	"foodgram-api/models"
	"foodgram-api/repositories"
)

type UserService interface {
	GetUser(ctx context.Context, id, viewerID uint) (*models.UserResponse, error)
	ListUsers(ctx context.Context, params models.PageParams, viewerID uint) (*models.Page[models.UserResponse], error)
	// GetRole backs the admin check on tag creation.
	GetRole(ctx context.Context, id uint) (models.UserRole, error)
	SetAvatar(ctx context.Context, userID uint, payload string) (*models.AvatarResponse, error)
	RemoveAvatar(ctx context.Context, userID uint) error
}

type userService struct {
	userRepo      repositories.UserRepository
	subscriptions repositories.RelationRepository[models.Subscription]
	avatars       AvatarStore
	log           *slog.Logger
}

func NewUserService(userRepo repositories.UserRepository, subscriptions repositories.RelationRepository[models.Subscription], avatars AvatarStore, log *slog.Logger) UserService {
	return &userService{userRepo: userRepo, subscriptions: subscriptions, avatars: avatars, log: log}
}

func (s *userService) GetUser(ctx context.Context, id, viewerID uint) (*models.UserResponse, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	subscribed, err := s.subscriptions.Marked(ctx, viewerID, []uint{id})
	if err != nil {
		return nil, err
	}
	resp := models.NewUserResponse(user, subscribed[id])
	return &resp, nil
}

func (s *userService) ListUsers(ctx context.Context, params models.PageParams, viewerID uint) (*models.Page[models.UserResponse], error) {
	limit, offset := NormalizePage(params.Limit, params.Offset)
	users, total, err := s.userRepo.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}

	ids := make([]uint, len(users))
	for i := range users {
		ids[i] = users[i].ID
	}
	subscribed, err := s.subscriptions.Marked(ctx, viewerID, ids)
	if err != nil {
		return nil, err
	}

	results := make([]models.UserResponse, len(users))
	for i := range users {
		results[i] = models.NewUserResponse(&users[i], subscribed[users[i].ID])
	}
	return &models.Page[models.UserResponse]{Count: total, Results: results}, nil
}

func (s *userService) GetRole(ctx context.Context, id uint) (models.UserRole, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	return user.Role, nil
}

// SetAvatar stores a new avatar and removes the previous file once the user row points at the new one.
func (s *userService) SetAvatar(ctx context.Context, userID uint, payload string) (*models.AvatarResponse, error) {
	if strings.TrimSpace(payload) == "" {
		return nil, apperrors.Validation("avatar", "avatar is required")
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	img, err := s.avatars.Decode(payload)
	if err != nil {
		var appErr *apperrors.Error
		if apperrors.As(err, &appErr) && appErr.Code == apperrors.CodeValidation {
			return nil, apperrors.Validation("avatar", appErr.Message)
		}
		return nil, err
	}
	ref, err := s.avatars.SaveAvatar(img)
	if err != nil {
		return nil, err
	}

	if err := s.userRepo.UpdateAvatar(ctx, userID, ref); err != nil {
		s.discardAvatar(ref)
		return nil, err
	}
	s.discardAvatar(user.Avatar)

	s.log.Info("avatar updated", "user_id", userID)
	return &models.AvatarResponse{Avatar: ref}, nil
}

// RemoveAvatar clears the avatar. A user without one is left as is.
func (s *userService) RemoveAvatar(ctx context.Context, userID uint) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.Avatar == "" {
		return nil
	}

	if err := s.userRepo.UpdateAvatar(ctx, userID, ""); err != nil {
		return err
	}
	s.discardAvatar(user.Avatar)

	s.log.Info("avatar removed", "user_id", userID)
	return nil
}

func (s *userService) discardAvatar(ref string) {
	if ref == "" {
		return
	}
	if err := s.avatars.Remove(ref); err != nil {
		s.log.Warn("failed to remove avatar", "avatar", ref, "error", err)
	}
}
