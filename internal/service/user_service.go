package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/mgsa-portal-api/internal/dto"
	"github.com/noah-isme/mgsa-portal-api/internal/models"
	"github.com/noah-isme/mgsa-portal-api/internal/policy"
	"github.com/noah-isme/mgsa-portal-api/internal/repository"
)

const (
	defaultUserPageSize = 25
	maxUserPageSize     = 100
)

// UserService lets administrators provision and manage accounts.
type UserService interface {
	List(ctx context.Context, principal policy.Principal, req dto.UserListRequest) (dto.UserListResponse, error)
	Create(ctx context.Context, principal policy.Principal, req dto.UserCreateRequest) (dto.UserResponse, error)
	UpdateRole(ctx context.Context, principal policy.Principal, id uint, req dto.UserRoleUpdateRequest) (dto.UserResponse, error)
}

type userService struct {
	repo      repository.UserRepository
	activity  ActivityRecorder
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewUserService constructs the account service.
func NewUserService(repo repository.UserRepository, activity ActivityRecorder, validate *validator.Validate, logger zerolog.Logger) UserService {
	return &userService{
		repo:      repo,
		activity:  activity,
		validator: validate,
		logger:    logger.With().Str("component", "user_service").Logger(),
	}
}

func (s *userService) List(ctx context.Context, principal policy.Principal, req dto.UserListRequest) (dto.UserListResponse, error) {
	if err := policy.Authorize(principal, policy.ActionManageUsers, policy.Target{}); err != nil {
		return dto.UserListResponse{}, ErrPermissionDenied
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = defaultUserPageSize
	}
	if pageSize > maxUserPageSize {
		pageSize = maxUserPageSize
	}
	page := req.Page
	if page <= 0 {
		page = 1
	}

	filter := repository.UserFilter{
		Search:     req.Search,
		Department: req.Department,
		Page:       page,
		PageSize:   pageSize,
	}
	if strings.TrimSpace(req.Role) != "" {
		filter.Role = models.ParseRole(req.Role)
		if !filter.Role.Valid() {
			return dto.UserListResponse{}, ErrInvalidRole
		}
	}

	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return dto.UserListResponse{}, err
	}

	items := make([]dto.UserResponse, 0, len(users))
	for _, user := range users {
		items = append(items, dto.NewUserResponse(user))
	}

	return dto.UserListResponse{
		Items:      items,
		Pagination: dto.NewPaginationMeta(page, pageSize, total),
	}, nil
}

func (s *userService) Create(ctx context.Context, principal policy.Principal, req dto.UserCreateRequest) (dto.UserResponse, error) {
	if err := policy.Authorize(principal, policy.ActionManageUsers, policy.Target{}); err != nil {
		return dto.UserResponse{}, ErrPermissionDenied
	}
	if err := s.validator.Struct(req); err != nil {
		return dto.UserResponse{}, err
	}

	role := models.ParseRole(req.Role)
	if !role.Valid() {
		return dto.UserResponse{}, ErrInvalidRole
	}

	user := models.User{
		FirstName:   strings.TrimSpace(req.FirstName),
		MiddleName:  strings.TrimSpace(req.MiddleName),
		LastName:    strings.TrimSpace(req.LastName),
		Email:       strings.ToLower(strings.TrimSpace(req.Email)),
		Role:        role,
		College:     strings.TrimSpace(req.College),
		Department:  strings.TrimSpace(req.Department),
		YearOfStudy: strings.TrimSpace(req.YearOfStudy),
		IsActive:    true,
	}
	if number := strings.TrimSpace(req.StudentNumber); number != "" {
		user.StudentNumber = &number
	}
	if role == models.RoleExecutive {
		user.ExecutiveTitle = strings.TrimSpace(req.ExecutiveTitle)
	}

	if err := s.repo.Create(ctx, &user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return dto.UserResponse{}, ErrAccountExists
		}
		s.logger.Error().Err(err).Msg("failed to create account")
		return dto.UserResponse{}, err
	}

	s.logger.Info().Uint("user_id", user.ID).Str("role", role.String()).Msg("account provisioned")
	s.record(ctx, principal, "user.created", user.ID, map[string]interface{}{"role": role.String(), "email": user.Email})

	return dto.NewUserResponse(user), nil
}

func (s *userService) UpdateRole(ctx context.Context, principal policy.Principal, id uint, req dto.UserRoleUpdateRequest) (dto.UserResponse, error) {
	if err := policy.Authorize(principal, policy.ActionManageUsers, policy.Target{}); err != nil {
		return dto.UserResponse{}, ErrPermissionDenied
	}
	if err := s.validator.Struct(req); err != nil {
		return dto.UserResponse{}, err
	}

	role := models.ParseRole(req.Role)
	if !role.Valid() {
		return dto.UserResponse{}, ErrInvalidRole
	}
	title := ""
	if role == models.RoleExecutive {
		title = strings.TrimSpace(req.ExecutiveTitle)
	}

	user, err := s.repo.UpdateRole(ctx, id, role, title)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.UserResponse{}, ErrUserNotFound
		}
		return dto.UserResponse{}, err
	}

	s.logger.Info().Uint("user_id", id).Str("role", role.String()).Msg("account role changed")
	s.record(ctx, principal, "user.role_changed", id, map[string]interface{}{"role": role.String()})

	return dto.NewUserResponse(user), nil
}

func (s *userService) record(ctx context.Context, principal policy.Principal, action string, userID uint, metadata map[string]interface{}) {
	if s.activity == nil {
		return
	}
	id := userID
	if _, err := s.activity.Record(ctx, ActivityEntry{
		ActorID:    principal.ID,
		ActorRole:  principal.Role.String(),
		Action:     action,
		EntityType: "user",
		EntityID:   &id,
		Metadata:   metadata,
	}); err != nil {
		s.logger.Warn().Err(err).Str("action", action).Msg("failed to record activity")
	}
}
