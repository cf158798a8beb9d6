package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go-gin-event-management/internal/auth"
	"go-gin-event-management/internal/cache"
	"go-gin-event-management/internal/model"
	"go-gin-event-management/internal/repository"
	apperrors "go-gin-event-management/pkg/app_errors"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const minPasswordLength = 6

// LoginResult 登入成功後回傳給 handler 設定 cookie
type LoginResult struct {
	User        *model.User `json:"user"`
	AccessToken string      `json:"access_token"`
	ExpiresAt   time.Time   `json:"expires_at"`
}

type UserService interface {
	Register(ctx context.Context, req model.RegisterUserRequest) (*model.User, error)
	Login(ctx context.Context, req model.LoginRequest) (*LoginResult, error)
	// 登出：註銷 token 直到原本的過期時間
	Logout(ctx context.Context, claims *auth.Claims) error
	// 驗證 access token 並載入使用者
	Authenticate(ctx context.Context, token string) (*model.User, *auth.Claims, error)
	UpdateProfile(ctx context.Context, user *model.User, params model.UpdateProfileParams) (*model.User, error)
	List(ctx context.Context) ([]*model.User, error)
	// 將使用者升級為 admin（CLI 使用）
	Promote(ctx context.Context, email string) (*model.User, error)
}

type UserServiceImpl struct {
	repository repository.UserRepository
	tokens     *auth.TokenManager
	hasher     *auth.PasswordHasher
	denylist   cache.TokenDenylist
	validate   *validator.Validate
	now        func() time.Time
}

func NewUserService(
	userRepository repository.UserRepository,
	tokens *auth.TokenManager,
	hasher *auth.PasswordHasher,
	denylist cache.TokenDenylist,
) UserService {
	return &UserServiceImpl{
		repository: userRepository,
		tokens:     tokens,
		hasher:     hasher,
		denylist:   denylist,
		validate:   validator.New(),
		now:        time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *UserServiceImpl) Register(ctx context.Context, req model.RegisterUserRequest) (*model.User, error) {
	firstName := strings.TrimSpace(req.FirstName)
	lastName := strings.TrimSpace(req.LastName)
	email := normalizeEmail(req.Email)

	if firstName == "" || lastName == "" || email == "" || req.Password == "" {
		return nil, apperrors.ErrMissingFields
	}
	if err := s.validate.Var(email, "email"); err != nil {
		return nil, apperrors.Validation("Invalid email format")
	}
	if len(req.Password) < minPasswordLength {
		return nil, apperrors.Validation(fmt.Sprintf("Password must be at least %d characters", minPasswordLength))
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	return s.repository.Create(ctx, &model.User{
		UserID:       uuid.New(),
		FirstName:    firstName,
		LastName:     lastName,
		Email:        email,
		PasswordHash: hash,
		Role:         model.RoleParticipant,
	})
}

func (s *UserServiceImpl) Login(ctx context.Context, req model.LoginRequest) (*LoginResult, error) {
	email := normalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return nil, apperrors.Validation("Email and password are required")
	}

	user, err := s.repository.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	if err := s.hasher.Compare(user.PasswordHash, req.Password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("compare password: %w", err)
	}

	token, claims, err := s.tokens.Generate(user.UserID.String())
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	return &LoginResult{
		User:        user,
		AccessToken: token,
		ExpiresAt:   claims.ExpiresAt.Time,
	}, nil
}

func (s *UserServiceImpl) Logout(ctx context.Context, claims *auth.Claims) error {
	if claims == nil {
		return apperrors.ErrUnauthorized
	}
	if err := s.denylist.Revoke(ctx, claims.ID, claims.TTL(s.now())); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func (s *UserServiceImpl) Authenticate(ctx context.Context, token string) (*model.User, *auth.Claims, error) {
	if strings.TrimSpace(token) == "" {
		return nil, nil, apperrors.ErrUnauthorized
	}

	claims, err := s.tokens.Validate(token)
	if err != nil {
		return nil, nil, apperrors.ErrInvalidToken
	}

	revoked, err := s.denylist.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("check token revocation: %w", err)
	}
	if revoked {
		return nil, nil, apperrors.ErrInvalidToken
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, nil, apperrors.ErrInvalidToken
	}

	user, err := s.repository.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return nil, nil, apperrors.ErrInvalidToken
		}
		return nil, nil, err
	}
	return user, claims, nil
}

func (s *UserServiceImpl) UpdateProfile(ctx context.Context, user *model.User, params model.UpdateProfileParams) (*model.User, error) {
	if user == nil {
		return nil, apperrors.ErrUnauthorized
	}

	firstName := trimmedOrNil(params.FirstName)
	lastName := trimmedOrNil(params.LastName)
	if firstName == nil && lastName == nil {
		return nil, apperrors.Validation("At least one field (first_name or last_name) is required")
	}

	return s.repository.Update(ctx, user.ID, repository.UpdateUserParams{
		FirstName: firstName,
		LastName:  lastName,
	})
}

func (s *UserServiceImpl) List(ctx context.Context) ([]*model.User, error) {
	return s.repository.List(ctx)
}

func (s *UserServiceImpl) Promote(ctx context.Context, email string) (*model.User, error) {
	user, err := s.repository.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if user.IsAdmin() {
		return user, nil
	}

	role := model.RoleAdmin
	return s.repository.Update(ctx, user.ID, repository.UpdateUserParams{Role: &role})
}
