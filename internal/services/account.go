package services

import (
	"context"
	"errors"
	"strings"

	"cinesocial/internal/models"
	"cinesocial/internal/utils"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var ErrDuplicateUser = errors.New("duplicate user")

var (
	ErrUserTaken          = newError(KindValidation, "Auth.UserTaken", "username or email is already registered")
	ErrInvalidSignup      = newError(KindValidation, "Auth.InvalidInput", "username must be 3-32 characters, email valid, password at least 8 characters")
	ErrInvalidCredentials = newError(KindUnauthorized, "Auth.InvalidCredentials", "invalid username or password")
)

type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	FindUserByLogin(ctx context.Context, login string) (*models.User, error)
	FindUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type signupInput struct {
	Username string `validate:"required,min=3,max=32,alphanum"`
	Email    string `validate:"required,email,max=255"`
	Password string `validate:"required,min=8,max=72"`
}

// AccountService 最小化的身份提供方：注册、登录
type AccountService struct {
	users    UserStore
	validate *validator.Validate
}

func NewAccountService(users UserStore) *AccountService {
	return &AccountService{users: users, validate: validator.New()}
}

func (s *AccountService) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	in := signupInput{
		Username: strings.TrimSpace(username),
		Email:    strings.ToLower(strings.TrimSpace(email)),
		Password: password,
	}
	if err := s.validate.Struct(in); err != nil {
		return nil, ErrInvalidSignup
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, storageError(err)
	}
	u := &models.User{
		ID:       uuid.New(),
		Username: in.Username,
		Email:    in.Email,
		Password: hash,
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, ErrDuplicateUser) {
			return nil, ErrUserTaken
		}
		return nil, storageError(err)
	}
	return u, nil
}

// Authenticate 用户名或邮箱 + 密码登录
func (s *AccountService) Authenticate(ctx context.Context, login, password string) (*models.User, error) {
	u, err := s.users.FindUserByLogin(ctx, strings.TrimSpace(login))
	if errors.Is(err, ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, storageError(err)
	}
	if !utils.CheckPasswordHash(password, u.Password) {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

func (s *AccountService) User(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, err := s.users.FindUserByID(ctx, id)
	if errors.Is(err, ErrRecordNotFound) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, storageError(err)
	}
	return u, nil
}
