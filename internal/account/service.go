// Package account 平台参与方身份：注册、认证、发令牌。
// 鉴权层只负责供出可信的 actor id / roles，核心账本无条件信任它（见 server 拦截器）。
package account

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/FreightLink/FreightLink/internal/common/apperrors"
	"github.com/FreightLink/FreightLink/internal/common/auth"
	"github.com/FreightLink/FreightLink/internal/common/config"
	"github.com/FreightLink/FreightLink/internal/wallet"
)

// Service 参与方用例。注册成功即开钱包（余额 0）。
type Service struct {
	repo    *Repo
	wallets *wallet.Ledger
	authCfg config.AuthConfig
}

func NewService(repo *Repo, wallets *wallet.Ledger, authCfg config.AuthConfig) *Service {
	return &Service{repo: repo, wallets: wallets, authCfg: authCfg}
}

// RegisterInput 注册入参。
type RegisterInput struct {
	Username    string
	Password    string
	DisplayName string
	Phone       string
	Email       string
	Roles       []string
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (*Participant, error) {
	const op = "account.Register"
	username := strings.TrimSpace(in.Username)
	if username == "" {
		return nil, apperrors.Validationf(op, "username is required")
	}
	if in.Password == "" {
		return nil, apperrors.Validationf(op, "password is required")
	}
	for _, r := range in.Roles {
		switch strings.TrimSpace(r) {
		case RoleCustomer, RoleOwner, RoleDriver, RoleAdmin:
		default:
			return nil, apperrors.Validationf(op, "unknown role: %q", r)
		}
	}

	if existing, err := s.repo.FindByUsername(ctx, username); err == nil && existing != nil {
		return nil, apperrors.Conflict(op, "participant", username, "username already taken")
	} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Storage(op, err)
	}

	salt, err := GenerateSaltHex()
	if err != nil {
		return nil, apperrors.Storage(op, err)
	}
	hash, err := HashPassword(in.Password, salt)
	if err != nil {
		return nil, apperrors.Validationf(op, "invalid password: %v", err)
	}

	p := &Participant{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: hash,
		PasswordSalt: salt,
		DisplayName:  strings.TrimSpace(in.DisplayName),
		Phone:        strings.TrimSpace(in.Phone),
		Email:        strings.TrimSpace(in.Email),
		Roles:        RolesJoin(in.Roles),
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, apperrors.Storage(op, err)
	}

	if s.wallets != nil {
		if _, err := s.wallets.OpenAccount(ctx, p.ID); err != nil && !apperrors.IsConflict(err) {
			return nil, err
		}
	}
	return p, nil
}

// Authenticate 校验口令并签发 access token。
func (s *Service) Authenticate(ctx context.Context, username, password string) (token string, expiresAt time.Time, err error) {
	const op = "account.Authenticate"
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return "", time.Time{}, apperrors.Validationf(op, "username and password are required")
	}
	p, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", time.Time{}, apperrors.NotFound(op, "participant", username)
		}
		return "", time.Time{}, apperrors.Storage(op, err)
	}
	if !VerifyPassword(password, p.PasswordSalt, p.PasswordHash) {
		return "", time.Time{}, apperrors.Validationf(op, "invalid credentials")
	}
	return auth.GenerateAccessToken(s.authCfg, p.ID, p.RolesSlice(), 24*time.Hour)
}

func (s *Service) Get(ctx context.Context, id string) (*Participant, error) {
	const op = "account.Get"
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound(op, "participant", id)
		}
		return nil, apperrors.Storage(op, err)
	}
	return p, nil
}
