package auth

import (
	"context"

	"golang.org/x/crypto/bcrypt"

	"github.com/jhoicas/custody-api/internal/application/audit"
	"github.com/jhoicas/custody-api/internal/application/ports"
	"github.com/jhoicas/custody-api/internal/domain"
	"github.com/jhoicas/custody-api/internal/domain/entity"
	"github.com/jhoicas/custody-api/pkg/jwt"
)

// JWTConfig configuración para generación de tokens.
type JWTConfig struct {
	Secret     string
	ExpMinutes int
	Issuer     string
}

// LoginResult token emitido y usuario autenticado.
type LoginResult struct {
	Token string
	User  *entity.User
}

// AuthUseCase casos de uso de autenticación: login y logout, ambos auditados.
type AuthUseCase struct {
	txRunner ports.TxRunner
	audit    *audit.Recorder
	jwtCfg   JWTConfig
}

// NewAuthUseCase construye el caso de uso de auth.
func NewAuthUseCase(txRunner ports.TxRunner, rec *audit.Recorder, jwtCfg JWTConfig) *AuthUseCase {
	return &AuthUseCase{txRunner: txRunner, audit: rec, jwtCfg: jwtCfg}
}

// Login verifica email/password, genera JWT y registra LOGIN.
// Email desconocido y password incorrecto devuelven el mismo ErrUnauthorized.
func (uc *AuthUseCase) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = entity.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, domain.ErrInvalidInput
	}
	var user *entity.User
	err := uc.txRunner.View(ctx, func(ctx context.Context, r ports.TxRepos) error {
		var err error
		user, err = r.Users.GetByEmail(ctx, email)
		return err
	})
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUnauthorized
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, domain.ErrUnauthorized
	}
	companyID := ""
	if user.CompanyID != nil {
		companyID = *user.CompanyID
	}
	token, err := jwt.Generate(uc.jwtCfg.Secret, uc.jwtCfg.Issuer, uc.jwtCfg.ExpMinutes, jwt.Identity{
		UserID:    user.ID,
		CompanyID: companyID,
		Role:      user.Role,
		Subrole:   user.Subrole,
	})
	if err != nil {
		return nil, err
	}
	if _, err := uc.audit.RecordStandalone(ctx, uc.txRunner, audit.Entry{
		ActorID:      user.ID,
		Action:       entity.ActionLogin,
		ResourceType: entity.ResourceUser,
		ResourceID:   user.ID,
	}); err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, User: user}, nil
}

// Logout registra LOGOUT. Los tokens son stateless: el cliente los descarta.
func (uc *AuthUseCase) Logout(ctx context.Context, userID string) error {
	if userID == "" {
		return domain.ErrUnauthorized
	}
	_, err := uc.audit.RecordStandalone(ctx, uc.txRunner, audit.Entry{
		ActorID:      userID,
		Action:       entity.ActionLogout,
		ResourceType: entity.ResourceUser,
		ResourceID:   userID,
	})
	return err
}
