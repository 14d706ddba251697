package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/academiagest/registro-rrsif/internal/application/dto"
	"github.com/academiagest/registro-rrsif/internal/domain"
	"github.com/academiagest/registro-rrsif/internal/domain/entity"
	"github.com/academiagest/registro-rrsif/internal/domain/repository"
	"github.com/academiagest/registro-rrsif/pkg/jwt"
)

// JWTConfig configuración para generación de tokens.
type JWTConfig struct {
	Secret     string
	ExpMinutes int
	Issuer     string
}

// AuthUseCase casos de uso de autenticación de operadores: registro y login.
type AuthUseCase struct {
	operadorRepo repository.OperadorRepository
	jwtCfg       JWTConfig
}

// NewAuthUseCase construye el caso de uso de auth.
func NewAuthUseCase(operadorRepo repository.OperadorRepository, jwtCfg JWTConfig) *AuthUseCase {
	return &AuthUseCase{operadorRepo: operadorRepo, jwtCfg: jwtCfg}
}

// Register crea un operador: hashea password con bcrypt y persiste. Devuelve
// ErrEmailYaRegistrado si el email ya existe.
func (uc *AuthUseCase) Register(ctx context.Context, in dto.RegisterRequest) (*dto.OperadorResponse, error) {
	existente, err := uc.operadorRepo.FindByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if existente != nil {
		return nil, domain.ErrEmailYaRegistrado
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	nombre := in.Nombre
	if nombre == "" {
		nombre = in.Email
	}
	rol := in.Rol
	if rol == "" {
		rol = entity.RolOperador
	}
	operador := &entity.Operador{
		ID:           uuid.New().String(),
		Email:        in.Email,
		PasswordHash: string(hash),
		Nombre:       nombre,
		Rol:          rol,
		Estado:       "active",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := uc.operadorRepo.Create(ctx, operador); err != nil {
		return nil, err
	}
	return toOperadorResponse(operador), nil
}

// Login verifica email/password, genera JWT y retorna token + operador.
func (uc *AuthUseCase) Login(ctx context.Context, in dto.LoginRequest) (*dto.LoginResponse, error) {
	operador, err := uc.operadorRepo.FindByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if operador == nil {
		return nil, domain.ErrOperadorNoExiste
	}
	if err := bcrypt.CompareHashAndPassword([]byte(operador.PasswordHash), []byte(in.Password)); err != nil {
		return nil, domain.ErrUnauthorized
	}
	if operador.Estado != "active" {
		return nil, domain.ErrForbidden
	}
	token, err := jwt.Generate(uc.jwtCfg.Secret, operador.ID, operador.Nombre, operador.Rol, uc.jwtCfg.Issuer, uc.jwtCfg.ExpMinutes)
	if err != nil {
		return nil, err
	}
	return &dto.LoginResponse{
		Token:    token,
		Operador: *toOperadorResponse(operador),
	}, nil
}

func toOperadorResponse(o *entity.Operador) *dto.OperadorResponse {
	if o == nil {
		return nil
	}
	return &dto.OperadorResponse{
		ID:        o.ID,
		Email:     o.Email,
		Nombre:    o.Nombre,
		Rol:       o.Rol,
		Estado:    o.Estado,
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}
}
