// Package auth реализует сценарии регистрации, входа, проверки и обновления токенов.
//
// Это единственная граница, которую видит внешнее приложение: любая ошибка
// хранилищ, криптографии или токенов здесь переводится в *apperr.Error.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/threadforge/internal/lib/apperr"
	"github.com/magabrotheeeer/threadforge/internal/lib/jwt"
	"github.com/magabrotheeeer/threadforge/internal/lib/password"
	"github.com/magabrotheeeer/threadforge/internal/lib/sl"
	"github.com/magabrotheeeer/threadforge/internal/metrics"
	"github.com/magabrotheeeer/threadforge/internal/models"
	"github.com/magabrotheeeer/threadforge/internal/rabbitmq"
	"github.com/magabrotheeeer/threadforge/internal/storage/registry"
)

// UserRegistry описывает контракт реестра пользователей.
type UserRegistry interface {
	CreateUser(ctx context.Context, email, passwordHash string, metadata map[string]string) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	FindByID(ctx context.Context, id string) (models.User, error)
	RecordLogin(ctx context.Context, user models.User) (models.User, error)
	RecordFailedLogin(ctx context.Context, email string) error
}

// TokenMaker выпускает и проверяет токены.
type TokenMaker interface {
	IssueAccessToken(sub jwt.Subject) (string, time.Time, error)
	IssueRefreshToken(sub jwt.Subject, remember bool) (string, time.Time, error)
	VerifyToken(token string, expected models.TokenKind) (*jwt.CustomClaims, error)
}

// PasswordHasher хеширует и проверяет пароли.
type PasswordHasher interface {
	HashPassword(plaintext string) (string, error)
	VerifyPassword(plaintext, hash string) bool
}

// Revocations список отозванных refresh-токенов.
type Revocations interface {
	Revoke(ctx context.Context, jti string, until time.Time) (bool, error)
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// Publisher публикует события об аккаунтах.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
}

// AuthService отвечает за регистрацию, вход и работу с токенами.
type AuthService struct {
	users       UserRegistry
	tokens      TokenMaker
	hasher      PasswordHasher
	revocations Revocations
	publisher   Publisher
	validate    *validator.Validate
	log         *slog.Logger

	dummyOnce sync.Once
	dummyHash string
}

// NewAuthService создает новый экземпляр AuthService. revocations и publisher могут быть nil.
func NewAuthService(users UserRegistry, tokens TokenMaker, hasher PasswordHasher, revocations Revocations, publisher Publisher, log *slog.Logger) *AuthService {
	if publisher == nil {
		publisher = rabbitmq.Noop{}
	}
	return &AuthService{
		users:       users,
		tokens:      tokens,
		hasher:      hasher,
		revocations: revocations,
		publisher:   publisher,
		validate:    validator.New(),
		log:         log,
	}
}

// RegisterInput данные регистрации.
type RegisterInput struct {
	Email           string
	Password        string
	ConfirmPassword string
	ClientAddress   string
}

// LoginInput данные входа.
type LoginInput struct {
	Email         string
	Password      string
	RememberMe    bool
	ClientAddress string
}

// Register проверяет ввод, создаёт пользователя и выдаёт пару токенов.
// Несовпадение паролей всегда ошибка клиента, проверки идут до обращения к хранилищам.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (models.User, models.TokenPair, error) {
	const op = "auth.Register"
	log := s.log.With(slog.String("op", op))

	user, pair, err := s.register(ctx, in)
	if err != nil {
		metrics.Registration(apperr.KindOf(err).String())
		if apperr.KindOf(err) == apperr.KindStorageUnavailable {
			log.Error("registration failed", sl.Err(err))
		}
		return models.User{}, models.TokenPair{}, err
	}
	metrics.Registration("ok")
	log.Info("user registered", slog.String("user_id", user.UUID))

	event := rabbitmq.AccountRegistered{UserID: user.UUID, Email: user.Email, Registered: user.CreatedAt}
	if err := s.publisher.Publish(ctx, rabbitmq.RoutingAccountRegistered, event); err != nil {
		log.Warn("failed to publish registration event", sl.Err(err))
	}
	return user, pair, nil
}

func (s *AuthService) register(ctx context.Context, in RegisterInput) (models.User, models.TokenPair, error) {
	email := models.NormalizeEmail(in.Email)
	if err := s.validate.Var(email, "required,email"); err != nil {
		return models.User{}, models.TokenPair{}, apperr.New(apperr.KindValidation, "invalid email address")
	}
	if in.Password == "" {
		return models.User{}, models.TokenPair{}, apperr.New(apperr.KindValidation, "password is required")
	}
	if in.Password != in.ConfirmPassword {
		return models.User{}, models.TokenPair{}, apperr.New(apperr.KindPasswordMismatch, "passwords do not match")
	}
	if problems := password.CheckPolicy(in.Password); len(problems) > 0 {
		return models.User{}, models.TokenPair{}, apperr.New(apperr.KindValidation, strings.Join(problems, "; "))
	}

	hash, err := s.hasher.HashPassword(in.Password)
	if err != nil {
		return models.User{}, models.TokenPair{}, apperr.Unavailable(err)
	}

	var metadata map[string]string
	if in.ClientAddress != "" {
		metadata = map[string]string{"registered_ip": in.ClientAddress}
	}
	user, err := s.users.CreateUser(ctx, email, hash, metadata)
	switch {
	case err == nil:
	case errors.Is(err, registry.ErrDuplicateEmail):
		return models.User{}, models.TokenPair{}, apperr.Wrap(apperr.KindDuplicateEmail, "user with this email already exists", err)
	default:
		return models.User{}, models.TokenPair{}, apperr.Unavailable(err)
	}

	pair, err := s.issuePair(user, false)
	if err != nil {
		return models.User{}, models.TokenPair{}, err
	}
	return user, pair, nil
}

// Login проверяет email и пароль. Неизвестный email, неверный пароль и
// заблокированная учётная запись дают одну и ту же ошибку.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (models.User, models.TokenPair, error) {
	const op = "auth.Login"
	log := s.log.With(slog.String("op", op))

	user, pair, err := s.login(ctx, in)
	if err != nil {
		metrics.Login(apperr.KindOf(err).String())
		if apperr.KindOf(err) == apperr.KindStorageUnavailable {
			log.Error("login failed", sl.Err(err))
		}
		return models.User{}, models.TokenPair{}, err
	}
	metrics.Login("ok")
	return user, pair, nil
}

func (s *AuthService) login(ctx context.Context, in LoginInput) (models.User, models.TokenPair, error) {
	email := models.NormalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return models.User{}, models.TokenPair{}, apperr.New(apperr.KindValidation, "email and password are required")
	}

	user, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
	case errors.Is(err, registry.ErrNotFound):
		// выравниваем время ответа с веткой проверки пароля
		s.hasher.VerifyPassword(in.Password, s.dummy())
		return models.User{}, models.TokenPair{}, s.failLogin(ctx, email)
	default:
		return models.User{}, models.TokenPair{}, apperr.Unavailable(err)
	}

	if !s.hasher.VerifyPassword(in.Password, user.PasswordHash) || user.Status == models.StatusSuspended {
		return models.User{}, models.TokenPair{}, s.failLogin(ctx, email)
	}

	user, err = s.users.RecordLogin(ctx, user)
	if err != nil {
		return models.User{}, models.TokenPair{}, apperr.Unavailable(err)
	}

	pair, err := s.issuePair(user, in.RememberMe)
	if err != nil {
		return models.User{}, models.TokenPair{}, err
	}
	return user, pair, nil
}

func (s *AuthService) failLogin(ctx context.Context, email string) error {
	if err := s.users.RecordFailedLogin(ctx, email); err != nil {
		s.log.Warn("failed to record failed login", slog.String("op", "auth.Login"), sl.Err(err))
	}
	return apperr.New(apperr.KindInvalidCredentials, apperr.MsgInvalidCredentials)
}

func (s *AuthService) dummy() string {
	s.dummyOnce.Do(func() {
		h, err := s.hasher.HashPassword("timing-equalizer-password")
		if err == nil {
			s.dummyHash = h
		}
	})
	return s.dummyHash
}

// Authenticate проверяет access-токен и загружает пользователя.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (models.User, error) {
	claims, err := s.verify(accessToken, models.TokenAccess)
	if err != nil {
		return models.User{}, err
	}

	user, err := s.users.FindByID(ctx, claims.Subject)
	switch {
	case err == nil:
	case errors.Is(err, registry.ErrNotFound):
		return models.User{}, apperr.Wrap(apperr.KindUserNotFound, "user not found", err)
	default:
		return models.User{}, apperr.Unavailable(err)
	}
	if user.Status == models.StatusSuspended {
		return models.User{}, apperr.New(apperr.KindInvalidToken, apperr.MsgInvalidToken)
	}
	return user, nil
}

// Refresh выдаёт новую пару токенов по refresh-токену. Предъявленный токен отзывается.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (models.TokenPair, error) {
	pair, err := s.refresh(ctx, refreshToken)
	if err != nil {
		metrics.Refresh(apperr.KindOf(err).String())
		return models.TokenPair{}, err
	}
	metrics.Refresh("ok")
	return pair, nil
}

func (s *AuthService) refresh(ctx context.Context, refreshToken string) (models.TokenPair, error) {
	const op = "auth.Refresh"
	log := s.log.With(slog.String("op", op))

	claims, err := s.verify(refreshToken, models.TokenRefresh)
	if err != nil {
		return models.TokenPair{}, err
	}
	if s.isRevoked(ctx, log, claims.ID) {
		return models.TokenPair{}, apperr.New(apperr.KindInvalidToken, apperr.MsgInvalidToken)
	}

	user, err := s.users.FindByID(ctx, claims.Subject)
	switch {
	case err == nil:
	case errors.Is(err, registry.ErrNotFound):
		return models.TokenPair{}, apperr.Wrap(apperr.KindUserNotFound, "user not found", err)
	default:
		return models.TokenPair{}, apperr.Unavailable(err)
	}
	if user.Status == models.StatusSuspended {
		return models.TokenPair{}, apperr.New(apperr.KindInvalidToken, apperr.MsgInvalidToken)
	}

	if !s.revoke(ctx, log, claims) {
		return models.TokenPair{}, apperr.New(apperr.KindInvalidToken, apperr.MsgInvalidToken)
	}
	return s.issuePair(user, claims.Remember)
}

// Logout отзывает refresh-токен. Просроченный токен уже непригоден, ошибки нет.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	const op = "auth.Logout"
	claims, err := s.verify(refreshToken, models.TokenRefresh)
	if err != nil {
		if errors.Is(err, apperr.ErrTokenExpired) {
			return nil
		}
		return err
	}
	_ = s.revoke(ctx, s.log.With(slog.String("op", op)), claims)
	return nil
}

func (s *AuthService) verify(token string, kind models.TokenKind) (*jwt.CustomClaims, error) {
	claims, err := s.tokens.VerifyToken(token, kind)
	switch {
	case err == nil:
		return claims, nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, apperr.Wrap(apperr.KindTokenExpired, apperr.MsgTokenExpired, err)
	default:
		return nil, apperr.Wrap(apperr.KindInvalidToken, apperr.MsgInvalidToken, err)
	}
}

func (s *AuthService) isRevoked(ctx context.Context, log *slog.Logger, jti string) bool {
	if s.revocations == nil {
		return false
	}
	revoked, err := s.revocations.IsRevoked(ctx, jti)
	if err != nil {
		log.Warn("revocation check skipped", sl.Err(err))
		return false
	}
	return revoked
}

// revoke отзывает токен и сообщает, погашен ли он этим вызовом.
// Без кеш-хранилища отзыв пропускается и токен считается погашенным.
func (s *AuthService) revoke(ctx context.Context, log *slog.Logger, claims *jwt.CustomClaims) bool {
	if s.revocations == nil {
		return true
	}
	consumed, err := s.revocations.Revoke(ctx, claims.ID, claims.ExpiresAt.Time)
	if err != nil {
		log.Warn("token revocation skipped", sl.Err(err))
		return true
	}
	return consumed
}

func (s *AuthService) issuePair(user models.User, remember bool) (models.TokenPair, error) {
	sub := jwt.Subject{UserID: user.UUID, Email: user.Email, Role: user.Role}
	access, accessExp, err := s.tokens.IssueAccessToken(sub)
	if err != nil {
		return models.TokenPair{}, apperr.Unavailable(err)
	}
	refresh, refreshExp, err := s.tokens.IssueRefreshToken(sub, remember)
	if err != nil {
		return models.TokenPair{}, apperr.Unavailable(err)
	}
	return models.TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}
