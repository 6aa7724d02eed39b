package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/diploma-portal/internal/models"
	"github.com/noah-isme/diploma-portal/internal/repository"
	appErrors "github.com/noah-isme/diploma-portal/pkg/errors"
)

type sessionRepository interface {
	Save(ctx context.Context, session *models.Session) error
	Get(ctx context.Context, id string) (*models.Session, error)
	Delete(ctx context.Context, id string) error
}

// SessionConfig configures gateway session tokens.
type SessionConfig struct {
	Secret string
	TTL    time.Duration
	Issuer string
}

// SessionService issues and resolves gateway session tokens. The browser only
// ever holds a signed session id; the authority token stays server side.
type SessionService struct {
	repo   sessionRepository
	config SessionConfig
	logger *zap.Logger
	now    func() time.Time
}

// NewSessionService constructs a SessionService.
func NewSessionService(repo sessionRepository, logger *zap.Logger, cfg SessionConfig) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 8 * time.Hour
	}
	return &SessionService{repo: repo, config: cfg, logger: logger, now: time.Now}
}

// Create stores a session for actor and returns its signed token.
func (s *SessionService) Create(ctx context.Context, actor models.ActorContext) (string, *models.Session, error) {
	now := s.now().UTC()
	session := &models.Session{
		ID:             uuid.NewString(),
		Role:           actor.Role,
		Name:           actor.Name,
		Email:          actor.Email,
		AuthorityToken: actor.AuthorityToken,
		CreatedAt:      now,
		ExpiresAt:      now.Add(s.config.TTL),
	}
	if err := s.repo.Save(ctx, session); err != nil {
		return "", nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store session")
	}

	claims := models.SessionClaims{
		SessionID: session.ID,
		Role:      session.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        session.ID,
			Issuer:    s.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.Secret))
	if err != nil {
		return "", nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign session")
	}
	return token, session, nil
}

// Resolve validates a session token and returns the actor it represents.
func (s *SessionService) Resolve(ctx context.Context, token string) (models.ActorContext, error) {
	parsed, err := jwt.ParseWithClaims(token, &models.SessionClaims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	}, jwt.WithIssuer(s.config.Issuer), jwt.WithTimeFunc(s.now))
	if err != nil {
		return models.Anonymous(), appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid session")
	}
	claims, ok := parsed.Claims.(*models.SessionClaims)
	if !ok || !parsed.Valid || claims.SessionID == "" {
		return models.Anonymous(), appErrors.Clone(appErrors.ErrUnauthorized, "invalid session claims")
	}

	session, err := s.repo.Get(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return models.Anonymous(), appErrors.Clone(appErrors.ErrUnauthorized, "session expired")
		}
		return models.Anonymous(), appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	return session.Actor(), nil
}

// Destroy removes a session.
func (s *SessionService) Destroy(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := s.repo.Delete(ctx, sessionID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete session")
	}
	return nil
}

// TTL reports the session lifetime.
func (s *SessionService) TTL() time.Duration {
	return s.config.TTL
}
