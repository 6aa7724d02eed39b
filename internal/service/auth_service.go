package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/diploma-portal/internal/authority"
	"github.com/noah-isme/diploma-portal/internal/models"
	appErrors "github.com/noah-isme/diploma-portal/pkg/errors"
)

type authorityLogin interface {
	Login(ctx context.Context, email, password string) (*authority.LoginResult, error)
}

type sessionIssuer interface {
	Create(ctx context.Context, actor models.ActorContext) (string, *models.Session, error)
	Destroy(ctx context.Context, sessionID string) error
	TTL() time.Duration
}

// AuthService signs actors in against the authority and manages their gateway session.
type AuthService struct {
	authority authorityLogin
	sessions  sessionIssuer
	audit     auditRecorder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(client authorityLogin, sessions sessionIssuer, audit auditRecorder, validate *validator.Validate, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AuthService{authority: client, sessions: sessions, audit: audit, validator: validate, logger: logger}
}

// Login authenticates against the authority and opens a gateway session.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	req.Email = strings.TrimSpace(req.Email)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	result, err := s.authority.Login(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, authority.ErrUnauthorized) || errors.Is(err, authority.ErrRejected) || errors.Is(err, authority.ErrNotFound) {
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
		}
		s.logger.Warn("login failed", zap.Error(err))
		return nil, mapAuthorityError(err)
	}

	role, err := models.ParseRole(result.User.Role)
	if err != nil {
		s.logger.Warn("login rejected: unsupported role", zap.String("role", result.User.Role))
		return nil, appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "account role is not supported by this portal")
	}

	email := result.User.Email
	if email == "" {
		email = req.Email
	}
	actor := models.ActorContext{
		Role:           role,
		Name:           strings.TrimSpace(result.User.Name),
		Email:          strings.TrimSpace(email),
		AuthorityToken: result.Token,
	}

	token, session, err := s.sessions.Create(ctx, actor)
	if err != nil {
		return nil, err
	}
	actor.SessionID = session.ID

	s.record(ctx, AuditEntry{Actor: actor, Action: models.AuditActionLogin, Resource: models.AuditResourceSession, ResourceID: session.ID})
	s.logger.Info("actor signed in", zap.String("role", string(role)), zap.String("session_id", session.ID))

	return &models.LoginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.sessions.TTL().Seconds()),
		User:        actor.Info(),
		IssuedAt:    session.CreatedAt,
	}, nil
}

// Logout ends the actor's gateway session.
func (s *AuthService) Logout(ctx context.Context, actor models.ActorContext) error {
	if actor.SessionID == "" {
		return appErrors.ErrUnauthorized
	}
	if err := s.sessions.Destroy(ctx, actor.SessionID); err != nil {
		return err
	}
	s.record(ctx, AuditEntry{Actor: actor, Action: models.AuditActionLogout, Resource: models.AuditResourceSession, ResourceID: actor.SessionID})
	return nil
}

// Me returns the public profile of the actor.
func (s *AuthService) Me(actor models.ActorContext) (models.ActorInfo, error) {
	if !actor.Authenticated() {
		return models.ActorInfo{}, appErrors.ErrUnauthorized
	}
	return actor.Info(), nil
}

func (s *AuthService) record(ctx context.Context, entry AuditEntry) {
	if s.audit != nil {
		s.audit.Record(ctx, entry)
	}
}
