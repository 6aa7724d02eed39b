package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/diploma-portal/internal/authority"
	"github.com/noah-isme/diploma-portal/internal/models"
	appErrors "github.com/noah-isme/diploma-portal/pkg/errors"
)

type diplomaAuthority interface {
	List(ctx context.Context, token string) ([]models.Diploma, error)
	Diploma(ctx context.Context, id string) (*models.Diploma, error)
	Revoke(ctx context.Context, token, id string) (*authority.RevokeResult, error)
	DownloadPDF(ctx context.Context, token, id string) ([]byte, error)
}

// DiplomaService lists the records an actor may see and performs revocation.
type DiplomaService struct {
	authority diplomaAuthority
	audit     auditRecorder
	logger    *zap.Logger
}

// NewDiplomaService constructs a DiplomaService.
func NewDiplomaService(client diplomaAuthority, audit auditRecorder, logger *zap.Logger) *DiplomaService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DiplomaService{authority: client, audit: audit, logger: logger}
}

// List returns the records visible to actor. Anonymous actors and sessions the
// authority no longer accepts see nothing; an unreachable authority is an error.
func (s *DiplomaService) List(ctx context.Context, actor models.ActorContext) ([]models.Diploma, error) {
	if !actor.Authenticated() {
		return []models.Diploma{}, nil
	}

	all, err := s.authority.List(ctx, actor.AuthorityToken)
	if err != nil {
		if errors.Is(err, authority.ErrUnauthorized) {
			s.logger.Warn("authority rejected session token, returning empty list", zap.String("session_id", actor.SessionID))
			return []models.Diploma{}, nil
		}
		return nil, mapAuthorityError(err)
	}

	if actor.Role == models.RoleAuthority {
		if all == nil {
			all = []models.Diploma{}
		}
		return all, nil
	}

	visible := make([]models.Diploma, 0, len(all))
	for _, d := range all {
		if actor.Owns(d) {
			visible = append(visible, d)
		}
	}
	return visible, nil
}

// Get returns a record the actor can see, enriched with the authoritative copy
// when the authority still serves it.
func (s *DiplomaService) Get(ctx context.Context, actor models.ActorContext, id string) (*models.Diploma, error) {
	if !actor.Authenticated() {
		return nil, appErrors.ErrUnauthorized
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "diploma id is required")
	}

	visible, err := s.List(ctx, actor)
	if err != nil {
		return nil, err
	}
	var listed *models.Diploma
	for i := range visible {
		if visible[i].ID == id {
			listed = &visible[i]
			break
		}
	}
	if listed == nil {
		return nil, appErrors.ErrNotFound
	}

	stored, err := s.authority.Diploma(ctx, id)
	if err != nil {
		if errors.Is(err, authority.ErrNotFound) && listed.Revoked {
			return listed, nil
		}
		return nil, mapAuthorityError(err)
	}
	if listed.Revoked {
		stored.Revoked = true
	}
	if stored.StudentEmail == "" {
		stored.StudentEmail = listed.StudentEmail
	}
	return stored, nil
}

// VerificationFile returns the downloadable verification file of a visible record.
func (s *DiplomaService) VerificationFile(ctx context.Context, actor models.ActorContext, id string) (*models.VerificationFile, error) {
	d, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	file := d.VerificationFile()
	return &file, nil
}

// PDF returns the authority rendered PDF of a visible record.
func (s *DiplomaService) PDF(ctx context.Context, actor models.ActorContext, id string) ([]byte, error) {
	d, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	body, err := s.authority.DownloadPDF(ctx, actor.AuthorityToken, d.ID)
	if err != nil {
		return nil, mapAuthorityError(err)
	}
	return body, nil
}

// Revoke permanently revokes a diploma. Repeating it is harmless.
func (s *DiplomaService) Revoke(ctx context.Context, actor models.ActorContext, id string) (*models.RevocationAck, error) {
	if !actor.Authenticated() {
		return nil, appErrors.ErrUnauthorized
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "diploma id is required")
	}

	result, err := s.authority.Revoke(ctx, actor.AuthorityToken, id)
	if err != nil {
		return nil, mapAuthorityError(err)
	}

	ack := &models.RevocationAck{ID: id, Revoked: true, AlreadyRevoked: result.AlreadyRevoked, Message: "Diploma revoked"}
	if result.AlreadyRevoked {
		ack.Message = "Diploma was already revoked"
	}
	if s.audit != nil {
		s.audit.Record(ctx, AuditEntry{
			Actor:      actor,
			Action:     models.AuditActionRevoke,
			Resource:   models.AuditResourceDiploma,
			ResourceID: id,
			Details:    map[string]interface{}{"already_revoked": result.AlreadyRevoked},
		})
	}
	s.logger.Info("diploma revoked", zap.String("diploma_id", id), zap.Bool("already_revoked", result.AlreadyRevoked))
	return ack, nil
}
