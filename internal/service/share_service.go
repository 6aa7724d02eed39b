package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"github.com/noah-isme/diploma-portal/internal/authority"
	"github.com/noah-isme/diploma-portal/internal/models"
	appErrors "github.com/noah-isme/diploma-portal/pkg/errors"
	"github.com/noah-isme/diploma-portal/pkg/storage"
)

const (
	shareSubject    = "share"
	defaultQRSize   = 256
	minQRSize       = 128
	maxQRSize       = 1024
	qrCodeMediaType = "image/png"
)

type diplomaGetter interface {
	Get(ctx context.Context, actor models.ActorContext, id string) (*models.Diploma, error)
}

type verifier interface {
	Verify(ctx context.Context, raw []byte) models.VerificationResult
}

// ShareConfig tunes public share links.
type ShareConfig struct {
	PublicBaseURL string
	APIPrefix     string
}

// ShareService hands out signed public links to a diploma's verification view.
type ShareService struct {
	diplomas diplomaGetter
	registry registryAuthority
	verifier verifier
	signer   *storage.SignedURLSigner
	audit    auditRecorder
	logger   *zap.Logger
	cfg      ShareConfig
}

// NewShareService constructs a ShareService.
func NewShareService(diplomas diplomaGetter, registry registryAuthority, verify verifier, signer *storage.SignedURLSigner, audit auditRecorder, logger *zap.Logger, cfg ShareConfig) *ShareService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ShareService{diplomas: diplomas, registry: registry, verifier: verify, signer: signer, audit: audit, logger: logger, cfg: cfg}
}

// CreateLink signs a share link for a diploma the actor can see.
func (s *ShareService) CreateLink(ctx context.Context, actor models.ActorContext, id string) (*models.ShareLink, error) {
	d, err := s.diplomas.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if d.Revoked {
		return nil, appErrors.Clone(appErrors.ErrRevoked, "revoked diplomas cannot be shared")
	}
	token, expiresAt, err := s.signer.Generate(shareSubject, d.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign share link")
	}
	if s.audit != nil {
		s.audit.Record(ctx, AuditEntry{Actor: actor, Action: models.AuditActionShare, Resource: models.AuditResourceDiploma, ResourceID: d.ID,
			Details: map[string]interface{}{"expires_at": expiresAt.UTC().Format(time.RFC3339)}})
	}
	return &models.ShareLink{
		DiplomaID: d.ID,
		Token:     token,
		URL:       strings.TrimRight(s.cfg.PublicBaseURL, "/") + s.cfg.APIPrefix + "/shared/" + token,
		ExpiresAt: expiresAt,
	}, nil
}

// QRCode renders a PNG QR code pointing at a fresh share link.
func (s *ShareService) QRCode(ctx context.Context, actor models.ActorContext, id string, size int) ([]byte, string, error) {
	link, err := s.CreateLink(ctx, actor, id)
	if err != nil {
		return nil, "", err
	}
	switch {
	case size <= 0:
		size = defaultQRSize
	case size < minQRSize:
		size = minQRSize
	case size > maxQRSize:
		size = maxQRSize
	}
	png, err := qrcode.Encode(link.URL, qrcode.Medium, size)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render QR code")
	}
	return png, qrCodeMediaType, nil
}

// Resolve opens a share link: the current verification file plus a live verdict.
func (s *ShareService) Resolve(ctx context.Context, token string) (*models.SharedDiploma, error) {
	subject, id, expiresAt, err := s.signer.Parse(token, false)
	if err != nil || subject != shareSubject {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "share link has expired")
		}
		return nil, appErrors.Clone(appErrors.ErrNotFound, "share link not found")
	}

	d, err := s.registry.Diploma(ctx, id)
	if err != nil {
		if errors.Is(err, authority.ErrNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "diploma is no longer available")
		}
		return nil, mapAuthorityError(err)
	}
	file := d.VerificationFile()
	raw, err := json.Marshal(file)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode diploma")
	}
	return &models.SharedDiploma{File: file, Verification: s.verifier.Verify(ctx, raw), ExpiresAt: expiresAt}, nil
}
