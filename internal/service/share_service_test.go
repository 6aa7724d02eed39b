package service

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/diploma-portal/internal/models"
	"github.com/noah-isme/diploma-portal/pkg/config"
	appErrors "github.com/noah-isme/diploma-portal/pkg/errors"
	"github.com/noah-isme/diploma-portal/pkg/storage"
)

func newTestShareService(fake *fakeAuthority, audit auditRecorder) *ShareService {
	diplomas := NewDiplomaService(fake, nil, nil)
	verify := NewVerificationService(fake, config.VerificationModeRegistry, nil, nil)
	return NewShareService(diplomas, fake, verify, storage.NewSignedURLSigner("share-secret", time.Hour), audit, nil,
		ShareConfig{PublicBaseURL: "https://portal.example.com", APIPrefix: "/api/v1"})
}

func TestShareServiceLinkResolves(t *testing.T) {
	fake := newFakeAuthority(sampleDiplomas()...)
	audit := &mockAuditRecorder{}
	svc := newTestShareService(fake, audit)

	link, err := svc.CreateLink(context.Background(), holderActor("jane@example.com"), "d-1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(link.URL, "https://portal.example.com/api/v1/shared/"))
	assert.Equal(t, []string{models.AuditActionShare}, audit.actions())

	shared, err := svc.Resolve(context.Background(), link.Token)
	require.NoError(t, err)
	assert.Equal(t, "d-1", shared.File.ID)
	assert.Equal(t, models.OutcomeValid, shared.Verification.Outcome)

	_, err = fake.Revoke(context.Background(), "tok", "d-1")
	require.NoError(t, err)
	shared, err = svc.Resolve(context.Background(), link.Token)
	require.NoError(t, err)
	assert.Equal(t, models.ReasonRevoked, shared.Verification.Reason)
}

func TestShareServiceCreateLinkErrors(t *testing.T) {
	svc := newTestShareService(newFakeAuthority(sampleDiplomas()...), nil)

	_, err := svc.CreateLink(context.Background(), holderActor("jane@example.com"), "d-2")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	_, err = svc.CreateLink(context.Background(), schoolActor(), "d-3")
	assert.ErrorIs(t, err, appErrors.ErrRevoked)

	_, err = svc.CreateLink(context.Background(), models.Anonymous(), "d-1")
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestShareServiceResolveRejectsBadTokens(t *testing.T) {
	svc := newTestShareService(newFakeAuthority(sampleDiplomas()...), nil)

	_, err := svc.Resolve(context.Background(), "nope")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	bulkToken, _, err := storage.NewSignedURLSigner("share-secret", time.Hour).Generate("bulk", "d-1")
	require.NoError(t, err)
	_, err = svc.Resolve(context.Background(), bulkToken)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	unknown, _, err := storage.NewSignedURLSigner("share-secret", time.Hour).Generate("share", "gone")
	require.NoError(t, err)
	_, err = svc.Resolve(context.Background(), unknown)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestShareServiceQRCode(t *testing.T) {
	svc := newTestShareService(newFakeAuthority(sampleDiplomas()...), nil)

	png, mediaType, err := svc.QRCode(context.Background(), schoolActor(), "d-2", 10)
	require.NoError(t, err)
	assert.Equal(t, "image/png", mediaType)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
}
