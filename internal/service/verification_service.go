package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/diploma-portal/internal/authority"
	"github.com/noah-isme/diploma-portal/internal/models"
	"github.com/noah-isme/diploma-portal/pkg/config"
)

type verifyAuthority interface {
	Verify(ctx context.Context, candidate []byte) (*authority.VerifyResult, error)
}

type registryAuthority interface {
	Diploma(ctx context.Context, id string) (*models.Diploma, error)
}

// verificationChecker decides whether a parsed candidate is authentic.
type verificationChecker interface {
	Check(ctx context.Context, raw []byte, candidate models.Diploma) models.VerificationResult
}

// VerificationService turns an uploaded verification file into a verdict.
type VerificationService struct {
	checker verificationChecker
	metrics *MetricsService
	logger  *zap.Logger
}

// VerificationAuthority is the part of the authority API verification needs.
type VerificationAuthority interface {
	verifyAuthority
	registryAuthority
}

// NewVerificationService builds a service using the checker selected by mode.
func NewVerificationService(client VerificationAuthority, mode string, metrics *MetricsService, logger *zap.Logger) *VerificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	var checker verificationChecker
	switch mode {
	case config.VerificationModeRegistry:
		checker = &registryChecker{authority: client}
	default:
		checker = &remoteChecker{authority: client}
	}
	return &VerificationService{checker: checker, metrics: metrics, logger: logger}
}

// Verify never returns an error: every failure is expressed in the result.
func (s *VerificationService) Verify(ctx context.Context, raw []byte) models.VerificationResult {
	var result models.VerificationResult
	candidate, ok := parseCandidate(raw)
	if !ok {
		result = models.InvalidResult(models.ReasonMalformedInput)
	} else {
		result = s.checker.Check(ctx, raw, candidate)
	}
	s.metrics.RecordVerification(result)
	s.logger.Debug("verification completed",
		zap.String("outcome", string(result.Outcome)), zap.String("reason", string(result.Reason)))
	return result
}

// parseCandidate accepts only a JSON object carrying an id and a signature.
func parseCandidate(raw []byte) (models.Diploma, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return models.Diploma{}, false
	}
	var d models.Diploma
	if err := json.Unmarshal(trimmed, &d); err != nil {
		return models.Diploma{}, false
	}
	if strings.TrimSpace(d.ID) == "" || strings.TrimSpace(d.Signature) == "" {
		return models.Diploma{}, false
	}
	return d, true
}

// remoteChecker lets the authority check the signature and interprets its answer.
type remoteChecker struct {
	authority verifyAuthority
}

func (c *remoteChecker) Check(ctx context.Context, raw []byte, candidate models.Diploma) models.VerificationResult {
	verdict, err := c.authority.Verify(ctx, raw)
	if err != nil {
		switch {
		case errors.Is(err, authority.ErrNotFound):
			return models.InvalidResult(models.ReasonNotFound)
		case errors.Is(err, authority.ErrRejected) && authority.StatusOf(err) == http.StatusBadRequest:
			return models.InvalidResult(models.ReasonMalformedInput)
		case errors.Is(err, authority.ErrRejected):
			return models.InvalidResult(reasonFromText(authority.MessageOf(err)))
		default:
			return models.UnavailableResult()
		}
	}
	if verdict.Valid {
		return models.ValidResult(candidate)
	}
	return models.InvalidResult(reasonFromText(verdict.Reason))
}

// reasonFromText maps a free-text authority reason onto an InvalidReason.
func reasonFromText(reason string) models.InvalidReason {
	r := strings.ToLower(reason)
	switch {
	case strings.Contains(r, "not found"), strings.Contains(r, "unknown"):
		return models.ReasonNotFound
	case strings.Contains(r, "revoked"):
		return models.ReasonRevoked
	case strings.Contains(r, "malformed"), strings.Contains(r, "format"):
		return models.ReasonMalformedInput
	default:
		return models.ReasonSignatureMismatch
	}
}

// registryChecker compares the candidate against the authoritative copy.
type registryChecker struct {
	authority registryAuthority
}

func (c *registryChecker) Check(ctx context.Context, _ []byte, candidate models.Diploma) models.VerificationResult {
	stored, err := c.authority.Diploma(ctx, candidate.ID)
	if err != nil {
		if errors.Is(err, authority.ErrNotFound) {
			return models.InvalidResult(models.ReasonNotFound)
		}
		return models.UnavailableResult()
	}
	if stored.Revoked {
		return models.InvalidResult(models.ReasonRevoked)
	}
	if stored.Signature != candidate.Signature {
		return models.InvalidResult(models.ReasonSignatureMismatch)
	}
	return models.ValidResult(*stored)
}
