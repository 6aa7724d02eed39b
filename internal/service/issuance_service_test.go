package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/diploma-portal/internal/authority"
	"github.com/noah-isme/diploma-portal/internal/models"
	"github.com/noah-isme/diploma-portal/pkg/config"
	appErrors "github.com/noah-isme/diploma-portal/pkg/errors"
)

type mockReportPublisher struct {
	published *models.BulkReport
	err       error
}

func (m *mockReportPublisher) PublishBulkReport(ctx context.Context, report *models.BulkReport) error {
	m.published = report
	if m.err == nil {
		report.ReportURL = "http://portal/report"
	}
	return m.err
}

func TestIssuanceServiceIssueOne(t *testing.T) {
	fake := newFakeAuthority()
	audit := &mockAuditRecorder{}
	svc := NewIssuanceService(fake, nil, nil, IssuanceOptions{Audit: audit})

	id, err := svc.IssueOne(context.Background(), schoolActor(), models.IssueRequest{StudentName: "  Jane Doe ", StudentEmail: "jane@example.com", DegreeName: "BSc"})
	require.NoError(t, err)
	assert.Equal(t, "id-1", id)
	assert.Equal(t, "Jane Doe", fake.issued[0].StudentName)
	assert.Equal(t, []string{models.AuditActionIssue}, audit.actions())
}

func TestIssuanceServiceIssueOneValidation(t *testing.T) {
	fake := newFakeAuthority()
	svc := NewIssuanceService(fake, nil, nil, IssuanceOptions{})

	_, err := svc.IssueOne(context.Background(), schoolActor(), models.IssueRequest{StudentName: " ", DegreeName: "BSc", StudentEmail: "nope"})
	require.ErrorIs(t, err, appErrors.ErrValidation)
	assert.Contains(t, err.Error(), "student_name is required")
	assert.Contains(t, err.Error(), "student_email must be a valid email address")
	assert.Zero(t, fake.callCount("issue"))

	_, err = svc.IssueOne(context.Background(), models.Anonymous(), models.IssueRequest{StudentName: "Jane", StudentEmail: "jane@example.com", DegreeName: "BSc"})
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestIssuanceServiceIssueOneRequiresEmail(t *testing.T) {
	fake := newFakeAuthority()
	svc := NewIssuanceService(fake, nil, nil, IssuanceOptions{})

	for _, email := range []string{"", "   "} {
		_, err := svc.IssueOne(context.Background(), schoolActor(), models.IssueRequest{StudentName: "Jane", StudentEmail: email, DegreeName: "BSc"})
		require.ErrorIs(t, err, appErrors.ErrValidation)
		assert.Contains(t, err.Error(), "student_email is required")
	}
	assert.Zero(t, fake.callCount("issue"))
}

func TestIssuanceServiceIssueOneAuthorityErrors(t *testing.T) {
	fake := newFakeAuthority()
	svc := NewIssuanceService(fake, nil, nil, IssuanceOptions{})
	req := models.IssueRequest{StudentName: "Jane", StudentEmail: "jane@example.com", DegreeName: "BSc"}

	fake.failWith["issue"] = unavailable("issue")
	_, err := svc.IssueOne(context.Background(), schoolActor(), req)
	assert.ErrorIs(t, err, appErrors.ErrServiceUnavailable)

	fake.failWith["issue"] = &authority.Error{Op: "issue", Status: 401, Kind: authority.ErrUnauthorized}
	_, err = svc.IssueOne(context.Background(), schoolActor(), req)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestIssuanceServiceBulkMixedBatchPerRow(t *testing.T) {
	fake := newFakeAuthority()
	publisher := &mockReportPublisher{}
	svc := NewIssuanceService(fake, nil, nil, IssuanceOptions{Reports: publisher, Metrics: NewMetricsService()})

	csv := "student_name,student_email,degree_name\n" +
		"Ann,ann@example.com,BSc\n" +
		"Ben,ben@example.com,\n" +
		"Cat,cat@example.com,MSc\n" +
		"Dan,,PhD\n"

	report, err := svc.IssueBulk(context.Background(), schoolActor(), "batch.csv", []byte(csv))
	require.NoError(t, err)
	assert.Equal(t, 4, report.Total)
	assert.Equal(t, 2, report.Success)
	assert.Equal(t, 2, report.Failed)

	require.Len(t, report.Details, 4)
	for i, d := range report.Details {
		assert.Equal(t, i+1, d.Row)
	}
	assert.Equal(t, models.BulkRowFailed, report.Details[1].Status)
	assert.Contains(t, report.Details[1].Error, "degree_name is required")
	assert.Equal(t, "id-2", report.Details[2].DiplomaID)
	assert.Equal(t, models.BulkRowFailed, report.Details[3].Status)
	assert.Contains(t, report.Details[3].Error, "student_email is required")
	assert.Equal(t, 2, fake.callCount("issue"))
	assert.Same(t, report, publisher.published)
	assert.Equal(t, "http://portal/report", report.ReportURL)
}

func TestIssuanceServiceBulkContinuesAfterAuthorityFailure(t *testing.T) {
	fake := newFakeAuthority()
	fake.rejectOn["Ben"] = true
	svc := NewIssuanceService(fake, nil, nil, IssuanceOptions{Reports: &mockReportPublisher{err: errors.New("disk full")}})

	csv := "student_name,student_email,degree_name\nAnn,ann@example.com,BSc\nBen,ben@example.com,BSc\nCat,cat@example.com,BSc\n"
	report, err := svc.IssueBulk(context.Background(), schoolActor(), "batch.csv", []byte(csv))
	require.NoError(t, err)
	assert.Equal(t, 2, report.Success)
	assert.Equal(t, "student refused", report.Details[1].Error)
	assert.Empty(t, report.ReportURL)
}

func TestIssuanceServiceBulkMalformedFile(t *testing.T) {
	fake := newFakeAuthority()
	svc := NewIssuanceService(fake, nil, nil, IssuanceOptions{})

	_, err := svc.IssueBulk(context.Background(), schoolActor(), "batch.csv", []byte("name,degree\nA,B\n"))
	assert.ErrorIs(t, err, appErrors.ErrMalformedInput)
	assert.Zero(t, fake.callCount("issue"))
}

func TestIssuanceServiceBulkRemoteNormalisesOrder(t *testing.T) {
	fake := newFakeAuthority()
	fake.bulk = &authority.BulkResult{Details: []authority.BulkDetail{
		{Row: 2, Status: "failed", Error: "missing degree_name"},
		{Row: 1, Status: "success", DiplomaID: "a"},
		{Row: 3, Status: "ok", DiplomaID: "c"},
	}}
	svc := NewIssuanceService(fake, nil, nil, IssuanceOptions{Strategy: config.BulkStrategyRemote})

	csv := "student_name,student_email,degree_name\nAnn,ann@example.com,BSc\nBen,ben@example.com,\nCat,cat@example.com,MSc\n"
	report, err := svc.IssueBulk(context.Background(), schoolActor(), "batch.csv", []byte(csv))
	require.NoError(t, err)
	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 2, report.Success)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, []int{1, 2, 3}, []int{report.Details[0].Row, report.Details[1].Row, report.Details[2].Row})
	assert.Equal(t, 1, fake.callCount("issue_bulk"))
	assert.Zero(t, fake.callCount("issue"))
}

func TestIssuanceServiceBulkRemoteUnavailable(t *testing.T) {
	fake := newFakeAuthority()
	fake.failWith["issue_bulk"] = unavailable("issue_bulk")
	svc := NewIssuanceService(fake, nil, nil, IssuanceOptions{Strategy: config.BulkStrategyRemote})

	_, err := svc.IssueBulk(context.Background(), schoolActor(), "batch.csv", []byte("student_name,student_email,degree_name\nA,a@example.com,B\n"))
	assert.ErrorIs(t, err, appErrors.ErrServiceUnavailable)
}

func TestIssuanceServiceBulkMalformedLineDoesNotAbortBatch(t *testing.T) {
	fake := newFakeAuthority()
	svc := NewIssuanceService(fake, nil, nil, IssuanceOptions{})

	csv := "student_name,student_email,degree_name\n" +
		"Ann,ann@example.com,BSc\n" +
		"B\"en,ben@example.com,BSc\n" +
		"Cat,cat@example.com,MSc\n"

	report, err := svc.IssueBulk(context.Background(), schoolActor(), "batch.csv", []byte(csv))
	require.NoError(t, err)
	require.Len(t, report.Details, 3)
	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 2, report.Success)
	assert.Equal(t, 1, report.Failed)

	assert.Equal(t, models.BulkRowSuccess, report.Details[0].Status)
	assert.Equal(t, 2, report.Details[1].Row)
	assert.Equal(t, models.BulkRowFailed, report.Details[1].Status)
	assert.Contains(t, report.Details[1].Error, "malformed CSV line")
	assert.Equal(t, models.BulkRowSuccess, report.Details[2].Status)
	assert.Equal(t, 2, fake.callCount("issue"))
	assert.Equal(t, []string{"Ann", "Cat"}, []string{fake.issued[0].StudentName, fake.issued[1].StudentName})
}

func TestIssuanceServiceBulkMalformedFileMessage(t *testing.T) {
	svc := NewIssuanceService(newFakeAuthority(), nil, nil, IssuanceOptions{})

	_, err := svc.IssueBulk(context.Background(), schoolActor(), "batch.csv", []byte("student_name,degree_name\nA,B\n"))
	require.ErrorIs(t, err, appErrors.ErrMalformedInput)
	assert.Equal(t, 1, strings.Count(err.Error(), "missing column(s)"))
}
