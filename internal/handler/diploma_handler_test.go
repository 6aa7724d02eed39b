package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/diploma-portal/internal/middleware"
	"github.com/noah-isme/diploma-portal/internal/models"
	"github.com/noah-isme/diploma-portal/internal/service"
	appErrors "github.com/noah-isme/diploma-portal/pkg/errors"
)

type envelope struct {
	Data  json.RawMessage        `json:"data"`
	Error *appErrors.Error       `json:"error"`
	Meta  map[string]interface{} `json:"meta"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func newContext(method, target string, body *bytes.Buffer, actor models.ActorContext) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	if body == nil {
		body = &bytes.Buffer{}
	}
	c.Request = httptest.NewRequest(method, target, body)
	if actor.Authenticated() {
		c.Set(middleware.ContextActorKey, actor)
	}
	return c, rec
}

func multipartBody(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	part, err := w.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf, w.FormDataContentType()
}

var school = models.ActorContext{Role: models.RoleAuthority, Name: "North High", AuthorityToken: "t"}

type fakeDiplomaSrv struct {
	list       []models.Diploma
	listErr    error
	file       *models.VerificationFile
	pdf        []byte
	err        error
	revokedIDs []string
	lastActor  models.ActorContext
}

func (f *fakeDiplomaSrv) List(_ context.Context, actor models.ActorContext) ([]models.Diploma, error) {
	f.lastActor = actor
	return f.list, f.listErr
}

func (f *fakeDiplomaSrv) VerificationFile(context.Context, models.ActorContext, string) (*models.VerificationFile, error) {
	return f.file, f.err
}

func (f *fakeDiplomaSrv) PDF(context.Context, models.ActorContext, string) ([]byte, error) {
	return f.pdf, f.err
}

func (f *fakeDiplomaSrv) Revoke(_ context.Context, _ models.ActorContext, id string) (*models.RevocationAck, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.revokedIDs = append(f.revokedIDs, id)
	return &models.RevocationAck{ID: id, Revoked: true}, nil
}

func TestDiplomaHandlerListAnonymous(t *testing.T) {
	srv := &fakeDiplomaSrv{list: []models.Diploma{}}
	h := NewDiplomaHandler(srv)
	fixed := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	h.now = func() time.Time { return fixed }

	c, rec := newContext(http.MethodGet, "/diplomas", nil, models.Anonymous())
	h.List(c)

	require.Equal(t, http.StatusOK, rec.Code)
	env := decode(t, rec)
	assert.JSONEq(t, `[]`, string(env.Data))
	assert.Equal(t, "2026-05-01T10:00:00Z", env.Meta["fetched_at"])
	assert.False(t, srv.lastActor.Authenticated())
}

func TestDiplomaHandlerListUnavailable(t *testing.T) {
	h := NewDiplomaHandler(&fakeDiplomaSrv{listErr: appErrors.ErrServiceUnavailable})
	c, rec := newContext(http.MethodGet, "/diplomas", nil, school)
	h.List(c)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "SERVICE_UNAVAILABLE", decode(t, rec).Error.Code)
}

func TestDiplomaHandlerRevokeRequiresConfirmation(t *testing.T) {
	srv := &fakeDiplomaSrv{}
	h := NewDiplomaHandler(srv)

	for _, body := range []string{"", `{}`, `{"confirm":false}`, `not json`} {
		c, rec := newContext(http.MethodPost, "/diplomas/d-1/revoke", bytes.NewBufferString(body), school)
		c.Params = gin.Params{{Key: "id", Value: "d-1"}}
		h.Revoke(c)

		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		env := decode(t, rec)
		assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
		assert.Contains(t, env.Error.Message, "irreversible")
	}
	assert.Empty(t, srv.revokedIDs)

	c, rec := newContext(http.MethodPost, "/diplomas/d-1/revoke", bytes.NewBufferString(`{"confirm":true}`), school)
	c.Params = gin.Params{{Key: "id", Value: "d-1"}}
	h.Revoke(c)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"d-1"}, srv.revokedIDs)
}

func TestDiplomaHandlerVerificationFileAttachment(t *testing.T) {
	file := &models.VerificationFile{ID: "d-1", StudentName: "Jane Doe", DegreeName: "BSc", IssuedAt: models.NewIssueDate("2024-06-01"), Signature: "sig"}
	h := NewDiplomaHandler(&fakeDiplomaSrv{file: file})

	c, rec := newContext(http.MethodGet, "/diplomas/d-1/verification-file", nil, school)
	c.Params = gin.Params{{Key: "id", Value: "d-1"}}
	h.VerificationFile(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "diploma-d-1.json")
	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.ElementsMatch(t, []string{"id", "student_name", "degree_name", "issued_at", "signature", "revoked"}, keys(got))
}

func TestDiplomaHandlerPDFNotFound(t *testing.T) {
	h := NewDiplomaHandler(&fakeDiplomaSrv{err: appErrors.ErrNotFound})
	c, rec := newContext(http.MethodGet, "/diplomas/x/pdf", nil, school)
	c.Params = gin.Params{{Key: "id", Value: "x"}}
	h.PDF(c)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func keys(m map[string]interface{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

type fakeIssuanceSrv struct {
	report  *models.BulkReport
	content []byte
	req     models.IssueRequest
	err     error
}

func (f *fakeIssuanceSrv) IssueOne(_ context.Context, _ models.ActorContext, req models.IssueRequest) (string, error) {
	f.req = req
	return "id-1", f.err
}

func (f *fakeIssuanceSrv) IssueBulk(_ context.Context, _ models.ActorContext, _ string, content []byte) (*models.BulkReport, error) {
	f.content = content
	return f.report, f.err
}

type fakeReports struct{}

func (fakeReports) OpenBulkReport(token string) (*service.ExportFile, error) {
	if token != "good" {
		return nil, appErrors.ErrNotFound
	}
	return &service.ExportFile{Filename: "bulk-report.csv", ContentType: "text/csv", Body: []byte("row,status\n")}, nil
}

func TestIssuanceHandlerIssue(t *testing.T) {
	srv := &fakeIssuanceSrv{}
	h := NewIssuanceHandler(srv, fakeReports{}, 1024)

	body := `{"student_name":"Jane Doe","degree_name":"BSc"}`
	c, rec := newContext(http.MethodPost, "/diplomas", bytes.NewBufferString(body), school)
	c.Request.Header.Set("Content-Type", "application/json")
	h.Issue(c)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"diploma_id":"id-1"}`, string(decode(t, rec).Data))
	assert.Equal(t, "Jane Doe", srv.req.StudentName)
}

func TestIssuanceHandlerBulkUpload(t *testing.T) {
	srv := &fakeIssuanceSrv{report: &models.BulkReport{Total: 1, Success: 1}}
	h := NewIssuanceHandler(srv, fakeReports{}, 1024)

	csv := []byte("student_name,degree_name\nJane,BSc\n")
	body, contentType := multipartBody(t, "file", "batch.csv", csv)
	c, rec := newContext(http.MethodPost, "/diplomas/bulk", body, school)
	c.Request.Header.Set("Content-Type", contentType)
	h.IssueBulk(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, csv, srv.content)
}

func TestIssuanceHandlerBulkTooLarge(t *testing.T) {
	srv := &fakeIssuanceSrv{}
	h := NewIssuanceHandler(srv, fakeReports{}, 16)

	body, contentType := multipartBody(t, "file", "batch.csv", []byte(strings.Repeat("x", 64)))
	c, rec := newContext(http.MethodPost, "/diplomas/bulk", body, school)
	c.Request.Header.Set("Content-Type", contentType)
	h.IssueBulk(c)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Nil(t, srv.content)
}

func TestIssuanceHandlerBulkMissingFile(t *testing.T) {
	h := NewIssuanceHandler(&fakeIssuanceSrv{}, fakeReports{}, 1024)
	body, contentType := multipartBody(t, "other", "batch.csv", []byte("a"))
	c, rec := newContext(http.MethodPost, "/diplomas/bulk", body, school)
	c.Request.Header.Set("Content-Type", contentType)
	h.IssueBulk(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIssuanceHandlerBulkReport(t *testing.T) {
	h := NewIssuanceHandler(&fakeIssuanceSrv{}, fakeReports{}, 1024)

	c, rec := newContext(http.MethodGet, "/diplomas/bulk/reports/good", nil, models.Anonymous())
	c.Params = gin.Params{{Key: "token", Value: "good"}}
	h.BulkReport(c)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))

	c, rec = newContext(http.MethodGet, "/diplomas/bulk/reports/bad", nil, models.Anonymous())
	c.Params = gin.Params{{Key: "token", Value: "bad"}}
	h.BulkReport(c)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
