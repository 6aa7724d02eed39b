package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/noah-isme/diploma-portal/internal/authority"
	"github.com/noah-isme/diploma-portal/internal/models"
)

// fakeAuthority is an in-memory authority that owns records and signatures.
type fakeAuthority struct {
	mu       sync.Mutex
	records  []models.Diploma
	nextID   int
	failWith map[string]error
	rejectOn map[string]bool
	calls    map[string]int
	issued   []authority.IssuePayload
	bulk     *authority.BulkResult
}

func newFakeAuthority(records ...models.Diploma) *fakeAuthority {
	return &fakeAuthority{
		records:  records,
		failWith: make(map[string]error),
		rejectOn: make(map[string]bool),
		calls:    make(map[string]int),
	}
}

func unavailable(op string) error {
	return &authority.Error{Op: op, Kind: authority.ErrUnavailable, Err: errors.New("connection refused")}
}

func (f *fakeAuthority) enter(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
	return f.failWith[op]
}

func (f *fakeAuthority) callCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeAuthority) find(id string) (int, bool) {
	for i := range f.records {
		if f.records[i].ID == id {
			return i, true
		}
	}
	return -1, false
}

func (f *fakeAuthority) List(ctx context.Context, token string) ([]models.Diploma, error) {
	if err := f.enter("list"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Diploma, len(f.records))
	copy(out, f.records)
	return out, nil
}

func (f *fakeAuthority) Diploma(ctx context.Context, id string) (*models.Diploma, error) {
	if err := f.enter("diploma"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	i, ok := f.find(id)
	if !ok {
		return nil, &authority.Error{Op: "diploma", Status: 404, Message: "unknown diploma", Kind: authority.ErrNotFound}
	}
	d := f.records[i]
	return &d, nil
}

func (f *fakeAuthority) Issue(ctx context.Context, token string, payload authority.IssuePayload) (string, error) {
	if err := f.enter("issue"); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rejectOn[payload.StudentName] {
		return "", &authority.Error{Op: "issue", Status: 400, Message: "student refused", Kind: authority.ErrRejected}
	}
	f.nextID++
	id := fmt.Sprintf("id-%d", f.nextID)
	f.issued = append(f.issued, payload)
	f.records = append(f.records, models.Diploma{
		ID: id, StudentName: payload.StudentName, StudentEmail: payload.StudentEmail, DegreeName: payload.DegreeName,
		IssuedAt: models.NewIssueDate("2024-06-01T00:00:00Z"), Signature: "sig-" + id,
	})
	return id, nil
}

func (f *fakeAuthority) IssueBulk(ctx context.Context, token, filename string, content []byte) (*authority.BulkResult, error) {
	if err := f.enter("issue_bulk"); err != nil {
		return nil, err
	}
	return f.bulk, nil
}

func (f *fakeAuthority) Verify(ctx context.Context, candidate []byte) (*authority.VerifyResult, error) {
	if err := f.enter("verify"); err != nil {
		return nil, err
	}
	var d models.Diploma
	if err := json.Unmarshal(candidate, &d); err != nil {
		return nil, &authority.Error{Op: "verify", Status: 400, Message: "malformed diploma", Kind: authority.ErrRejected}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	i, ok := f.find(d.ID)
	switch {
	case !ok:
		return &authority.VerifyResult{Reason: "unknown diploma"}, nil
	case f.records[i].Revoked:
		return &authority.VerifyResult{Reason: "diploma revoked"}, nil
	case f.records[i].Signature != d.Signature:
		return &authority.VerifyResult{Reason: "invalid signature"}, nil
	default:
		return &authority.VerifyResult{Valid: true, Reason: "signature valid"}, nil
	}
}

func (f *fakeAuthority) Revoke(ctx context.Context, token, id string) (*authority.RevokeResult, error) {
	if err := f.enter("revoke"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	i, ok := f.find(id)
	if !ok {
		return nil, &authority.Error{Op: "revoke", Status: 404, Message: "Diploma not found", Kind: authority.ErrNotFound}
	}
	already := f.records[i].Revoked
	f.records[i].Revoked = true
	return &authority.RevokeResult{AlreadyRevoked: already}, nil
}

func (f *fakeAuthority) DownloadPDF(ctx context.Context, token, id string) ([]byte, error) {
	if err := f.enter("download_pdf"); err != nil {
		return nil, err
	}
	return []byte("%PDF-" + id), nil
}

func (f *fakeAuthority) Login(ctx context.Context, email, password string) (*authority.LoginResult, error) {
	if err := f.enter("login"); err != nil {
		return nil, err
	}
	return &authority.LoginResult{Token: "tok", User: authority.User{Email: email, Role: "school"}}, nil
}

func sampleDiplomas() []models.Diploma {
	return []models.Diploma{
		{ID: "d-1", StudentName: "Jane Doe", StudentEmail: "jane@example.com", DegreeName: "BSc Physics", IssuedAt: models.NewIssueDate("2024-05-01T10:00:00.000001Z"), Signature: "sig-1"},
		{ID: "d-2", StudentName: "John Roe", StudentEmail: "john@example.com", DegreeName: "BA History", IssuedAt: models.NewIssueDate("2024-05-02T10:00:00Z"), Signature: "sig-2"},
		{ID: "d-3", StudentName: "Jane Doe", DegreeName: "MSc Physics", IssuedAt: models.NewIssueDate("2024-05-03T10:00:00Z"), Signature: "sig-3", Revoked: true},
	}
}

func schoolActor() models.ActorContext {
	return models.ActorContext{Role: models.RoleAuthority, Name: "Springfield High", Email: "school@example.com", AuthorityToken: "school-tok", SessionID: "s-school"}
}

func holderActor(email string) models.ActorContext {
	return models.ActorContext{Role: models.RoleHolder, Email: email, AuthorityToken: "holder-tok", SessionID: "s-holder"}
}
