package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"time"
)

// Diploma is a credential record as held by the issuing authority.
type Diploma struct {
	ID           string    `json:"id"`
	StudentName  string    `json:"student_name"`
	StudentEmail string    `json:"student_email,omitempty"`
	DegreeName   string    `json:"degree_name"`
	IssuedAt     IssueDate `json:"issued_at"`
	Signature    string    `json:"signature"`
	Revoked      bool      `json:"revoked"`
}

// diplomaWire accepts the legacy registry shape keyed by filename.
type diplomaWire struct {
	ID           string    `json:"id"`
	Filename     string    `json:"filename"`
	StudentName  string    `json:"student_name"`
	StudentEmail string    `json:"student_email"`
	DegreeName   string    `json:"degree_name"`
	IssuedAt     IssueDate `json:"issued_at"`
	Signature    string    `json:"signature"`
	Revoked      bool      `json:"revoked"`
}

// UnmarshalJSON decodes a diploma, deriving the id from a legacy `<id>.json` filename.
func (d *Diploma) UnmarshalJSON(data []byte) error {
	var w diplomaWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	id := w.ID
	if id == "" && w.Filename != "" {
		base := path.Base(w.Filename)
		id = strings.TrimSuffix(base, path.Ext(base))
	}
	*d = Diploma{
		ID:           id,
		StudentName:  w.StudentName,
		StudentEmail: w.StudentEmail,
		DegreeName:   w.DegreeName,
		IssuedAt:     w.IssuedAt,
		Signature:    w.Signature,
		Revoked:      w.Revoked,
	}
	return nil
}

// VerificationFile is the downloadable proof a holder presents for verification.
type VerificationFile struct {
	ID          string    `json:"id"`
	StudentName string    `json:"student_name"`
	DegreeName  string    `json:"degree_name"`
	IssuedAt    IssueDate `json:"issued_at"`
	Signature   string    `json:"signature"`
	Revoked     bool      `json:"revoked"`
}

// VerificationFile projects the record onto its verification file fields.
func (d Diploma) VerificationFile() VerificationFile {
	return VerificationFile{
		ID:          d.ID,
		StudentName: d.StudentName,
		DegreeName:  d.DegreeName,
		IssuedAt:    d.IssuedAt,
		Signature:   d.Signature,
		Revoked:     d.Revoked,
	}
}

// DiplomaList decodes either a bare JSON array or an object wrapping it under "diplomas".
type DiplomaList []Diploma

// UnmarshalJSON implements json.Unmarshaler.
func (l *DiplomaList) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*l = DiplomaList{}
		return nil
	}
	var items []Diploma
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return err
		}
	} else {
		var wrapped struct {
			Diplomas []Diploma `json:"diplomas"`
		}
		if err := json.Unmarshal(trimmed, &wrapped); err != nil {
			return err
		}
		items = wrapped.Diplomas
	}
	if items == nil {
		items = []Diploma{}
	}
	*l = items
	return nil
}

// issueDateLayouts are tried in order when interpreting an issue date.
var issueDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// IssueDate is a calendar date whose original textual form is kept verbatim.
type IssueDate struct {
	raw  string
	time time.Time
}

// NewIssueDate builds an IssueDate from its textual form.
func NewIssueDate(raw string) IssueDate {
	d := IssueDate{raw: raw}
	for _, layout := range issueDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			d.time = t
			break
		}
	}
	return d
}

// String returns the original text.
func (d IssueDate) String() string { return d.raw }

// Time returns the parsed instant, zero when the text was not a recognised date.
func (d IssueDate) Time() time.Time { return d.time }

// IsZero reports whether the date is empty.
func (d IssueDate) IsZero() bool { return d.raw == "" }

// Date formats the calendar date as YYYY-MM-DD, falling back to the raw text.
func (d IssueDate) Date() string {
	if d.time.IsZero() {
		return d.raw
	}
	return d.time.Format("2006-01-02")
}

// MarshalJSON writes the original text back unchanged.
func (d IssueDate) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.raw)
}

// UnmarshalJSON keeps the string exactly as received.
func (d *IssueDate) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*d = IssueDate{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("issued_at must be a string: %w", err)
	}
	*d = NewIssueDate(raw)
	return nil
}
