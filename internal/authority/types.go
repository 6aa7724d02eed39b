package authority

// User is the profile the authority returns on login.
type User struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// LoginResult is the authority's answer to a successful login.
type LoginResult struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// IssuePayload is the body sent to the issue endpoint.
type IssuePayload struct {
	StudentName  string `json:"student_name"`
	StudentEmail string `json:"student_email"`
	DegreeName   string `json:"degree_name"`
}

// VerifyResult is the authority's verdict on a candidate.
type VerifyResult struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason"`
}

// BulkDetail is one row outcome reported by the bulk endpoint.
type BulkDetail struct {
	Row       int    `json:"row"`
	Status    string `json:"status"`
	DiplomaID string `json:"diploma_id"`
	Error     string `json:"error"`
}

// BulkResult is the bulk endpoint's report.
type BulkResult struct {
	Total   *int         `json:"total"`
	Success *int         `json:"success"`
	Failed  *int         `json:"failed"`
	Details []BulkDetail `json:"details"`
}

// RevokeResult acknowledges a revocation.
type RevokeResult struct {
	AlreadyRevoked bool
	Message        string
}

type issueResponse struct {
	DiplomaID string `json:"diploma_id"`
	ID        string `json:"id"`
}

type messageBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Reason  string `json:"reason"`
}

func (m messageBody) text() string {
	switch {
	case m.Message != "":
		return m.Message
	case m.Error != "":
		return m.Error
	default:
		return m.Reason
	}
}
