package models

// VerificationOutcome is the overall verdict of a verification attempt.
type VerificationOutcome string

const (
	OutcomeValid              VerificationOutcome = "VALID"
	OutcomeInvalid            VerificationOutcome = "INVALID"
	OutcomeServiceUnavailable VerificationOutcome = "SERVICE_UNAVAILABLE"
)

// InvalidReason explains an INVALID outcome.
type InvalidReason string

const (
	ReasonMalformedInput    InvalidReason = "MALFORMED_INPUT"
	ReasonNotFound          InvalidReason = "NOT_FOUND"
	ReasonRevoked           InvalidReason = "REVOKED"
	ReasonSignatureMismatch InvalidReason = "SIGNATURE_MISMATCH"
)

var reasonMessages = map[InvalidReason]string{
	ReasonMalformedInput:    "The file is not a valid diploma verification file.",
	ReasonNotFound:          "No diploma with this id exists.",
	ReasonRevoked:           "This diploma has been revoked.",
	ReasonSignatureMismatch: "The diploma signature does not match the issued record.",
}

// VerificationResult is the verdict returned to callers.
type VerificationResult struct {
	Outcome VerificationOutcome `json:"outcome"`
	Valid   bool                `json:"valid"`
	Reason  InvalidReason       `json:"reason,omitempty"`
	Diploma *Diploma            `json:"diploma,omitempty"`
	Message string              `json:"message"`
}

// ValidResult builds a VALID verdict.
func ValidResult(d Diploma) VerificationResult {
	return VerificationResult{Outcome: OutcomeValid, Valid: true, Diploma: &d, Message: "Diploma is valid."}
}

// InvalidResult builds an INVALID verdict with the standard message for reason.
func InvalidResult(reason InvalidReason) VerificationResult {
	return VerificationResult{Outcome: OutcomeInvalid, Reason: reason, Message: reasonMessages[reason]}
}

// UnavailableResult reports that no verdict could be obtained.
func UnavailableResult() VerificationResult {
	return VerificationResult{
		Outcome: OutcomeServiceUnavailable,
		Message: "Verification service is unavailable. Please try again later.",
	}
}
