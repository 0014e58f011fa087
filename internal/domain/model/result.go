package model

// Verb is the backend write style chosen for a member.
type Verb string

// Write verbs.
const (
	VerbNone   Verb = ""
	VerbCreate Verb = "create"
	VerbUpdate Verb = "update"
)

// ErrorKind classifies why a member's submission failed.
type ErrorKind string

// Failure kinds.
const (
	KindNone       ErrorKind = ""
	KindTransport  ErrorKind = "transport"
	KindRejected   ErrorKind = "rejected"
	KindValidation ErrorKind = "validation"
)

// Result is the outcome of submitting one member's selection.
type Result struct {
	MemberID int64     `json:"member_id"`
	OK       bool      `json:"ok"`
	Verb     Verb      `json:"verb,omitempty"`
	Kind     ErrorKind `json:"error_kind,omitempty"`
	Message  string    `json:"message"`
}

// Report is what one Submit call returns.
type Report struct {
	Results []Result `json:"results"`
	// Bulk is set when a multi-member submission failed as a whole partition.
	Bulk *Message `json:"bulk,omitempty"`
}

// Failed returns the results that did not succeed.
func (r Report) Failed() []Result {
	var out []Result
	for _, res := range r.Results {
		if !res.OK {
			out = append(out, res)
		}
	}
	return out
}

// Result returns the result for memberID.
func (r Report) Result(memberID int64) (Result, bool) {
	for _, res := range r.Results {
		if res.MemberID == memberID {
			return res, true
		}
	}
	return Result{}, false
}
