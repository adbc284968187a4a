package hunter

// Candidate is a single person record returned by the discovery API.
//
// Everything except Confidence is a string to keep the spreadsheet output
// simple and stable; missing fields stay empty.
type Candidate struct {
	Email      string
	FirstName  string
	LastName   string
	Position   string
	Department string

	// Confidence is the vendor-supplied 0-100 deliverability estimate.
	Confidence int
}

// Status classifies the terminal state of a domain search.
type Status string

const (
	// StatusFound means at least one candidate survived the search (and any
	// filtering applied afterwards).
	StatusFound Status = "found"
	// StatusNoCandidates means the vendor returned an empty candidate list.
	StatusNoCandidates Status = "no_candidates"
	// StatusNoExecutives means candidates came back but none matched the
	// executive title allow-list.
	StatusNoExecutives Status = "no_executives"
	// StatusAPIError means the request failed; Reason carries the cause.
	StatusAPIError Status = "api_error"
)

// Well-known api_error reasons.
const (
	ReasonRateLimited  = "rate_limited"
	ReasonNetworkError = "network_error"
)

// Outcome is the result of searching one domain. Failures are values, not
// errors: the orchestration loop proceeds to the next domain unconditionally.
type Outcome struct {
	Domain     string
	Company    string
	Candidates []Candidate
	Status     Status

	// Reason is human-readable context for non-found statuses.
	Reason string
}

// Found reports whether the outcome carries usable candidates.
func (o Outcome) Found() bool {
	return o.Status == StatusFound && len(o.Candidates) > 0
}
