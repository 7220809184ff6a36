package resource

// Status is the derived classification attached to every row.
type Status string

const (
	// StatusHealthy means a corroborating secondary record reports a good state.
	StatusHealthy Status = "healthy"
	// StatusDegraded means a corroborating record exists but reports a bad state.
	StatusDegraded Status = "degraded"
	// StatusUnknown means a corroborating record exists with a state we cannot map.
	StatusUnknown Status = "unknown"
	// StatusUnmatched means no corroborating record exists. Treated as the worst case.
	StatusUnmatched Status = "unmatched"
)

// Broken reports whether the status should surface under a broken-only filter.
func (s Status) Broken() bool {
	return s == StatusDegraded || s == StatusUnmatched
}

// Row is one correlated output unit: one per primary resource (or, in
// work-list mode, one per requested identifier).
type Row struct {
	Profile string `json:"profile" yaml:"profile"`
	Account string `json:"account" yaml:"account"`
	Region  string `json:"region" yaml:"region"`

	Status Status `json:"status" yaml:"status"`
	Label  string `json:"label" yaml:"label"` // Report-specific wording of Status (e.g., "SSM BROKEN")

	Primary   Resource  `json:"primary" yaml:"primary"`
	Secondary *Resource `json:"secondary,omitempty" yaml:"secondary,omitempty"` // Representative match, nil when unmatched
	Matches   int       `json:"matches" yaml:"matches"`

	// Fields is the union of primary and secondary attributes plus any
	// values added by the classifier or the work list (e.g., notes).
	Fields map[string]string `json:"fields" yaml:"fields"`
}

// Field returns a field value or "" when unset.
func (r Row) Field(key string) string {
	if r.Fields == nil {
		return ""
	}
	return r.Fields[key]
}
