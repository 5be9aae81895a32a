package policy

import (
	"time"
)

// Severity represents the severity level of a policy violation.
type Severity string

const (
	// SeverityInfo is for informational messages.
	SeverityInfo Severity = "info"

	// SeverityWarning is for warnings that should be reviewed.
	SeverityWarning Severity = "warning"

	// SeverityError is for errors that should block operations.
	SeverityError Severity = "error"

	// SeverityCritical is for critical violations that must be addressed immediately.
	SeverityCritical Severity = "critical"
)

// Policy represents a single admission policy with its Rego code.
type Policy struct {
	// Name is the unique name of the policy.
	Name string `json:"name"`

	// Description provides a human-readable description.
	Description string `json:"description"`

	// Rego contains the Rego policy code.
	Rego string `json:"rego"`

	// Severity is the default severity for violations.
	Severity Severity `json:"severity"`

	// Enabled indicates if the policy is active.
	Enabled bool `json:"enabled"`

	// Tags are labels for organizing policies.
	Tags []string `json:"tags,omitempty"`

	// Metadata carries loader-assigned bookkeeping, e.g. source file path.
	Metadata map[string]interface{} `json:"metadata,omitempty"`

	// CreatedAt is when the policy was created.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the policy was last updated.
	UpdatedAt time.Time `json:"updated_at"`
}

// Violation represents a single policy violation.
type Violation struct {
	// Policy is the name of the policy that was violated.
	Policy string `json:"policy"`

	// Path is the resource-tree path that violated the policy.
	Path string `json:"path,omitempty"`

	// Message is a human-readable violation message.
	Message string `json:"message"`

	// Severity is the violation severity level.
	Severity Severity `json:"severity"`
}

// Result is the outcome of evaluating every enabled policy against one
// admission request.
type Result struct {
	// Allowed reports whether the request may proceed.
	Allowed bool `json:"allowed"`

	// Violations lists every deny produced by an enabled policy.
	Violations []Violation `json:"violations,omitempty"`

	// Warnings lists policies that failed to evaluate; a failed policy
	// never blocks the request, it only gets logged and surfaced here.
	Warnings []string `json:"warnings,omitempty"`

	// EvaluatedAt is when the policy set was evaluated.
	EvaluatedAt time.Time `json:"evaluated_at"`

	// EvaluatedPolicies lists the names of policies that ran.
	EvaluatedPolicies []string `json:"evaluated_policies"`

	// Duration is how long the evaluation took.
	Duration time.Duration `json:"duration"`
}

// Input is the admission request handed to every enabled policy's Rego
// module: a create or route mutation against a single tree path.
type Input struct {
	// Path is the absolute resource-tree path the operation targets.
	Path string `json:"path"`

	// Namespace is the owning client identity (spec calls this a
	// "namespace": the client-supplied prefix a push/admin call is
	// performed under).
	Namespace string `json:"namespace"`

	// Operation is "create" (GetInput/GetOutput/GetObservation
	// materializing a new entry) or "route" (SetSource).
	Operation string `json:"operation"`

	// Variant is the resource variant being created, empty for "route".
	Variant string `json:"variant,omitempty"`

	// Timestamp is when the request is being evaluated.
	Timestamp time.Time `json:"timestamp"`
}

// Bundle is a named, versioned collection of policies distributed as one
// JSON file.
type Bundle struct {
	// Name is the unique name of the bundle.
	Name string `json:"name"`

	// Version is the bundle version.
	Version string `json:"version"`

	// Description provides a human-readable description.
	Description string `json:"description"`

	// Policies are the policies in this bundle.
	Policies []Policy `json:"policies"`

	// CreatedAt is when the bundle was created.
	CreatedAt time.Time `json:"created_at"`
}
