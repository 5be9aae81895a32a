package config

import (
	"encoding/json"
	"time"
)

// ValueExpr is a default or override value for an Input/Output declaration.
// Exactly one of Literal or Starlark is set. Starlark is a short expression
// (e.g. `2 * facts["base"]`) evaluated once at load time against the facts
// supplied to Load.
type ValueExpr struct {
	Literal  json.RawMessage `json:"literal,omitempty"`
	Starlark string          `json:"starlark,omitempty" validate:"omitempty"`
}

// NamespaceDecl declares a namespace path. Namespaces are also created
// implicitly as intermediate path components of Input/Output/Observation
// declarations, so an explicit NamespaceDecl is only needed for an otherwise
// empty namespace.
type NamespaceDecl struct {
	Path string `json:"path" validate:"required"`
}

// IOPointDecl declares an Input or Output entry.
type IOPointDecl struct {
	// Path is the absolute path of the entry, e.g. "/sensors/temp-1".
	Path string `json:"path" validate:"required"`

	// Type is the sample type: "trigger", "bool", "num", "str", or "json".
	Type string `json:"type" validate:"required,oneof=trigger bool num str json"`

	// Units is a free-form unit label (e.g. "celsius").
	Units string `json:"units,omitempty"`

	// Mandatory marks the point as required to hold a value at all times.
	Mandatory bool `json:"mandatory,omitempty"`

	// Default supplies the entry's default value, used when no live push
	// or override is present.
	Default *ValueExpr `json:"default,omitempty"`

	// Override supplies the entry's administrative override value.
	Override *ValueExpr `json:"override,omitempty"`
}

// ObservationDecl declares an Observation tap on an existing Input or Output.
type ObservationDecl struct {
	// Path is the absolute path of the observation entry.
	Path string `json:"path" validate:"required"`

	// Source is the absolute path of the entry the observation watches.
	Source string `json:"source" validate:"required"`

	// JSONExtract is a JSON pointer-like extraction spec applied to JSON
	// samples before filtering, e.g. "reading.celsius".
	JSONExtract string `json:"json_extract,omitempty"`

	// MinPeriod is the minimum number of seconds between accepted samples.
	MinPeriod *float64 `json:"min_period,omitempty"`

	// RangeLow/RangeHigh bound accepted numeric samples.
	RangeLow  *float64 `json:"range_low,omitempty"`
	RangeHigh *float64 `json:"range_high,omitempty" validate:"omitempty,gtefield=RangeLow"`

	// ChangeBy requires a numeric sample to differ from the last accepted
	// sample by at least this amount.
	ChangeBy *float64 `json:"change_by,omitempty"`

	// BufferMax bounds the observation's ring buffer size.
	BufferMax int `json:"buffer_max,omitempty" validate:"omitempty,min=1"`

	// BufferBackupPath and BufferBackupPeriod configure periodic buffer
	// persistence through the tree's BufferBackend.
	BufferBackupPath   string  `json:"buffer_backup_path,omitempty"`
	BufferBackupPeriod float64 `json:"buffer_backup_period,omitempty" validate:"omitempty,gt=0"`

	// TransformPlugin names a registered transform plugin (see
	// pkg/transformplugin) to run over the buffer in place of the fixed
	// mean/stddev/max/min transforms.
	TransformPlugin string `json:"transform_plugin,omitempty"`

	// Transform, if set, computes a built-in reduction over the buffer on
	// every accepted sample and publishes that instead of the raw sample.
	// One of "mean", "stddev", "max", "min".
	Transform string `json:"transform,omitempty" validate:"omitempty,oneof=mean stddev max min"`

	// Destination records where this observation's published samples
	// should be forwarded by external delivery layers; the tree itself
	// does not interpret it.
	Destination string `json:"destination,omitempty"`
}

// RouteDecl declares a static source-to-destination route.
type RouteDecl struct {
	From string `json:"from" validate:"required"`
	To   string `json:"to" validate:"required,nefield=From"`
}

// BringupSpec is the fully parsed, validated description of a tree's
// initial state.
type BringupSpec struct {
	Namespaces   []NamespaceDecl   `json:"namespaces,omitempty"`
	Inputs       []IOPointDecl     `json:"inputs,omitempty"`
	Outputs      []IOPointDecl     `json:"outputs,omitempty"`
	Observations []ObservationDecl `json:"observations,omitempty"`
	Routes       []RouteDecl       `json:"routes,omitempty"`

	SourceFiles []string  `json:"source_files"`
	ParsedAt    time.Time `json:"parsed_at"`

	Errors []ValidationError `json:"errors,omitempty"`
}

// ValidationError carries a parse or validation failure with location
// information, when available.
type ValidationError struct {
	File     string `json:"file,omitempty"`
	Line     int    `json:"line,omitempty"`
	Column   int    `json:"column,omitempty"`
	Path     string `json:"path,omitempty"`
	Message  string `json:"message"`
	Severity string `json:"severity" validate:"required,oneof=error warning info"`
}

// EvaluateOptions controls CUE evaluation behavior.
type EvaluateOptions struct {
	Package         string            `json:"package,omitempty"`
	Tags            []string          `json:"tags,omitempty"`
	Concrete        bool              `json:"concrete"`
	AllowStarlark   bool              `json:"allow_starlark"`
	StarlarkTimeout time.Duration     `json:"starlark_timeout,omitempty"`
	Facts           map[string]interface{} `json:"facts,omitempty"`
}

// StarlarkResult is the result of evaluating one Starlark expression.
type StarlarkResult struct {
	Value         interface{}   `json:"value,omitempty"`
	ExecutionTime time.Duration `json:"execution_time"`
	Error         string        `json:"error,omitempty"`
}
