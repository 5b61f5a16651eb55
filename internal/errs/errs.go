// Package errs defines the closed error-kind taxonomy shared across datui's
// data plane (see spec §7). Every kind is a package-level *errors.Kind so
// callers can match on it with the kind's own Is method (for example
// errs.InputNotFound.Is(err)) instead of inspecting message text.
package errs

import (
	goerrors "gopkg.in/src-d/go-errors.v1"
)

var (
	InputNotFound     = goerrors.NewKind("input not found: %s")
	PermissionDenied  = goerrors.NewKind("permission denied: %s")
	UnsupportedFormat = goerrors.NewKind("unsupported format: %s")
	SchemaMismatch    = goerrors.NewKind("schema mismatch: %s")
	Decode            = goerrors.NewKind("decode failed: %s")
	CloudTransient    = goerrors.NewKind("cloud transient error: %s")
	CloudAuth         = goerrors.NewKind("cloud auth error: %s")
	QueryParse        = goerrors.NewKind("query parse error at line %d col %d: expected %s")
	QuerySemantics    = goerrors.NewKind("query semantics error: %s")
	TemplateCorrupt   = goerrors.NewKind("template corrupt: %s")
	InternalInvariant = goerrors.NewKind("internal invariant violated: %s")

	MixedFormats        = goerrors.NewKind("mixed formats: %s")
	UnknownColumn        = goerrors.NewKind("unknown column: %s")
	UnknownFunction      = goerrors.NewKind("unknown function: %s")
	TypeMismatch         = goerrors.NewKind("type mismatch: %s")
	AggregationRequired  = goerrors.NewKind("aggregation required when using 'by' without aggregation functions")
	DuplicateColumn      = goerrors.NewKind("duplicate output column: %s")
	ConflictingTransforms = goerrors.NewKind("pivot and melt are mutually exclusive")
	SchemaInferenceFailed = goerrors.NewKind("schema inference failed: %s")
	AlreadyExists        = goerrors.NewKind("destination already exists: %s")
	InvalidOption        = goerrors.NewKind("invalid option: %s")
	InsufficientData      = goerrors.NewKind("insufficient data: %s")
	Io                   = goerrors.NewKind("io error (%s): %s")
)
