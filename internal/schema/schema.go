// Package schema defines the closed dtype enum and the ordered column
// schema shared by every dataset in the data plane (spec §3). The
// closed-enum-with-String shape follows the teacher's own FileType enum
// in fileloader/types.go.
package schema

import (
	"fmt"

	"github.com/derekwisong/datui/internal/errs"
)

// DType is the closed set of column types from spec §3.
type DType int

const (
	Int8 DType = iota
	Int16
	Int32
	Int64
	UInt8
	UInt16
	UInt32
	UInt64
	Float32
	Float64
	Bool
	String
	Date
	Time
	Datetime
	Duration
	Categorical
	Null
)

// TimeUnit qualifies a Datetime column.
type TimeUnit int

const (
	Milliseconds TimeUnit = iota
	Microseconds
	Nanoseconds
)

func (u TimeUnit) String() string {
	switch u {
	case Milliseconds:
		return "ms"
	case Microseconds:
		return "us"
	case Nanoseconds:
		return "ns"
	default:
		return "unknown"
	}
}

func (d DType) String() string {
	switch d {
	case Int8:
		return "Int8"
	case Int16:
		return "Int16"
	case Int32:
		return "Int32"
	case Int64:
		return "Int64"
	case UInt8:
		return "UInt8"
	case UInt16:
		return "UInt16"
	case UInt32:
		return "UInt32"
	case UInt64:
		return "UInt64"
	case Float32:
		return "Float32"
	case Float64:
		return "Float64"
	case Bool:
		return "Bool"
	case String:
		return "String"
	case Date:
		return "Date"
	case Time:
		return "Time"
	case Datetime:
		return "Datetime"
	case Duration:
		return "Duration"
	case Categorical:
		return "Categorical"
	case Null:
		return "Null"
	default:
		return "Unknown"
	}
}

// IsNumeric reports whether d participates in arithmetic/statistics.
func (d DType) IsNumeric() bool {
	switch d {
	case Int8, Int16, Int32, Int64, UInt8, UInt16, UInt32, UInt64, Float32, Float64:
		return true
	default:
		return false
	}
}

// IsTemporal reports whether d supports member access (.year, .month, ...).
func (d DType) IsTemporal() bool {
	switch d {
	case Date, Time, Datetime:
		return true
	default:
		return false
	}
}

// Column is a single (name, dtype) pair. TZ and Unit only apply to Datetime.
type Column struct {
	Name string
	Type DType
	Unit TimeUnit
	TZ   string // empty means naive
}

// Schema is an ordered list of columns. Ordering is significant; names
// must be unique after hive-partition merge and every projection step.
type Schema []Column

// IndexOf returns the position of name, or -1.
func (s Schema) IndexOf(name string) int {
	for i, c := range s {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Names returns the column names in order.
func (s Schema) Names() []string {
	out := make([]string, len(s))
	for i, c := range s {
		out[i] = c.Name
	}
	return out
}

// Validate checks the column-name-uniqueness invariant.
func (s Schema) Validate() error {
	seen := make(map[string]struct{}, len(s))
	for _, c := range s {
		if _, dup := seen[c.Name]; dup {
			return errs.InternalInvariant.New(fmt.Sprintf("duplicate column name %q in schema", c.Name))
		}
		seen[c.Name] = struct{}{}
	}
	return nil
}

// CanCast reports whether a value of dtype 'from' can be converted to
// 'to'. It is looser than the concat rule in Unify: it accepts any dtype
// cast to String, which Unify rejects as a schema conflict.
func CanCast(from, to DType) bool {
	if from == to {
		return true
	}
	if from == Null || to == Null {
		return true
	}
	if from.IsNumeric() && to.IsNumeric() {
		return true
	}
	if to == String {
		return true
	}
	return false
}

// Widen picks the common supertype of two dtypes for concat/melt unification.
func Widen(a, b DType) (DType, bool) {
	return widen(a, b)
}

func widen(a, b DType) (DType, bool) {
	if a == b {
		return a, true
	}
	if a == Null {
		return b, true
	}
	if b == Null {
		return a, true
	}
	if a.IsNumeric() && b.IsNumeric() {
		if a == Float64 || b == Float64 || a == Float32 || b == Float32 {
			return Float64, true
		}
		return Int64, true
	}
	// String only unifies with String (or Null, handled above): a bare
	// numeric/string mismatch across concatenated files is a genuine
	// schema conflict (spec §3/§8 S3), not an implicit cast.
	return a, false
}

// Unify implements the concat-compatibility rule from spec §3: same
// names, castable dtypes. Returns the unified schema or SchemaMismatch.
func (s Schema) Unify(other Schema) (Schema, error) {
	if len(s) != len(other) {
		return nil, errs.SchemaMismatch.New(fmt.Sprintf("column count differs: %d vs %d", len(s), len(other)))
	}
	out := make(Schema, len(s))
	for i := range s {
		if s[i].Name != other[i].Name {
			return nil, errs.SchemaMismatch.New(fmt.Sprintf("column %d name differs: %q vs %q", i, s[i].Name, other[i].Name))
		}
		w, ok := widen(s[i].Type, other[i].Type)
		if !ok {
			return nil, errs.SchemaMismatch.New(fmt.Sprintf("column %q types incompatible: %s vs %s", s[i].Name, s[i].Type, other[i].Type))
		}
		out[i] = Column{Name: s[i].Name, Type: w, Unit: s[i].Unit, TZ: s[i].TZ}
	}
	return out, nil
}

// WithLeadingPartitionColumns prepends partition columns ahead of the file
// schema, resolving name collisions in favor of the partition column, per
// spec §4.C step 4.
func WithLeadingPartitionColumns(partitions Schema, file Schema) Schema {
	out := make(Schema, 0, len(partitions)+len(file))
	out = append(out, partitions...)
	seen := make(map[string]struct{}, len(partitions))
	for _, c := range partitions {
		seen[c.Name] = struct{}{}
	}
	for _, c := range file {
		if _, dup := seen[c.Name]; dup {
			continue
		}
		out = append(out, c)
	}
	return out
}
