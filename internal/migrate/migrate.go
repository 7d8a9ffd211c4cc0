// Package migrate plans the per-field work needed to move one object
// from its stored schema version to a target version. A Plan is an
// ordered list of typed operations, each carrying a Risk level, built up
// incrementally and deduplicated on request — the "statements" are field
// conversions instead of SQL DDL.
package migrate

// ConversionPolicy is the per-field rule applied when a field's shape
// changes between schema versions: the database-wide default, or any
// per-field override a future schema format might carry.
type ConversionPolicy int

const (
	// PolicyAttempt converts the old encoding to the new one if the
	// codec can do so, and falls back to Reset if it can't.
	PolicyAttempt ConversionPolicy = iota
	// PolicyRequire fails migration outright if conversion would lose
	// data or the codec cannot convert at all.
	PolicyRequire
	// PolicyReset discards the old value and writes the field's default
	// under the new version.
	PolicyReset
	// PolicyRetain keeps the old encoded bytes verbatim, valid only when
	// the field's on-disk encoding is unchanged between versions.
	PolicyRetain
)

func (p ConversionPolicy) String() string {
	switch p {
	case PolicyAttempt:
		return "attempt"
	case PolicyRequire:
		return "require"
	case PolicyReset:
		return "reset"
	case PolicyRetain:
		return "retain"
	default:
		return "unknown"
	}
}

// OperationKind tags one entry in a Plan: a field conversion, a reset to
// default, a byte-for-byte retain, or an unresolved field the plan could
// not decide on.
type OperationKind int

const (
	OperationConvert OperationKind = iota
	OperationReset
	OperationRetain
	OperationUnresolved
)

func (k OperationKind) String() string {
	switch k {
	case OperationConvert:
		return "convert"
	case OperationReset:
		return "reset"
	case OperationRetain:
		return "retain"
	case OperationUnresolved:
		return "unresolved"
	default:
		return "unknown"
	}
}

// Risk levels an operation: routine, a breaking change the caller
// should be warned about, or purely informational.
type Risk int

const (
	RiskNone Risk = iota
	RiskBreaking
	RiskInfo
)

// FieldConversion is one planned per-field action for a single object's
// migration from one schema version to another.
type FieldConversion struct {
	Kind             OperationKind
	Risk             Risk
	FieldStorageID   uint32
	FieldName        string
	Policy           ConversionPolicy
	Note             string
	UnresolvedReason string
}
