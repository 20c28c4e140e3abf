package errors

// Kind classifies a rejected operation so calling tooling can distinguish
// "fix your inputs" failures from invariant violations without matching every
// sentinel individually.
type Kind uint8

const (
	// KindValidation marks malformed input: zero amounts, missing records.
	KindValidation Kind = iota + 1
	// KindAuthorization marks callers acting on accounts they do not own.
	KindAuthorization
	// KindConsistency marks violations of externally maintained structure:
	// bad neighbor hints, unordered redemption lists, cross-denom mixups.
	KindConsistency
	// KindSolvency marks operations that would break system backing.
	KindSolvency
	// KindArithmetic marks fixed-point failures such as division by zero.
	KindArithmetic
	// KindResource marks exhausted balances, quotas, or unavailable feeds.
	KindResource
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthorization:
		return "authorization"
	case KindConsistency:
		return "consistency"
	case KindSolvency:
		return "solvency"
	case KindArithmetic:
		return "arithmetic"
	case KindResource:
		return "resource"
	}
	return "unknown"
}

// Error is a sentinel error carrying its taxonomy kind. Modules declare their
// sentinels with New and compare with errors.Is as usual.
type Error struct {
	kind Kind
	msg  string
}

// New constructs a classified sentinel error.
func New(kind Kind, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

func (e *Error) Error() string { return e.msg }

// Kind returns the taxonomy classification.
func (e *Error) Kind() Kind { return e.kind }

// KindOf extracts the classification from err or any error it wraps. Returns
// zero when the chain carries no classified error.
func KindOf(err error) Kind {
	for err != nil {
		if classified, ok := err.(*Error); ok {
			return classified.kind
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return 0
		}
		err = unwrapper.Unwrap()
	}
	return 0
}
