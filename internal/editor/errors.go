package editor

import "errors"

// Kind classifies errors reported to the host.
type Kind uint8

const (
	KindNone Kind = iota
	KindInvalidParameter
	KindNoTerrain
	KindCapacityExceeded
	KindUndoUnavailable
	KindDivisionByZero // never produced by the editor; division by zero leaves the value unchanged
	KindInternalConsistency
)

var kindNames = [...]string{
	"None",
	"InvalidParameter",
	"NoTerrain",
	"CapacityExceeded",
	"UndoUnavailable",
	"DivisionByZero",
	"InternalConsistency",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Unknown"
}

// Editor errors. Match with errors.Is.
var (
	ErrInvalidParameter    = errors.New("invalid parameter")
	ErrNoTerrain           = errors.New("no terrain")
	ErrCapacityExceeded    = errors.New("region capacity exceeded")
	ErrUndoUnavailable     = errors.New("undo unavailable")
	ErrDivisionByZero      = errors.New("division by zero") // for host-side classification only
	ErrInternalConsistency = errors.New("internal consistency")
)

var kindErrors = []struct {
	kind Kind
	err  error
}{
	{KindInvalidParameter, ErrInvalidParameter},
	{KindNoTerrain, ErrNoTerrain},
	{KindCapacityExceeded, ErrCapacityExceeded},
	{KindUndoUnavailable, ErrUndoUnavailable},
	{KindDivisionByZero, ErrDivisionByZero},
	{KindInternalConsistency, ErrInternalConsistency},
}

// KindOf returns the kind of err, or KindNone when err is nil or unclassified.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	for _, ke := range kindErrors {
		if errors.Is(err, ke.err) {
			return ke.kind
		}
	}
	return KindNone
}
