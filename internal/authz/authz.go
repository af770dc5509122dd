// Package authz decides whether a caller may perform an operation on a
// clinical record. It does no I/O; callers load the facts it needs.
package authz

import "github.com/carelink/carelink-be/internal/auth"

type Operation int

const (
	Read Operation = iota
	Create
	Update
	Delete
)

func (o Operation) String() string {
	switch o {
	case Read:
		return "read"
	case Create:
		return "create"
	case Update:
		return "update"
	case Delete:
		return "delete"
	}
	return "unknown"
}

type Kind int

const (
	PatientKind Kind = iota
	DoctorKind
	MappingKind
)

// Target describes the record being acted on. Owner is the user that owns
// the patient the record belongs to; it is unused for doctors and for
// patient creation.
type Target struct {
	Kind  Kind
	Owner int64
}

func Patient(owner int64) Target { return Target{Kind: PatientKind, Owner: owner} }

func Doctor() Target { return Target{Kind: DoctorKind} }

// Mapping targets a link through the owner of its patient.
func Mapping(patientOwner int64) Target { return Target{Kind: MappingKind, Owner: patientOwner} }

// Decision is the outcome of Authorize. Reason is set when denied.
type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision { return Decision{Allowed: true} }

func deny(reason string) Decision { return Decision{Reason: reason} }

// Authorize applies the ownership rules:
//   - doctors are shared; any authenticated caller may do anything
//   - anyone may create a patient and becomes its owner
//   - every other patient operation needs the owner
//   - every mapping operation needs the owner of the linked patient
func Authorize(caller auth.Caller, op Operation, target Target) Decision {
	if caller.UserID <= 0 {
		return deny("Authentication credentials were not provided.")
	}
	switch target.Kind {
	case DoctorKind:
		return allow()
	case PatientKind:
		if op == Create || target.Owner == caller.UserID {
			return allow()
		}
		return deny("You can only " + op.String() + " your own patients.")
	case MappingKind:
		if target.Owner == caller.UserID {
			return allow()
		}
		if op == Create {
			return deny("You can only create mappings for your own patients.")
		}
		return deny("You can only " + op.String() + " mappings for your own patients.")
	}
	return deny("unknown record type")
}
