package reconciler

import "mealreview/internal/mealapi"

type State int

const (
	// Unresolved: the identity provider has not reported yet.
	Unresolved State = iota
	NoUser
	// SchoolUnset: signed in, no school on the profile, or the stored school could not be found.
	SchoolUnset
	// SchoolTransientMissing: the profile lost a school it had before. Treated as a resync artifact.
	SchoolTransientMissing
	SchoolSet
	// MustSelect: the selection dialog is open and cannot be dismissed.
	MustSelect
)

func (s State) String() string {
	switch s {
	case Unresolved:
		return "unresolved"
	case NoUser:
		return "no_user"
	case SchoolUnset:
		return "school_unset"
	case SchoolTransientMissing:
		return "school_transient_missing"
	case SchoolSet:
		return "school_set"
	case MustSelect:
		return "must_select"
	}
	return "unknown"
}

// Event is delivered to subscribers after every change.
type Event struct {
	State      State
	School     *mealapi.School
	DialogOpen bool
	// Adopted is set only when this change made School the newly selected school,
	// after a successful lookup or an explicit Select.
	Adopted bool
}

// marker is the last school code the reconciler acted on. The zero value is "nothing
// processed yet", which differs from "processed a profile without a school".
type marker struct {
	processed bool
	code      string
}

func processedCode(code string) marker {
	return marker{processed: true, code: code}
}

func (m marker) hadSchool() bool {
	return m.processed && m.code != ""
}

func (m marker) is(code string) bool {
	return m.processed && m.code == code
}
