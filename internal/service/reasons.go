package service

// Reason explains why a family operation was refused. Refusals are ordinary
// values shown to the user, never Go errors; errors are reserved for storage
// failures.
type Reason string

const (
	ReasonNone Reason = ""

	// Marriage refusals
	ReasonSelfMarriage    Reason = "you cannot marry yourself"
	ReasonAlreadyMarried  Reason = "you are already married"
	ReasonTargetMarried   Reason = "this user is already married"
	ReasonAncestorSpouse  Reason = "you cannot marry your ancestor"
	ReasonNotMarried      Reason = "you are not married"

	// Adoption refusals
	ReasonNeedSpouse      Reason = "you must have a spouse to adopt"
	ReasonAlreadyParented Reason = "this user is already someone's child"
	ReasonOwnSpouse       Reason = "you cannot become a parent of your own spouse"
	ReasonOwnAncestor     Reason = "you cannot become a parent of your own ancestor"
	ReasonNotYourChild    Reason = "you are not a parent of this user"
	ReasonNoFamily        Reason = "you have no family to leave"
)

// Eligibility is the structured outcome of a validation check.
type Eligibility struct {
	OK     bool
	Reason Reason
}

func allowed() Eligibility {
	return Eligibility{OK: true}
}

func refused(r Reason) Eligibility {
	return Eligibility{Reason: r}
}
