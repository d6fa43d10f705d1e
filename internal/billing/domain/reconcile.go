package domain

// EnsureAction is the outcome of reconciling one expected charge against the
// stored row for its key.
type EnsureAction int

const (
	// EnsureCreate inserts a new PENDING charge.
	EnsureCreate EnsureAction = iota
	// EnsureSkip leaves the stored charge untouched.
	EnsureSkip
	// EnsureRefresh overwrites amount and game link, reviving VOID to PENDING.
	EnsureRefresh
)

// DecideEnsure applies the idempotency rule for an expected charge. Only
// EnsureCreate counts as created; both other outcomes count as skipped.
func DecideEnsure(existing *Charge, force bool) EnsureAction {
	if existing == nil {
		return EnsureCreate
	}
	if existing.Status == ChargeStatusPaid || !force {
		return EnsureSkip
	}
	return EnsureRefresh
}

// ResolveTransition validates a requested status change. apply is false when
// the charge already has the target status.
func ResolveTransition(current, target ChargeStatus) (apply bool, err error) {
	if target != ChargeStatusPaid && target != ChargeStatusVoid {
		return false, ErrInvalidStatus
	}
	if current == target {
		return false, nil
	}
	switch {
	case current == ChargeStatusPending:
		return true, nil
	case current == ChargeStatusPaid && target == ChargeStatusVoid:
		return false, ErrChargeAlreadyPaid
	case current == ChargeStatusVoid && target == ChargeStatusPaid:
		return false, ErrChargeVoided
	default:
		return false, ErrInvalidTransition
	}
}
