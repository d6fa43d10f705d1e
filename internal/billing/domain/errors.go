package domain

import "errors"

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidCycleKey     = errors.New("invalid_cycle_key")
	ErrInvalidCycleType    = errors.New("invalid_cycle")
	ErrInvalidCycleWeeks   = errors.New("invalid_cycle_weeks")
	ErrInvalidBillingMode  = errors.New("invalid_billing_mode")
	ErrInvalidDueDay       = errors.New("invalid_due_day")
	ErrInvalidAnchorDate   = errors.New("invalid_anchor_date")
	ErrInvalidAmount       = errors.New("invalid_amount")
	ErrInvalidStatus       = errors.New("invalid_status")
	ErrInvalidCharge       = errors.New("invalid_charge")

	ErrChargeNotFound = errors.New("charge_not_found")

	ErrChargeAlreadyPaid = errors.New("charge_already_paid")
	ErrChargeVoided      = errors.New("charge_voided")
	ErrInvalidTransition = errors.New("invalid_charge_transition")
	ErrChargeNotPaid     = errors.New("charge_not_paid")
)
