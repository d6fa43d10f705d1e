package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	ListOrgGuests(ctx context.Context) ([]OrgGuest, error)
	CreateOrgGuest(ctx context.Context, req CreateOrgGuestRequest) (*OrgGuest, error)
	UpdateOrgGuest(ctx context.Context, guestID snowflake.ID, req UpdateOrgGuestRequest) (*OrgGuest, error)
	DeleteOrgGuest(ctx context.Context, guestID snowflake.ID) error

	ListGameGuests(ctx context.Context, gameID snowflake.ID) ([]GameGuestView, error)
	GetGameGuest(ctx context.Context, gameID, guestID snowflake.ID) (*GameGuest, error)
	AddGameGuest(ctx context.Context, gameID snowflake.ID, req AddGameGuestRequest) (*GameGuestView, error)
	RemoveGameGuest(ctx context.Context, gameID, guestID snowflake.ID) error
}

type CreateOrgGuestRequest struct {
	Name  string
	Phone string
}

// UpdateOrgGuestRequest carries optional fields; nil leaves a field unchanged
// and an empty phone clears it.
type UpdateOrgGuestRequest struct {
	Name  *string
	Phone *string
}

// AddGameGuestRequest adds either a saved org guest or an ad hoc guest.
type AddGameGuestRequest struct {
	OrgGuestID *snowflake.ID
	Name       string
	Phone      string
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidName         = errors.New("invalid_name")
	ErrInvalidPhone        = errors.New("invalid_phone")
	ErrInvalidGuest        = errors.New("invalid_guest")
	ErrNotMember           = errors.New("not_member")
	ErrForbidden           = errors.New("forbidden")

	ErrGuestNotFound     = errors.New("guest_not_found")
	ErrGameGuestNotFound = errors.New("game_guest_not_found")

	ErrDuplicatePhone    = errors.New("duplicate_phone")
	ErrGuestInUse        = errors.New("guest_in_use")
	ErrGuestAlreadyAdded = errors.New("guest_already_added")
)
