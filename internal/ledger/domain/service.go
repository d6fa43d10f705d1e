package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	CreateEntry(ctx context.Context, req CreateEntryRequest) (LedgerEntry, error)
	List(ctx context.Context, req ListRequest) ([]LedgerEntry, error)
	Summary(ctx context.Context) (Summary, error)
}

type CreateEntryRequest struct {
	Type            EntryType
	Amount          int64
	Description     string
	OccurredAt      *time.Time
	RelatedMemberID *snowflake.ID
	ActorID         snowflake.ID
}

type ListRequest struct {
	Type  EntryType
	From  *time.Time
	To    *time.Time
	Limit int
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidType         = errors.New("invalid_type")
	ErrInvalidAmount       = errors.New("invalid_amount")
	ErrInvalidMember       = errors.New("invalid_member")
)
