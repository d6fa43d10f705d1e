package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/clubhouse/internal/clock"
	"github.com/smallbiznis/clubhouse/internal/ledger/domain"
	"github.com/smallbiznis/clubhouse/internal/ledger/repository"
	"github.com/smallbiznis/clubhouse/internal/orgcontext"
	"github.com/smallbiznis/clubhouse/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func setupLedger(t *testing.T, now time.Time) (domain.Service, *snowflake.Node) {
	t.Helper()
	db := dbtest.Open(t, &domain.LedgerEntry{})
	node, err := snowflake.NewNode(9)
	require.NoError(t, err)
	svc := NewService(Params{
		DB:    db,
		Log:   zaptest.NewLogger(t),
		GenID: node,
		Clock: clock.NewFakeClock(now),
		Repo:  repository.Provide(),
	})
	return svc, node
}

func TestCreateEntryValidation(t *testing.T) {
	now := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)
	svc, node := setupLedger(t, now)

	_, err := svc.CreateEntry(context.Background(), domain.CreateEntryRequest{Type: domain.EntryTypeIncome, Amount: 100})
	assert.ErrorIs(t, err, domain.ErrInvalidOrganization)

	ctx := orgcontext.WithOrgID(context.Background(), int64(node.Generate()))
	_, err = svc.CreateEntry(ctx, domain.CreateEntryRequest{Type: "REFUND", Amount: 100})
	assert.ErrorIs(t, err, domain.ErrInvalidType)

	_, err = svc.CreateEntry(ctx, domain.CreateEntryRequest{Type: domain.EntryTypeExpense, Amount: 0})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	zero := snowflake.ID(0)
	_, err = svc.CreateEntry(ctx, domain.CreateEntryRequest{Type: domain.EntryTypeExpense, Amount: 10, RelatedMemberID: &zero})
	assert.ErrorIs(t, err, domain.ErrInvalidMember)
}

func TestCreateEntryDefaultsOccurredAt(t *testing.T) {
	now := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)
	svc, node := setupLedger(t, now)
	ctx := orgcontext.WithOrgID(context.Background(), int64(node.Generate()))

	entry, err := svc.CreateEntry(ctx, domain.CreateEntryRequest{
		Type:        domain.EntryTypeExpense,
		Amount:      250000,
		Description: "  court rental ",
		ActorID:     42,
	})
	require.NoError(t, err)
	assert.Equal(t, now, entry.OccurredAt)
	assert.Equal(t, "court rental", entry.Description)
	require.NotNil(t, entry.CreatedByID)
	assert.Equal(t, snowflake.ID(42), *entry.CreatedByID)
}

func TestListAndSummary(t *testing.T) {
	now := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)
	svc, node := setupLedger(t, now)
	orgID := node.Generate()
	ctx := orgcontext.WithOrgID(context.Background(), int64(orgID))
	otherCtx := orgcontext.WithOrgID(context.Background(), int64(node.Generate()))

	earlier := now.Add(-48 * time.Hour)
	_, err := svc.CreateEntry(ctx, domain.CreateEntryRequest{Type: domain.EntryTypeIncome, Amount: 300000, OccurredAt: &earlier})
	require.NoError(t, err)
	_, err = svc.CreateEntry(ctx, domain.CreateEntryRequest{Type: domain.EntryTypeExpense, Amount: 120000})
	require.NoError(t, err)
	_, err = svc.CreateEntry(otherCtx, domain.CreateEntryRequest{Type: domain.EntryTypeIncome, Amount: 999})
	require.NoError(t, err)

	entries, err := svc.List(ctx, domain.ListRequest{})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, domain.EntryTypeExpense, entries[0].Type)
	assert.Equal(t, domain.EntryTypeIncome, entries[1].Type)

	incomes, err := svc.List(ctx, domain.ListRequest{Type: domain.EntryTypeIncome})
	require.NoError(t, err)
	require.Len(t, incomes, 1)
	assert.Equal(t, int64(300000), incomes[0].Amount)

	_, err = svc.List(ctx, domain.ListRequest{Type: "REFUND"})
	assert.ErrorIs(t, err, domain.ErrInvalidType)

	summary, err := svc.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.Summary{TotalIncome: 300000, TotalExpense: 120000, Balance: 180000}, summary)
}
