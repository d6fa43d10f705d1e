package service

import (
	"context"

	billingdomain "github.com/smallbiznis/clubhouse/internal/billing/domain"
	"github.com/smallbiznis/clubhouse/internal/finance/domain"
	ledgerdomain "github.com/smallbiznis/clubhouse/internal/ledger/domain"
	"github.com/smallbiznis/clubhouse/internal/orgcontext"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// DefaultRecentLimit is used when the caller does not ask for a size.
const DefaultRecentLimit = 20

const maxRecentLimit = 100

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Repo        domain.Repository
	LedgerRepo  ledgerdomain.Repository
	BillingRepo billingdomain.Repository
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	repo        domain.Repository
	ledgerRepo  ledgerdomain.Repository
	billingRepo billingdomain.Repository
}

func NewService(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("finance.service"),
		repo:        p.Repo,
		ledgerRepo:  p.LedgerRepo,
		billingRepo: p.BillingRepo,
	}
}

func (s *Service) Summary(ctx context.Context) (domain.Summary, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return domain.Summary{}, domain.ErrInvalidOrganization
	}

	var (
		ledger  ledgerdomain.Summary
		charges domain.ChargeTotals
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		ledger, err = s.ledgerRepo.Totals(gctx, s.db, orgID)
		return err
	})
	g.Go(func() error {
		var err error
		charges, err = s.repo.ChargeTotals(gctx, s.db, orgID)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.Summary{}, err
	}

	return domain.Summary{
		OrgID:               orgID.String(),
		IncomeTotal:         ledger.TotalIncome,
		ExpenseTotal:        ledger.TotalExpense,
		Balance:             ledger.TotalIncome - ledger.TotalExpense,
		PendingChargesTotal: charges.PendingTotal,
		PaidChargesTotal:    charges.PaidTotal,
		PendingChargesCount: charges.PendingCount,
		PaidChargesCount:    charges.PaidCount,
	}, nil
}

// Recent clamps limit to [1, 100].
func (s *Service) Recent(ctx context.Context, limit int) (domain.Recent, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return domain.Recent{}, domain.ErrInvalidOrganization
	}
	limit = clampLimit(limit)

	var (
		entries []*ledgerdomain.LedgerEntry
		charges []*billingdomain.Charge
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		entries, err = s.ledgerRepo.List(gctx, s.db, orgID, ledgerdomain.ListFilter{Limit: limit})
		return err
	})
	g.Go(func() error {
		var err error
		charges, err = s.billingRepo.ListCharges(gctx, s.db, orgID, billingdomain.ChargeFilter{Limit: limit})
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.Recent{}, err
	}

	return domain.Recent{
		OrgID:   orgID.String(),
		Ledger:  derefAll(entries),
		Charges: derefAll(charges),
	}, nil
}

func clampLimit(limit int) int {
	return max(1, min(limit, maxRecentLimit))
}

func derefAll[T any](items []*T) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if item != nil {
			out = append(out, *item)
		}
	}
	return out
}

