package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/clubhouse/internal/audit/domain"
	"github.com/smallbiznis/clubhouse/internal/billing/domain"
	"github.com/smallbiznis/clubhouse/internal/cache"
	"github.com/smallbiznis/clubhouse/internal/clock"
	"github.com/smallbiznis/clubhouse/internal/config"
	ledgerdomain "github.com/smallbiznis/clubhouse/internal/ledger/domain"
	obsmetrics "github.com/smallbiznis/clubhouse/internal/observability/metrics"
	"github.com/smallbiznis/clubhouse/internal/orgcontext"
	"github.com/smallbiznis/clubhouse/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultChargeLimit = 100
	maxChargeLimit     = 500

	memberTypeMonthly = "MONTHLY"
	memberTypeGuest   = "GUEST"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Repo       domain.Repository
	LedgerRepo ledgerdomain.Repository
	Defaults   *config.BillingDefaultsHolder
	Renderer   domain.ReceiptRenderer
	Cache      cache.BillingSettingsCache `optional:"true"`
	AuditSvc   auditdomain.Service        `optional:"true"`
	ObsMetrics *obsmetrics.Metrics        `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       domain.Repository
	ledgerRepo ledgerdomain.Repository
	defaults   *config.BillingDefaultsHolder
	renderer   domain.ReceiptRenderer
	cache      cache.BillingSettingsCache
	auditSvc   auditdomain.Service
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("billing.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		ledgerRepo: p.LedgerRepo,
		defaults:   p.Defaults,
		renderer:   p.Renderer,
		cache:      p.Cache,
		auditSvc:   p.AuditSvc,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) GetOrInitSettings(ctx context.Context) (domain.Settings, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return domain.Settings{}, domain.ErrInvalidOrganization
	}
	return s.settingsFor(ctx, orgID)
}

func (s *Service) settingsFor(ctx context.Context, orgID snowflake.ID) (domain.Settings, error) {
	if s.cache != nil {
		if settings, ok := s.cache.Get(orgID); ok {
			return settings, nil
		}
	}
	return s.freshSettings(ctx, orgID)
}

// freshSettings reads the stored settings and refreshes the cache. Charge
// runs and updates must not see a copy cached by this process.
func (s *Service) freshSettings(ctx context.Context, orgID snowflake.ID) (domain.Settings, error) {
	settings, err := s.repo.FindSettings(ctx, s.db, orgID)
	if err != nil {
		return domain.Settings{}, err
	}
	if settings == nil {
		settings, err = s.initSettings(ctx, orgID)
		if err != nil {
			return domain.Settings{}, err
		}
	}

	if s.cache != nil {
		s.cache.Set(*settings)
	}
	return *settings, nil
}

func (s *Service) initSettings(ctx context.Context, orgID snowflake.ID) (*domain.Settings, error) {
	defaults := s.defaults.Get()
	now := s.clock.Now().UTC()

	settings := domain.Settings{
		ID:               s.genID.Generate(),
		OrgID:            orgID,
		Mode:             domain.BillingMode(strings.ToUpper(strings.TrimSpace(defaults.Mode))),
		CycleType:        domain.CycleType(strings.ToUpper(strings.TrimSpace(defaults.CycleType))),
		AnchorDate:       domain.DateOnly(now),
		DueDay:           defaults.DueDay,
		MembershipAmount: defaults.MembershipAmount,
		SessionAmount:    defaults.SessionAmount,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if defaults.CycleWeeks > 0 {
		weeks := defaults.CycleWeeks
		settings.CycleWeeks = &weeks
	}

	if err := s.repo.InsertSettings(ctx, s.db, &settings); err != nil {
		if !db.IsDuplicateKeyErr(err) {
			return nil, err
		}
		// Lost the race to a concurrent first access.
		existing, findErr := s.repo.FindSettings(ctx, s.db, orgID)
		if findErr != nil {
			return nil, findErr
		}
		if existing == nil {
			return nil, err
		}
		return existing, nil
	}

	s.log.Info("initialized billing settings",
		zap.String("org_id", orgID.String()),
		zap.String("billing_mode", string(settings.Mode)),
		zap.String("cycle", string(settings.CycleType)),
	)
	return &settings, nil
}

func (s *Service) UpdateSettings(ctx context.Context, req domain.UpdateSettingsRequest) (domain.Settings, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return domain.Settings{}, domain.ErrInvalidOrganization
	}

	mode := domain.BillingMode(strings.ToUpper(strings.TrimSpace(string(req.Mode))))
	if !mode.Valid() {
		return domain.Settings{}, domain.ErrInvalidBillingMode
	}
	cycleType := domain.CycleType(strings.ToUpper(strings.TrimSpace(string(req.CycleType))))
	if !cycleType.Valid() {
		return domain.Settings{}, domain.ErrInvalidCycleType
	}
	if cycleType == domain.CycleCustomWeeks && (req.CycleWeeks == nil || *req.CycleWeeks <= 0) {
		return domain.Settings{}, domain.ErrInvalidCycleWeeks
	}
	if req.CycleWeeks != nil && *req.CycleWeeks <= 0 {
		return domain.Settings{}, domain.ErrInvalidCycleWeeks
	}
	if req.DueDay < 1 || req.DueDay > 31 {
		return domain.Settings{}, domain.ErrInvalidDueDay
	}
	if req.MembershipAmount < 0 || req.SessionAmount < 0 {
		return domain.Settings{}, domain.ErrInvalidAmount
	}
	if req.AnchorDate != nil && req.AnchorDate.IsZero() {
		return domain.Settings{}, domain.ErrInvalidAnchorDate
	}

	current, err := s.freshSettings(ctx, orgID)
	if err != nil {
		return domain.Settings{}, err
	}

	updated := current
	updated.Mode = mode
	updated.CycleType = cycleType
	updated.CycleWeeks = nil
	if req.CycleWeeks != nil {
		weeks := *req.CycleWeeks
		updated.CycleWeeks = &weeks
	}
	if req.AnchorDate != nil {
		updated.AnchorDate = domain.DateOnly(*req.AnchorDate)
	}
	updated.DueDay = req.DueDay
	updated.MembershipAmount = req.MembershipAmount
	updated.SessionAmount = req.SessionAmount
	updated.UpdatedAt = s.clock.Now().UTC()

	if err := s.repo.UpdateSettings(ctx, s.db, &updated); err != nil {
		return domain.Settings{}, err
	}
	if s.cache != nil {
		s.cache.Invalidate(orgID)
	}

	if s.auditSvc != nil {
		targetID := updated.ID.String()
		_ = s.auditSvc.AuditLog(ctx, nil, "", nil, auditdomain.ActionBillingSettings, "billing_settings", &targetID, map[string]any{
			"billing_mode":      string(updated.Mode),
			"cycle":             string(updated.CycleType),
			"due_day":           updated.DueDay,
			"membership_amount": updated.MembershipAmount,
			"session_amount":    updated.SessionAmount,
		})
	}

	return updated, nil
}

func (s *Service) GenerateCharges(ctx context.Context, req domain.GenerateChargesRequest) (domain.GenerateChargesResult, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return domain.GenerateChargesResult{}, domain.ErrInvalidOrganization
	}

	settings, err := s.freshSettings(ctx, orgID)
	if err != nil {
		return domain.GenerateChargesResult{}, err
	}
	now := s.clock.Now().UTC()
	cycle, err := domain.ComputeCycle(settings, req.CycleKey, now)
	if err != nil {
		return domain.GenerateChargesResult{}, err
	}

	result := domain.GenerateChargesResult{CycleKey: cycle.Key}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		run := chargeRun{
			svc:     s,
			tx:      tx,
			orgID:   orgID,
			force:   req.Force,
			actorID: req.ActorID,
			now:     now,
		}

		members, err := s.repo.ListBillableMembers(ctx, tx, orgID)
		if err != nil {
			return err
		}
		memberTypes := make(map[snowflake.ID]string, len(members))
		for _, member := range members {
			memberTypes[member.ID] = member.MemberType
		}

		if settings.Mode.IncludesMembership() {
			for _, member := range members {
				if member.MemberType != memberTypeMonthly {
					continue
				}
				key := domain.ChargeKey{OrgID: orgID, MemberID: member.ID, CycleKey: cycle.Key, Type: domain.ChargeTypeMembership}
				if err := run.ensure(ctx, key, settings.MembershipAmount, nil); err != nil {
					return err
				}
			}
		}

		if settings.Mode.IncludesPerSession() {
			sessions, err := s.repo.ListSessionAttendance(ctx, tx, orgID, cycle.Start, cycle.End)
			if err != nil {
				return err
			}
			for _, session := range sessions {
				memberType, known := memberTypes[session.MemberID]
				if !known || memberType != memberTypeGuest {
					continue
				}
				gameID := session.GameID
				key := domain.ChargeKey{OrgID: orgID, MemberID: session.MemberID, CycleKey: domain.SessionCycleKey(gameID), Type: domain.ChargeTypePerSession}
				if err := run.ensure(ctx, key, settings.SessionAmount, &gameID); err != nil {
					return err
				}
			}
		}

		result.Created = run.created
		result.Skipped = run.skipped
		return nil
	})
	if err != nil {
		return domain.GenerateChargesResult{}, err
	}

	s.obsMetrics.RecordChargeRun(ctx, string(settings.CycleType), result.Created, result.Skipped)
	s.log.Info("generated charges",
		zap.String("org_id", orgID.String()),
		zap.String("cycle_key", result.CycleKey),
		zap.Bool("force", req.Force),
		zap.Int("created", result.Created),
		zap.Int("skipped", result.Skipped),
	)
	if s.auditSvc != nil {
		_ = s.auditSvc.AuditLog(ctx, nil, "", nil, auditdomain.ActionChargesGenerate, "billing_cycle", &result.CycleKey, map[string]any{
			"force":   req.Force,
			"created": result.Created,
			"skipped": result.Skipped,
		})
	}

	return result, nil
}

// chargeRun carries one GenerateCharges transaction.
type chargeRun struct {
	svc     *Service
	tx      *gorm.DB
	orgID   snowflake.ID
	force   bool
	actorID snowflake.ID
	now     time.Time

	created int
	skipped int
}

func (r *chargeRun) ensure(ctx context.Context, key domain.ChargeKey, amount int64, gameID *snowflake.ID) error {
	existing, err := r.svc.repo.FindChargeByKey(ctx, r.tx, key)
	if err != nil {
		return err
	}

	switch domain.DecideEnsure(existing, r.force) {
	case domain.EnsureCreate:
		charge := domain.Charge{
			ID:        r.svc.genID.Generate(),
			OrgID:     key.OrgID,
			MemberID:  key.MemberID,
			CycleKey:  key.CycleKey,
			Type:      key.Type,
			Status:    domain.ChargeStatusPending,
			Amount:    amount,
			GameID:    gameID,
			CreatedAt: r.now,
			UpdatedAt: r.now,
		}
		if r.actorID != 0 {
			actorID := r.actorID
			charge.CreatedByID = &actorID
		}
		inserted, err := r.svc.repo.InsertCharge(ctx, r.tx, &charge)
		if err != nil {
			return err
		}
		if inserted {
			r.created++
		} else {
			r.skipped++
		}
	case domain.EnsureRefresh:
		existing.Amount = amount
		existing.GameID = gameID
		if existing.Status == domain.ChargeStatusVoid {
			existing.Status = domain.ChargeStatusPending
			existing.VoidedAt = nil
		}
		existing.UpdatedAt = r.now
		if err := r.svc.repo.RefreshCharge(ctx, r.tx, existing); err != nil {
			return err
		}
		r.skipped++
	default:
		r.skipped++
	}
	return nil
}

func (s *Service) SetChargeStatus(ctx context.Context, req domain.SetChargeStatusRequest) (domain.Charge, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return domain.Charge{}, domain.ErrInvalidOrganization
	}
	if req.ChargeID == 0 {
		return domain.Charge{}, domain.ErrInvalidCharge
	}
	target := domain.ChargeStatus(strings.ToUpper(strings.TrimSpace(string(req.Status))))

	var (
		charge      domain.Charge
		from        domain.ChargeStatus
		applied     bool
		ledgerEntry *ledgerdomain.LedgerEntry
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.repo.FindChargeForUpdate(ctx, tx, orgID, req.ChargeID)
		if err != nil {
			return err
		}
		if current == nil {
			return domain.ErrChargeNotFound
		}
		charge = *current
		from = current.Status

		apply, err := domain.ResolveTransition(current.Status, target)
		if err != nil {
			return err
		}
		if !apply {
			return nil
		}

		now := s.clock.Now().UTC()
		switch target {
		case domain.ChargeStatusPaid:
			entry, err := s.ensureIncome(ctx, tx, &charge, req.ActorID, now)
			if err != nil {
				return err
			}
			if entry != nil {
				ledgerEntry = entry
			}
			charge.Status = domain.ChargeStatusPaid
			charge.PaidAt = &now
			charge.VoidedAt = nil
		case domain.ChargeStatusVoid:
			charge.Status = domain.ChargeStatusVoid
			charge.VoidedAt = &now
		}
		charge.UpdatedAt = now

		if err := s.repo.UpdateChargeStatus(ctx, tx, &charge); err != nil {
			return err
		}
		applied = true
		return nil
	})
	if err != nil {
		return domain.Charge{}, err
	}
	if !applied {
		return charge, nil
	}

	s.obsMetrics.RecordChargeTransition(ctx, string(from), string(charge.Status))
	if ledgerEntry != nil {
		s.obsMetrics.RecordLedgerEntry(ctx, string(ledgerEntry.Type))
	}
	if s.auditSvc != nil {
		targetID := charge.ID.String()
		metadata := map[string]any{
			"from":   string(from),
			"to":     string(charge.Status),
			"amount": charge.Amount,
		}
		if ledgerEntry != nil {
			metadata["ledger_entry_id"] = ledgerEntry.ID.String()
		}
		_ = s.auditSvc.AuditLog(ctx, nil, "", nil, auditdomain.ActionChargeStatus, "charge", &targetID, metadata)
	}

	return charge, nil
}

// ensureIncome links charge to its INCOME entry, creating one when missing.
// It returns the entry only when it was created here.
func (s *Service) ensureIncome(ctx context.Context, tx *gorm.DB, charge *domain.Charge, actorID snowflake.ID, now time.Time) (*ledgerdomain.LedgerEntry, error) {
	existing, err := s.ledgerRepo.FindByCharge(ctx, tx, charge.OrgID, charge.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		charge.LedgerEntryID = &existing.ID
		return nil, nil
	}

	description := fmt.Sprintf("Charge paid: %s (%s)", charge.CycleKey, charge.Type)
	entry := ledgerdomain.NewChargeIncome(s.genID.Generate(), charge.OrgID, charge.MemberID, charge.ID, charge.Amount, description, actorID, now)
	if err := s.ledgerRepo.Insert(ctx, tx, &entry); err != nil {
		return nil, err
	}
	charge.LedgerEntryID = &entry.ID
	return &entry, nil
}

func (s *Service) ListCharges(ctx context.Context, req domain.ListChargesRequest) ([]domain.Charge, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidOrganization
	}

	status := domain.ChargeStatus(strings.ToUpper(strings.TrimSpace(string(req.Status))))
	switch status {
	case "", domain.ChargeStatusPending, domain.ChargeStatusPaid, domain.ChargeStatusVoid:
	default:
		return nil, domain.ErrInvalidStatus
	}

	limit := req.Limit
	if limit <= 0 {
		limit = defaultChargeLimit
	}
	if limit > maxChargeLimit {
		limit = maxChargeLimit
	}

	items, err := s.repo.ListCharges(ctx, s.db, orgID, domain.ChargeFilter{
		CycleKey: strings.TrimSpace(req.CycleKey),
		MemberID: req.MemberID,
		Status:   status,
		Limit:    limit,
	})
	if err != nil {
		return nil, err
	}

	charges := make([]domain.Charge, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		charges = append(charges, *item)
	}
	return charges, nil
}

func (s *Service) GetCharge(ctx context.Context, chargeID snowflake.ID) (domain.Charge, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return domain.Charge{}, domain.ErrInvalidOrganization
	}
	if chargeID == 0 {
		return domain.Charge{}, domain.ErrInvalidCharge
	}

	charge, err := s.repo.FindChargeByID(ctx, s.db, orgID, chargeID)
	if err != nil {
		return domain.Charge{}, err
	}
	if charge == nil {
		return domain.Charge{}, domain.ErrChargeNotFound
	}
	return *charge, nil
}

func (s *Service) ChargeReceipt(ctx context.Context, chargeID snowflake.ID) ([]byte, error) {
	charge, err := s.GetCharge(ctx, chargeID)
	if err != nil {
		return nil, err
	}
	if charge.Status != domain.ChargeStatusPaid {
		return nil, domain.ErrChargeNotPaid
	}

	parties, err := s.repo.FindReceiptParties(ctx, s.db, charge.OrgID, charge.MemberID)
	if err != nil {
		return nil, err
	}
	return s.renderer.Render(domain.ReceiptData{
		OrgName:    parties.OrgName,
		MemberName: parties.MemberName,
		Charge:     charge,
		IssuedAt:   s.clock.Now().UTC(),
	})
}

func (s *Service) ListOrganizationIDs(ctx context.Context) ([]snowflake.ID, error) {
	return s.repo.ListOrganizationIDs(ctx, s.db)
}

// RunAll keeps going past a failing organization; failures are logged and
// joined into the returned error alongside the partial result.
func (s *Service) RunAll(ctx context.Context) (domain.RunAllResult, error) {
	orgIDs, err := s.ListOrganizationIDs(ctx)
	if err != nil {
		return domain.RunAllResult{}, err
	}

	result := domain.RunAllResult{Orgs: len(orgIDs), Results: make([]domain.OrgRunResult, 0, len(orgIDs))}
	var errs []error
	for _, orgID := range orgIDs {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		orgCtx := orgcontext.WithOrgID(ctx, int64(orgID))
		run, err := s.GenerateCharges(orgCtx, domain.GenerateChargesRequest{})
		if err != nil {
			s.log.Warn("billing run failed for organization", zap.String("org_id", orgID.String()), zap.Error(err))
			errs = append(errs, fmt.Errorf("org %s: %w", orgID, err))
			continue
		}
		result.Results = append(result.Results, domain.OrgRunResult{
			OrgID:    orgID.String(),
			CycleKey: run.CycleKey,
			Created:  run.Created,
			Skipped:  run.Skipped,
		})
	}
	return result, errors.Join(errs...)
}
