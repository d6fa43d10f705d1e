package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/clubhouse/internal/audit/domain"
	"github.com/smallbiznis/clubhouse/internal/clock"
	ledgerdomain "github.com/smallbiznis/clubhouse/internal/ledger/domain"
	obsmetrics "github.com/smallbiznis/clubhouse/internal/observability/metrics"
	"github.com/smallbiznis/clubhouse/internal/orgcontext"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultListLimit = 100
	maxListLimit     = 500
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Repo       ledgerdomain.Repository
	AuditSvc   auditdomain.Service `optional:"true"`
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       ledgerdomain.Repository
	auditSvc   auditdomain.Service
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) ledgerdomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("ledger.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		auditSvc:   p.AuditSvc,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) CreateEntry(ctx context.Context, req ledgerdomain.CreateEntryRequest) (ledgerdomain.LedgerEntry, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return ledgerdomain.LedgerEntry{}, ledgerdomain.ErrInvalidOrganization
	}
	if !req.Type.Valid() {
		return ledgerdomain.LedgerEntry{}, ledgerdomain.ErrInvalidType
	}
	if req.Amount <= 0 {
		return ledgerdomain.LedgerEntry{}, ledgerdomain.ErrInvalidAmount
	}
	if req.RelatedMemberID != nil && *req.RelatedMemberID == 0 {
		return ledgerdomain.LedgerEntry{}, ledgerdomain.ErrInvalidMember
	}

	now := s.clock.Now().UTC()
	occurredAt := now
	if req.OccurredAt != nil && !req.OccurredAt.IsZero() {
		occurredAt = req.OccurredAt.UTC()
	}

	entry := ledgerdomain.LedgerEntry{
		ID:              s.genID.Generate(),
		OrgID:           orgID,
		Type:            req.Type,
		Amount:          req.Amount,
		Description:     strings.TrimSpace(req.Description),
		OccurredAt:      occurredAt,
		RelatedMemberID: req.RelatedMemberID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if req.ActorID != 0 {
		actorID := req.ActorID
		entry.CreatedByID = &actorID
	}

	if err := s.repo.Insert(ctx, s.db, &entry); err != nil {
		return ledgerdomain.LedgerEntry{}, err
	}

	s.obsMetrics.RecordLedgerEntry(ctx, string(entry.Type))
	if s.auditSvc != nil {
		targetID := entry.ID.String()
		_ = s.auditSvc.AuditLog(ctx, nil, "", nil, auditdomain.ActionLedgerEntryCreate, "ledger_entry", &targetID, map[string]any{
			"type":   string(entry.Type),
			"amount": entry.Amount,
		})
	}

	return entry, nil
}

func (s *Service) List(ctx context.Context, req ledgerdomain.ListRequest) ([]ledgerdomain.LedgerEntry, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, ledgerdomain.ErrInvalidOrganization
	}
	if req.Type != "" && !req.Type.Valid() {
		return nil, ledgerdomain.ErrInvalidType
	}

	limit := req.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	items, err := s.repo.List(ctx, s.db, orgID, ledgerdomain.ListFilter{
		Type:  req.Type,
		From:  req.From,
		To:    req.To,
		Limit: limit,
	})
	if err != nil {
		return nil, err
	}

	entries := make([]ledgerdomain.LedgerEntry, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		entries = append(entries, *item)
	}
	return entries, nil
}

func (s *Service) Summary(ctx context.Context) (ledgerdomain.Summary, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return ledgerdomain.Summary{}, ledgerdomain.ErrInvalidOrganization
	}
	return s.repo.Totals(ctx, s.db, orgID)
}
