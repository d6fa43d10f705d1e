package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/clubhouse/internal/ledger/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, entry *domain.LedgerEntry) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO ledger_entries (
			id, org_id, type, amount, description, occurred_at,
			related_member_id, related_charge_id, created_by_id, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.OrgID,
		entry.Type,
		entry.Amount,
		entry.Description,
		entry.OccurredAt,
		entry.RelatedMemberID,
		entry.RelatedChargeID,
		entry.CreatedByID,
		entry.CreatedAt,
		entry.UpdatedAt,
	).Error
}

func (r *repo) FindByCharge(ctx context.Context, db *gorm.DB, orgID, chargeID snowflake.ID) (*domain.LedgerEntry, error) {
	var entry domain.LedgerEntry
	err := db.WithContext(ctx).Raw(
		`SELECT id, org_id, type, amount, description, occurred_at,
			related_member_id, related_charge_id, created_by_id, created_at, updated_at
		 FROM ledger_entries WHERE org_id = ? AND related_charge_id = ?`,
		orgID,
		chargeID,
	).Scan(&entry).Error
	if err != nil {
		return nil, err
	}
	if entry.ID == 0 {
		return nil, nil
	}
	return &entry, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter domain.ListFilter) ([]*domain.LedgerEntry, error) {
	var entries []*domain.LedgerEntry
	stmt := db.WithContext(ctx).
		Model(&domain.LedgerEntry{}).
		Where("org_id = ?", orgID)
	if filter.Type != "" {
		stmt = stmt.Where("type = ?", filter.Type)
	}
	if filter.From != nil {
		stmt = stmt.Where("occurred_at >= ?", filter.From.UTC())
	}
	if filter.To != nil {
		stmt = stmt.Where("occurred_at < ?", filter.To.UTC())
	}
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit)
	}
	err := stmt.
		Order("occurred_at desc, id desc").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repo) Totals(ctx context.Context, db *gorm.DB, orgID snowflake.ID) (domain.Summary, error) {
	var row struct {
		TotalIncome  int64
		TotalExpense int64
	}
	err := db.WithContext(ctx).Raw(
		`SELECT
			COALESCE(SUM(CASE WHEN type = ? THEN amount ELSE 0 END), 0) AS total_income,
			COALESCE(SUM(CASE WHEN type = ? THEN amount ELSE 0 END), 0) AS total_expense
		 FROM ledger_entries WHERE org_id = ?`,
		domain.EntryTypeIncome,
		domain.EntryTypeExpense,
		orgID,
	).Scan(&row).Error
	if err != nil {
		return domain.Summary{}, err
	}
	return domain.Summary{
		TotalIncome:  row.TotalIncome,
		TotalExpense: row.TotalExpense,
		Balance:      row.TotalIncome - row.TotalExpense,
	}, nil
}
