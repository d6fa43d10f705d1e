package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/clubhouse/internal/finance/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) ChargeTotals(ctx context.Context, db *gorm.DB, orgID snowflake.ID) (domain.ChargeTotals, error) {
	var totals domain.ChargeTotals
	err := db.WithContext(ctx).Raw(
		`SELECT
			COALESCE(SUM(CASE WHEN status = 'PENDING' THEN amount ELSE 0 END), 0) AS pending_total,
			COALESCE(SUM(CASE WHEN status = 'PAID' THEN amount ELSE 0 END), 0) AS paid_total,
			COALESCE(SUM(CASE WHEN status = 'PENDING' THEN 1 ELSE 0 END), 0) AS pending_count,
			COALESCE(SUM(CASE WHEN status = 'PAID' THEN 1 ELSE 0 END), 0) AS paid_count
		 FROM org_charges
		 WHERE org_id = ?`,
		orgID,
	).Scan(&totals).Error
	if err != nil {
		return domain.ChargeTotals{}, err
	}
	return totals, nil
}
