package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/clubhouse/internal/billing/domain"
	"github.com/smallbiznis/clubhouse/pkg/db/option"
	pkgrepository "github.com/smallbiznis/clubhouse/pkg/repository"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const chargeColumns = `id, org_id, org_member_id, cycle_key, type, status, amount, game_id, ledger_entry_id,
	created_by_id, paid_at, voided_at, created_at, updated_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func settingsStore(db *gorm.DB, orgID snowflake.ID) pkgrepository.OrgStore[domain.Settings] {
	return pkgrepository.ForOrg[domain.Settings](db, orgID)
}

func chargeStore(db *gorm.DB, orgID snowflake.ID) pkgrepository.OrgStore[domain.Charge] {
	return pkgrepository.ForOrg[domain.Charge](db, orgID)
}

func (r *repo) FindSettings(ctx context.Context, db *gorm.DB, orgID snowflake.ID) (*domain.Settings, error) {
	return settingsStore(db, orgID).FindOne(ctx, nil)
}

func (r *repo) InsertSettings(ctx context.Context, db *gorm.DB, settings *domain.Settings) error {
	if settings == nil {
		return nil
	}
	return settingsStore(db, settings.OrgID).Create(ctx, settings)
}

func (r *repo) UpdateSettings(ctx context.Context, db *gorm.DB, settings *domain.Settings) error {
	return db.WithContext(ctx).Exec(
		`UPDATE org_billing_settings
		 SET billing_mode = ?, cycle = ?, cycle_weeks = ?, anchor_date = ?, due_day = ?,
		     membership_amount = ?, session_amount = ?, updated_at = ?
		 WHERE org_id = ?`,
		settings.Mode,
		settings.CycleType,
		settings.CycleWeeks,
		settings.AnchorDate,
		settings.DueDay,
		settings.MembershipAmount,
		settings.SessionAmount,
		settings.UpdatedAt,
		settings.OrgID,
	).Error
}

func (r *repo) ListBillableMembers(ctx context.Context, db *gorm.DB, orgID snowflake.ID) ([]domain.BillableMember, error) {
	var rows []struct {
		ID         snowflake.ID
		MemberType string
	}
	err := db.WithContext(ctx).Raw(
		`SELECT id, member_type FROM org_members WHERE org_id = ? ORDER BY id ASC`,
		orgID,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	members := make([]domain.BillableMember, 0, len(rows))
	for _, row := range rows {
		members = append(members, domain.BillableMember{ID: row.ID, MemberType: row.MemberType})
	}
	return members, nil
}

func (r *repo) ListSessionAttendance(ctx context.Context, db *gorm.DB, orgID snowflake.ID, start, end time.Time) ([]domain.SessionAttendance, error) {
	var rows []struct {
		GameID      snowflake.ID
		OrgMemberID snowflake.ID
	}
	err := db.WithContext(ctx).Raw(
		`SELECT DISTINCT a.game_id, a.org_member_id
		 FROM game_attendance a
		 JOIN games g ON g.id = a.game_id AND g.org_id = a.org_id
		 WHERE a.org_id = ? AND a.status = 'GOING' AND g.start_at >= ? AND g.start_at < ?
		 ORDER BY a.game_id ASC, a.org_member_id ASC`,
		orgID,
		start,
		end,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	items := make([]domain.SessionAttendance, 0, len(rows))
	for _, row := range rows {
		items = append(items, domain.SessionAttendance{GameID: row.GameID, MemberID: row.OrgMemberID})
	}
	return items, nil
}

func (r *repo) FindChargeByKey(ctx context.Context, db *gorm.DB, key domain.ChargeKey) (*domain.Charge, error) {
	var charge domain.Charge
	err := db.WithContext(ctx).Raw(
		`SELECT `+chargeColumns+` FROM org_charges
		 WHERE org_id = ? AND org_member_id = ? AND cycle_key = ? AND type = ?`,
		key.OrgID,
		key.MemberID,
		key.CycleKey,
		key.Type,
	).Scan(&charge).Error
	if err != nil {
		return nil, err
	}
	if charge.ID == 0 {
		return nil, nil
	}
	return &charge, nil
}

func (r *repo) InsertCharge(ctx context.Context, db *gorm.DB, charge *domain.Charge) (bool, error) {
	result := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "org_id"}, {Name: "org_member_id"}, {Name: "cycle_key"}, {Name: "type"}},
			DoNothing: true,
		}).
		Create(charge)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) RefreshCharge(ctx context.Context, db *gorm.DB, charge *domain.Charge) error {
	return db.WithContext(ctx).Exec(
		`UPDATE org_charges
		 SET amount = ?, game_id = ?, status = ?, voided_at = ?, updated_at = ?
		 WHERE id = ? AND status <> 'PAID'`,
		charge.Amount,
		charge.GameID,
		charge.Status,
		charge.VoidedAt,
		charge.UpdatedAt,
		charge.ID,
	).Error
}

func (r *repo) FindChargeByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.Charge, error) {
	return chargeStore(db, orgID).FindOne(ctx, &domain.Charge{ID: id})
}

func (r *repo) FindChargeForUpdate(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.Charge, error) {
	var charge domain.Charge
	query := db.WithContext(ctx)
	if db.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate})
	}
	err := query.Where("org_id = ? AND id = ?", orgID, id).Limit(1).Find(&charge).Error
	if err != nil {
		return nil, err
	}
	if charge.ID == 0 {
		return nil, nil
	}
	return &charge, nil
}

func (r *repo) UpdateChargeStatus(ctx context.Context, db *gorm.DB, charge *domain.Charge) error {
	return db.WithContext(ctx).Exec(
		`UPDATE org_charges
		 SET status = ?, paid_at = ?, voided_at = ?, ledger_entry_id = ?, updated_at = ?
		 WHERE org_id = ? AND id = ?`,
		charge.Status,
		charge.PaidAt,
		charge.VoidedAt,
		charge.LedgerEntryID,
		charge.UpdatedAt,
		charge.OrgID,
		charge.ID,
	).Error
}

func (r *repo) ListCharges(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter domain.ChargeFilter) ([]*domain.Charge, error) {
	// Zero-valued fields are ignored by the struct filter.
	query := &domain.Charge{
		MemberID: filter.MemberID,
		CycleKey: filter.CycleKey,
		Status:   filter.Status,
	}
	return chargeStore(db, orgID).Find(ctx, query,
		option.WithOrder("created_at DESC, id DESC"),
		option.WithLimit(filter.Limit),
	)
}

func (r *repo) FindReceiptParties(ctx context.Context, db *gorm.DB, orgID, memberID snowflake.ID) (domain.ReceiptParties, error) {
	var row struct {
		OrgName  string
		UserID   snowflake.ID
		Nickname *string
	}
	err := db.WithContext(ctx).Raw(
		`SELECT o.name AS org_name, m.user_id, m.nickname
		 FROM organizations o
		 LEFT JOIN org_members m ON m.org_id = o.id AND m.id = ?
		 WHERE o.id = ?`,
		memberID,
		orgID,
	).Scan(&row).Error
	if err != nil {
		return domain.ReceiptParties{}, err
	}

	parties := domain.ReceiptParties{OrgName: row.OrgName}
	switch {
	case row.Nickname != nil && *row.Nickname != "":
		parties.MemberName = *row.Nickname
	case row.UserID != 0:
		parties.MemberName = "user " + row.UserID.String()
	default:
		parties.MemberName = "member " + memberID.String()
	}
	return parties, nil
}

func (r *repo) ListOrganizationIDs(ctx context.Context, db *gorm.DB) ([]snowflake.ID, error) {
	var ids []snowflake.ID
	err := db.WithContext(ctx).Raw(`SELECT id FROM organizations ORDER BY id ASC`).Scan(&ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
