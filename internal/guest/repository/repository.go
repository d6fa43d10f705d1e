package repository

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/clubhouse/internal/guest/domain"
	"gorm.io/gorm"
)

const (
	orgGuestColumns  = `id, org_id, name, phone, created_at, updated_at`
	gameGuestColumns = `id, org_id, game_id, org_guest_id, name, phone, created_by_member_id, created_at, updated_at`
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) ListOrgGuests(ctx context.Context, db *gorm.DB, orgID snowflake.ID) ([]*domain.OrgGuest, error) {
	var guests []*domain.OrgGuest
	err := db.WithContext(ctx).Raw(
		`SELECT `+orgGuestColumns+` FROM org_guests
		 WHERE org_id = ?
		 ORDER BY created_at ASC, id ASC`,
		orgID,
	).Scan(&guests).Error
	if err != nil {
		return nil, err
	}
	return guests, nil
}

func (r *repo) FindOrgGuest(ctx context.Context, db *gorm.DB, orgID, guestID snowflake.ID) (*domain.OrgGuest, error) {
	var guest domain.OrgGuest
	err := db.WithContext(ctx).Raw(
		`SELECT `+orgGuestColumns+` FROM org_guests WHERE org_id = ? AND id = ?`,
		orgID,
		guestID,
	).Scan(&guest).Error
	if err != nil {
		return nil, err
	}
	if guest.ID == 0 {
		return nil, nil
	}
	return &guest, nil
}

func (r *repo) FindOrgGuestByPhone(ctx context.Context, db *gorm.DB, orgID snowflake.ID, phone string) (*domain.OrgGuest, error) {
	var guest domain.OrgGuest
	err := db.WithContext(ctx).Raw(
		`SELECT `+orgGuestColumns+` FROM org_guests WHERE org_id = ? AND phone = ?`,
		orgID,
		phone,
	).Scan(&guest).Error
	if err != nil {
		return nil, err
	}
	if guest.ID == 0 {
		return nil, nil
	}
	return &guest, nil
}

func (r *repo) InsertOrgGuest(ctx context.Context, db *gorm.DB, guest *domain.OrgGuest) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO org_guests (`+orgGuestColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		guest.ID,
		guest.OrgID,
		guest.Name,
		guest.Phone,
		guest.CreatedAt,
		guest.UpdatedAt,
	).Error
}

func (r *repo) UpdateOrgGuest(ctx context.Context, db *gorm.DB, guest *domain.OrgGuest) error {
	return db.WithContext(ctx).Exec(
		`UPDATE org_guests SET name = ?, phone = ?, updated_at = ? WHERE org_id = ? AND id = ?`,
		guest.Name,
		guest.Phone,
		guest.UpdatedAt,
		guest.OrgID,
		guest.ID,
	).Error
}

func (r *repo) DeleteOrgGuest(ctx context.Context, db *gorm.DB, orgID, guestID snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`DELETE FROM org_guests WHERE org_id = ? AND id = ?`,
		orgID,
		guestID,
	).Error
}

func (r *repo) OrgGuestInUse(ctx context.Context, db *gorm.DB, orgID, guestID snowflake.ID) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM game_guests WHERE org_id = ? AND org_guest_id = ?`,
		orgID,
		guestID,
	).Scan(&count).Error
	return count > 0, err
}

func (r *repo) ListGameGuests(ctx context.Context, db *gorm.DB, orgID, gameID snowflake.ID) ([]*domain.GameGuest, error) {
	var guests []*domain.GameGuest
	err := db.WithContext(ctx).Raw(
		`SELECT `+gameGuestColumns+` FROM game_guests
		 WHERE org_id = ? AND game_id = ?
		 ORDER BY created_at ASC, id ASC`,
		orgID,
		gameID,
	).Scan(&guests).Error
	if err != nil {
		return nil, err
	}
	return guests, nil
}

func (r *repo) FindGameGuest(ctx context.Context, db *gorm.DB, orgID, gameID, guestID snowflake.ID) (*domain.GameGuest, error) {
	var guest domain.GameGuest
	err := db.WithContext(ctx).Raw(
		`SELECT `+gameGuestColumns+` FROM game_guests
		 WHERE org_id = ? AND game_id = ? AND id = ?`,
		orgID,
		gameID,
		guestID,
	).Scan(&guest).Error
	if err != nil {
		return nil, err
	}
	if guest.ID == 0 {
		return nil, nil
	}
	return &guest, nil
}

// GameGuestExists matches on trimmed, case-insensitive name and trimmed phone.
func (r *repo) GameGuestExists(ctx context.Context, db *gorm.DB, gameID snowflake.ID, name, phone string) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM game_guests
		 WHERE game_id = ?
		   AND LOWER(TRIM(name)) = ?
		   AND COALESCE(TRIM(phone), '') = ?`,
		gameID,
		strings.ToLower(strings.TrimSpace(name)),
		strings.TrimSpace(phone),
	).Scan(&count).Error
	return count > 0, err
}

func (r *repo) InsertGameGuest(ctx context.Context, db *gorm.DB, guest *domain.GameGuest) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO game_guests (`+gameGuestColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		guest.ID,
		guest.OrgID,
		guest.GameID,
		guest.OrgGuestID,
		guest.Name,
		guest.Phone,
		guest.CreatedByMemberID,
		guest.CreatedAt,
		guest.UpdatedAt,
	).Error
}

func (r *repo) DeleteGameGuest(ctx context.Context, db *gorm.DB, orgID, guestID snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`DELETE FROM game_guests WHERE org_id = ? AND id = ?`,
		orgID,
		guestID,
	).Error
}
