package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/clubhouse/internal/captain/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByGame(ctx context.Context, db *gorm.DB, orgID, gameID snowflake.ID) (*domain.Captains, error) {
	var captains domain.Captains
	err := db.WithContext(ctx).Raw(
		`SELECT id, org_id, game_id, mode,
			captain_a_member_id, captain_a_guest_id, captain_b_member_id, captain_b_guest_id,
			created_at, updated_at
		 FROM game_captains WHERE org_id = ? AND game_id = ?`,
		orgID,
		gameID,
	).Scan(&captains).Error
	if err != nil {
		return nil, err
	}
	if captains.ID == 0 {
		return nil, nil
	}
	return &captains, nil
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, captains *domain.Captains) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "game_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"mode",
			"captain_a_member_id",
			"captain_a_guest_id",
			"captain_b_member_id",
			"captain_b_guest_id",
			"updated_at",
		}),
	}).Create(captains).Error
}
