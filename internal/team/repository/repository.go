package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/clubhouse/internal/team/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) UpsertMember(ctx context.Context, db *gorm.DB, assignment *domain.MemberAssignment) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "game_id"}, {Name: "org_member_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"team", "updated_at"}),
	}).Create(assignment).Error
}

func (r *repo) UpsertGuest(ctx context.Context, db *gorm.DB, assignment *domain.GuestAssignment) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "game_id"}, {Name: "game_guest_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"team", "updated_at"}),
	}).Create(assignment).Error
}

func (r *repo) DeleteMember(ctx context.Context, db *gorm.DB, gameID, memberID snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`DELETE FROM game_team_members WHERE game_id = ? AND org_member_id = ?`,
		gameID,
		memberID,
	).Error
}

func (r *repo) DeleteGuest(ctx context.Context, db *gorm.DB, gameID, guestID snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`DELETE FROM game_team_guests WHERE game_id = ? AND game_guest_id = ?`,
		gameID,
		guestID,
	).Error
}

func (r *repo) ListTeamMembers(ctx context.Context, db *gorm.DB, orgID, gameID snowflake.ID) ([]domain.TeamMember, error) {
	var rows []domain.TeamMember
	err := db.WithContext(ctx).Raw(
		`SELECT t.team, m.id AS org_member_id, m.user_id, m.nickname, m.member_type
		 FROM game_team_members t
		 JOIN org_members m ON m.id = t.org_member_id AND m.org_id = t.org_id
		 WHERE t.org_id = ? AND t.game_id = ?
		 ORDER BY t.created_at ASC, t.id ASC`,
		orgID,
		gameID,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) ListTeamGuests(ctx context.Context, db *gorm.DB, orgID, gameID snowflake.ID) ([]domain.TeamGuest, error) {
	var rows []domain.TeamGuest
	err := db.WithContext(ctx).Raw(
		`SELECT t.team, g.id AS game_guest_id, g.name, g.phone
		 FROM game_team_guests t
		 JOIN game_guests g ON g.id = t.game_guest_id AND g.game_id = t.game_id
		 WHERE t.org_id = ? AND t.game_id = ?
		 ORDER BY t.created_at ASC, t.id ASC`,
		orgID,
		gameID,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
