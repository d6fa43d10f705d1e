package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/clubhouse/internal/game/domain"
	"gorm.io/gorm"
)

const (
	gameColumns       = `id, org_id, title, sport, location, start_at, notes, created_by_member_id, created_at, updated_at`
	attendanceColumns = `id, org_id, game_id, org_member_id, user_id, status, created_at, updated_at`
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertGame(ctx context.Context, db *gorm.DB, game *domain.Game) error {
	return db.WithContext(ctx).Create(game).Error
}

func (r *repo) FindGame(ctx context.Context, db *gorm.DB, orgID, gameID snowflake.ID) (*domain.Game, error) {
	var game domain.Game
	err := db.WithContext(ctx).Raw(
		`SELECT `+gameColumns+` FROM games WHERE org_id = ? AND id = ?`,
		orgID,
		gameID,
	).Scan(&game).Error
	if err != nil {
		return nil, err
	}
	if game.ID == 0 {
		return nil, nil
	}
	return &game, nil
}

func (r *repo) ListGames(ctx context.Context, db *gorm.DB, orgID snowflake.ID, limit int) ([]*domain.Game, error) {
	var games []*domain.Game
	err := db.WithContext(ctx).Raw(
		`SELECT `+gameColumns+` FROM games
		 WHERE org_id = ?
		 ORDER BY start_at DESC, id DESC
		 LIMIT ?`,
		orgID,
		limit,
	).Scan(&games).Error
	if err != nil {
		return nil, err
	}
	return games, nil
}

func (r *repo) FindPreviousGame(ctx context.Context, db *gorm.DB, game domain.Game) (*domain.Game, error) {
	var previous domain.Game
	err := db.WithContext(ctx).Raw(
		`SELECT `+gameColumns+` FROM games
		 WHERE org_id = ? AND start_at < ? AND id <> ?
		 ORDER BY start_at DESC, id DESC
		 LIMIT 1`,
		game.OrgID,
		game.StartAt,
		game.ID,
	).Scan(&previous).Error
	if err != nil {
		return nil, err
	}
	if previous.ID == 0 {
		return nil, nil
	}
	return &previous, nil
}

func (r *repo) FindAttendance(ctx context.Context, db *gorm.DB, gameID, memberID snowflake.ID) (*domain.Attendance, error) {
	var attendance domain.Attendance
	err := db.WithContext(ctx).Raw(
		`SELECT `+attendanceColumns+` FROM game_attendance
		 WHERE game_id = ? AND org_member_id = ?`,
		gameID,
		memberID,
	).Scan(&attendance).Error
	if err != nil {
		return nil, err
	}
	if attendance.ID == 0 {
		return nil, nil
	}
	return &attendance, nil
}

func (r *repo) InsertAttendance(ctx context.Context, db *gorm.DB, attendance *domain.Attendance) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO game_attendance (`+attendanceColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		attendance.ID,
		attendance.OrgID,
		attendance.GameID,
		attendance.MemberID,
		attendance.UserID,
		attendance.Status,
		attendance.CreatedAt,
		attendance.UpdatedAt,
	).Error
}

func (r *repo) UpdateAttendanceStatus(ctx context.Context, db *gorm.DB, attendance *domain.Attendance) error {
	return db.WithContext(ctx).Exec(
		`UPDATE game_attendance SET status = ?, updated_at = ? WHERE id = ?`,
		attendance.Status,
		attendance.UpdatedAt,
		attendance.ID,
	).Error
}

func (r *repo) ListAttendance(ctx context.Context, db *gorm.DB, orgID, gameID snowflake.ID) ([]*domain.Attendance, error) {
	var rows []*domain.Attendance
	err := db.WithContext(ctx).Raw(
		`SELECT `+attendanceColumns+` FROM game_attendance
		 WHERE org_id = ? AND game_id = ?
		 ORDER BY created_at ASC, id ASC`,
		orgID,
		gameID,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) ListGoingMemberIDs(ctx context.Context, db *gorm.DB, orgID, gameID snowflake.ID) ([]snowflake.ID, error) {
	var ids []snowflake.ID
	err := db.WithContext(ctx).Raw(
		`SELECT org_member_id FROM game_attendance
		 WHERE org_id = ? AND game_id = ? AND status = ?
		 ORDER BY created_at ASC, id ASC`,
		orgID,
		gameID,
		domain.AttendanceGoing,
	).Scan(&ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *repo) IsGoing(ctx context.Context, db *gorm.DB, orgID, gameID, memberID snowflake.ID) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM game_attendance
		 WHERE org_id = ? AND game_id = ? AND org_member_id = ? AND status = ?`,
		orgID,
		gameID,
		memberID,
		domain.AttendanceGoing,
	).Scan(&count).Error
	return count > 0, err
}
