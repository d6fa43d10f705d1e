package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/clubhouse/internal/draft/domain"
	gamedomain "github.com/smallbiznis/clubhouse/internal/game/domain"
	teamdomain "github.com/smallbiznis/clubhouse/internal/team/domain"
	"gorm.io/gorm"
)

const (
	draftColumns = `id, org_id, game_id, status, order_mode, current_pick_index, created_at, updated_at`
	pickColumns  = `id, org_id, draft_id, game_id, round_number, pick_number, team_side, org_member_id, game_guest_id, created_by_member_id, created_at`
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByGame(ctx context.Context, db *gorm.DB, orgID, gameID snowflake.ID) (*domain.Draft, error) {
	var draft domain.Draft
	err := db.WithContext(ctx).Raw(
		`SELECT `+draftColumns+` FROM game_drafts WHERE org_id = ? AND game_id = ?`,
		orgID,
		gameID,
	).Scan(&draft).Error
	if err != nil {
		return nil, err
	}
	if draft.ID == 0 {
		return nil, nil
	}
	return &draft, nil
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, draft *domain.Draft) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO game_drafts (`+draftColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		draft.ID,
		draft.OrgID,
		draft.GameID,
		draft.Status,
		draft.OrderMode,
		draft.CurrentPickIndex,
		draft.CreatedAt,
		draft.UpdatedAt,
	).Error
}

func (r *repo) Activate(ctx context.Context, db *gorm.DB, draft *domain.Draft) error {
	return db.WithContext(ctx).Exec(
		`UPDATE game_drafts
		 SET status = ?, order_mode = ?, current_pick_index = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		domain.StatusInProgress,
		draft.OrderMode,
		draft.CurrentPickIndex,
		draft.UpdatedAt,
		draft.ID,
		domain.StatusNotStarted,
	).Error
}

func (r *repo) AdvanceIndex(ctx context.Context, db *gorm.DB, draftID snowflake.ID, expected int, now time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE game_drafts
		 SET current_pick_index = current_pick_index + 1, updated_at = ?
		 WHERE id = ? AND current_pick_index = ? AND status = ?`,
		now,
		draftID,
		expected,
		domain.StatusInProgress,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repo) Finish(ctx context.Context, db *gorm.DB, draftID snowflake.ID, now time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE game_drafts SET status = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		domain.StatusFinished,
		now,
		draftID,
		domain.StatusInProgress,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repo) InsertPick(ctx context.Context, db *gorm.DB, pick *domain.Pick) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO game_draft_picks (`+pickColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		pick.ID,
		pick.OrgID,
		pick.DraftID,
		pick.GameID,
		pick.RoundNumber,
		pick.PickNumber,
		pick.TeamSide,
		pick.MemberID,
		pick.GameGuestID,
		pick.CreatedByMemberID,
		pick.CreatedAt,
	).Error
}

func (r *repo) ListPicks(ctx context.Context, db *gorm.DB, draftID snowflake.ID) ([]domain.Pick, error) {
	var picks []domain.Pick
	err := db.WithContext(ctx).Raw(
		`SELECT `+pickColumns+` FROM game_draft_picks
		 WHERE draft_id = ?
		 ORDER BY pick_number ASC`,
		draftID,
	).Scan(&picks).Error
	if err != nil {
		return nil, err
	}
	return picks, nil
}

func (r *repo) IsPicked(ctx context.Context, db *gorm.DB, draftID snowflake.ID, memberID, guestID *snowflake.ID) (bool, error) {
	stmt := db.WithContext(ctx).Model(&domain.Pick{}).Where("draft_id = ?", draftID)
	switch {
	case memberID != nil:
		stmt = stmt.Where("org_member_id = ?", *memberID)
	case guestID != nil:
		stmt = stmt.Where("game_guest_id = ?", *guestID)
	default:
		return false, nil
	}

	var count int64
	if err := stmt.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

type poolMemberRow struct {
	ID         snowflake.ID
	UserID     snowflake.ID
	Nickname   *string
	MemberType string
}

func (r *repo) ListGoingMembers(ctx context.Context, db *gorm.DB, orgID, gameID snowflake.ID) ([]domain.PoolItem, error) {
	var rows []poolMemberRow
	err := db.WithContext(ctx).Raw(
		`SELECT m.id, m.user_id, m.nickname, m.member_type
		 FROM game_attendance a
		 JOIN org_members m ON m.id = a.org_member_id AND m.org_id = a.org_id
		 WHERE a.org_id = ? AND a.game_id = ? AND a.status = ?
		 ORDER BY a.created_at ASC, a.id ASC`,
		orgID,
		gameID,
		gamedomain.AttendanceGoing,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	items := make([]domain.PoolItem, 0, len(rows))
	for _, row := range rows {
		name := "user " + row.UserID.String()
		if row.Nickname != nil && *row.Nickname != "" {
			name = *row.Nickname
		}
		items = append(items, domain.PoolItem{
			Type:       teamdomain.ParticipantMember,
			ID:         row.ID,
			Name:       name,
			MemberType: row.MemberType,
		})
	}
	return items, nil
}

type poolGuestRow struct {
	ID   snowflake.ID
	Name string
}

func (r *repo) ListGameGuests(ctx context.Context, db *gorm.DB, orgID, gameID snowflake.ID) ([]domain.PoolItem, error) {
	var rows []poolGuestRow
	err := db.WithContext(ctx).Raw(
		`SELECT id, name FROM game_guests
		 WHERE org_id = ? AND game_id = ?
		 ORDER BY created_at ASC, id ASC`,
		orgID,
		gameID,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	items := make([]domain.PoolItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, domain.PoolItem{
			Type: teamdomain.ParticipantGuest,
			ID:   row.ID,
			Name: row.Name,
		})
	}
	return items, nil
}
