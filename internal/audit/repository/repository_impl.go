package repository

import (
	"context"
	"strings"

	"github.com/smallbiznis/clubhouse/internal/audit/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, entry *domain.AuditLog) error {
	if entry == nil {
		return nil
	}
	return db.WithContext(ctx).Create(entry).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.AuditLog, error) {
	var logs []*domain.AuditLog
	err := db.WithContext(ctx).
		Model(&domain.AuditLog{}).
		Where("org_id = ?", filter.OrgID).
		Scopes(
			byAction(filter.Action),
			byTarget(filter),
			byActorType(filter.ActorType),
			byCreatedRange(filter),
			afterCursor(filter.Cursor),
		).
		Order("created_at desc, id desc").
		Scopes(limitPlusOne(filter.Limit)).
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}

// byAction matches one action, or every action of a family ("draft.*").
func byAction(action string) func(*gorm.DB) *gorm.DB {
	action = strings.TrimSpace(action)
	return func(tx *gorm.DB) *gorm.DB {
		switch {
		case action == "":
			return tx
		case strings.HasSuffix(action, ".*"):
			return tx.Where("action LIKE ?", strings.TrimSuffix(action, "*")+"%")
		default:
			return tx.Where("action = ?", action)
		}
	}
}

// byTarget applies the game shortcut when set. Game guest rows target the
// guest entry and carry the game in metadata, so both shapes match.
func byTarget(filter domain.ListFilter) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		if filter.GameID != 0 {
			gameID := filter.GameID.String()
			return tx.Where(
				"((target_type = ? AND target_id = ?) OR metadata->>'game_id' = ?)",
				domain.TargetTypeGame, gameID, gameID,
			)
		}
		if targetType := strings.TrimSpace(filter.TargetType); targetType != "" {
			tx = tx.Where("target_type = ?", targetType)
		}
		if targetID := strings.TrimSpace(filter.TargetID); targetID != "" {
			tx = tx.Where("target_id = ?", targetID)
		}
		return tx
	}
}

func byActorType(actorType string) func(*gorm.DB) *gorm.DB {
	actorType = strings.TrimSpace(actorType)
	return func(tx *gorm.DB) *gorm.DB {
		if actorType == "" {
			return tx
		}
		return tx.Where("actor_type = ?", actorType)
	}
}

func byCreatedRange(filter domain.ListFilter) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		if filter.StartAt != nil {
			tx = tx.Where("created_at >= ?", filter.StartAt.UTC())
		}
		if filter.EndAt != nil {
			tx = tx.Where("created_at <= ?", filter.EndAt.UTC())
		}
		return tx
	}
}

// afterCursor continues a newest-first listing past the last row served.
func afterCursor(cursor *domain.AuditCursor) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		if cursor == nil {
			return tx
		}
		return tx.Where("((created_at < ?) OR (created_at = ? AND id < ?))",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}
}

// limitPlusOne fetches one extra row so the caller can tell whether
// another page exists.
func limitPlusOne(limit int) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		if limit <= 0 {
			return tx
		}
		return tx.Limit(limit + 1)
	}
}
