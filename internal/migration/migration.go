package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	auditdomain "github.com/smallbiznis/clubhouse/internal/audit/domain"
	billingdomain "github.com/smallbiznis/clubhouse/internal/billing/domain"
	captaindomain "github.com/smallbiznis/clubhouse/internal/captain/domain"
	draftdomain "github.com/smallbiznis/clubhouse/internal/draft/domain"
	gamedomain "github.com/smallbiznis/clubhouse/internal/game/domain"
	guestdomain "github.com/smallbiznis/clubhouse/internal/guest/domain"
	ledgerdomain "github.com/smallbiznis/clubhouse/internal/ledger/domain"
	orgdomain "github.com/smallbiznis/clubhouse/internal/organization/domain"
	teamdomain "github.com/smallbiznis/clubhouse/internal/team/domain"
	"gorm.io/gorm"
)

const migrationsDir = "migrations"

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// Models lists every table owned by the application in dependency order.
func Models() []any {
	return []any{
		&orgdomain.Organization{},
		&orgdomain.Member{},
		&guestdomain.OrgGuest{},
		&gamedomain.Game{},
		&gamedomain.Attendance{},
		&guestdomain.GameGuest{},
		&teamdomain.MemberAssignment{},
		&teamdomain.GuestAssignment{},
		&captaindomain.Captains{},
		&draftdomain.Draft{},
		&draftdomain.Pick{},
		&billingdomain.Settings{},
		&ledgerdomain.LedgerEntry{},
		&billingdomain.Charge{},
		&auditdomain.AuditLog{},
	}
}

// Run brings the schema up to date. Postgres uses the versioned SQL files;
// the other dialects are auto-migrated from the models for local use.
func Run(conn *gorm.DB) error {
	if conn == nil {
		return errors.New("migration database handle is required")
	}
	if conn.Dialector.Name() != "postgres" {
		return conn.AutoMigrate(Models()...)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	return RunMigrations(sqlDB)
}

// RunMigrations applies the embedded SQL migrations to a postgres database.
func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// migrator.Close would close the shared *sql.DB.

	return nil
}
