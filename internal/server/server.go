package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/clubhouse/internal/authorization"
	auditdomain "github.com/smallbiznis/clubhouse/internal/audit/domain"
	billingdomain "github.com/smallbiznis/clubhouse/internal/billing/domain"
	captaindomain "github.com/smallbiznis/clubhouse/internal/captain/domain"
	"github.com/smallbiznis/clubhouse/internal/config"
	draftdomain "github.com/smallbiznis/clubhouse/internal/draft/domain"
	financedomain "github.com/smallbiznis/clubhouse/internal/finance/domain"
	gamedomain "github.com/smallbiznis/clubhouse/internal/game/domain"
	guestdomain "github.com/smallbiznis/clubhouse/internal/guest/domain"
	ledgerdomain "github.com/smallbiznis/clubhouse/internal/ledger/domain"
	"github.com/smallbiznis/clubhouse/internal/observability"
	obsmiddleware "github.com/smallbiznis/clubhouse/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/clubhouse/internal/observability/metrics"
	obstracing "github.com/smallbiznis/clubhouse/internal/observability/tracing"
	organizationdomain "github.com/smallbiznis/clubhouse/internal/organization/domain"
	"github.com/smallbiznis/clubhouse/internal/ratelimit"
	teamdomain "github.com/smallbiznis/clubhouse/internal/team/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(setGinMode),
	fx.Invoke(RegisterRoutes),
	fx.Invoke(RunHTTP),
)

// setGinMode runs before the engine is built so gin starts in release mode
// in production.
func setGinMode(cfg config.Config) {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
}

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	useJSONFieldNames()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

// RunHTTP serves the engine on the configured address for the lifetime of
// the fx app.
func RunHTTP(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	addr := cfg.HTTPAddr
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", addr))
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine          *gin.Engine
	cfg             config.Config
	authzSvc        authorization.Service
	auditSvc        auditdomain.Service
	organizationSvc organizationdomain.Service
	guestSvc        guestdomain.Service
	gameSvc         gamedomain.Service
	teamSvc         teamdomain.Service
	captainSvc      captaindomain.Service
	draftSvc        draftdomain.Service
	billingSvc      billingdomain.Service
	ledgerSvc       ledgerdomain.Service
	financeSvc      financedomain.Service
	billingRunGuard *ratelimit.BillingRunGuard
	obsMetrics      *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	AuthzSvc        authorization.Service
	AuditSvc        auditdomain.Service
	OrganizationSvc organizationdomain.Service
	GuestSvc        guestdomain.Service
	GameSvc         gamedomain.Service
	TeamSvc         teamdomain.Service
	CaptainSvc      captaindomain.Service
	DraftSvc        draftdomain.Service
	BillingSvc      billingdomain.Service
	LedgerSvc       ledgerdomain.Service
	FinanceSvc      financedomain.Service
	BillingRunGuard *ratelimit.BillingRunGuard `optional:"true"`
	ObsMetrics      *obsmetrics.Metrics        `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	return &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		authzSvc:        p.AuthzSvc,
		auditSvc:        p.AuditSvc,
		organizationSvc: p.OrganizationSvc,
		guestSvc:        p.GuestSvc,
		gameSvc:         p.GameSvc,
		teamSvc:         p.TeamSvc,
		captainSvc:      p.CaptainSvc,
		draftSvc:        p.DraftSvc,
		billingSvc:      p.BillingSvc,
		ledgerSvc:       p.LedgerSvc,
		financeSvc:      p.FinanceSvc,
		billingRunGuard: p.BillingRunGuard,
		obsMetrics:      p.ObsMetrics,
	}
}

// RegisterRoutes mounts every route group on the server's engine.
func RegisterRoutes(s *Server) {
	s.RegisterAPIRoutes()
	s.RegisterInternalRoutes()
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) RegisterAPIRoutes() {
	api := s.engine.Group("/api", s.UserRequired())

	api.POST("/orgs", s.CreateOrganization)
	api.GET("/orgs", s.ListOrganizations)

	org := api.Group("/orgs/:orgId", s.OrgContext())
	org.GET("", s.authorizeOrgAction(authorization.ObjectOrganization, authorization.ActionOrganizationView), s.GetOrganization)

	org.GET("/members", s.authorizeOrgAction(authorization.ObjectMember, authorization.ActionMemberView), s.ListMembers)
	org.POST("/members", s.authorizeOrgAction(authorization.ObjectMember, authorization.ActionMemberManage), s.AddMember)
	org.PATCH("/members/:id", s.authorizeOrgAction(authorization.ObjectMember, authorization.ActionMemberManage), s.UpdateMember)
	org.PATCH("/members/:id/role", s.authorizeOrgAction(authorization.ObjectMember, authorization.ActionMemberManage), s.ChangeMemberRole)
	org.DELETE("/members/:id", s.authorizeOrgAction(authorization.ObjectMember, authorization.ActionMemberManage), s.RemoveMember)

	org.GET("/guests", s.authorizeOrgAction(authorization.ObjectGuest, authorization.ActionGuestView), s.ListOrgGuests)
	org.POST("/guests", s.authorizeOrgAction(authorization.ObjectGuest, authorization.ActionGuestManage), s.CreateOrgGuest)
	org.PATCH("/guests/:id", s.authorizeOrgAction(authorization.ObjectGuest, authorization.ActionGuestManage), s.UpdateOrgGuest)
	org.DELETE("/guests/:id", s.authorizeOrgAction(authorization.ObjectGuest, authorization.ActionGuestManage), s.DeleteOrgGuest)

	org.GET("/games", s.authorizeOrgAction(authorization.ObjectGame, authorization.ActionGameView), s.ListGames)
	org.POST("/games", s.authorizeOrgAction(authorization.ObjectGame, authorization.ActionGameCreate), s.CreateGame)

	game := org.Group("/games/:gameId")
	game.GET("", s.authorizeOrgAction(authorization.ObjectGame, authorization.ActionGameView), s.GetGame)
	game.POST("/attendance", s.authorizeOrgAction(authorization.ObjectAttendance, authorization.ActionAttendanceMark), s.MarkAttendance)
	game.GET("/attendance", s.authorizeOrgAction(authorization.ObjectAttendance, authorization.ActionAttendanceView), s.ListAttendance)

	game.GET("/guests", s.authorizeOrgAction(authorization.ObjectGameGuest, authorization.ActionGameGuestView), s.ListGameGuests)
	game.POST("/guests", s.authorizeOrgAction(authorization.ObjectGameGuest, authorization.ActionGameGuestManage), s.AddGameGuest)
	game.DELETE("/guests/:id", s.authorizeOrgAction(authorization.ObjectGameGuest, authorization.ActionGameGuestManage), s.RemoveGameGuest)

	game.GET("/teams", s.authorizeOrgAction(authorization.ObjectTeam, authorization.ActionTeamView), s.GetTeams)
	game.PUT("/teams", s.authorizeOrgAction(authorization.ObjectTeam, authorization.ActionTeamManage), s.SetTeamAssignment)
	game.GET("/captains", s.authorizeOrgAction(authorization.ObjectCaptain, authorization.ActionCaptainView), s.GetCaptains)
	game.PUT("/captains", s.authorizeOrgAction(authorization.ObjectCaptain, authorization.ActionCaptainManage), s.SetCaptains)

	game.GET("/draft", s.authorizeOrgAction(authorization.ObjectDraft, authorization.ActionDraftView), s.GetDraft)
	game.GET("/draft/summary", s.authorizeOrgAction(authorization.ObjectDraft, authorization.ActionDraftView), s.GetDraftSummary)
	game.POST("/draft/start", s.authorizeOrgAction(authorization.ObjectDraft, authorization.ActionDraftManage), s.StartDraft)
	game.POST("/draft/pick", s.authorizeOrgAction(authorization.ObjectDraft, authorization.ActionDraftManage), s.PickDraft)
	game.POST("/draft/finish", s.authorizeOrgAction(authorization.ObjectDraft, authorization.ActionDraftManage), s.FinishDraft)

	org.GET("/billing-settings", s.authorizeOrgAction(authorization.ObjectBillingSettings, authorization.ActionBillingSettingsView), s.GetBillingSettings)
	org.PUT("/billing-settings", s.authorizeOrgAction(authorization.ObjectBillingSettings, authorization.ActionBillingSettingsUpdate), s.UpdateBillingSettings)

	org.POST("/charges/generate", s.authorizeOrgAction(authorization.ObjectCharge, authorization.ActionChargeGenerate), s.GenerateCharges)
	org.GET("/charges", s.authorizeOrgAction(authorization.ObjectCharge, authorization.ActionChargeView), s.ListCharges)
	org.PATCH("/charges/:id", s.authorizeOrgAction(authorization.ObjectCharge, authorization.ActionChargeUpdate), s.UpdateChargeStatus)
	org.GET("/charges/:id/receipt", s.authorizeOrgAction(authorization.ObjectCharge, authorization.ActionChargeView), s.GetChargeReceipt)

	org.GET("/ledger", s.authorizeOrgAction(authorization.ObjectLedger, authorization.ActionLedgerView), s.ListLedgerEntries)
	org.POST("/ledger", s.authorizeOrgAction(authorization.ObjectLedger, authorization.ActionLedgerCreate), s.CreateLedgerEntry)
	org.GET("/ledger/summary", s.authorizeOrgAction(authorization.ObjectLedger, authorization.ActionLedgerView), s.GetLedgerSummary)

	org.GET("/finance/summary", s.authorizeOrgAction(authorization.ObjectFinance, authorization.ActionFinanceView), s.GetFinanceSummary)
	org.GET("/finance/recent", s.authorizeOrgAction(authorization.ObjectFinance, authorization.ActionFinanceView), s.GetFinanceRecent)

	org.GET("/audit-logs", s.authorizeOrgAction(authorization.ObjectAuditLog, authorization.ActionAuditLogView), s.ListAuditLogs)
}

func (s *Server) RegisterInternalRoutes() {
	internal := s.engine.Group("/internal", s.InternalKeyRequired())
	internal.POST("/billing/run", s.RunBilling)
}
