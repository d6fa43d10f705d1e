package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/robfig/cron/v3"
	auditdomain "github.com/smallbiznis/clubhouse/internal/audit/domain"
	"github.com/smallbiznis/clubhouse/internal/auditcontext"
	"github.com/smallbiznis/clubhouse/internal/authorization"
	billingdomain "github.com/smallbiznis/clubhouse/internal/billing/domain"
	"github.com/smallbiznis/clubhouse/internal/clock"
	"github.com/smallbiznis/clubhouse/internal/metricspush"
	obsmetrics "github.com/smallbiznis/clubhouse/internal/observability/metrics"
	"github.com/smallbiznis/clubhouse/internal/orgcontext"
	"github.com/smallbiznis/clubhouse/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const JobBillingRun = "billing_run"

const pushTimeout = 10 * time.Second

var ErrInvalidConfig = errors.New("invalid_scheduler_config")

// OrgLocker serializes billing runs for one organization across replicas.
type OrgLocker interface {
	TryLockOrg(ctx context.Context, orgID string) (token string, ok bool, err error)
	ReleaseOrg(ctx context.Context, orgID, token string) error
}

type Params struct {
	fx.In

	Log        *zap.Logger
	Clock      clock.Clock
	BillingSvc billingdomain.Service
	AuthzSvc   authorization.Service
	Guard      *ratelimit.BillingRunGuard `optional:"true"`
	Pusher     metricspush.Pusher         `optional:"true"`
	Config     Config                     `optional:"true"`
}

type Scheduler struct {
	log        *zap.Logger
	cfg        Config
	clock      clock.Clock
	billingSvc billingdomain.Service
	authzSvc   authorization.Service
	locker     OrgLocker
	pusher     metricspush.Pusher
	metrics    *obsmetrics.SchedulerMetrics
	schedule   cron.Schedule
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.Clock == nil || p.BillingSvc == nil || p.AuthzSvc == nil {
		return nil, ErrInvalidConfig
	}
	cfg := p.Config.withDefaults()

	var schedule cron.Schedule
	if cfg.BillingCron != "" {
		parsed, err := cron.ParseStandard(cfg.BillingCron)
		if err != nil {
			return nil, fmt.Errorf("%w: billing cron %q: %v", ErrInvalidConfig, cfg.BillingCron, err)
		}
		schedule = parsed
	}

	s := &Scheduler{
		log:        p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:        cfg,
		clock:      p.Clock,
		billingSvc: p.BillingSvc,
		authzSvc:   p.AuthzSvc,
		pusher:     p.Pusher,
		metrics:    obsmetrics.Scheduler(),
		schedule:   schedule,
	}
	if p.Guard != nil {
		s.locker = p.Guard
	}
	return s, nil
}

func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	timeout time.Duration,
	fn func(ctx context.Context) error,
) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	ctx = auditcontext.WithActor(ctx, string(auditdomain.ActorTypeSystem), "scheduler")
	ctx, run, owner := s.ensureJobRun(ctx, name)
	if owner {
		s.logJobStart(ctx, run)
	}
	log := s.logger(ctx).With(
		zap.String("job", name),
		zap.String("run_id", run.runID),
	)
	s.metrics.IncJobRun(name)

	err := fn(ctx)
	s.metrics.ObserveJobDuration(name, s.clock.Now().Sub(start))
	if owner {
		if err != nil && run.errorCount == 0 {
			run.IncError()
		}
		s.logJobFinish(ctx, run)
	}
	if err == nil {
		s.metrics.MarkJobSuccess(name, s.clock.Now())
		return nil
	}

	isTimeout := errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
	if isTimeout {
		s.metrics.IncJobTimeout(name)
	}
	s.metrics.IncJobError(name, err)
	if isTimeout {
		log.Warn("job timed out",
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}

	return fmt.Errorf("%s: %w", name, err)
}

// RunOnce performs one billing run over every organization and pushes the
// scheduler metrics when a pusher is configured.
func (s *Scheduler) RunOnce(parent context.Context) error {
	err := s.runJob(parent, JobBillingRun, s.cfg.JobTimeout, s.BillingRunJob)
	s.pushMetrics(parent)
	return err
}

// RunForever blocks until ctx is done, running on the cron schedule when one
// is configured and on a fixed interval otherwise.
func (s *Scheduler) RunForever(ctx context.Context) {
	if s.schedule != nil {
		s.runCron(ctx)
		return
	}

	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()
	nextRun := s.clock.Now().Add(s.cfg.RunInterval)

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if lag := s.clock.Now().Sub(nextRun); lag > 0 {
			s.metrics.ObserveRunLoopLag(lag)
		}
		nextRun = nextRun.Add(s.cfg.RunInterval)
	}
}

func (s *Scheduler) runCron(ctx context.Context) {
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	c.Schedule(s.schedule, cron.FuncJob(func() {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}
	}))
	s.log.Info("scheduler cron started",
		zap.String("spec", s.cfg.BillingCron),
		zap.Time("next_run", s.NextRun(s.clock.Now())),
	)

	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
}

// NextRun returns the first scheduled run strictly after the given time.
func (s *Scheduler) NextRun(after time.Time) time.Time {
	if s.schedule != nil {
		return s.schedule.Next(after.UTC())
	}
	return after.Add(s.cfg.RunInterval)
}

type orgOutcome struct {
	orgID    snowflake.ID
	result   billingdomain.GenerateChargesResult
	deferred bool
	err      error
}

// BillingRunJob generates the current cycle's charges for every organization
// with bounded concurrency. One failing organization never stops the others;
// their errors are joined into the returned error.
func (s *Scheduler) BillingRunJob(ctx context.Context) error {
	ctx, run, owner := s.ensureJobRun(ctx, JobBillingRun)
	if owner {
		s.logJobStart(ctx, run)
		defer s.logJobFinish(ctx, run)
	}

	orgIDs, err := s.billingSvc.ListOrganizationIDs(ctx)
	if err != nil {
		run.IncError()
		s.logSchedulerError(ctx, "scheduler.orgs.list.failed", JobBillingRun, 0, err)
		return err
	}

	var (
		mu      sync.Mutex
		jobErr  error
		created int
		skipped int
		orgs    int
	)

	var g errgroup.Group
	g.SetLimit(s.cfg.Concurrency)
	for _, orgID := range orgIDs {
		g.Go(func() error {
			outcome := s.runOrg(ctx, orgID)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case outcome.err != nil:
				run.IncError()
				jobErr = errors.Join(jobErr, fmt.Errorf("org %s: %w", orgID, outcome.err))
				s.logSchedulerError(ctx, "scheduler.org.failed", JobBillingRun, orgID, outcome.err)
			case outcome.deferred:
				run.IncDeferred()
			default:
				orgs++
				created += outcome.result.Created
				skipped += outcome.result.Skipped
				run.AddProcessed(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	s.metrics.AddBatchProcessed(JobBillingRun, obsmetrics.ResourceOrganizations, orgs)
	s.metrics.AddBatchProcessed(JobBillingRun, obsmetrics.ResourceChargesCreated, created)
	s.metrics.AddBatchProcessed(JobBillingRun, obsmetrics.ResourceChargesSkipped, skipped)

	if jobErr == nil {
		return ctx.Err()
	}
	return jobErr
}

func (s *Scheduler) runOrg(ctx context.Context, orgID snowflake.ID) orgOutcome {
	out := orgOutcome{orgID: orgID}
	if err := ctx.Err(); err != nil {
		out.err = err
		return out
	}

	if err := s.authorizeSystem(ctx, orgID); err != nil {
		out.err = err
		return out
	}

	orgKey := orgID.String()
	token := ""
	if s.locker != nil {
		var (
			ok  bool
			err error
		)
		token, ok, err = s.locker.TryLockOrg(ctx, orgKey)
		if err != nil {
			out.err = err
			return out
		}
		if !ok {
			s.metrics.IncBatchDeferred(JobBillingRun, obsmetrics.SchedulerBatchDeferredReasonLocked)
			s.logger(s.withLogContext(ctx, orgID)).Debug("scheduler.org.locked_elsewhere",
				zap.String("org_id", orgKey),
			)
			out.deferred = true
			return out
		}
		defer func() {
			if err := s.locker.ReleaseOrg(context.WithoutCancel(ctx), orgKey, token); err != nil {
				s.log.Warn("failed to release billing run lock", zap.String("org_id", orgKey), zap.Error(err))
			}
		}()
	}

	orgCtx := orgcontext.WithOrgID(s.withLogContext(ctx, orgID), int64(orgID))
	out.result, out.err = s.billingSvc.GenerateCharges(orgCtx, billingdomain.GenerateChargesRequest{})
	if out.err == nil {
		s.logger(orgCtx).Info("scheduler.org.billed",
			zap.String("org_id", orgKey),
			zap.String("cycle_key", out.result.CycleKey),
			zap.Int("created", out.result.Created),
			zap.Int("skipped", out.result.Skipped),
		)
	}
	return out
}

func (s *Scheduler) authorizeSystem(ctx context.Context, orgID snowflake.ID) error {
	if s.authzSvc == nil {
		return authorization.ErrForbidden
	}
	return s.authzSvc.Authorize(ctx, "system", orgID.String(), authorization.ObjectCharge, authorization.ActionChargeGenerate)
}

func (s *Scheduler) pushMetrics(parent context.Context) {
	if s.pusher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), pushTimeout)
	defer cancel()
	if err := s.pusher.Push(ctx, s.metrics.Registry()); err != nil {
		s.log.Warn("scheduler metrics push failed", zap.Error(err))
	}
}
