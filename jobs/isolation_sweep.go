package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/therapia-health/therapia/internal/appointments"
	"github.com/therapia-health/therapia/internal/exercises"
	"github.com/therapia-health/therapia/internal/isolation"
	jobmetrics "github.com/therapia-health/therapia/internal/jobs"
	"github.com/therapia-health/therapia/internal/patients"
	"github.com/therapia-health/therapia/internal/payments"
)

// IsolationSweepJob runs the tenant isolation auditor across every
// clinic pair and reports findings through logs and metrics. It never
// mutates data.
type IsolationSweepJob struct {
	Pool    *pgxpool.Pool
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewIsolationSweepJob initialises the sweep handler.
func NewIsolationSweepJob(pool *pgxpool.Pool, logger *slog.Logger, metrics *jobmetrics.Metrics) *IsolationSweepJob {
	return &IsolationSweepJob{Pool: pool, Logger: logger, Metrics: metrics}
}

// Handle executes the sweep.
func (j *IsolationSweepJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Pool == nil {
		return errors.New("isolation sweep: handler not configured")
	}
	var payload IsolationSweepPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskTypeIsolationSweep)
	defer func() {
		err = tracker.End(err)
	}()

	logger := j.logger()

	tenants := payload.TenantIDs
	if len(tenants) == 0 {
		ids, listErr := j.listTenants(ctx)
		if listErr != nil {
			logger.Error("sweep failed to list clinics", slog.Any("error", listErr))
			return listErr
		}
		tenants = ids
	}
	if len(tenants) == 0 {
		logger.Info("isolation sweep skipped, no clinics")
		return nil
	}

	store := isolation.NewRepoStore(
		patients.NewRepository(j.Pool),
		appointments.NewRepository(j.Pool),
		payments.NewRepository(j.Pool),
		exercises.NewRepository(j.Pool),
	)
	auditor := isolation.NewAuditor(store, logger)

	var violations []isolation.Violation
	for i := 0; i < len(tenants); i += 2 {
		a := tenants[i]
		b := uuid.Nil
		if i+1 < len(tenants) {
			b = tenants[i+1]
		}
		found, sweepErr := auditor.Sweep(ctx, a, b)
		if sweepErr != nil {
			logger.Error("sweep failed", slog.Any("error", sweepErr))
			return sweepErr
		}
		violations = append(violations, found...)
	}

	for _, v := range violations {
		logger.Error("tenant isolation violation",
			slog.String("resource", v.ResourceKind),
			slog.String("row_id", v.RowID.String()),
			slog.String("expected_tenant", v.ExpectedTenant.String()),
			slog.String("actual_tenant", v.ActualTenant.String()))
		j.metrics().AddViolations(v.ResourceKind, v.ExpectedTenant.String(), 1)
	}

	logger.Info("isolation sweep finished",
		slog.Int("clinics", len(tenants)),
		slog.Int("violations", len(violations)))
	return nil
}

func (j *IsolationSweepJob) listTenants(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := j.Pool.Query(ctx, `SELECT id FROM clinics ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (j *IsolationSweepJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return jobmetrics.NewMetrics(nil)
}

func (j *IsolationSweepJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
