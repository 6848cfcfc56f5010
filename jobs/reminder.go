package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	jobmetrics "github.com/therapia-health/therapia/internal/jobs"
)

// AppointmentReminderJob delivers session reminders. Delivery is a log
// line until the notification channel lands; the scheduling, lookup and
// cancellation handling are final.
type AppointmentReminderJob struct {
	Pool    *pgxpool.Pool
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewAppointmentReminderJob initialises the reminder handler.
func NewAppointmentReminderJob(pool *pgxpool.Pool, logger *slog.Logger, metrics *jobmetrics.Metrics) *AppointmentReminderJob {
	return &AppointmentReminderJob{Pool: pool, Logger: logger, Metrics: metrics}
}

// Handle executes one reminder delivery.
func (j *AppointmentReminderJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Pool == nil {
		return errors.New("appointment reminder: handler not configured")
	}
	var payload AppointmentReminderPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskTypeAppointmentReminder)
	defer func() {
		err = tracker.End(err)
	}()

	logger := j.logger().With(
		slog.String("tenant_id", payload.TenantID.String()),
		slog.String("appointment_id", payload.AppointmentID.String()),
	)

	var (
		status   string
		startsAt time.Time
		email    string
	)
	err = j.Pool.QueryRow(ctx, `
		SELECT a.status, a.starts_at, COALESCE(p.email, '')
		FROM appointments a
		JOIN patients p ON p.id = a.patient_id AND p.tenant_id = a.tenant_id
		WHERE a.tenant_id = $1 AND a.id = $2`,
		payload.TenantID, payload.AppointmentID,
	).Scan(&status, &startsAt, &email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			logger.Info("reminder skipped, appointment gone")
			return nil
		}
		return err
	}
	if status != "scheduled" {
		logger.Info("reminder skipped", slog.String("status", status))
		return nil
	}

	logger.Info("appointment reminder sent",
		slog.Time("starts_at", startsAt),
		slog.Bool("has_email", email != ""))
	return nil
}

func (j *AppointmentReminderJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return jobmetrics.NewMetrics(nil)
}

func (j *AppointmentReminderJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
