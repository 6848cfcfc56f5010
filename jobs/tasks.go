package jobs

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeAppointmentReminder notifies a patient ahead of a session.
	TaskTypeAppointmentReminder = "appointments:reminder"
	// TaskTypeIsolationSweep audits tenant scoping across all clinics.
	TaskTypeIsolationSweep = "isolation:sweep"
)

// AppointmentReminderPayload identifies the appointment to remind about.
type AppointmentReminderPayload struct {
	TenantID      uuid.UUID `json:"tenant_id"`
	AppointmentID uuid.UUID `json:"appointment_id"`
	StartsAt      time.Time `json:"starts_at"`
}

// NewAppointmentReminderTask constructs an Asynq task.
func NewAppointmentReminderTask(payload AppointmentReminderPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeAppointmentReminder, data), nil
}

// IsolationSweepPayload configures a sweep run. The zero value sweeps
// every clinic.
type IsolationSweepPayload struct {
	TenantIDs []uuid.UUID `json:"tenant_ids,omitempty"`
}

// NewIsolationSweepTask constructs an Asynq task.
func NewIsolationSweepTask(payload IsolationSweepPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeIsolationSweep, data), nil
}
