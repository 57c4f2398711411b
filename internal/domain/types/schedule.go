package types

// ScheduleStatus is the lifecycle state of a bus schedule (one trip)
type ScheduleStatus string

func (s ScheduleStatus) String() string {
	return string(s)
}

const (
	StatusScheduled  ScheduleStatus = "scheduled"
	StatusInProgress ScheduleStatus = "in_progress"
	StatusCompleted  ScheduleStatus = "completed"
	StatusCancelled  ScheduleStatus = "cancelled"
)

func (s ScheduleStatus) IsValid() bool {
	switch s {
	case StatusScheduled, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no transition may leave s.
func (s ScheduleStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// ScheduleTimestamp names a schedule timestamp column the hub may record.
type ScheduleTimestamp string

const (
	TimestampActualStart ScheduleTimestamp = "actual_start_time"
	TimestampActualEnd   ScheduleTimestamp = "actual_end_time"
)
