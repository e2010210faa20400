package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Weekdays lists the teaching days in display order.
var Weekdays = []string{"segunda", "terca", "quarta", "quinta", "sexta"}

// NoClass marks a day without lessons in a weekly schedule.
const NoClass = "–"

// WeeklySchedule maps a weekday to its subject label ("Física, Desenho", "Matemática" or NoClass).
// It is persisted as JSONB.
type WeeklySchedule map[string]string

// Value marshals the schedule for persistence.
func (w WeeklySchedule) Value() (driver.Value, error) {
	if w == nil {
		return []byte("{}"), nil
	}
	data, err := json.Marshal(map[string]string(w))
	if err != nil {
		return nil, fmt.Errorf("marshal weekly schedule: %w", err)
	}
	return data, nil
}

// Scan unmarshals a JSONB column into the schedule.
func (w *WeeklySchedule) Scan(value interface{}) error {
	if value == nil {
		*w = WeeklySchedule{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for WeeklySchedule", value)
	}
	out := WeeklySchedule{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &out); err != nil {
			return fmt.Errorf("unmarshal weekly schedule: %w", err)
		}
	}
	*w = out
	return nil
}

// IsEmpty reports whether no weekday carries a label.
func (w WeeklySchedule) IsEmpty() bool {
	for _, label := range w {
		if label != "" {
			return false
		}
	}
	return true
}

// Clone returns an independent copy.
func (w WeeklySchedule) Clone() WeeklySchedule {
	out := make(WeeklySchedule, len(w))
	for day, label := range w {
		out[day] = label
	}
	return out
}
