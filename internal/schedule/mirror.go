// Package schedule derives the weekly schedule of the second class of a course pair.
//
// Some days co-schedule two subjects. Turma B attends them in the reverse order of
// turma A so that across the pair each subject is taught first and second equally.
package schedule

import (
	"strings"

	"github.com/noah-isme/preparatorio-aauma-api/internal/models"
)

const separator = ", "

// MirrorDay returns the label turma B uses for a day turma A labels as label.
// The no-class marker and labels naming at most one subject are returned unchanged.
// Empty comma segments are ignored. Labels with more than two subjects have their full
// list reversed.
func MirrorDay(label string) string {
	if strings.TrimSpace(label) == models.NoClass || !strings.Contains(label, ",") {
		return label
	}
	parts := strings.Split(label, ",")
	subjects := make([]string, 0, len(parts))
	for i := len(parts) - 1; i >= 0; i-- {
		if subject := strings.TrimSpace(parts[i]); subject != "" {
			subjects = append(subjects, subject)
		}
	}
	if len(subjects) <= 1 {
		return label
	}
	return strings.Join(subjects, separator)
}

// MirrorWeek applies MirrorDay to every day of week and returns a new schedule.
func MirrorWeek(week models.WeeklySchedule) models.WeeklySchedule {
	out := make(models.WeeklySchedule, len(week))
	for day, label := range week {
		out[day] = MirrorDay(label)
	}
	return out
}

// ForVariant returns the schedule a class of the given variant follows when the pair
// schedule is week.
func ForVariant(week models.WeeklySchedule, variant models.ClassVariant) models.WeeklySchedule {
	if variant == models.VariantB {
		return MirrorWeek(week)
	}
	return week.Clone()
}

// ResolveClassSchedule returns the schedule shown for class. A class with its own stored
// schedule keeps it; otherwise it inherits the pair schedule, mirrored for turma B.
func ResolveClassSchedule(pair models.CoursePair, class models.Class) models.WeeklySchedule {
	if !class.WeeklySchedule.IsEmpty() {
		return class.WeeklySchedule.Clone()
	}
	return ForVariant(pair.WeeklySchedule, class.Variant)
}

// Normalize fills missing weekdays with the no-class marker and trims labels.
func Normalize(week models.WeeklySchedule) models.WeeklySchedule {
	out := make(models.WeeklySchedule, len(models.Weekdays))
	for _, day := range models.Weekdays {
		label := strings.TrimSpace(week[day])
		if label == "" {
			label = models.NoClass
		}
		out[day] = label
	}
	return out
}
