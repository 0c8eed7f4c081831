package scheduling

import "fmt"

// Period buckets a day into morning and afternoon.
type Period string

const (
	Morning   Period = "morning"
	Afternoon Period = "afternoon"
)

// noon is the first afternoon hour.
const noon = 12

// TimeSlot is one bookable hour for a provider on a given date.
type TimeSlot struct {
	Hour      int  `json:"hour"`
	Available bool `json:"available"`
}

// Classification is the derived, display-facing view of a slot.
type Classification struct {
	Period Period `json:"period"`
	Label  string `json:"label"`
}

// PeriodOf returns morning for hours before noon, afternoon otherwise.
func PeriodOf(hour int) Period {
	if hour < noon {
		return Morning
	}
	return Afternoon
}

// Label formats an hour as "HH:00".
func Label(hour int) string {
	return fmt.Sprintf("%02d:00", hour)
}

// ValidHour reports whether hour is within 0..23.
func ValidHour(hour int) bool {
	return hour >= 0 && hour <= 23
}

// Classify derives period and label for a slot.
func Classify(slot TimeSlot) Classification {
	return Classification{Period: PeriodOf(slot.Hour), Label: Label(slot.Hour)}
}

// SlotView is a slot together with its classification, as rendered.
type SlotView struct {
	TimeSlot
	Classification
}

// SplitSlots partitions slots into morning and afternoon, preserving order.
func SplitSlots(slots []TimeSlot) (morning, afternoon []SlotView) {
	morning = make([]SlotView, 0, len(slots))
	afternoon = make([]SlotView, 0, len(slots))
	for _, s := range slots {
		v := SlotView{TimeSlot: s, Classification: Classify(s)}
		if v.Period == Morning {
			morning = append(morning, v)
		} else {
			afternoon = append(afternoon, v)
		}
	}
	return morning, afternoon
}

// FindSlot returns the slot for hour, if present.
func FindSlot(slots []TimeSlot, hour int) (TimeSlot, bool) {
	for _, s := range slots {
		if s.Hour == hour {
			return s, true
		}
	}
	return TimeSlot{}, false
}

// DedupeSlots drops repeated hours, keeping the first occurrence.
func DedupeSlots(slots []TimeSlot) []TimeSlot {
	seen := make(map[int]struct{}, len(slots))
	out := make([]TimeSlot, 0, len(slots))
	for _, s := range slots {
		if _, ok := seen[s.Hour]; ok {
			continue
		}
		seen[s.Hour] = struct{}{}
		out = append(out, s)
	}
	return out
}
