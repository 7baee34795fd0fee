package scheduling

import (
	"time"

	"clinica-estetica/internal/model"
)

// 默认工作时间
const (
	DefaultStartHour       = 9
	DefaultEndHour         = 20
	DefaultSlotGranularity = 30
	DefaultDurationMinutes = model.DefaultTreatmentMinutes
)

// WorkingHours 诊所工作时间策略
type WorkingHours struct {
	StartHour              int
	EndHour                int
	SlotGranularityMinutes int
}

// DefaultWorkingHours 9:00-20:00，30 分钟粒度
func DefaultWorkingHours() WorkingHours {
	return WorkingHours{
		StartHour:              DefaultStartHour,
		EndHour:                DefaultEndHour,
		SlotGranularityMinutes: DefaultSlotGranularity,
	}
}

func (wh WorkingHours) withDefaults() WorkingHours {
	if wh == (WorkingHours{}) {
		return DefaultWorkingHours()
	}
	if wh.SlotGranularityMinutes <= 0 {
		wh.SlotGranularityMinutes = DefaultSlotGranularity
	}
	return wh
}

// Slot 可预约时段
type Slot struct {
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
	Display string    `json:"display"` // "HH:mm - HH:mm"
}

// GenerateAvailableSlots 枚举某医生某日的可预约时段。
//
// 候选开始时间从 StartHour:00 起按粒度递增，直到 EndHour:00（不含）。
// 时段入选条件：与该医生任一未取消预约不重叠，且结束时间的小时数 <= EndHour。
// 结束边界只比较小时，EndHour=20 时 20:30 结束的时段也会入选。
//
// date 的时区即诊所时区；durationMinutes <= 0 时按 60 分钟处理。
func GenerateAvailableSlots(date time.Time, doctorID string, durationMinutes int, existing []model.Appointment, wh WorkingHours) []Slot {
	wh = wh.withDefaults()
	if durationMinutes <= 0 {
		durationMinutes = DefaultDurationMinutes
	}
	duration := time.Duration(durationMinutes) * time.Minute
	step := time.Duration(wh.SlotGranularityMinutes) * time.Minute

	loc := date.Location()
	y, m, d := date.Date()
	dayStart := time.Date(y, m, d, wh.StartHour, 0, 0, 0, loc)
	dayEnd := time.Date(y, m, d, wh.EndHour, 0, 0, 0, loc)

	busy := make([]*model.Appointment, 0, len(existing))
	for i := range existing {
		appt := &existing[i]
		if !appt.Status.OccupiesAgenda() {
			continue
		}
		if doctorID != "" && appt.DoctorID != doctorID {
			continue
		}
		busy = append(busy, appt)
	}

	slots := make([]Slot, 0, int(dayEnd.Sub(dayStart)/step)+1)
	for start := dayStart; start.Before(dayEnd); start = start.Add(step) {
		end := start.Add(duration)
		if end.Hour() > wh.EndHour {
			continue
		}
		if overlapsAny(start, end, busy) {
			continue
		}
		slots = append(slots, Slot{
			Start:   start,
			End:     end,
			Display: start.Format("15:04") + " - " + end.Format("15:04"),
		})
	}
	return slots
}

func overlapsAny(start, end time.Time, busy []*model.Appointment) bool {
	for _, b := range busy {
		if Overlaps(start, end, b.StartTime, b.EndTime) {
			return true
		}
	}
	return false
}
