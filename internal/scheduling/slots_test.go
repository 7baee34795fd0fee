package scheduling

import (
	"testing"
	"time"

	"clinica-estetica/internal/model"
)

func slotStarts(slots []Slot) []string {
	out := make([]string, len(slots))
	for i, s := range slots {
		out[i] = s.Start.Format("15:04")
	}
	return out
}

func containsStart(slots []Slot, hhmm string) bool {
	for _, s := range slots {
		if s.Start.Format("15:04") == hhmm {
			return true
		}
	}
	return false
}

func TestGenerateAvailableSlots_EmptyAgenda(t *testing.T) {
	slots := GenerateAvailableSlots(testDay, "D", 30, nil, DefaultWorkingHours())

	// ⌈(20-9)*60/30⌉ = 22
	if len(slots) != 22 {
		t.Fatalf("期望 22 个时段，实际 %d: %v", len(slots), slotStarts(slots))
	}
	if got := slots[0].Start.Format("15:04"); got != "09:00" {
		t.Errorf("首个时段期望 09:00，实际 %s", got)
	}
	if got := slots[len(slots)-1].Start.Format("15:04"); got != "19:30" {
		t.Errorf("末个时段期望 19:30，实际 %s", got)
	}
	for i := 1; i < len(slots); i++ {
		if !slots[i].Start.After(slots[i-1].Start) {
			t.Fatalf("时段未按升序排列: %v", slotStarts(slots))
		}
	}
}

func TestGenerateAvailableSlots_EmptyAgendaCountFormula(t *testing.T) {
	cases := []struct {
		wh   WorkingHours
		want int
	}{
		{WorkingHours{StartHour: 9, EndHour: 20, SlotGranularityMinutes: 30}, 22},
		{WorkingHours{StartHour: 9, EndHour: 20, SlotGranularityMinutes: 45}, 15},
		{WorkingHours{StartHour: 8, EndHour: 14, SlotGranularityMinutes: 60}, 6},
		{WorkingHours{StartHour: 10, EndHour: 11, SlotGranularityMinutes: 25}, 3},
	}
	for _, tc := range cases {
		// 时长取最小粒度，避免触发收尾边界
		slots := GenerateAvailableSlots(testDay, "D", 15, nil, tc.wh)
		if len(slots) != tc.want {
			t.Errorf("%+v 期望 %d 个时段，实际 %d", tc.wh, tc.want, len(slots))
		}
	}
}

func TestGenerateAvailableSlots_ExcludesBookedSlot(t *testing.T) {
	existing := []model.Appointment{appt("a1", "R1", "D", 10, 0, 10, 30, model.StatusScheduled)}

	slots := GenerateAvailableSlots(testDay, "D", 30, existing, DefaultWorkingHours())

	if containsStart(slots, "10:00") {
		t.Error("10:00 时段已被占用，不应返回")
	}
	for _, want := range []string{"09:00", "09:30", "10:30", "11:00", "19:30"} {
		if !containsStart(slots, want) {
			t.Errorf("期望包含 %s 时段", want)
		}
	}
	if len(slots) != 21 {
		t.Errorf("期望 21 个时段，实际 %d", len(slots))
	}
}

func TestGenerateAvailableSlots_RoundTripNoConflict(t *testing.T) {
	existing := []model.Appointment{
		appt("a1", "R1", "D", 9, 45, 10, 15, model.StatusConfirmed),
		appt("a2", "R2", "D", 13, 0, 14, 30, model.StatusInProgress),
		appt("a3", "R1", "D", 16, 10, 16, 20, model.StatusScheduled),
	}

	for _, dur := range []int{15, 30, 45, 60, 90} {
		for _, s := range GenerateAvailableSlots(testDay, "D", dur, existing, DefaultWorkingHours()) {
			c := Candidate{DoctorID: "D", Date: testDay, Start: s.Start, End: s.End}
			if HasConflict(c, existing, "") {
				t.Errorf("duration=%d 返回的时段 %s 与已有预约冲突", dur, s.Display)
			}
		}
	}
}

func TestGenerateAvailableSlots_CancelledDoesNotBlock(t *testing.T) {
	existing := []model.Appointment{appt("a1", "R1", "D", 10, 0, 10, 30, model.StatusCancelled)}

	slots := GenerateAvailableSlots(testDay, "D", 30, existing, DefaultWorkingHours())
	if !containsStart(slots, "10:00") {
		t.Error("已取消预约不应占用时段")
	}
}

func TestGenerateAvailableSlots_OtherDoctorIgnored(t *testing.T) {
	existing := []model.Appointment{appt("a1", "R1", "OTHER", 10, 0, 10, 30, model.StatusScheduled)}

	slots := GenerateAvailableSlots(testDay, "D", 30, existing, DefaultWorkingHours())
	if !containsStart(slots, "10:00") {
		t.Error("其他医生的预约不应影响该医生时段")
	}
}

func TestGenerateAvailableSlots_ZeroDurationDefaults(t *testing.T) {
	existing := []model.Appointment{appt("a1", "R1", "D", 12, 0, 12, 30, model.StatusScheduled)}

	zero := GenerateAvailableSlots(testDay, "D", 0, existing, DefaultWorkingHours())
	sixty := GenerateAvailableSlots(testDay, "D", 60, existing, DefaultWorkingHours())

	if len(zero) != len(sixty) {
		t.Fatalf("时长 0 应等同于 60 分钟，实际 %d vs %d", len(zero), len(sixty))
	}
	for i := range zero {
		if !zero[i].Start.Equal(sixty[i].Start) || !zero[i].End.Equal(sixty[i].End) {
			t.Errorf("第 %d 个时段不一致: %s vs %s", i, zero[i].Display, sixty[i].Display)
		}
	}
	if got := zero[0].End.Sub(zero[0].Start); got != time.Hour {
		t.Errorf("默认时长期望 1h，实际 %v", got)
	}
}

func TestGenerateAvailableSlots_HourTruncatedEndBoundary(t *testing.T) {
	// 19:30 + 60min = 20:30，小时数 20 <= 20，按小时比较仍然入选
	slots := GenerateAvailableSlots(testDay, "D", 60, nil, DefaultWorkingHours())
	if !containsStart(slots, "19:30") {
		t.Error("结束于 20:30 的时段应按小时边界入选")
	}

	// 19:30 + 90min = 21:00，小时数 21 > 20，被排除
	slots = GenerateAvailableSlots(testDay, "D", 90, nil, DefaultWorkingHours())
	if containsStart(slots, "19:30") {
		t.Error("结束于 21:00 的时段不应入选")
	}
	if !containsStart(slots, "19:00") {
		t.Error("结束于 20:30 的 19:00 时段应入选")
	}
	if len(slots) != 21 {
		t.Errorf("期望 21 个时段，实际 %d", len(slots))
	}
}

func TestGenerateAvailableSlots_Display(t *testing.T) {
	slots := GenerateAvailableSlots(testDay, "D", 45, nil, DefaultWorkingHours())
	if slots[0].Display != "09:00 - 09:45" {
		t.Errorf("期望 \"09:00 - 09:45\"，实际 %q", slots[0].Display)
	}
}

func TestGenerateAvailableSlots_UsesDateLocation(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	day := time.Date(2024, 1, 15, 0, 0, 0, 0, loc)

	slots := GenerateAvailableSlots(day, "D", 30, nil, DefaultWorkingHours())
	if slots[0].Start.Location() != loc {
		t.Error("时段应使用入参日期的时区")
	}
	if slots[0].Start.Hour() != 9 {
		t.Errorf("本地时间期望 9 点开始，实际 %d", slots[0].Start.Hour())
	}
}

func TestGenerateAvailableSlots_ZeroWorkingHoursUsesDefaults(t *testing.T) {
	slots := GenerateAvailableSlots(testDay, "D", 30, nil, WorkingHours{})
	if len(slots) != 22 {
		t.Errorf("零值工作时间应回退到默认值，期望 22 个时段，实际 %d", len(slots))
	}
}
