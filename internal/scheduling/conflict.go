// Package scheduling 预约排期核心逻辑：冲突检测与可用时段生成。
//
// 包内函数均为纯函数，不访问存储、不修改入参；调用方负责按日期 / 医生 / 诊室
// 预先查询相关预约并传入。
package scheduling

import (
	"errors"
	"time"

	"clinica-estetica/internal/model"
)

// ErrInvalidInterval 结束时间不晚于开始时间
var ErrInvalidInterval = errors.New("结束时间必须晚于开始时间")

// Candidate 待校验的预约时间段
type Candidate struct {
	RoomID   string
	DoctorID string
	Date     time.Time
	Start    time.Time
	End      time.Time
}

// ValidateInterval 边界前置校验，冲突检测本身不做此校验
func ValidateInterval(start, end time.Time) error {
	if !end.After(start) {
		return ErrInvalidInterval
	}
	return nil
}

// Overlaps 半开区间 [s1,e1) 与 [s2,e2) 是否重叠，首尾相接不算重叠
func Overlaps(s1, e1, s2, e2 time.Time) bool {
	return s1.Before(e2) && s2.Before(e1)
}

// inScope 判断已有预约是否参与冲突检测：同诊室或同医生、未取消、且不是被排除的预约本身
func inScope(c Candidate, appt *model.Appointment, excludeID string) bool {
	if excludeID != "" && appt.AppointmentID == excludeID {
		return false
	}
	if !appt.Status.OccupiesAgenda() {
		return false
	}
	sameRoom := c.RoomID != "" && appt.RoomID == c.RoomID
	sameDoctor := c.DoctorID != "" && appt.DoctorID == c.DoctorID
	return sameRoom || sameDoctor
}

// HasConflict 候选时间段是否与任一在范围内的已有预约重叠
// excludeID 用于改期时排除预约自身，传空字符串表示不排除
func HasConflict(c Candidate, existing []model.Appointment, excludeID string) bool {
	for i := range existing {
		appt := &existing[i]
		if inScope(c, appt, excludeID) && Overlaps(c.Start, c.End, appt.StartTime, appt.EndTime) {
			return true
		}
	}
	return false
}

// Conflicts 返回与候选时间段冲突的全部预约（按入参顺序），用于向前端说明冲突原因
func Conflicts(c Candidate, existing []model.Appointment, excludeID string) []model.Appointment {
	var out []model.Appointment
	for i := range existing {
		appt := &existing[i]
		if inScope(c, appt, excludeID) && Overlaps(c.Start, c.End, appt.StartTime, appt.EndTime) {
			out = append(out, *appt)
		}
	}
	return out
}
