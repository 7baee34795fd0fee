package scheduling

import "clinica-estetica/internal/model"

// DefaultStatusColor 未知状态的颜色
const DefaultStatusColor = "default"

// StatusColor 预约状态到日历颜色标记的映射
func StatusColor(status model.AppointmentStatus) string {
	switch status {
	case model.StatusScheduled:
		return "blue"
	case model.StatusConfirmed:
		return "green"
	case model.StatusInProgress:
		return "orange"
	case model.StatusCompleted:
		return "purple"
	case model.StatusCancelled:
		return "red"
	case model.StatusNoShow:
		return "volcano"
	}
	return DefaultStatusColor
}
