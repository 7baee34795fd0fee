package handler

import (
	"clinica-estetica/config"
	"clinica-estetica/internal/service"
)

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth         *AuthHandler
	User         *UserHandler
	Doctor       *DoctorHandler
	Patient      *PatientHandler
	Room         *RoomHandler
	Treatment    *TreatmentHandler
	Appointment  *AppointmentHandler
	SystemConfig *SystemConfigHandler
	Export       *ExportHandler
	Reminder     *ReminderHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service, authCfg *config.AuthConfig) *Handler {
	return &Handler{
		Auth:         NewAuthHandler(svc.Auth, authCfg),
		User:         NewUserHandler(svc.User),
		Doctor:       NewDoctorHandler(svc.Doctor),
		Patient:      NewPatientHandler(svc.Patient, svc.Appointment),
		Room:         NewRoomHandler(svc.Room),
		Treatment:    NewTreatmentHandler(svc.Treatment),
		Appointment:  NewAppointmentHandler(svc.Appointment),
		SystemConfig: NewSystemConfigHandler(svc.SystemConfig),
		Export:       NewExportHandler(svc.Export),
		Reminder:     NewReminderHandler(svc.Reminder),
	}
}
