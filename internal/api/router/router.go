package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"clinica-estetica/config"
	"clinica-estetica/internal/api/handler"
	"clinica-estetica/internal/api/middleware"
	"clinica-estetica/internal/model"
	"clinica-estetica/pkg/jwt"
	"clinica-estetica/pkg/redis"
)

const (
	loginRateLimit     = 10
	loginRateWindow    = time.Minute
	importMaxBodyBytes = 10 << 20
	defaultMaxBody     = 1 << 20
)

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	const (
		admin     = model.RoleAdmin
		reception = model.RoleReception
		doctor    = model.RoleDoctor
	)
	staff := middleware.RoleAuth(admin, reception)
	adminOnly := middleware.RoleAuth(admin)

	// ── 文件上传（单独的请求体上限）──
	upload := r.Group("/api/v1")
	upload.Use(middleware.BodyLimit(importMaxBodyBytes), middleware.JWTAuth(jwtMgr, rdb))
	{
		upload.POST("/patients/import", staff, h.Patient.ImportPatients)
	}

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	maxBody := cfg.Server.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBody
	}
	v1.Use(middleware.BodyLimit(maxBody))
	{
		// 认证模块（无需认证）
		auth := v1.Group("/auth")
		{
			auth.POST("/login", middleware.RateLimit(rdb, loginRateLimit, loginRateWindow), h.Auth.Login)
			auth.POST("/refresh", h.Auth.RefreshToken)
		}

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, rdb))
		{
			// 认证模块（需要认证）
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.GetCurrentUser)
			authorized.PUT("/auth/password", h.Auth.ChangePassword)

			// 员工账号（仅管理员）
			users := authorized.Group("/users", adminOnly)
			{
				users.GET("", h.User.ListUsers)
				users.POST("", h.User.CreateUser)
				users.GET("/:id", h.User.GetUser)
				users.PUT("/:id", h.User.UpdateUser)
				users.DELETE("/:id", h.User.DeleteUser)
				users.POST("/:id/reset-password", h.User.ResetPassword)
			}

			// 医生
			doctors := authorized.Group("/doctors")
			{
				doctors.GET("", h.Doctor.ListDoctors)
				doctors.GET("/:id", h.Doctor.GetDoctor)
				doctors.POST("", adminOnly, h.Doctor.CreateDoctor)
				doctors.PUT("/:id", adminOnly, h.Doctor.UpdateDoctor)
				doctors.DELETE("/:id", adminOnly, h.Doctor.DeleteDoctor)
			}

			// 诊室
			rooms := authorized.Group("/rooms")
			{
				rooms.GET("", h.Room.ListRooms)
				rooms.GET("/:id", h.Room.GetRoom)
				rooms.POST("", adminOnly, h.Room.CreateRoom)
				rooms.PUT("/:id", adminOnly, h.Room.UpdateRoom)
				rooms.DELETE("/:id", adminOnly, h.Room.DeleteRoom)
			}

			// 治疗项目
			treatments := authorized.Group("/treatments")
			{
				treatments.GET("", h.Treatment.ListTreatments)
				treatments.GET("/:id", h.Treatment.GetTreatment)
				treatments.POST("", adminOnly, h.Treatment.CreateTreatment)
				treatments.PUT("/:id", adminOnly, h.Treatment.UpdateTreatment)
				treatments.DELETE("/:id", adminOnly, h.Treatment.DeleteTreatment)
			}

			// 患者
			patients := authorized.Group("/patients")
			{
				patients.GET("", h.Patient.ListPatients)
				patients.GET("/:id", h.Patient.GetPatient)
				patients.GET("/:id/appointments", h.Patient.GetPatientHistory)
				patients.POST("", staff, h.Patient.CreatePatient)
				patients.PUT("/:id", staff, h.Patient.UpdatePatient)
				patients.DELETE("/:id", staff, h.Patient.DeletePatient)
				patients.POST("/:id/block", staff, h.Patient.BlockPatient)
				patients.POST("/:id/unblock", staff, h.Patient.UnblockPatient)
			}

			// 预约（医生账号的可见范围在 Handler / Service 层收敛）
			appointments := authorized.Group("/appointments")
			{
				appointments.GET("", h.Appointment.ListAppointments)
				appointments.GET("/calendar", h.Appointment.Calendar)
				appointments.GET("/available-slots", h.Appointment.AvailableSlots)
				appointments.POST("/check-availability", h.Appointment.CheckAvailability)
				appointments.GET("/:id", h.Appointment.GetAppointment)
				appointments.POST("", staff, h.Appointment.CreateAppointment)
				appointments.PATCH("/:id", staff, h.Appointment.UpdateAppointment)
				appointments.DELETE("/:id", staff, h.Appointment.DeleteAppointment)
				appointments.PATCH("/:id/status", middleware.RoleAuth(admin, reception, doctor), h.Appointment.ChangeStatus)
				appointments.POST("/:id/confirm", staff, h.Appointment.ConfirmAppointment)
			}

			// 诊所配置
			systemConfig := authorized.Group("/system-config")
			{
				systemConfig.GET("", h.SystemConfig.GetConfig)
				systemConfig.PUT("", adminOnly, h.SystemConfig.UpdateConfig)
			}

			// 导出
			export := authorized.Group("/export")
			{
				export.GET("/agenda", staff, h.Export.ExportDailyAgenda)
				export.GET("/doctors/:id/agenda.ics", h.Export.ExportDoctorAgenda)
			}

			// 提醒任务（手动触发）
			authorized.POST("/reminders/run", adminOnly, h.Reminder.RunReminders)
		}
	}

	return r
}
