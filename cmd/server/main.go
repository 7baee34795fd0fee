package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"clinica-estetica/config"
	"clinica-estetica/internal/api/handler"
	"clinica-estetica/internal/api/router"
	"clinica-estetica/internal/repository"
	"clinica-estetica/internal/service"
	"clinica-estetica/pkg/database"
	"clinica-estetica/pkg/events"
	"clinica-estetica/pkg/jwt"
	applogger "clinica-estetica/pkg/logger"
	"clinica-estetica/pkg/redis"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:   "clinica",
		Short: "诊所预约管理后端",
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "配置文件路径（默认读取 ./config.yaml 与环境变量）")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(remindCmd())
	rootCmd.AddCommand(createAdminCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// bootstrap 加载配置并初始化日志与数据库
func bootstrap() (*config.Config, *zap.Logger, *gorm.DB, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("加载配置失败: %w", err)
	}

	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("初始化日志失败: %w", err)
	}

	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("数据库连接失败: %w", err)
	}
	logger.Info("数据库连接成功")

	return cfg, logger, db, nil
}

func closeDB(db *gorm.DB) {
	if sqlDB, _ := db.DB(); sqlDB != nil {
		sqlDB.Close()
	}
}

// ────────────────────── serve ──────────────────────

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "启动 HTTP 服务",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func runServer() error {
	cfg, logger, db, err := bootstrap()
	if err != nil {
		return err
	}
	defer logger.Sync()
	defer closeDB(db)

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
		zap.String("timezone", cfg.Scheduling.Timezone),
	)

	// 执行数据库迁移
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		return err
	}

	// 连接 Redis（可选：连接失败时降级运行，不中断启动）
	rdb, err := redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis 连接失败，Token 黑名单与登录限流将不可用", zap.Error(err))
		rdb = nil
	}

	publisher := events.NewPublisher(&cfg.Kafka, logger)
	defer publisher.Close()

	jwtMgr := jwt.NewManager(&cfg.Auth)

	// 依赖注入: Repository → Service → Handler
	repo := repository.NewRepository(db)
	svc := service.NewService(cfg, repo, jwtMgr, rdb, publisher, logger)
	h := handler.NewHandler(svc, &cfg.Auth)

	engine := router.Setup(cfg, h, jwtMgr, rdb, logger)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// 每日预约提醒
	if cfg.Reminder.Enabled {
		scheduler, err := service.NewReminderScheduler(svc.Reminder, cfg.Reminder.RunAt, cfg.Scheduling.Location(), logger)
		if err != nil {
			return err
		}
		go scheduler.Start(ctx)
	}

	// 启动 HTTP 服务器（优雅关闭）
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	if rdb != nil {
		rdb.Close()
	}

	logger.Info("服务器已关闭")
	return nil
}

// ────────────────────── migrate ──────────────────────

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "数据库迁移",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "应用全部未执行的迁移",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, logger, db, err := bootstrap()
			if err != nil {
				return err
			}
			defer closeDB(db)

			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return database.RunMigrations(sqlDB, logger)
		},
	})

	downCmd := &cobra.Command{
		Use:   "down",
		Short: "回滚迁移",
		RunE: func(cmd *cobra.Command, args []string) error {
			steps, _ := cmd.Flags().GetInt("steps")

			_, logger, db, err := bootstrap()
			if err != nil {
				return err
			}
			defer closeDB(db)

			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return database.RollbackMigrations(sqlDB, steps, logger)
		},
	}
	downCmd.Flags().Int("steps", 1, "回滚步数")
	cmd.AddCommand(downCmd)

	return cmd
}

// ────────────────────── remind ──────────────────────

func remindCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remind",
		Short: "立即执行一次预约提醒任务（适合外部 cron 调用）",
		RunE: func(cmd *cobra.Command, args []string) error {
			date, _ := cmd.Flags().GetString("date")

			cfg, logger, db, err := bootstrap()
			if err != nil {
				return err
			}
			defer closeDB(db)

			publisher := events.NewPublisher(&cfg.Kafka, logger)
			defer publisher.Close()

			repo := repository.NewRepository(db)
			policy := service.NewPolicyLoader(&cfg.Scheduling, repo, logger)
			reminder := service.NewReminderService(repo, policy, publisher, logger)

			result, err := reminder.Run(cmd.Context(), date)
			if err != nil {
				return err
			}
			return json.NewEncoder(cmd.OutOrStdout()).Encode(result)
		},
	}
	cmd.Flags().String("date", "", "提醒日期 YYYY-MM-DD，默认明天")
	return cmd
}

// ────────────────────── create-admin ──────────────────────

func createAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "创建管理员账号",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			username, _ := cmd.Flags().GetString("username")
			email, _ := cmd.Flags().GetString("email")
			password := os.Getenv("ADMIN_PASSWORD")
			if password == "" {
				return fmt.Errorf("请通过环境变量 ADMIN_PASSWORD 提供初始密码")
			}

			_, logger, db, err := bootstrap()
			if err != nil {
				return err
			}
			defer closeDB(db)

			user, err := service.BootstrapAdmin(cmd.Context(), repository.NewRepository(db), name, username, email, password)
			if err != nil {
				return err
			}
			logger.Info("管理员账号已创建", zap.String("user_id", user.ID), zap.String("username", user.Username))
			return nil
		},
	}
	cmd.Flags().String("name", "Administrador", "显示名称")
	cmd.Flags().String("username", "admin", "登录用户名")
	cmd.Flags().String("email", "admin@clinica.local", "邮箱")
	return cmd
}
