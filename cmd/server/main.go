package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"taskboard/internal/config"
	apphttp "taskboard/internal/http"
	"taskboard/internal/mail"
	"taskboard/internal/notify"
	"taskboard/internal/presence"
	"taskboard/internal/repository/sqlite"
	"taskboard/internal/service"
	"taskboard/internal/ws"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	if strings.TrimSpace(cfg.Auth.JWTSecret) == "" {
		logger.Fatalf("auth jwt secret is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatalf("open database: %v", err)
	}
	defer db.Close()

	userRepo := sqlite.NewUserRepository(db)
	projectRepo := sqlite.NewProjectRepository(db)
	taskRepo := sqlite.NewTaskRepository(db)
	commentRepo := sqlite.NewCommentRepository(db)
	notificationRepo := sqlite.NewNotificationRepository(db)
	activityRepo := sqlite.NewActivityRepository(db)

	for name, init := range map[string]func(context.Context) error{
		"users":         userRepo.Init,
		"projects":      projectRepo.Init,
		"tasks":         taskRepo.Init,
		"comments":      commentRepo.Init,
		"notifications": notificationRepo.Init,
		"activities":    activityRepo.Init,
	} {
		if err := init(ctx); err != nil {
			logger.Fatalf("init %s repository: %v", name, err)
		}
	}

	registry := presence.NewRegistry()
	hub := ws.NewHub(ws.Config{
		Presence: registry,
		Logger:   logger,
	})

	mailer := buildMailer(cfg, logger)

	notifier := notify.NewNotifier(notify.Config{
		Store:       notificationRepo,
		Presence:    registry,
		Transport:   hub,
		Mail:        mailer,
		Directory:   userRepo,
		Logger:      logger,
		BaseURL:     cfg.App.BaseURL,
		MailTimeout: time.Duration(cfg.SMTP.TimeoutSeconds) * time.Second,
	})

	userService := service.NewUserService(userRepo)
	projectService := service.NewProjectService(projectRepo, userRepo, activityRepo, logger)
	taskService := service.NewTaskService(taskRepo, projectRepo, activityRepo, notifier, logger)
	commentService := service.NewCommentService(commentRepo, taskRepo, projectRepo, notifier, logger)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	handler := apphttp.NewHandler(apphttp.Config{
		Users:         userService,
		Projects:      projectService,
		Tasks:         taskService,
		Comments:      commentService,
		Notifications: notificationRepo,
		Hub:           hub,
		Logger:        logger,
		JWTSecret:     cfg.Auth.JWTSecret,
		TokenTTL:      time.Duration(cfg.Auth.TokenTTLMinutes) * time.Minute,
	})
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	go func() {
		logger.Infof("listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}
	hub.Shutdown()
	notifier.Wait()

	logger.Info("bye")
}

func buildMailer(cfg config.Config, logger *logrus.Logger) mail.Sender {
	if cfg.SMTP.Host == "" {
		logger.Warn("smtp host not configured, outbound mail will be logged only")
		return &mail.LogSender{Logger: logger}
	}

	sender, err := mail.NewSMTPSender(mail.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	})
	if err != nil {
		logger.Fatalf("setup smtp sender: %v", err)
	}
	logger.Infof("using smtp relay %s:%d", cfg.SMTP.Host, cfg.SMTP.Port)
	return sender
}
