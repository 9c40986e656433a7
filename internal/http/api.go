// Package http wires the JSON API and the WebSocket endpoint to domain services.
package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"

	"taskboard/internal/repository"
	"taskboard/internal/service"
	"taskboard/internal/ws"
)

const contextUserIDKey = "user_id"

// Handler wires HTTP routes to domain services.
type Handler struct {
	users         service.UserService
	projects      service.ProjectService
	tasks         service.TaskService
	comments      service.CommentService
	notifications repository.NotificationRepository
	hub           *ws.Hub
	logger        *logrus.Logger

	jwtSecret string
	tokenTTL  time.Duration
}

type Config struct {
	Users         service.UserService
	Projects      service.ProjectService
	Tasks         service.TaskService
	Comments      service.CommentService
	Notifications repository.NotificationRepository
	Hub           *ws.Hub
	Logger        *logrus.Logger
	JWTSecret     string
	TokenTTL      time.Duration
}

func NewHandler(cfg Config) *Handler {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &Handler{
		users:         cfg.Users,
		projects:      cfg.Projects,
		tasks:         cfg.Tasks,
		comments:      cfg.Comments,
		notifications: cfg.Notifications,
		hub:           cfg.Hub,
		logger:        cfg.Logger,
		jwtSecret:     cfg.JWTSecret,
		tokenTTL:      cfg.TokenTTL,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(corsMiddleware())

	api := router.Group("/api")
	{
		api.POST("/auth/register", h.register)
		api.POST("/auth/login", h.login)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"ok": "ok"})
		})

		authed := api.Group("")
		authed.Use(h.authMiddleware())
		{
			authed.GET("/profile", h.getProfile)
			authed.PUT("/profile", h.updateProfile)
			authed.PUT("/profile/password", h.changePassword)

			authed.GET("/projects", h.listProjects)
			authed.POST("/projects", h.createProject)
			authed.GET("/projects/:id", h.getProject)
			authed.PUT("/projects/:id", h.updateProject)
			authed.DELETE("/projects/:id", h.deleteProject)
			authed.POST("/projects/:id/invite", h.inviteMember)
			authed.DELETE("/projects/:id/members/:userID", h.removeMember)
			authed.POST("/projects/:id/archive", h.setArchived(true))
			authed.POST("/projects/:id/unarchive", h.setArchived(false))
			authed.POST("/projects/:id/complete", h.setCompleted(true))
			authed.POST("/projects/:id/uncomplete", h.setCompleted(false))
			authed.GET("/projects/:id/activity", h.listActivity)

			authed.GET("/projects/:id/tasks", h.listTasks)
			authed.POST("/projects/:id/tasks", h.createTask)
			authed.GET("/tasks/:id", h.getTask)
			authed.PUT("/tasks/:id", h.updateTask)
			authed.DELETE("/tasks/:id", h.deleteTask)
			authed.PUT("/tasks/:id/status", h.updateTaskStatus)

			authed.GET("/tasks/:id/comments", h.listComments)
			authed.POST("/tasks/:id/comments", h.addComment)

			authed.GET("/notifications", h.listNotifications)
			authed.POST("/notifications/:id/read", h.markNotificationRead)

			authed.GET("/ws", h.serveWS)
		}
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

type tokenClaims struct {
	jwt.RegisteredClaims
	UserID int64 `json:"uid"`
}

func (h *Handler) issueToken(userID int64) (string, error) {
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(h.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "taskboard",
		},
		UserID: userID,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.jwtSecret))
}

// authMiddleware validates the bearer token and stores the authenticated user
// id in the request context. The WebSocket endpoint may pass the token as a
// query parameter instead, since browsers cannot set headers on an upgrade.
func (h *Handler) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := ""
		if authHeader := c.GetHeader("Authorization"); authHeader != "" {
			tokenString, _ = strings.CutPrefix(authHeader, "Bearer ")
		}
		if tokenString == "" {
			tokenString = c.Query("token")
		}
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
			return
		}

		claims := &tokenClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
			return []byte(h.jwtSecret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !token.Valid || claims.UserID <= 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(contextUserIDKey, claims.UserID)
		c.Next()
	}
}

func currentUserID(c *gin.Context) int64 {
	id, _ := c.Get(contextUserIDKey)
	userID, _ := id.(int64)
	return userID
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

// respondError maps service errors to HTTP statuses.
func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrWrongPassword):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotProjectOwner), errors.Is(err, service.ErrNotProjectMember):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrUserAlreadyExists), errors.Is(err, service.ErrAlreadyMember):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrUserNotFound),
		strings.Contains(strings.ToLower(err.Error()), "not found"):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case strings.Contains(err.Error(), "required"),
		strings.Contains(err.Error(), "invalid"),
		strings.Contains(err.Error(), "must be"):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.logger.WithError(err).Error("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func (h *Handler) serveWS(c *gin.Context) {
	if err := h.hub.Serve(c.Writer, c.Request, currentUserID(c)); err != nil {
		// Upgrade failures already wrote a response.
		h.logger.WithError(err).Debug("websocket upgrade failed")
	}
}
