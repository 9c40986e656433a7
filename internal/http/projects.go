package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"taskboard/internal/domain"
)

type ProjectResponse struct {
	ID          int64          `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	CreatedBy   int64          `json:"created_by"`
	Archived    bool           `json:"archived"`
	Completed   bool           `json:"completed"`
	CreatedAt   string         `json:"created_at"`
	UpdatedAt   string         `json:"updated_at"`
	Members     []UserResponse `json:"members,omitempty"`
}

func projectToResponse(p domain.Project) ProjectResponse {
	resp := ProjectResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		CreatedBy:   p.CreatedBy,
		Archived:    p.Archived,
		Completed:   p.Completed,
		CreatedAt:   p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   p.UpdatedAt.Format(time.RFC3339),
	}
	for i := range p.Members {
		resp.Members = append(resp.Members, userToResponse(&p.Members[i]))
	}
	return resp
}

type projectRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

func (h *Handler) createProject(c *gin.Context) {
	var req projectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	project, err := h.projects.Create(c.Request.Context(), currentUserID(c), req.Name, req.Description)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, projectToResponse(*project))
}

func (h *Handler) listProjects(c *gin.Context) {
	projects, err := h.projects.List(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	resp := make([]ProjectResponse, len(projects))
	for i := range projects {
		resp[i] = projectToResponse(projects[i])
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) getProject(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	project, err := h.projects.Get(c.Request.Context(), currentUserID(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, projectToResponse(*project))
}

func (h *Handler) updateProject(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req projectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.projects.Update(c.Request.Context(), currentUserID(c), id, req.Name, req.Description); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": id})
}

func (h *Handler) deleteProject(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.projects.Delete(c.Request.Context(), currentUserID(c), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

type inviteRequest struct {
	UsernameOrEmail string `json:"username_or_email" binding:"required"`
}

func (h *Handler) inviteMember(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req inviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.projects.Invite(c.Request.Context(), currentUserID(c), id, req.UsernameOrEmail)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"added": userToResponse(user)})
}

func (h *Handler) removeMember(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	userID, ok := pathID(c, "userID")
	if !ok {
		return
	}

	if err := h.projects.RemoveMember(c.Request.Context(), currentUserID(c), id, userID); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": userID})
}

func (h *Handler) setArchived(archived bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		if err := h.projects.SetArchived(c.Request.Context(), currentUserID(c), id, archived); err != nil {
			h.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"archived": archived})
	}
}

func (h *Handler) setCompleted(completed bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		if err := h.projects.SetCompleted(c.Request.Context(), currentUserID(c), id, completed); err != nil {
			h.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"completed": completed})
	}
}

type ActivityResponse struct {
	ID        int64  `json:"id"`
	ProjectID int64  `json:"project_id"`
	UserID    int64  `json:"user_id"`
	Username  string `json:"username"`
	Action    string `json:"action"`
	Details   string `json:"details"`
	CreatedAt string `json:"created_at"`
}

func (h *Handler) listActivity(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	activities, err := h.projects.Activity(c.Request.Context(), currentUserID(c), id, 50)
	if err != nil {
		h.respondError(c, err)
		return
	}

	resp := make([]ActivityResponse, len(activities))
	for i, a := range activities {
		resp[i] = ActivityResponse{
			ID:        a.ID,
			ProjectID: a.ProjectID,
			UserID:    a.UserID,
			Username:  a.Username,
			Action:    a.Action,
			Details:   a.Details,
			CreatedAt: a.CreatedAt.Format(time.RFC3339),
		}
	}
	c.JSON(http.StatusOK, resp)
}
