package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"taskboard/internal/domain"
)

type TaskResponse struct {
	ID          int64             `json:"id"`
	ProjectID   int64             `json:"project_id"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Status      domain.TaskStatus `json:"status"`
	AssignedTo  *int64            `json:"assigned_to,omitempty"`
	CreatedBy   int64             `json:"created_by"`
	CreatedAt   string            `json:"created_at"`
	UpdatedAt   string            `json:"updated_at"`
}

func taskToResponse(task domain.Task) TaskResponse {
	return TaskResponse{
		ID:          task.ID,
		ProjectID:   task.ProjectID,
		Title:       task.Title,
		Description: task.Description,
		Status:      task.Status,
		AssignedTo:  task.AssignedTo,
		CreatedBy:   task.CreatedBy,
		CreatedAt:   task.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   task.UpdatedAt.Format(time.RFC3339),
	}
}

type createTaskRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	AssignedTo  *int64 `json:"assigned_to"`
}

func (h *Handler) createTask(c *gin.Context) {
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := h.tasks.Create(c.Request.Context(), currentUserID(c), projectID, req.Title, req.Description, req.AssignedTo)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, taskToResponse(*task))
}

func (h *Handler) listTasks(c *gin.Context) {
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}

	tasks, err := h.tasks.ListByProject(c.Request.Context(), currentUserID(c), projectID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	resp := make([]TaskResponse, len(tasks))
	for i := range tasks {
		resp[i] = taskToResponse(tasks[i])
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) getTask(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	task, err := h.tasks.Get(c.Request.Context(), currentUserID(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, taskToResponse(*task))
}

type updateTaskRequest struct {
	Title       string            `json:"title" binding:"required"`
	Description string            `json:"description"`
	Status      domain.TaskStatus `json:"status" binding:"required"`
	AssignedTo  *int64            `json:"assigned_to"`
}

func (h *Handler) updateTask(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req updateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := h.tasks.Update(c.Request.Context(), currentUserID(c), id, req.Title, req.Description, req.Status, req.AssignedTo)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, taskToResponse(*task))
}

type updateStatusRequest struct {
	Status domain.TaskStatus `json:"status" binding:"required"`
}

func (h *Handler) updateTaskStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.tasks.UpdateStatus(c.Request.Context(), currentUserID(c), id, req.Status); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": req.Status})
}

func (h *Handler) deleteTask(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.tasks.Delete(c.Request.Context(), currentUserID(c), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

type CommentResponse struct {
	ID         int64  `json:"id"`
	TaskID     int64  `json:"task_id"`
	AuthorID   int64  `json:"author_id"`
	AuthorName string `json:"author_name,omitempty"`
	Text       string `json:"text"`
	CreatedAt  string `json:"created_at"`
}

func commentToResponse(comment domain.Comment) CommentResponse {
	return CommentResponse{
		ID:         comment.ID,
		TaskID:     comment.TaskID,
		AuthorID:   comment.AuthorID,
		AuthorName: comment.AuthorName,
		Text:       comment.Text,
		CreatedAt:  comment.CreatedAt.Format(time.RFC3339),
	}
}

func (h *Handler) listComments(c *gin.Context) {
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}

	comments, err := h.comments.ListByTask(c.Request.Context(), currentUserID(c), taskID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	resp := make([]CommentResponse, len(comments))
	for i := range comments {
		resp[i] = commentToResponse(comments[i])
	}
	c.JSON(http.StatusOK, resp)
}

type addCommentRequest struct {
	Text string `json:"text" binding:"required"`
}

func (h *Handler) addComment(c *gin.Context) {
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req addCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	comment, err := h.comments.Add(c.Request.Context(), currentUserID(c), taskID, req.Text)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, commentToResponse(*comment))
}
