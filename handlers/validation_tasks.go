package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/tradegate/models"
	"github.com/yourusername/tradegate/repository"
	"github.com/yourusername/tradegate/services"
)

type ValidationTaskHandler struct {
	repo *repository.InvoiceRepository
	svc  *services.ValidationService
}

func NewValidationTaskHandler(repo *repository.InvoiceRepository, svc *services.ValidationService) *ValidationTaskHandler {
	return &ValidationTaskHandler{repo: repo, svc: svc}
}

type ResolveTaskRequest struct {
	Resolution models.JSONMap `json:"resolution" binding:"required"`
}

// ResolveTask stores the resolution for one open task. The caller re-invokes
// validation afterwards to learn whether further tasks are needed.
func (h *ValidationTaskHandler) ResolveTask(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	task, err := h.repo.GetTask(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load task"})
		return
	}
	if task == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		return
	}

	invoice, err := h.repo.GetInvoice(task.InvoiceID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load invoice"})
		return
	}
	if invoice == nil || invoice.UserID != userID {
		c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		return
	}

	var req ResolveTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resolved, err := h.svc.ResolveTask(task, req.Resolution)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve task"})
		return
	}
	c.JSON(http.StatusOK, resolved)
}
