package handler

import (
	"errors"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"github.com/vibeboard/vibeboard/api/models"
	"github.com/vibeboard/vibeboard/store"
	"github.com/vibeboard/vibeboard/uploads"
)

// AdminHandler serves the header-credential admin endpoints.
type AdminHandler struct {
	store   store.Store
	uploads *uploads.Manager
}

// NewAdmin creates the admin handler.
func NewAdmin(st store.Store, um *uploads.Manager) *AdminHandler {
	return &AdminHandler{store: st, uploads: um}
}

// ListUsers handles GET /api/admin/users. Password hashes are never exposed.
func (h *AdminHandler) ListUsers(c *gin.Context) {
	users := []models.AdminUser{}
	err := h.store.View(c.Request.Context(), func(doc *store.Document) error {
		users = lo.Map(doc.Users, func(u *store.User, _ int) models.AdminUser {
			return models.AdminUser{ID: u.ID, Username: u.Username}
		})
		return nil
	})
	if err != nil {
		log.Error("failed to list users", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error listing users."})
		return
	}
	c.JSON(http.StatusOK, users)
}

// DeleteUser handles DELETE /api/admin/users/:userId. The user record goes
// first, then the whole upload subtree.
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	userID := c.Param("userId")

	err := h.store.Update(c.Request.Context(), func(doc *store.Document) error {
		if !doc.RemoveUser(userID) {
			return store.ErrNotFound
		}
		return nil
	})
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"message": "User not found."})
		return
	}
	if err != nil {
		log.Error("failed to delete user", "user", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error deleting user."})
		return
	}

	if err := h.uploads.RemoveUserTree(userID); err != nil {
		log.Error("failed to delete user uploads", "user", userID, "error", err)
	}
	c.JSON(http.StatusOK, gin.H{"message": "User and their data deleted successfully by admin."})
}
