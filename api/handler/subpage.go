package handler

import (
	"errors"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vibeboard/vibeboard/api/auth"
	"github.com/vibeboard/vibeboard/api/models"
	"github.com/vibeboard/vibeboard/store"
)

// CreateSubpage handles POST /api/me/subpages.
func (h *Handler) CreateSubpage(c *gin.Context) {
	identity := auth.Identity(c)

	var req models.CreateSubpageRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Subpage name is required."})
		return
	}

	subpage := &store.Subpage{
		ID:    "subpage-" + uuid.NewString(),
		Name:  req.Name,
		Posts: []*store.Post{},
	}
	var created *store.Subpage
	err := h.store.Update(c.Request.Context(), func(doc *store.Document) error {
		user, ok := doc.UserByID(identity.UserID)
		if !ok {
			return store.ErrNotFound
		}
		user.Subpages = append(user.Subpages, subpage)
		created = subpage.Clone()
		return nil
	})
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Authenticated user not found."})
		return
	}
	if err != nil {
		log.Error("failed to create subpage", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error creating subpage."})
		return
	}
	c.JSON(http.StatusCreated, created)
}

// DeleteSubpage handles DELETE /api/me/subpages/:subpageId. The subpage's
// post files are staged for deletion, removed from disk only after the
// document write committed.
func (h *Handler) DeleteSubpage(c *gin.Context) {
	identity := auth.Identity(c)
	subpageID := c.Param("subpageId")

	var doomed []string
	err := h.store.Update(c.Request.Context(), func(doc *store.Document) error {
		user, ok := doc.UserByID(identity.UserID)
		if !ok {
			return store.ErrNotFound
		}
		subpage, ok := user.RemoveSubpage(subpageID)
		if !ok {
			return store.ErrNotFound
		}
		doomed = subpage.FilePaths()
		return nil
	})
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Subpage not found."})
		return
	}
	if err != nil {
		log.Error("failed to delete subpage", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error deleting subpage."})
		return
	}

	h.uploads.RemoveAll(doomed)
	c.JSON(http.StatusOK, gin.H{"message": "Subpage deleted."})
}
