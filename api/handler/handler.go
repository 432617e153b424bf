// Package handler implements the REST surface: registration and login, the
// per-user subpage/post CRUD, and the admin user management endpoints.
package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vibeboard/vibeboard/api/auth"
	"github.com/vibeboard/vibeboard/api/models"
	"github.com/vibeboard/vibeboard/config"
	"github.com/vibeboard/vibeboard/store"
	"github.com/vibeboard/vibeboard/uploads"
)

// Handler serves the user-facing endpoints.
type Handler struct {
	store   store.Store
	uploads *uploads.Manager
	tokens  *auth.Tokens
	authCfg *config.AuthConfig
}

// New creates a handler backed by the given store and upload manager.
func New(st store.Store, um *uploads.Manager, tokens *auth.Tokens, authCfg *config.AuthConfig) *Handler {
	return &Handler{
		store:   st,
		uploads: um,
		tokens:  tokens,
		authCfg: authCfg,
	}
}

// Register handles POST /api/auth/register.
func (h *Handler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Username == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Username and password are required."})
		return
	}
	if len(req.Password) < h.authCfg.MinPasswordLength {
		c.JSON(http.StatusBadRequest, gin.H{
			"message": fmt.Sprintf("Password must be at least %d characters long.", h.authCfg.MinPasswordLength),
		})
		return
	}

	// Hash before taking the store lock, bcrypt is slow on purpose.
	hash, err := auth.HashPassword(req.Password, h.authCfg.BcryptCost)
	if err != nil {
		log.Error("failed to hash password", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error registering user."})
		return
	}

	user := &store.User{
		ID:       "user-" + uuid.NewString(),
		Username: req.Username,
		Password: hash,
		Subpages: []*store.Subpage{},
	}
	err = h.store.Update(c.Request.Context(), func(doc *store.Document) error {
		if _, taken := doc.UserByUsername(req.Username); taken {
			return store.ErrUsernameTaken
		}
		doc.Users = append(doc.Users, user)
		return nil
	})
	if errors.Is(err, store.ErrUsernameTaken) {
		c.JSON(http.StatusConflict, gin.H{"message": "Username already exists."})
		return
	}
	if err != nil {
		log.Error("failed to register user", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error registering user."})
		return
	}

	if err := h.uploads.EnsureUserDirs(user.ID); err != nil {
		log.Error("failed to create upload directories", "user", user.ID, "error", err)
	}

	c.JSON(http.StatusCreated, models.RegisterResponse{
		Message:  "User registered successfully.",
		UserID:   user.ID,
		Username: user.Username,
	})
}

// Login handles POST /api/auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Username == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Username and password are required."})
		return
	}

	var userID, hash string
	err := h.store.View(c.Request.Context(), func(doc *store.Document) error {
		if user, ok := doc.UserByUsername(req.Username); ok {
			userID = user.ID
			hash = user.Password
		}
		return nil
	})
	if err != nil {
		log.Error("failed to read users", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error logging in."})
		return
	}
	if userID == "" || hash == "" || !auth.CheckPassword(hash, req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid credentials."})
		return
	}

	token, err := h.tokens.Issue(userID, req.Username)
	if err != nil {
		log.Error("failed to issue token", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error logging in."})
		return
	}
	c.JSON(http.StatusOK, models.LoginResponse{
		Token:    token,
		UserID:   userID,
		Username: req.Username,
	})
}

// MyData handles GET /api/me/data and returns the caller's full subpage tree.
func (h *Handler) MyData(c *gin.Context) {
	identity := auth.Identity(c)

	var subpages []*store.Subpage
	var found bool
	err := h.store.View(c.Request.Context(), func(doc *store.Document) error {
		if user, ok := doc.UserByID(identity.UserID); ok {
			found = true
			// Copied under the read lock; marshaling the live tree after
			// View returns would race with concurrent writers.
			subpages = store.CloneSubpages(user.Subpages)
		}
		return nil
	})
	if err != nil {
		log.Error("failed to read user data", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error loading data."})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"message": "User data not found for authenticated user."})
		return
	}
	c.JSON(http.StatusOK, gin.H{"subpages": subpages})
}
