package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/vibeboard/vibeboard/api/models"
	"github.com/vibeboard/vibeboard/store"
)

// ContextUserKey is the gin context key holding the authenticated identity.
const ContextUserKey = "user"

// Identity returns the authenticated user set by RequireUser.
func Identity(c *gin.Context) *models.Identity {
	return c.MustGet(ContextUserKey).(*models.Identity)
}

// RequireUser returns middleware enforcing a valid bearer token. A missing
// token aborts with 401, an invalid or expired one with 403 — the frontend
// treats either as a signal to drop its stored credentials.
func (t *Tokens) RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Authentication required."})
			return
		}

		claims, err := t.Parse(raw)
		if err != nil {
			log.Debug("rejected bearer token", "error", err)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "Invalid or expired token."})
			return
		}

		c.Set(ContextUserKey, &models.Identity{
			UserID:   claims.Subject,
			Username: claims.Username,
		})
		c.Next()
	}
}

// RequireAdmin returns middleware comparing the admin_username and
// admin_password request headers verbatim against the stored credential pair.
// There is no token or expiry; the pair is resent on every request.
func RequireAdmin(st store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		username := c.GetHeader("admin_username")
		password := c.GetHeader("admin_password")

		var creds store.AdminCredentials
		if err := st.View(c.Request.Context(), func(doc *store.Document) error {
			creds = doc.AdminCredentials
			return nil
		}); err != nil {
			log.Error("failed to read admin credentials", "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Internal server error."})
			return
		}

		userOK := subtle.ConstantTimeCompare([]byte(username), []byte(creds.Username)) == 1
		passOK := subtle.ConstantTimeCompare([]byte(password), []byte(creds.Password)) == 1
		if !userOK || !passOK {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Admin authorization failed."})
			return
		}
		c.Next()
	}
}
