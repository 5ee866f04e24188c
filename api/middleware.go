package api

import (
	"crypto/subtle"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

const (
	headerUserID        = "X-User-ID"
	headerUserName      = "X-User-Name"
	headerAdminToken    = "X-Admin-Token"
	headerWebhookSecret = "X-Webhook-Secret"

	ctxUserID   = "userID"
	ctxUserName = "userName"
)

// requestLogger logs every request once it has been served
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := log.WithFields(log.Fields{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
			"userID":   c.GetString(ctxUserID),
		})
		if c.Writer.Status() >= 500 {
			entry.Warn("Request served with error")
			return
		}
		entry.Debug("Request served")
	}
}

// requireUser reads the identity the upstream gateway already authenticated
func requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader(headerUserID))
		if userID == "" {
			respondUnauthorized(c, "missing "+headerUserID+" header")
			return
		}
		name := strings.TrimSpace(c.GetHeader(headerUserName))
		if name == "" {
			name = userID
		}
		c.Set(ctxUserID, userID)
		c.Set(ctxUserName, name)
		c.Next()
	}
}

// requireSecret compares a header against a shared secret in constant time
func requireSecret(header, secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		given := c.GetHeader(header)
		if secret == "" || subtle.ConstantTimeCompare([]byte(given), []byte(secret)) != 1 {
			respondUnauthorized(c, "invalid "+header)
			return
		}
		c.Next()
	}
}

func currentUser(c *gin.Context) (string, string) {
	return c.GetString(ctxUserID), c.GetString(ctxUserName)
}
