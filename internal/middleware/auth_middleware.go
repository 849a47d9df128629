package middleware

import (
	"strings"

	"vipclub/internal/utils"

	"github.com/gin-gonic/gin"
)

// UserIdentity reads the caller's user and device ids from request headers.
// Authentication happens upstream; a missing user id means a signed-out
// caller.
func UserIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID := strings.TrimSpace(c.GetHeader(utils.HeaderUserID)); userID != "" {
			c.Set(utils.ContextUserID, userID)
		}
		if deviceID := strings.TrimSpace(c.GetHeader(utils.HeaderDeviceID)); deviceID != "" {
			c.Set(utils.ContextDeviceID, deviceID)
		}
		c.Next()
	}
}

// UserRequired aborts requests that carry no user id
func UserRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetUserID(c) == "" {
			utils.UnauthorizedResponse(c)
			c.Abort()
			return
		}
		c.Next()
	}
}

func GetUserID(c *gin.Context) string {
	return c.GetString(utils.ContextUserID)
}

func GetDeviceID(c *gin.Context) string {
	return c.GetString(utils.ContextDeviceID)
}
