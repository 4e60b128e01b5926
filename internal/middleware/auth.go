package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// HospitalIDKey is where RequireHospital stores the authenticated hospital id.
const HospitalIDKey = "hospital_id"

// TokenVerifier resolves a bearer token to a hospital id.
type TokenVerifier interface {
	Verify(token string) (uint64, error)
}

// RequireHospital rejects requests without a valid bearer token.
func RequireHospital(v TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Not authenticated"})
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Invalid authorization format"})
			return
		}
		id, err := v.Verify(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Could not validate credentials"})
			return
		}
		c.Set(HospitalIDKey, id)
		c.Next()
	}
}

// HospitalID returns the id set by RequireHospital.
func HospitalID(c *gin.Context) uint64 {
	return c.GetUint64(HospitalIDKey)
}
