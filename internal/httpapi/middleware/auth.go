package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/acelabs/aceai/internal/common"
	"github.com/acelabs/aceai/internal/keystore"
)

// APIKeyHeader is the credential header checked on every protected route.
const APIKeyHeader = "X-API-Key"

const apiKeyRecordKey = "api_key_record"

// APIKeyAuth verifies the X-API-Key header against the key store and makes
// the matching record available to handlers. A missing or unknown
// credential fails authentication before any core operation runs.
func APIKeyAuth(keys *keystore.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		plaintext := c.GetHeader(APIKeyHeader)
		if plaintext == "" {
			common.Fail(c, http.StatusUnauthorized, 40101, "missing api key")
			c.Abort()
			return
		}

		rec, err := keys.VerifyKey(c.Request.Context(), plaintext)
		if err != nil {
			if errors.Is(err, keystore.ErrNotFound) {
				common.Fail(c, http.StatusUnauthorized, 40102, "invalid api key")
			} else {
				common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
			}
			c.Abort()
			return
		}

		c.Set(apiKeyRecordKey, rec)
		c.Next()
	}
}

// KeyRecord returns the verified key record stored by APIKeyAuth.
func KeyRecord(c *gin.Context) (*keystore.APIKey, bool) {
	v, ok := c.Get(apiKeyRecordKey)
	if !ok {
		return nil, false
	}
	rec, ok := v.(*keystore.APIKey)
	return rec, ok
}

// RequireRole rejects verified callers whose role is below min.
func RequireRole(min keystore.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		rec, ok := KeyRecord(c)
		if !ok {
			common.Fail(c, http.StatusUnauthorized, 40101, "missing api key")
			c.Abort()
			return
		}
		if !rec.Role.AtLeast(min) {
			common.Fail(c, http.StatusForbidden, 40301, "insufficient privileges")
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireSuperAdmin guards destructive bulk operations; unlike RequireRole
// it accepts exactly the top role.
func RequireSuperAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		rec, ok := KeyRecord(c)
		if !ok {
			common.Fail(c, http.StatusUnauthorized, 40101, "missing api key")
			c.Abort()
			return
		}
		if rec.Role != keystore.RoleSuperAdmin {
			common.Fail(c, http.StatusForbidden, 40302, "super admin privileges required")
			c.Abort()
			return
		}
		c.Next()
	}
}
