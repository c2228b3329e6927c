package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/acelabs/aceai/internal/common"
	"github.com/acelabs/aceai/internal/keystore"
)

type createKeyReq struct {
	Role  string `json:"role" binding:"required"`
	Label string `json:"label"`
}

// CreateAPIKey mints a new credential. The plaintext appears in this
// response and nowhere else, ever.
func (h *Handler) CreateAPIKey(c *gin.Context) {
	var req createKeyReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	role, err := keystore.ParseRole(req.Role)
	if err != nil {
		common.Fail(c, http.StatusBadRequest, 10010, err.Error())
		return
	}

	created, err := h.Keys.CreateKey(c.Request.Context(), role, req.Label)
	if err != nil {
		log.Printf("[CreateAPIKey] failed role=%s err=%v", role, err)
		common.Fail(c, http.StatusInternalServerError, 50001, "failed to create key")
		return
	}
	common.OK(c, created)
}

func (h *Handler) ListAPIKeys(c *gin.Context) {
	keys, err := h.Keys.ListKeys(c.Request.Context())
	if err != nil {
		log.Printf("[ListAPIKeys] failed err=%v", err)
		common.Fail(c, http.StatusInternalServerError, 50001, "failed to list keys")
		return
	}
	common.OK(c, gin.H{"items": keys})
}
