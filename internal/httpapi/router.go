package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/acelabs/aceai/internal/common"
	"github.com/acelabs/aceai/internal/httpapi/handlers"
	"github.com/acelabs/aceai/internal/httpapi/middleware"
	"github.com/acelabs/aceai/internal/keystore"
)

func NewRouter(h *handlers.Handler, keys *keystore.Store) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())

	r.NoRoute(func(c *gin.Context) {
		common.Fail(c, http.StatusNotFound, 40400, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		common.Fail(c, http.StatusMethodNotAllowed, 40500, "method not allowed")
	})

	r.GET("/health", h.Health)

	auth := r.Group("/")
	auth.Use(middleware.APIKeyAuth(keys))

	// credential management (admin and above)
	admin := auth.Group("/")
	admin.Use(middleware.RequireRole(keystore.RoleAdmin))
	admin.POST("/keys", h.CreateAPIKey)
	admin.GET("/keys", h.ListAPIKeys)

	// knowledge base
	auth.POST("/ingest", h.IngestText)
	auth.POST("/documents/upload", h.UploadDocument)
	auth.GET("/documents", h.ListDocuments)
	auth.GET("/documents/:id", h.GetDocument)
	auth.DELETE("/documents/:id", h.DeleteDocument)

	// destructive bulk operations (exact super_admin)
	super := auth.Group("/")
	super.Use(middleware.RequireSuperAdmin())
	super.DELETE("/documents/batch/by-source", h.DeleteDocumentsBySource)
	super.POST("/reset", h.ResetIndex)

	// chat
	auth.POST("/chat", h.ChatTurn)
	auth.GET("/chat/sessions", h.ListChatSessions)
	auth.GET("/chat/sessions/:session_id/messages", h.GetChatMessages)
	auth.DELETE("/chat/sessions/:session_id", h.DeleteChatSession)

	return r
}
