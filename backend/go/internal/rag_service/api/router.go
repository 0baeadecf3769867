package api

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all the routes for the document QA service.
func RegisterRoutes(router *gin.Engine, api *API) {
	router.POST("/upload_and_process_docx/", api.UploadHandler)
	router.POST("/ask_document/", api.AskHandler)
	router.POST("/ask_document/stream/", api.AskStreamHandler)
	router.GET("/list_indexes/", api.ListIndexesHandler)
	router.GET("/healthz", api.HealthHandler)
}
