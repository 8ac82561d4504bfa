package handler

import (
	"github.com/gin-gonic/gin"

	"pdfchat/internal/transport/http/response"
)

func Health(c *gin.Context) {
	response.OK(c, gin.H{"status": "ok"})
}
