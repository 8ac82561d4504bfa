package response

import "github.com/gin-gonic/gin"

const (
	CodeOK             = 0
	CodeBadRequest     = 40000
	CodeUnauthorized   = 40100
	CodeNotFound       = 40400
	CodeInternalServer = 50000
)

type APIResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Kind    string      `json:"kind,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func OK(c *gin.Context, data interface{}) {
	c.JSON(200, APIResponse{
		Code:    CodeOK,
		Message: "ok",
		Data:    data,
	})
}

func Error(c *gin.Context, httpStatus, code int, message string) {
	c.JSON(httpStatus, APIResponse{
		Code:    code,
		Message: message,
	})
}

// Failure reports an error with its stable failure-kind identifier. Raw
// internal error text never goes to the caller.
func Failure(c *gin.Context, httpStatus, code int, kind, message string) {
	c.JSON(httpStatus, APIResponse{
		Code:    code,
		Message: message,
		Kind:    kind,
	})
}
