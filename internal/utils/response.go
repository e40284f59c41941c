package utils

import "github.com/gin-gonic/gin"

// ErrorResponse is the body of every non-2xx API response.
func ErrorResponse(message, detail string) gin.H {
	return gin.H{
		"success": false,
		"message": message,
		"error":   detail,
	}
}

func SuccessResponse(message string, data interface{}) gin.H {
	resp := gin.H{
		"success": true,
		"message": message,
	}
	if data != nil {
		resp["data"] = data
	}
	return resp
}
