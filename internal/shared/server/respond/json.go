package respond

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// JSON writes a JSON response with the given status.
func JSON(c *gin.Context, status int, payload interface{}) {
	c.JSON(status, payload)
}

// Status writes a success envelope with the given status.
func Status(c *gin.Context, status int, payload gin.H) {
	if payload == nil {
		payload = gin.H{}
	}
	payload["success"] = true
	JSON(c, status, payload)
}

// OK writes a 200 success envelope.
func OK(c *gin.Context, payload gin.H) {
	Status(c, http.StatusOK, payload)
}

// Data writes {success:true, data}. A nil value is kept as null.
func Data(c *gin.Context, data any) {
	OK(c, gin.H{"data": data})
}
