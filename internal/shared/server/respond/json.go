package respond

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
)

// JSON writes a JSON response with the given status.
func JSON(c *gin.Context, status int, payload interface{}) {
	c.JSON(status, payload)
}

// OK writes a 200 OK JSON response.
func OK(c *gin.Context, payload interface{}) {
	JSON(c, http.StatusOK, payload)
}

// Verbatim writes payload as JSON without HTML escaping, so embedded raw JSON reaches the
// client byte for byte.
func Verbatim(c *gin.Context, status int, payload interface{}) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		Error(c, http.StatusInternalServerError, "internal", "Failed to encode response", nil)
		return
	}
	c.Data(status, "application/json; charset=utf-8", buf.Bytes())
}
