package server

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/serviceclient/envelope"
)

// RespondOK sends a 200 envelope around payload. A json.RawMessage payload
// is relayed as is.
func RespondOK(c *gin.Context, payload any) {
	if raw, ok := payload.(json.RawMessage); ok {
		c.JSON(http.StatusOK, envelope.Body{Response: raw})
		return
	}
	body, err := envelope.OK(payload)
	if err != nil {
		RespondError(c, envelope.NewInvalidRequestError("", "response could not be encoded", err))
		return
	}
	c.JSON(http.StatusOK, body)
}

// RespondError sends the failure envelope for err with the status
// envelope.StatusFor picks.
func RespondError(c *gin.Context, err error) {
	c.JSON(envelope.StatusFor(err), envelope.FromError(err))
}

// RespondFail sends a failure envelope with an explicit status.
func RespondFail(c *gin.Context, status int, errValue any) {
	c.JSON(status, envelope.Fail(errValue))
}
