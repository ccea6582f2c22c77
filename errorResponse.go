package main

import (
	"errors"
	"net/http"

	"bitbucket.org/mmdatafocus/cashdesk_backend/config"
	"bitbucket.org/mmdatafocus/cashdesk_backend/utils"
	"github.com/gin-gonic/gin"
)

// respondError maps the error taxonomy onto HTTP statuses. Integrity failures
// are logged in full but surfaced opaquely; everything else carries its
// subtype so clients can branch on it.
func respondError(c *gin.Context, err error) {
	var pd *utils.PermissionDeniedError
	var conflict *utils.ConflictError
	var validation *utils.ValidationError
	var integrity *utils.IntegrityError

	switch {
	case errors.Is(err, utils.ErrorRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
	case errors.As(err, &pd):
		c.JSON(http.StatusForbidden, gin.H{
			"error":  pd.Error(),
			"reason": string(pd.Reason),
		})
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, gin.H{
			"error":  conflict.Error(),
			"reason": string(conflict.Reason),
		})
	case errors.As(err, &validation):
		body := gin.H{"error": validation.Message}
		if len(validation.Fields) > 0 {
			body["fields"] = validation.Fields
		}
		c.JSON(http.StatusBadRequest, body)
	case errors.As(err, &integrity):
		logger := config.GetLogger()
		cid, _ := utils.GetCorrelationIdFromContext(c.Request.Context())
		config.LogError(logger, "server", integrity.Op, "integrity failure, correlation_id="+cid, nil, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}
}
