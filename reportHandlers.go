package main

import (
	"net/http"
	"time"

	"bitbucket.org/mmdatafocus/cashdesk_backend/models"
	"github.com/gin-gonic/gin"
)

func sessionsReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var businessId *string
		if v := c.Query("business_id"); v != "" {
			businessId = &v
		}

		fromDate, err := time.Parse(time.RFC3339, c.Query("from_date"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "from_date must be RFC3339"})
			return
		}
		toDate, err := time.Parse(time.RFC3339, c.Query("to_date"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "to_date must be RFC3339"})
			return
		}

		report, err := models.GetSessionsReport(c.Request.Context(), businessId, fromDate, toDate)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, report)
	}
}

func sessionsExportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var businessId *string
		if v := c.Query("business_id"); v != "" {
			businessId = &v
		}

		fromDate, err := time.Parse(time.RFC3339, c.Query("from_date"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "from_date must be RFC3339"})
			return
		}
		toDate, err := time.Parse(time.RFC3339, c.Query("to_date"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "to_date must be RFC3339"})
			return
		}

		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Header("Content-Disposition", "attachment; filename=sessions.xlsx")
		if err := models.ExportSessionsExcel(c.Request.Context(), c.Writer, businessId, fromDate, toDate); err != nil {
			respondError(c, err)
			return
		}
	}
}

func flaggedSessionsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var businessId *string
		if v := c.Query("business_id"); v != "" {
			businessId = &v
		}

		rows, err := models.GetFlaggedSessions(c.Request.Context(), businessId)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, rows)
	}
}
