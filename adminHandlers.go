package main

import (
	"net/http"
	"strconv"
	"time"

	"bitbucket.org/mmdatafocus/cashdesk_backend/models"
	"bitbucket.org/mmdatafocus/cashdesk_backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func createUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewUser
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "fields": utils.ProcessValidationErrors(err)})
			return
		}

		user, err := models.CreateUser(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, user)
	}
}

func listUsersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		users, err := models.GetAllUsers(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, users)
	}
}

func updateUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var input models.NewUser
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "fields": utils.ProcessValidationErrors(err)})
			return
		}

		user, err := models.UpdateUser(c.Request.Context(), id, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

type toggleActiveRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

func toggleUserActiveHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var req toggleActiveRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "is_active is required"})
			return
		}

		user, err := models.ToggleUserActive(c.Request.Context(), id, *req.IsActive)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

type serviceTokenRequest struct {
	UserId int `json:"user_id" binding:"required"`
}

func issueServiceTokenHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req serviceTokenRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
			return
		}

		token, err := models.IssueServiceToken(c.Request.Context(), req.UserId)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"token": token})
	}
}

func createBusinessHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewBusiness
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "fields": utils.ProcessValidationErrors(err)})
			return
		}

		business, err := models.CreateBusiness(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, business)
	}
}

func updateBusinessHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if _, err := uuid.Parse(id); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}
		var input models.NewBusiness
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "fields": utils.ProcessValidationErrors(err)})
			return
		}

		business, err := models.UpdateBusiness(c.Request.Context(), id, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, business)
	}
}

func toggleBusinessActiveHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}
		var req toggleActiveRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "is_active is required"})
			return
		}

		business, err := models.ToggleActiveBusiness(c.Request.Context(), id, *req.IsActive)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, business)
	}
}

func listBusinessesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var name *string
		if v := c.Query("name"); v != "" {
			name = &v
		}
		businesses, err := models.GetBusinesses(c.Request.Context(), name)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, businesses)
	}
}

func createMembershipHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewMembership
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "fields": utils.ProcessValidationErrors(err)})
			return
		}

		membership, err := models.CreateMembership(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, membership)
	}
}

func listMembershipsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var businessId *string
		if v := c.Query("business_id"); v != "" {
			businessId = &v
		}
		var operatorId *int
		if v := c.Query("operator_id"); v != "" {
			if id, err := strconv.Atoi(v); err == nil {
				operatorId = &id
			}
		}

		memberships, err := models.GetMemberships(c.Request.Context(), businessId, operatorId)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, memberships)
	}
}

type removeMembershipRequest struct {
	OperatorId int    `json:"operator_id" binding:"required"`
	BusinessId string `json:"business_id" binding:"required"`
}

func removeMembershipHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req removeMembershipRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "operator_id and business_id are required"})
			return
		}

		done, err := models.RemoveMembership(c.Request.Context(), req.OperatorId, req.BusinessId)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": done})
	}
}

func upsertDailyAggregateHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewDailyAggregate
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "fields": utils.ProcessValidationErrors(err)})
			return
		}

		aggregate, err := models.UpsertDailyAggregate(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, aggregate)
	}
}

func dailyCrossCheckHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		businessId := c.Query("business_id")
		if businessId == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "business_id is required"})
			return
		}
		day, err := time.Parse("2006-01-02", c.Query("date"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
			return
		}

		check, err := models.CrossCheckDailyAggregate(c.Request.Context(), businessId, day)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, check)
	}
}
