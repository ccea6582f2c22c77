package middlewares

import (
	"context"
	"net/http"
	"os"
	"strconv"
	"time"

	"bitbucket.org/mmdatafocus/cashdesk_backend/config"
	"bitbucket.org/mmdatafocus/cashdesk_backend/models"
	"bitbucket.org/mmdatafocus/cashdesk_backend/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// retrieve user from redis or db
func getUser(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	exists, err := config.GetRedisObject("User:"+username, &user)
	if err != nil {
		return nil, err
	}

	if !exists {

		db := config.GetDB()
		if err := db.WithContext(ctx).Model(&models.User{}).Where("username = ?", username).Take(&user).Error; err != nil {
			return nil, err
		}

		token_lifespan, err := strconv.Atoi(os.Getenv("TOKEN_HOUR_LIFESPAN"))
		if err != nil {
			return nil, err
		}

		if err := config.SetRedisObject("User:"+user.Username, &user, time.Duration(token_lifespan)*time.Hour); err != nil {
			return nil, err
		}
	}
	return &user, nil
}

func getUserById(ctx context.Context, id int) (*models.User, error) {
	db := config.GetDB()
	var user models.User
	if err := db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// PrincipalMiddleware resolves the authenticated caller (session token or
// JWT) into context values every model entry point reads: user id, display
// name and the admin marker. Requests without a resolvable, enabled principal
// never reach a handler.
func PrincipalMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		var user *models.User
		var err error

		if username, ok := utils.GetUsernameFromContext(ctx); ok && username != "" {
			user, err = getUser(ctx, username)
		} else if userId, ok := utils.GetUserIdFromContext(ctx); ok && userId != 0 {
			user, err = getUserById(ctx, userId)
		} else {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		if err != nil {
			if err == gorm.ErrRecordNotFound {
				// destroy current session if user has been deleted
				models.Logout(ctx)
			}
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}
		if !utils.DereferencePtr(user.IsActive) {
			c.JSON(http.StatusForbidden, gin.H{"error": "user is disabled", "reason": string(utils.DenyPrincipalDisabled)})
			c.Abort()
			return
		}

		ctx = utils.SetUserIdInContext(ctx, user.ID)
		ctx = utils.SetUserNameInContext(ctx, user.Name)
		ctx = utils.SetIsAdminInContext(ctx, user.Role == models.UserRoleAdmin)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
