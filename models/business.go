package models

import (
	"context"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/cashdesk_backend/config"
	"bitbucket.org/mmdatafocus/cashdesk_backend/utils"
	"github.com/google/uuid"
)

// Business is a store location. Cash sessions, memberships and daily
// aggregates all hang off its id. Timestamps are stored in UTC everywhere;
// Timezone is only used to bucket timestamps into calendar days for reports.
type Business struct {
	ID             uuid.UUID `gorm:"primary_key" json:"id"`
	Name           string    `gorm:"index;size:100;not null" json:"name" binding:"required"`
	ContactName    string    `gorm:"size:100" json:"contact_name"`
	Email          string    `gorm:"size:255" json:"email"`
	Phone          string    `gorm:"size:20" json:"phone"`
	Address        string    `gorm:"type:text" json:"address"`
	Country        string    `gorm:"size:100" json:"country"`
	City           string    `gorm:"size:100" json:"city"`
	Timezone       string    `gorm:"size:50" json:"timezone"`
	CurrencySymbol string    `gorm:"size:10" json:"currency_symbol"`
	IsActive       *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewBusiness struct {
	Name           string `json:"name" binding:"required"`
	ContactName    string `json:"contact_name"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	Address        string `json:"address"`
	Country        string `json:"country"`
	City           string `json:"city"`
	Timezone       string `json:"timezone"`
	CurrencySymbol string `json:"currency_symbol"`
}

/*
caches:
	Business:$id
*/

func (business *Business) StoreRedis() error {
	return config.SetRedisObject("Business:"+fmt.Sprint(business.ID), business, 0)
}

func (business *Business) RemoveRedis() error {
	return config.RemoveRedisKey("Business:" + fmt.Sprint(business.ID))
}

func (input *NewBusiness) validate(ctx context.Context, id string) error {
	if input.Email != "" && !utils.IsValidEmail(input.Email) {
		return utils.Invalid("invalid email address")
	}
	if input.Timezone != "" {
		if _, err := time.LoadLocation(input.Timezone); err != nil {
			return utils.Invalid("unknown timezone")
		}
	}
	var count int64
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&Business{}).Where("name = ?", input.Name)
	if id != "" {
		dbCtx = dbCtx.Not("id = ?", id)
	}
	if err := dbCtx.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return utils.Invalid("duplicate business name")
	}
	return nil
}

func CreateBusiness(ctx context.Context, input *NewBusiness) (*Business, error) {

	if err := RequireAdmin(ctx); err != nil {
		return nil, err
	}
	if err := input.validate(ctx, ""); err != nil {
		return nil, err
	}

	db := config.GetDB()

	timezone := "UTC"
	if input.Timezone != "" {
		timezone = input.Timezone
	}

	business := Business{
		ID:             uuid.New(),
		Name:           input.Name,
		ContactName:    input.ContactName,
		Email:          input.Email,
		Phone:          input.Phone,
		Address:        input.Address,
		Country:        input.Country,
		City:           input.City,
		Timezone:       timezone,
		CurrencySymbol: input.CurrencySymbol,
		IsActive:       utils.NewTrue(),
	}

	if err := db.WithContext(ctx).Create(&business).Error; err != nil {
		return nil, err
	}
	return &business, nil
}

func UpdateBusiness(ctx context.Context, id string, input *NewBusiness) (*Business, error) {

	if err := RequireAdmin(ctx); err != nil {
		return nil, err
	}
	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}

	db := config.GetDB()
	var business Business
	if err := db.WithContext(ctx).Where("id = ?", id).First(&business).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}

	tx := db.Begin()
	err := tx.WithContext(ctx).Model(&business).Updates(map[string]interface{}{
		"Name":           input.Name,
		"ContactName":    input.ContactName,
		"Email":          input.Email,
		"Phone":          input.Phone,
		"Address":        input.Address,
		"Country":        input.Country,
		"City":           input.City,
		"CurrencySymbol": input.CurrencySymbol,
		// Timezone changes would silently rebucket historical reports, so the
		// column is write-once at creation.
	}).Error
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	// caching
	if err := business.RemoveRedis(); err != nil {
		tx.Rollback()
		return nil, err
	}
	return &business, tx.Commit().Error
}

func ToggleActiveBusiness(ctx context.Context, id uuid.UUID, isActive bool) (*Business, error) {

	if err := RequireAdmin(ctx); err != nil {
		return nil, err
	}

	db := config.GetDB()
	var result Business

	// check exists
	err := db.WithContext(ctx).Where("id = ?", id).First(&result).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}

	tx := db.Begin()
	err = tx.WithContext(ctx).Model(&result).Updates(map[string]interface{}{
		"IsActive": isActive,
	}).Error
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	// caching
	if err := result.RemoveRedis(); err != nil {
		tx.Rollback()
		return nil, err
	}
	return &result, tx.Commit().Error
}

func GetBusinessById(ctx context.Context, id string) (*Business, error) {

	var result Business

	exists, err := config.GetRedisObject("Business:"+id, &result)
	if err != nil {
		return nil, err
	}

	if !exists {
		db := config.GetDB()
		// db query
		err := db.WithContext(ctx).Where("id = ?", id).First(&result).Error
		if err != nil {
			return nil, utils.ErrorRecordNotFound
		}
		// caching
		if err := result.StoreRedis(); err != nil {
			return nil, err
		}
	}
	return &result, nil
}

// GetBusinesses lists businesses inside the caller's scope: every business
// for admins, assigned businesses only for operators.
func GetBusinesses(ctx context.Context, name *string) ([]*Business, error) {

	db := config.GetDB()
	var results []*Business

	dbCtx := db.WithContext(ctx)

	isAdmin, _ := utils.GetIsAdminFromContext(ctx)
	if !isAdmin {
		userId, ok := utils.GetUserIdFromContext(ctx)
		if !ok || userId == 0 {
			return nil, utils.Denied(utils.DenyNotAssigned, "")
		}
		businessIds, err := GetMemberBusinessIds(ctx, userId)
		if err != nil {
			return nil, err
		}
		if len(businessIds) == 0 {
			return []*Business{}, nil
		}
		dbCtx = dbCtx.Where("id IN ?", businessIds)
	}

	if name != nil && len(*name) > 0 {
		dbCtx = dbCtx.Where("name LIKE ?", "%"+*name+"%")
	}
	// db query
	if err := dbCtx.Order("name").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
