package models

import (
	"context"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/cashdesk_backend/config"
	"bitbucket.org/mmdatafocus/cashdesk_backend/utils"
)

// Membership assigns an operator to a business. It is pure wiring: the row
// either exists or it does not, and the guard's NotAssigned check reads it.
type Membership struct {
	ID          int       `gorm:"primary_key" json:"id"`
	OperatorId  int       `gorm:"index;not null;uniqueIndex:idx_operator_business" json:"operator_id"`
	BusinessId  string    `gorm:"index;size:191;not null;uniqueIndex:idx_operator_business" json:"business_id"`
	CreatedById int       `gorm:"not null" json:"created_by_id"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

type NewMembership struct {
	OperatorId int    `json:"operator_id" binding:"required"`
	BusinessId string `json:"business_id" binding:"required"`
}

/*
caches:
	MemberBusinessIds:$operatorId
*/

func removeMembershipRedis(operatorId int) error {
	return config.RemoveRedisKey("MemberBusinessIds:" + fmt.Sprint(operatorId))
}

func CreateMembership(ctx context.Context, input *NewMembership) (*Membership, error) {

	if err := RequireAdmin(ctx); err != nil {
		return nil, err
	}

	db := config.GetDB()

	operator, err := GetUser(ctx, input.OperatorId)
	if err != nil {
		return nil, err
	}
	if operator.Role != UserRoleOperator {
		return nil, utils.Invalid("memberships are only assigned to operators")
	}
	if _, err := GetBusinessById(ctx, input.BusinessId); err != nil {
		return nil, err
	}

	count, err := utils.ResourceCountWhere[Membership](ctx,
		"operator_id = ? AND business_id = ?", input.OperatorId, input.BusinessId)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, utils.Invalid("operator is already assigned to this business")
	}

	userId, _ := utils.GetUserIdFromContext(ctx)
	membership := Membership{
		OperatorId:  input.OperatorId,
		BusinessId:  input.BusinessId,
		CreatedById: userId,
	}
	if err := db.WithContext(ctx).Create(&membership).Error; err != nil {
		return nil, err
	}

	// caching
	if err := removeMembershipRedis(input.OperatorId); err != nil {
		return nil, err
	}
	return &membership, nil
}

func RemoveMembership(ctx context.Context, operatorId int, businessId string) (bool, error) {

	if err := RequireAdmin(ctx); err != nil {
		return false, err
	}

	db := config.GetDB()
	var membership Membership
	if err := db.WithContext(ctx).
		Where("operator_id = ? AND business_id = ?", operatorId, businessId).
		First(&membership).Error; err != nil {
		return false, utils.ErrorRecordNotFound
	}

	if err := db.WithContext(ctx).Delete(&membership).Error; err != nil {
		return false, err
	}

	// caching
	if err := removeMembershipRedis(operatorId); err != nil {
		return false, err
	}
	return true, nil
}

// GetMemberBusinessIds returns the ids of every business the operator is
// assigned to. Cached per operator; invalidated on membership change.
func GetMemberBusinessIds(ctx context.Context, operatorId int) ([]string, error) {

	var businessIds []string
	cacheKey := "MemberBusinessIds:" + fmt.Sprint(operatorId)

	exists, err := config.GetRedisObject(cacheKey, &businessIds)
	if err != nil {
		return nil, err
	}
	if exists {
		return businessIds, nil
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(&Membership{}).
		Where("operator_id = ?", operatorId).
		Pluck("business_id", &businessIds).Error; err != nil {
		return nil, err
	}

	if err := config.SetRedisObject(cacheKey, businessIds, time.Hour); err != nil {
		return nil, err
	}
	return businessIds, nil
}

func IsMember(ctx context.Context, operatorId int, businessId string) (bool, error) {
	businessIds, err := GetMemberBusinessIds(ctx, operatorId)
	if err != nil {
		return false, err
	}
	for _, id := range businessIds {
		if id == businessId {
			return true, nil
		}
	}
	return false, nil
}

func GetMemberships(ctx context.Context, businessId *string, operatorId *int) ([]*Membership, error) {

	if err := RequireAdmin(ctx); err != nil {
		return nil, err
	}

	db := config.GetDB()
	var results []*Membership

	dbCtx := db.WithContext(ctx)
	if businessId != nil && *businessId != "" {
		dbCtx = dbCtx.Where("business_id = ?", *businessId)
	}
	if operatorId != nil && *operatorId > 0 {
		dbCtx = dbCtx.Where("operator_id = ?", *operatorId)
	}
	if err := dbCtx.Order("created_at DESC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
