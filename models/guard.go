package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/cashdesk_backend/config"
	"bitbucket.org/mmdatafocus/cashdesk_backend/utils"
	"github.com/sirupsen/logrus"
)

// OperatorEditWindow bounds how long an operator may amend their own closed
// session. At exactly the boundary the edit is denied.
const OperatorEditWindow = 32 * time.Hour

// Principal is the authenticated caller, snapshotted for guard decisions.
type Principal struct {
	Id       int      `json:"id"`
	Name     string   `json:"name"`
	Role     UserRole `json:"role"`
	IsActive bool     `json:"is_active"`
}

/*
caches:
	Principal:$userId
*/

// GetPrincipal resolves the caller from context into a role snapshot.
func GetPrincipal(ctx context.Context) (*Principal, error) {
	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId == 0 {
		return nil, errors.New("user id is required")
	}

	var p Principal
	cacheKey := "Principal:" + fmt.Sprint(userId)
	exists, err := config.GetRedisObject(cacheKey, &p)
	if err != nil {
		return nil, err
	}
	if exists {
		return &p, nil
	}

	db := config.GetDB()
	var user User
	if err := db.WithContext(ctx).First(&user, userId).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	p = Principal{
		Id:       user.ID,
		Name:     user.Name,
		Role:     user.Role,
		IsActive: utils.DereferencePtr(user.IsActive),
	}
	if err := config.SetRedisObject(cacheKey, &p, time.Hour); err != nil {
		return nil, err
	}
	return &p, nil
}

// decideSessionAccess is the pure decision core. Checks run in a fixed order
// so a caller always gets the same denial subtype for the same situation:
// principal enabled, then role, then membership, then soft-delete visibility,
// then ownership, then the edit window. The clock is a parameter so the
// window boundary is testable.
func decideSessionAccess(p Principal, action GuardAction, isMember bool, session *CashSession, now time.Time) error {

	if !p.IsActive {
		return utils.Denied(utils.DenyPrincipalDisabled, "account is disabled")
	}

	// admins pass every remaining check
	if p.Role == UserRoleAdmin {
		return nil
	}

	if action.IsAdminOnly() {
		return utils.Denied(utils.DenyAdminOnly, string(action)+" requires admin role")
	}

	if !isMember {
		// membership denial carries no target detail: the caller must not
		// learn anything about sessions in a business it cannot reach
		return utils.Denied(utils.DenyNotAssigned, "")
	}

	if session == nil {
		return nil
	}

	// deleted sessions do not exist as far as operators are concerned
	if utils.DereferencePtr(session.IsDeleted) {
		return utils.ErrorRecordNotFound
	}

	if action.IsSessionMutation() {
		if session.OperatorId != p.Id {
			return utils.Denied(utils.DenyNotOwner, "session belongs to another operator")
		}
		if action == ActionEditSession && session.Status == SessionStatusClosed {
			if session.ClosedAt == nil {
				return utils.Integrity("decideSessionAccess", errors.New("closed session has no closed_at"))
			}
			if now.Sub(*session.ClosedAt) >= OperatorEditWindow {
				return utils.Denied(utils.DenyEditWindowExpired, "closed sessions can only be amended within 32 hours")
			}
		}
	}

	return nil
}

// impliedMembership reports whether a call with no target business passes the
// membership gate on the strength of its own scoping. A scope-filtered read
// without a business_id filter has no single membership fact to check; the
// caller's membership list becomes the query filter instead (ListSessions and
// the report builders add the IN clause). Every other action still names its
// business and gets the real lookup.
func impliedMembership(action GuardAction, businessId string) bool {
	return businessId == "" && action.IsScopedRead()
}

// AuthorizeSessionAction runs the guard for one operation against one
// business (and optionally one session). A denial is logged with the caller,
// action and target before it is returned; logging never blocks the decision.
func AuthorizeSessionAction(ctx context.Context, action GuardAction, businessId string, session *CashSession) error {

	p, err := GetPrincipal(ctx)
	if err != nil {
		return err
	}

	isMember := false
	if p.Role == UserRoleOperator {
		if impliedMembership(action, businessId) {
			isMember = true
		} else if businessId != "" {
			isMember, err = IsMember(ctx, p.Id, businessId)
			if err != nil {
				return err
			}
		}
	}

	err = decideSessionAccess(*p, action, isMember, session, time.Now().UTC())
	if err != nil {
		logDenied(ctx, p, action, businessId, session, err)
	}
	return err
}

// RequireAdmin gates provisioning operations that have no session target.
func RequireAdmin(ctx context.Context) error {
	p, err := GetPrincipal(ctx)
	if err != nil {
		return err
	}
	if !p.IsActive {
		err = utils.Denied(utils.DenyPrincipalDisabled, "account is disabled")
		logDenied(ctx, p, "Provisioning", "", nil, err)
		return err
	}
	if p.Role != UserRoleAdmin {
		err = utils.Denied(utils.DenyAdminOnly, "admin role required")
		logDenied(ctx, p, "Provisioning", "", nil, err)
		return err
	}
	return nil
}

func logDenied(ctx context.Context, p *Principal, action GuardAction, businessId string, session *CashSession, err error) {
	logger := config.GetLogger()

	fields := logrus.Fields{
		"module":      "guard",
		"user_id":     p.Id,
		"role":        string(p.Role),
		"action":      string(action),
		"business_id": businessId,
	}
	if session != nil {
		fields["session_id"] = session.ID
	}
	if correlationId, ok := utils.GetCorrelationIdFromContext(ctx); ok {
		fields["correlation_id"] = correlationId
	}
	var pd *utils.PermissionDeniedError
	if errors.As(err, &pd) {
		fields["deny_reason"] = string(pd.Reason)
	}

	logger.WithFields(fields).Warn("access denied")
}
