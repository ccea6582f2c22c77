package config

import (
	"context"
	"strings"

	"bitbucket.org/mmdatafocus/cashdesk_backend/appctx"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DeletedGuardPlugin enforces soft-delete visibility by automatically scoping
// queries/updates/deletes to `is_deleted = 0` when the model has an is_deleted column.
// Every list AND aggregate goes through the same predicate, so an aggregate can
// never count a row a listing would hide.
//
// NOTE:
// - This does NOT apply to Raw SQL queries. Those must include is_deleted manually.
// - Admin deleted-view / restore bypass is explicit via the IncludeDeleted context flag.
type DeletedGuardPlugin struct{}

func NewDeletedGuardPlugin() *DeletedGuardPlugin { return &DeletedGuardPlugin{} }

func (p *DeletedGuardPlugin) Name() string { return "deleted_guard" }

func (p *DeletedGuardPlugin) Initialize(db *gorm.DB) error {
	// Query
	if err := db.Callback().Query().Before("gorm:query").Register("deleted_guard:query", deletedGuardCallback); err != nil {
		return err
	}
	// Row (First/Take)
	if err := db.Callback().Row().Before("gorm:row").Register("deleted_guard:row", deletedGuardCallback); err != nil {
		return err
	}
	// Update
	if err := db.Callback().Update().Before("gorm:update").Register("deleted_guard:update", deletedGuardCallback); err != nil {
		return err
	}
	// Delete
	if err := db.Callback().Delete().Before("gorm:delete").Register("deleted_guard:delete", deletedGuardCallback); err != nil {
		return err
	}
	return nil
}

func deletedGuardCallback(db *gorm.DB) {
	if db == nil || db.Statement == nil {
		return
	}
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}
	if shouldIncludeDeleted(ctx) {
		return
	}

	// Only apply if the current model/table includes an is_deleted column.
	if db.Statement.Schema == nil {
		return
	}
	hasIsDeleted := false
	for _, f := range db.Statement.Schema.Fields {
		if strings.EqualFold(f.DBName, "is_deleted") {
			hasIsDeleted = true
			break
		}
	}
	if !hasIsDeleted {
		return
	}

	// Don't duplicate an explicit visibility filter.
	if whereHasIsDeleted(db.Statement.Clauses["WHERE"]) {
		return
	}

	db.Statement.AddClause(clause.Where{
		Exprs: []clause.Expression{
			clause.Eq{
				Column: clause.Column{Table: db.Statement.Table, Name: "is_deleted"},
				Value:  false,
			},
		},
	})
}

func shouldIncludeDeleted(ctx context.Context) bool {
	if v, ok := ctx.Value(appctx.ContextKeyIncludeDeleted).(bool); ok && v {
		return true
	}
	return false
}

func whereHasIsDeleted(c clause.Clause) bool {
	if c.Expression == nil {
		return false
	}
	w, ok := c.Expression.(clause.Where)
	if !ok {
		return false
	}
	for _, e := range w.Exprs {
		if exprHasIsDeleted(e) {
			return true
		}
	}
	return false
}

func exprHasIsDeleted(e clause.Expression) bool {
	switch v := e.(type) {
	case clause.Eq:
		return colIsIsDeleted(v.Column)
	case clause.Neq:
		return colIsIsDeleted(v.Column)
	case clause.IN:
		return colIsIsDeleted(v.Column)
	case clause.AndConditions:
		for _, x := range v.Exprs {
			if exprHasIsDeleted(x) {
				return true
			}
		}
		return false
	case clause.OrConditions:
		for _, x := range v.Exprs {
			if exprHasIsDeleted(x) {
				return true
			}
		}
		return false
	case clause.Expr:
		// Best-effort for raw expressions.
		return strings.Contains(strings.ToLower(v.SQL), "is_deleted")
	default:
		return false
	}
}

func colIsIsDeleted(col any) bool {
	switch c := col.(type) {
	case string:
		return strings.EqualFold(c, "is_deleted")
	case clause.Column:
		return strings.EqualFold(c.Name, "is_deleted")
	default:
		return false
	}
}
