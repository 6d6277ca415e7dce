package config

import (
	"context"
	"strings"

	"bitbucket.org/mmdatafocus/stripboard_backend/appctx"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TenantGuardPlugin enforces multi-project isolation by automatically scoping
// queries/updates/deletes to the request's project_id when the model has a project_id column.
//
// NOTE: this does NOT apply to Raw SQL queries. Those must include project_id manually.
type TenantGuardPlugin struct{}

func NewTenantGuardPlugin() *TenantGuardPlugin { return &TenantGuardPlugin{} }

func (p *TenantGuardPlugin) Name() string { return "tenant_guard" }

func (p *TenantGuardPlugin) Initialize(db *gorm.DB) error {
	// Query
	if err := db.Callback().Query().Before("gorm:query").Register("tenant_guard:query", tenantGuardCallback); err != nil {
		return err
	}
	// Row (First/Take)
	if err := db.Callback().Row().Before("gorm:row").Register("tenant_guard:row", tenantGuardCallback); err != nil {
		return err
	}
	// Update
	if err := db.Callback().Update().Before("gorm:update").Register("tenant_guard:update", tenantGuardCallback); err != nil {
		return err
	}
	// Delete
	if err := db.Callback().Delete().Before("gorm:delete").Register("tenant_guard:delete", tenantGuardCallback); err != nil {
		return err
	}
	return nil
}

func tenantGuardCallback(db *gorm.DB) {
	if db == nil || db.Statement == nil {
		return
	}
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}
	projectID := projectIdFromContext(ctx)
	if projectID == "" {
		return
	}

	// Only apply if the current model/table includes a project_id column.
	if db.Statement.Schema == nil {
		return
	}
	hasProjectID := false
	for _, f := range db.Statement.Schema.Fields {
		if strings.EqualFold(f.DBName, "project_id") {
			hasProjectID = true
			break
		}
	}
	if !hasProjectID {
		return
	}

	// Don't duplicate an explicit tenant filter.
	if whereHasProjectID(db.Statement.Clauses["WHERE"]) {
		return
	}

	db.Statement.AddClause(clause.Where{
		Exprs: []clause.Expression{
			clause.Eq{
				Column: clause.Column{Table: db.Statement.Table, Name: "project_id"},
				Value:  projectID,
			},
		},
	})
}

func projectIdFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(appctx.ContextKeyProjectId).(string); ok && v != "" {
		return v
	}
	return ""
}

func whereHasProjectID(c clause.Clause) bool {
	if c.Expression == nil {
		return false
	}
	w, ok := c.Expression.(clause.Where)
	if !ok {
		return false
	}
	for _, e := range w.Exprs {
		if exprHasProjectID(e) {
			return true
		}
	}
	return false
}

func exprHasProjectID(e clause.Expression) bool {
	switch v := e.(type) {
	case clause.Eq:
		return colIsProjectID(v.Column)
	case clause.Neq:
		return colIsProjectID(v.Column)
	case clause.IN:
		return colIsProjectID(v.Column)
	case clause.AndConditions:
		for _, x := range v.Exprs {
			if exprHasProjectID(x) {
				return true
			}
		}
		return false
	case clause.OrConditions:
		for _, x := range v.Exprs {
			if exprHasProjectID(x) {
				return true
			}
		}
		return false
	case clause.Expr:
		// Best-effort for raw expressions.
		return strings.Contains(strings.ToLower(v.SQL), "project_id")
	default:
		return false
	}
}

func colIsProjectID(col any) bool {
	switch c := col.(type) {
	case string:
		return strings.EqualFold(c, "project_id")
	case clause.Column:
		return strings.EqualFold(c.Name, "project_id")
	default:
		return false
	}
}
