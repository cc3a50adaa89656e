package handlers

import (
	"gorm.io/gorm"

	"trackadmin/internal/auth"
)

// scoped narrows a query to the caller's reseller. Platform-level accounts
// (no reseller) see everything.
func scoped(q *gorm.DB, cl *auth.Claims) *gorm.DB {
	if cl != nil && cl.ResellerID != nil {
		return q.Where("reseller_id = ?", *cl.ResellerID)
	}
	return q
}
