package kernel

import userdomain "marketplace-iam/internal/user/domain"

// Decision is the outcome of an authorization check.
type Decision int

const (
	// DecisionAllow grants the operation.
	DecisionAllow Decision = iota
	// DecisionForbidden rejects with 403: the caller is known but not
	// permitted for this resource.
	DecisionForbidden
	// DecisionNotFound rejects with 404. Cross-tenant access always lands
	// here so callers cannot probe for resource existence.
	DecisionNotFound
)

// Authorize decides whether p may operate on a resource owned by
// resourceOwner inside resourceTenant. Tenant isolation applies before any
// role logic; within the tenant, ADMIN and STAFF may act on anyone's
// resources while other roles are restricted to their own.
func Authorize(p Principal, resourceOwner, resourceTenant string) Decision {
	if p.TenantID != resourceTenant {
		return DecisionNotFound
	}
	if p.HasRole(string(userdomain.RoleAdmin)) || p.HasRole(string(userdomain.RoleStaff)) {
		return DecisionAllow
	}
	if p.UserID == resourceOwner {
		return DecisionAllow
	}
	return DecisionForbidden
}
