package domain

import "strings"

// Action is a lifecycle action a caller may request on a trade.
type Action string

const (
	ActionCreate    Action = "CREATE"
	ActionAmend     Action = "AMEND"
	ActionTerminate Action = "TERMINATE"
	ActionCancel    Action = "CANCEL"
	ActionDelete    Action = "DELETE"
	ActionView      Action = "VIEW"
)

// Role names recognised by the authorization engine.
const (
	RoleTrader       = "TRADER"
	RoleSales        = "SALES"
	RoleMiddleOffice = "MIDDLE_OFFICE"
	RoleSupport      = "SUPPORT"
	RoleSuperuser    = "SUPERUSER"
)

// Privilege names. Explicit per-action privileges are the action name
// prefixed TRADE_; the *_ALL variants bypass ownership checks.
const (
	PrivTradeViewAll = "TRADE_VIEW_ALL"
	PrivTradeEditAll = "TRADE_EDIT_ALL"
)

// PrivilegeForAction returns the explicit privilege name that grants a
// single action regardless of role, e.g. CREATE -> TRADE_CREATE.
func PrivilegeForAction(action Action) string {
	return "TRADE_" + string(action)
}

// AuthorizationContext carries the caller identity, role set and explicit
// privilege set resolved at the moment of a lifecycle action. It is a
// per-call value, never persisted and never shared between requests.
// There is no ambient security context: every lifecycle call receives one
// of these explicitly.
type AuthorizationContext struct {
	LoginID    string
	Roles      []string
	Privileges []string
}

// HasRole reports whether the caller holds the named role (case-insensitive).
func (c AuthorizationContext) HasRole(role string) bool {
	for _, r := range c.Roles {
		if strings.EqualFold(r, role) {
			return true
		}
	}
	return false
}

// HasPrivilege reports whether the caller holds the named explicit
// privilege (case-insensitive).
func (c AuthorizationContext) HasPrivilege(name string) bool {
	for _, p := range c.Privileges {
		if strings.EqualFold(p, name) {
			return true
		}
	}
	return false
}
