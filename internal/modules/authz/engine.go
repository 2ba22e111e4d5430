// Package authz decides whether a caller may perform a lifecycle action
// on a trade. Two gates apply in order: the role/privilege matrix (may
// this kind of user do this kind of action at all) and the ownership gate
// (may they do it to this particular trade).
package authz

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/mkrallis/swapbook/internal/domain"
)

// roleActions is the role/action permission matrix. A role absent from
// the map is denied everything (default deny); explicit TRADE_<ACTION>
// privileges are checked separately.
var roleActions = map[string]map[domain.Action]bool{
	domain.RoleTrader: {
		domain.ActionCreate:    true,
		domain.ActionAmend:     true,
		domain.ActionTerminate: true,
		domain.ActionCancel:    true,
		domain.ActionDelete:    true,
		domain.ActionView:      true,
	},
	domain.RoleSales: {
		domain.ActionCreate: true,
		domain.ActionAmend:  true,
	},
	domain.RoleMiddleOffice: {
		domain.ActionAmend: true,
		domain.ActionView:  true,
	},
	domain.RoleSupport: {
		domain.ActionView: true,
	},
	domain.RoleSuperuser: {
		domain.ActionCreate:    true,
		domain.ActionAmend:     true,
		domain.ActionTerminate: true,
		domain.ActionCancel:    true,
		domain.ActionDelete:    true,
		domain.ActionView:      true,
	},
}

// Engine evaluates authorization decisions. OwnerlessTraderFallback
// controls whether a trade without an owning trader may be acted on by
// any TRADER in addition to elevated roles.
type Engine struct {
	ownerlessTraderFallback bool
	log                     zerolog.Logger
}

// NewEngine creates an authorization engine.
func NewEngine(ownerlessTraderFallback bool, log zerolog.Logger) *Engine {
	return &Engine{
		ownerlessTraderFallback: ownerlessTraderFallback,
		log:                     log.With().Str("component", "authz").Logger(),
	}
}

// CheckAction applies the role/privilege matrix for the requested action.
// Returns a wrapped ErrForbidden naming the denied role and action, so
// the HTTP layer maps it to 403.
func (e *Engine) CheckAction(ctx domain.AuthorizationContext, action domain.Action) error {
	action = domain.Action(strings.ToUpper(strings.TrimSpace(string(action))))
	if action == "" {
		return domain.Forbiddenf("action is required")
	}
	if len(ctx.Roles) == 0 && len(ctx.Privileges) == 0 {
		return fmt.Errorf("invalid user type for %q: %w", ctx.LoginID, domain.ErrForbidden)
	}

	// An explicit single-action privilege grants that action regardless
	// of role.
	if ctx.HasPrivilege(domain.PrivilegeForAction(action)) {
		return nil
	}

	for _, role := range ctx.Roles {
		normRole := strings.ToUpper(strings.TrimSpace(role))

		// Single-action user types (TRADE_CREATE, TRADE_CANCEL, ...)
		// permit exactly the action they name.
		if strings.HasPrefix(normRole, "TRADE_") {
			if normRole == domain.PrivilegeForAction(action) {
				return nil
			}
			return domain.Forbiddenf("%s cannot %s trades", normRole, action)
		}

		allowed, known := roleActions[normRole]
		if !known {
			continue
		}
		if allowed[action] {
			return nil
		}
		e.log.Debug().
			Str("login", ctx.LoginID).
			Str("role", normRole).
			Str("action", string(action)).
			Msg("Action denied by role matrix")
		return domain.Forbiddenf("%s cannot %s trades", normRole, action)
	}

	return fmt.Errorf("invalid user type %q: %w", strings.Join(ctx.Roles, ","), domain.ErrForbidden)
}

// CanView reports whether the caller may see the given trade. Elevated
// viewers (sales, superuser, middle office, support, or holders of
// TRADE_VIEW_ALL) see everything; a trader sees their own trades.
func (e *Engine) CanView(ctx domain.AuthorizationContext, trade *domain.Trade) bool {
	if trade == nil {
		return false
	}

	elevated := ctx.HasRole(domain.RoleSales) ||
		ctx.HasRole(domain.RoleSuperuser) ||
		ctx.HasRole(domain.RoleMiddleOffice) ||
		ctx.HasRole(domain.RoleSupport) ||
		ctx.HasPrivilege(domain.PrivTradeViewAll)

	return e.ownerGate(ctx, trade, elevated)
}

// CanEdit reports whether the caller may modify the given trade. Only
// sales, superuser and TRADE_EDIT_ALL holders reach past ownership.
func (e *Engine) CanEdit(ctx domain.AuthorizationContext, trade *domain.Trade) bool {
	if trade == nil {
		return false
	}

	elevated := ctx.HasRole(domain.RoleSales) ||
		ctx.HasRole(domain.RoleSuperuser) ||
		ctx.HasPrivilege(domain.PrivTradeEditAll)

	return e.ownerGate(ctx, trade, elevated)
}

// ownerGate resolves the ownership part of the decision: elevated callers
// always pass, the owner passes, and ownerless trades optionally fall
// back to any trader.
func (e *Engine) ownerGate(ctx domain.AuthorizationContext, trade *domain.Trade, elevated bool) bool {
	if elevated {
		return true
	}
	owner := strings.TrimSpace(trade.TraderLogin)
	if owner == "" {
		return e.ownerlessTraderFallback && ctx.HasRole(domain.RoleTrader)
	}
	return strings.EqualFold(owner, ctx.LoginID)
}

// SeesAllTrades reports whether list results need no ownership scoping
// for this caller. Traders without an elevated view privilege only see
// their own trades.
func (e *Engine) SeesAllTrades(ctx domain.AuthorizationContext) bool {
	return ctx.HasRole(domain.RoleSales) ||
		ctx.HasRole(domain.RoleSuperuser) ||
		ctx.HasRole(domain.RoleMiddleOffice) ||
		ctx.HasRole(domain.RoleSupport) ||
		ctx.HasPrivilege(domain.PrivTradeViewAll)
}
