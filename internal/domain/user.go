package domain

import (
	"context"
	"errors"
)

// Principal is the authenticated caller of the API.
type Principal struct {
	Subject string
	Role    Role
}

// Role represents a caller's access level
type Role string

const (
	// RoleAdmin opens accounts and initializes the fund
	RoleAdmin Role = "admin"

	// RoleOperator moves money: micro-deposits, disbursements, repayments
	RoleOperator Role = "operator"

	// RoleViewer can only read customers, transactions and the fund
	RoleViewer Role = "viewer"
)

var roleRank = map[Role]int{
	RoleViewer:   1,
	RoleOperator: 2,
	RoleAdmin:    3,
}

// IsValid checks if the role is a valid role
func (r Role) IsValid() bool {
	_, ok := roleRank[r]
	return ok
}

// Allows reports whether r grants at least the access of required.
func (r Role) Allows(required Role) bool {
	return r.IsValid() && roleRank[r] >= roleRank[required]
}

// Authentication errors
var (
	ErrUnauthorized     = errors.New("unauthorized")
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrInsufficientRole = errors.New("insufficient role for this operation")
)

type principalKey struct{}

// ContextWithPrincipal stores p in ctx.
func ContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the authenticated principal, if any.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok && p != nil
}
