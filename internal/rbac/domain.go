package rbac

import "context"

// Permission represents an atomic capability.
type Permission struct {
	ID          int64
	Name        string
	Description string
}

// PermissionSource resolves the permissions granted to a user.
type PermissionSource interface {
	EffectivePermissions(ctx context.Context, userID int64) ([]string, error)
}
