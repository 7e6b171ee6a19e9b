package database

import (
	"fmt"

	"github.com/casbin/casbin/v2"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"gorm.io/gorm"
)

// Policies seeded on every start. Moderators share the admin surface.
var defaultPolicies = [][]string{
	{"admin", "/v1/admin/*", "(GET)|(POST)|(PUT)|(PATCH)|(DELETE)"},
	{"moderator", "/v1/admin/messages/*", "(POST)|(DELETE)"},
}

// Casbin builds the RBAC enforcer with policies stored next to the messenger tables.
func Casbin(db *gorm.DB, modelPath string) (*casbin.Enforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, fmt.Errorf("casbin adapter: %w", err)
	}

	e, err := casbin.NewEnforcer(modelPath, adapter)
	if err != nil {
		return nil, fmt.Errorf("casbin enforcer: %w", err)
	}

	for _, p := range defaultPolicies {
		if has, _ := e.HasPolicy(p[0], p[1], p[2]); !has {
			if _, err := e.AddPolicy(p[0], p[1], p[2]); err != nil {
				return nil, fmt.Errorf("casbin seed policy: %w", err)
			}
		}
	}

	if err := e.LoadPolicy(); err != nil {
		return nil, fmt.Errorf("casbin load policy: %w", err)
	}
	return e, nil
}
