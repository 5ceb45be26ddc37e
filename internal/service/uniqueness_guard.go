package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	appErrors "github.com/noah-isme/barangay-api/pkg/errors"
)

type singletonStore interface {
	LockRoleKeyTx(ctx context.Context, exec sqlx.ExtContext, roleKey string) error
	CountActiveByRoleTx(ctx context.Context, exec sqlx.ExtContext, roleKey, excludeID string) (int, error)
}

// UniquenessGuard keeps singleton roles at one active holder. It must run in
// the same transaction as the write it protects.
type UniquenessGuard struct {
	store      singletonStore
	singletons map[string]struct{}
}

// NewUniquenessGuard builds a guard for the given singleton role keys.
func NewUniquenessGuard(store singletonStore, roleKeys []string) *UniquenessGuard {
	singletons := make(map[string]struct{}, len(roleKeys))
	for _, key := range roleKeys {
		if key = strings.ToUpper(strings.TrimSpace(key)); key != "" {
			singletons[key] = struct{}{}
		}
	}
	return &UniquenessGuard{store: store, singletons: singletons}
}

// IsSingleton reports whether the role key allows a single active holder.
func (g *UniquenessGuard) IsSingleton(roleKey string) bool {
	_, ok := g.singletons[strings.ToUpper(strings.TrimSpace(roleKey))]
	return ok
}

// AssertSingletonActive fails with ErrAlreadyHeld when another official holds
// the role. The role key stays locked until exec's transaction ends.
func (g *UniquenessGuard) AssertSingletonActive(ctx context.Context, exec sqlx.ExtContext, roleKey, candidateID string) error {
	roleKey = strings.ToUpper(strings.TrimSpace(roleKey))
	if !g.IsSingleton(roleKey) {
		return nil
	}
	if err := g.store.LockRoleKeyTx(ctx, exec, roleKey); err != nil {
		return err
	}
	count, err := g.store.CountActiveByRoleTx(ctx, exec, roleKey, candidateID)
	if err != nil {
		return err
	}
	if count > 0 {
		return appErrors.WithFields(appErrors.ErrAlreadyHeld, fmt.Sprintf("%s already has an active holder; deactivate them first", roleKey), map[string]string{"role_key": "singleton"})
	}
	return nil
}
