package postgres

import (
	"go.uber.org/zap"
)

// database is the pool surface the repositories need.
type database interface {
	pgExecutor
	txBeginner
}

// Repositories groups concrete PostgreSQL repository implementations.
type Repositories struct {
	Users      *UserRepository
	Roles      *RoleRepository
	UnitOfWork *UnitOfWork
}

// NewRepositories wires all repositories backed by the provided pool.
func NewRepositories(db database, logger *zap.Logger) *Repositories {
	users := NewUserRepository(db)
	roles := NewRoleRepository(db)
	return &Repositories{
		Users:      users,
		Roles:      roles,
		UnitOfWork: NewUnitOfWork(db, users, roles, logger),
	}
}
