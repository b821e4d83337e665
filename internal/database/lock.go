package database

import (
	"hash/fnv"

	"gorm.io/gorm"
)

// Advisory lock names. Each maps to a stable int64 key.
const (
	LockStaffAdmins = "purpaws:staff_admins"
)

// LockKey hashes a lock name to the int64 postgres advisory locks take.
func LockKey(name string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(name))
	return int64(h.Sum64())
}

// AdvisoryXactLock takes a transaction-scoped advisory lock on postgres. The lock is
// released at commit or rollback. On other dialects (sqlite in tests) it is a no-op;
// there writers are already serialized by the single connection.
func AdvisoryXactLock(tx *gorm.DB, name string) error {
	if tx.Dialector.Name() != "postgres" {
		return nil
	}
	return tx.Exec("SELECT pg_advisory_xact_lock(?)", LockKey(name)).Error
}
