package cache

import (
	"fmt"
	"time"
)

const (
	UserKeyPrefix     = "user:%d"
	CatalogKey        = "catalog:available"
	WSTicketKeyPrefix = "ws_ticket:%s"
	DenylistKeyPrefix = "blacklist:%s"
	JobLockKeyPrefix  = "lock:job:%s"
)

const (
	UserTTL     = 5 * time.Minute
	CatalogTTL  = 30 * time.Second
	WSTicketTTL = 60 * time.Second
)

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

func WSTicketKey(ticket string) string {
	return fmt.Sprintf(WSTicketKeyPrefix, ticket)
}

// DenylistKey is where a revoked token's jti lives until the token would have expired.
func DenylistKey(jti string) string {
	return fmt.Sprintf(DenylistKeyPrefix, jti)
}

func JobLockKey(job string) string {
	return fmt.Sprintf(JobLockKeyPrefix, job)
}
