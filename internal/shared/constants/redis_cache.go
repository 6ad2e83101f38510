package constants

import (
	"time"
)

// Redis Cache Configuration
// Centralizes Redis keys and TTL values for tourhub.
// Pattern: tourhub:{module}:{operation}:{identifier}

// ================== CACHE TTL DURATIONS ==================

// Semi-Static Data (changes occasionally)
const (
	TTL_SEMI_STATIC_MEDIUM = 2 * time.Hour
)

// Short-lived coordination keys
const (
	TTL_LOCK_SHORT = 10 * time.Second
)

// ================== REDIS KEY PREFIXES ==================

const (
	CACHE_PREFIX = "tourhub"
)

// ================== POLICIES MODULE ==================

const (
	CACHE_KEY_POLICY_DETAIL  = CACHE_PREFIX + ":policies:detail:uuid:"    // + policy-id
	CACHE_KEY_POLICY_DEFAULT = CACHE_PREFIX + ":policies:default:tenant:" // + tenant-id
)

const (
	TTL_POLICY_DETAIL  = TTL_SEMI_STATIC_MEDIUM // 2 hours
	TTL_POLICY_DEFAULT = TTL_SEMI_STATIC_MEDIUM // 2 hours
)

// ================== CANCELLATION MODULE ==================

const (
	LOCK_KEY_BOOKING_CANCELLATION = CACHE_PREFIX + ":locks:cancellation:booking:" // + booking-id
)

const (
	TTL_BOOKING_CANCELLATION_LOCK = TTL_LOCK_SHORT
)

// ================== RATE LIMIT ==================

const (
	RATE_LIMIT_PREFIX = CACHE_PREFIX + ":ratelimit:"
)

// ================== INVALIDATION PATTERNS ==================

const (
	PATTERN_INVALIDATE_POLICIES_ALL = CACHE_PREFIX + ":policies:*"
)

// ================== HELPER FUNCTIONS ==================

func BuildPolicyDetailKey(policyID string) string {
	return CACHE_KEY_POLICY_DETAIL + policyID
}

func BuildDefaultPolicyKey(tenantID string) string {
	return CACHE_KEY_POLICY_DEFAULT + tenantID
}

func BuildBookingCancellationLockKey(bookingID string) string {
	return LOCK_KEY_BOOKING_CANCELLATION + bookingID
}
