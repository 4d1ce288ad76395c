package google

import "time"

// ExpiryMargin is how long before the provider-reported expiry a token is
// already treated as expired, so a refresh happens before the provider
// would itself reject the token.
const ExpiryMargin = 5 * time.Minute

// IsExpired reports whether a token is expired or will expire within
// ExpiryMargin. A nil expiry means a long-lived or unknown-lifetime token
// and is never proactively refreshed.
func IsExpired(expiry *time.Time) bool {
	return isExpiredAt(expiry, time.Now())
}

func isExpiredAt(expiry *time.Time, now time.Time) bool {
	if expiry == nil {
		return false
	}
	return !now.Before(expiry.Add(-ExpiryMargin))
}
