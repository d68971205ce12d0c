package cache

import "fmt"

// SummaryKey addresses the cached analytics summary for a selector
// ("all", "main-company" or a tenant id).
func SummaryKey(selector string) string {
	return fmt.Sprintf("analytics:summary:%s", selector)
}

func RateLimitKey(client string) string {
	return fmt.Sprintf("ratelimit:%s", client)
}
