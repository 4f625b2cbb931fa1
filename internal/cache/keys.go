package cache

import "fmt"

func ReportKey(fingerprint string) string {
	return fmt.Sprintf("report:%s", fingerprint)
}

func RateLimitKey(clientKey string) string {
	return fmt.Sprintf("ratelimit:%s", clientKey)
}
