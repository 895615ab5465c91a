// Package timeout defines centralized timeout constants for outbound calls.
// Package timeout 定义外部调用的集中式超时常量。
package timeout

import "time"

// Outbound call timeout constants.
// 外部调用超时常量。
const (
	// LLMTimeout bounds one chat completion call to the language-understanding service.
	// LLMTimeout 是单次语言理解服务调用的超时时间。
	LLMTimeout = 10 * time.Second

	// CalendarTimeout bounds one calendar protocol operation.
	// CalendarTimeout 是单次日历协议操作的超时时间。
	CalendarTimeout = 15 * time.Second

	// DiscoveryTTL is how long discovered calendar collections are cached.
	// DiscoveryTTL 是日历集合发现结果的缓存时间。
	DiscoveryTTL = 10 * time.Minute

	// RequestTimeout bounds one HTTP command request end to end.
	// RequestTimeout 是单个 HTTP 命令请求的整体超时时间。
	RequestTimeout = 30 * time.Second

	// MaxTruncateLength is the maximum length for truncating strings in logs.
	// MaxTruncateLength 是日志中字符串截断的最大长度。
	MaxTruncateLength = 200
)

// Truncate shortens s to MaxTruncateLength runes for logging.
func Truncate(s string) string {
	r := []rune(s)
	if len(r) <= MaxTruncateLength {
		return s
	}
	return string(r[:MaxTruncateLength]) + "..."
}
