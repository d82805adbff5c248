package repository

// Test exports for helper functions.
var (
	NullableInt64 = nullableInt64
	FormatTime    = formatTime
	ParseTime     = parseTime
	LikePattern   = likePattern
	EmailDomain   = emailDomain
)
