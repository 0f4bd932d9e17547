package domain

import "errors"

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrChannelNotFound = errors.New("channel not found")
	ErrAccessDenied    = errors.New("access denied")
	ErrNotStaff        = errors.New("monitoring requires staff")
	ErrRateLimited     = errors.New("ptt rate limit exceeded")
	ErrNoProfile       = errors.New("credentials did not resolve to a profile")
)
