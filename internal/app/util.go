package app

import (
	"time"
)

func CurrentMessageTime() string {
	t := time.Now()
	return t.Format("02.01.2006 15:04")
}

func RemoveTrailingSlash(s string) string {
	if len(s) > 0 && s[len(s)-1] == '/' {
		return s[:len(s)-1]
	}
	return s
}
