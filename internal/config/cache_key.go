package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// StudentSessionKey returns the cache key for a student's login session.
func (r *CacheKeyStruct) StudentSessionKey(studentID int) string {
	return fmt.Sprintf("login:%d", studentID)
}

// TestPayloadKey returns the cache key for a test's student payload.
func (r *CacheKeyStruct) TestPayloadKey(testID string) string {
	return fmt.Sprintf("test:%s:payload", testID)
}

// StudentAttemptKey returns the cache key marking a student's recorded
// attempt on a test.
func (r *CacheKeyStruct) StudentAttemptKey(testID string, studentID int) string {
	return fmt.Sprintf("student:%d:test:%s:attempt", studentID, testID)
}

// StudentProgressKey returns the cache key holding a student's live
// progress heartbeat for a test.
func (r *CacheKeyStruct) StudentProgressKey(testID string, studentID int) string {
	return fmt.Sprintf("student:%d:test:%s:progress", studentID, testID)
}

var CacheKey = NewCacheKeyStruct()
