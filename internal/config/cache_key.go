package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// ExamPayloadKey returns the cache key for an exam's JSON document
func (r *CacheKeyStruct) ExamPayloadKey(name string) string {
	return fmt.Sprintf("exam:%s:payload", name)
}

// ExamNamesKey returns the cache key for the sorted list of exam names
func (r *CacheKeyStruct) ExamNamesKey() string {
	return "exam:names"
}

// ChannelFeedChannel returns the Redis PubSub channel carrying a chat channel's exam events
func (r *CacheKeyStruct) ChannelFeedChannel(channelID string) string {
	return fmt.Sprintf("channel:%s:exam_feed", channelID)
}

var CacheKey = NewCacheKeyStruct()
