package models

import (
	"time"
)

// SObject represents a generic record
type SObject map[string]interface{}

// Helper methods for SObject
func (s SObject) GetString(key string) string {
	if val, ok := s[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}

func (s SObject) GetBool(key string) bool {
	if val, ok := s[key]; ok {
		if b, ok := val.(bool); ok {
			return b
		}
	}
	return false
}

// GetFloat extracts a numeric value, accepting the types JSON decoding
// and database scanning commonly produce.
func (s SObject) GetFloat(key string) (float64, bool) {
	val, ok := s[key]
	if !ok || val == nil {
		return 0, false
	}
	switch v := val.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

func (s SObject) GetTime(key string) time.Time {
	if val, ok := s[key]; ok {
		if t, ok := val.(time.Time); ok {
			return t
		}
		if tStr, ok := val.(string); ok {
			parsed, _ := time.Parse(time.RFC3339, tStr)
			return parsed
		}
	}
	return time.Time{}
}

func (s SObject) Get(key string) interface{} {
	return s[key]
}

// GetMap extracts a nested map value (JSON object fields decode this way).
func (s SObject) GetMap(key string) (map[string]interface{}, bool) {
	if val, ok := s[key]; ok {
		if m, ok := val.(map[string]interface{}); ok {
			return m, true
		}
		if so, ok := val.(SObject); ok {
			return so, true
		}
	}
	return nil, false
}
