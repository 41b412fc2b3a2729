package storage

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// EncodeFeedCursor serializes a cursor into an opaque page token
func EncodeFeedCursor(c FeedCursor) string {
	data, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(data)
}

// DecodeFeedCursor parses a page token produced by EncodeFeedCursor
func DecodeFeedCursor(token string) (*FeedCursor, error) {
	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}
	var c FeedCursor
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse cursor: %w", err)
	}
	return &c, nil
}
