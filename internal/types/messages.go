package types

import "time"

// Message is the envelope pushed to websocket clients
type Message struct {
	Type      string    `json:"type"` // "dashboard"
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// MessageTypeDashboard is sent after every re-aggregation
const MessageTypeDashboard = "dashboard"
