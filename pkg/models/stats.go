package models

import "time"

// MaxRecentActivity is the number of activity entries kept, newest first
const MaxRecentActivity = 20

// Activity is one entry in the recent activity log
type Activity struct {
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
}

// Stats holds the usage counters shown on the panel
type Stats struct {
	TotalMessages        int        `json:"totalMessages"`
	MessagesToday        int        `json:"messagesToday"`
	CommandsUsed         int        `json:"commandsUsed"`
	AIResponsesGenerated int        `json:"aiResponsesGenerated"`
	RecentActivity       []Activity `json:"recentActivity"`
}

// Command describes one supported bot command for the panel UI
type Command struct {
	Command     string `json:"command"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Example     string `json:"example,omitempty"`
}
