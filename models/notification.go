package models

import "time"

const (
	EventNewInvitation  = "newInvitation"
	EventTaskAccepted   = "taskAccepted"
	EventTaskDeclined   = "taskDeclined"
	EventTaskUpdated    = "taskStatusUpdated"
	EventTaskRework     = "taskRework"
	EventNewChannel     = "newChannel"
	EventChannelUpdated = "channelUpdated"
	EventChannelDeleted = "channelDeleted"
	EventWorkLogCreated = "workLogCreated"
)

type Notification struct {
	ID        string    `cassandra:"id" json:"id"`
	Event     string    `cassandra:"event" json:"event"`
	Payload   any       `cassandra:"-" json:"payload"`
	CreatedAt time.Time `cassandra:"created_at" json:"createdAt"`
}
