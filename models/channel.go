package models

import "time"

type ChannelType string

const (
	ChannelGlobal     ChannelType = "Global"
	ChannelPrivate    ChannelType = "Private"
	ChannelDepartment ChannelType = "Department"
	ChannelDM         ChannelType = "DM"
	ChannelTeam       ChannelType = "Team"
)

func (c ChannelType) Valid() bool {
	switch c {
	case ChannelGlobal, ChannelPrivate, ChannelDepartment, ChannelDM, ChannelTeam:
		return true
	}
	return false
}

// Channel is a messaging scope. SyncKey is set only on auto-managed channels
// ("department:<tag>", "task:<id>", "global:<name>"); manual channels never carry one.
type Channel struct {
	ID           string      `json:"id" bson:"_id,omitempty"`
	Name         string      `json:"name" bson:"name"`
	Type         ChannelType `json:"type" bson:"type"`
	AllowedUsers []string    `json:"allowedUsers" bson:"allowedUsers"`
	AllowedTeams []string    `json:"allowedTeams,omitempty" bson:"allowedTeams,omitempty"`
	TaskID       string      `json:"taskId,omitempty" bson:"taskId,omitempty"`
	ProjectID    string      `json:"projectId,omitempty" bson:"projectId,omitempty"`
	Parent       string      `json:"parent,omitempty" bson:"parent,omitempty"`
	Description  string      `json:"description,omitempty" bson:"description,omitempty"`
	IsManual     bool        `json:"isManual" bson:"isManual"`
	SyncKey      string      `json:"syncKey,omitempty" bson:"syncKey,omitempty"`
	Version      int64       `json:"version" bson:"version"`
	CreatedAt    time.Time   `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt" bson:"updatedAt"`
}

func (c *Channel) HasMember(userID string) bool {
	for _, id := range c.AllowedUsers {
		if id == userID {
			return true
		}
	}
	return false
}

func (c *Channel) Clone() *Channel {
	cp := *c
	cp.AllowedUsers = append([]string(nil), c.AllowedUsers...)
	cp.AllowedTeams = append([]string(nil), c.AllowedTeams...)
	return &cp
}
