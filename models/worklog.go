package models

import "time"

type ReworkAction string

const (
	ActionRework   ReworkAction = "Rework"
	ActionHold     ReworkAction = "Hold"
	ActionResume   ReworkAction = "Resume"
	ActionComplete ReworkAction = "Completed"
)

type ReworkEvent struct {
	Action ReworkAction `json:"action" bson:"action"`
	Time   time.Time    `json:"time" bson:"time"`
}

// ReworkEntry is one rework cycle. It is active while EndTime is nil.
type ReworkEntry struct {
	StartTime time.Time     `json:"startTime" bson:"startTime"`
	EndTime   *time.Time    `json:"endTime,omitempty" bson:"endTime,omitempty"`
	Duration  int           `json:"duration" bson:"duration"` // minutes
	Events    []ReworkEvent `json:"events" bson:"events"`
}

func (e ReworkEntry) Active() bool {
	return e.EndTime == nil
}

// Held reports whether the last recorded event is a Hold.
func (e ReworkEntry) Held() bool {
	return len(e.Events) > 0 && e.Events[len(e.Events)-1].Action == ActionHold
}

const (
	LogTypeMainTask = "Main Task"
	LogTypeRework   = "Rework"
)

type WorkLog struct {
	ID              string        `json:"id" bson:"_id,omitempty"`
	EmployeeID      string        `json:"employeeId" bson:"employeeId"`
	TaskID          string        `json:"taskId,omitempty" bson:"taskId,omitempty"`
	TaskTitle       string        `json:"taskTitle" bson:"taskTitle"`
	ProjectName     string        `json:"projectName" bson:"projectName"`
	Date            string        `json:"date" bson:"date"` // YYYY-MM-DD
	StartTime       string        `json:"startTime" bson:"startTime"`
	EndTime         string        `json:"endTime" bson:"endTime"`
	Duration        string        `json:"duration" bson:"duration"`
	DurationMinutes int           `json:"durationMinutes" bson:"durationMinutes"`
	Description     string        `json:"description" bson:"description"`
	Status          string        `json:"status" bson:"status"`
	TaskNo          int           `json:"taskNo" bson:"taskNo"`
	TaskOwner       string        `json:"taskOwner,omitempty" bson:"taskOwner,omitempty"`
	AssignedBy      string        `json:"assignedBy,omitempty" bson:"assignedBy,omitempty"`
	TaskType        string        `json:"taskType,omitempty" bson:"taskType,omitempty"`
	TimeAutomation  string        `json:"timeAutomation,omitempty" bson:"timeAutomation,omitempty"`
	LogType         string        `json:"logType" bson:"logType"`
	ReworkCount     int           `json:"reworkCount" bson:"reworkCount"`
	ReworkStartTime *time.Time    `json:"reworkStartTime,omitempty" bson:"reworkStartTime,omitempty"`
	ReworkHistory   []ReworkEntry `json:"reworkHistory" bson:"reworkHistory"`
	Version         int64         `json:"version" bson:"version"`
	CreatedAt       time.Time     `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time     `json:"updatedAt" bson:"updatedAt"`
}

// ActiveRework returns the index of the open rework entry, or -1.
// Only the last entry can be open.
func (w *WorkLog) ActiveRework() int {
	last := len(w.ReworkHistory) - 1
	if last >= 0 && w.ReworkHistory[last].Active() {
		return last
	}
	return -1
}

func (w *WorkLog) Clone() *WorkLog {
	cp := *w
	cp.ReworkHistory = make([]ReworkEntry, len(w.ReworkHistory))
	for i, e := range w.ReworkHistory {
		if e.EndTime != nil {
			end := *e.EndTime
			e.EndTime = &end
		}
		e.Events = append([]ReworkEvent(nil), e.Events...)
		cp.ReworkHistory[i] = e
	}
	if w.ReworkStartTime != nil {
		rs := *w.ReworkStartTime
		cp.ReworkStartTime = &rs
	}
	return &cp
}
