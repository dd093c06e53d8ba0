package models

import "time"

type TaskStatus string

const (
	StatusPending    TaskStatus = "Pending"
	StatusInProgress TaskStatus = "In Progress"
	StatusCompleted  TaskStatus = "Completed"
	StatusOverdue    TaskStatus = "Overdue"
	StatusHold       TaskStatus = "Hold"
)

type AssignType string

const (
	AssignSingle      AssignType = "Single"
	AssignDepartment  AssignType = "Department"
	AssignProjectWise AssignType = "Project-wise"
	AssignOverall     AssignType = "Overall"
)

// Valid reports whether the assign type is one of the known targeting variants.
func (a AssignType) Valid() bool {
	switch a {
	case AssignSingle, AssignDepartment, AssignProjectWise, AssignOverall:
		return true
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

type Decision string

const (
	DecisionAccept  Decision = "Accepted"
	DecisionDecline Decision = "Declined"
)

// Session is one contiguous interval of active work on a task.
// EndTime is nil while the timer is running.
type Session struct {
	StartTime     time.Time  `json:"startTime" bson:"startTime"`
	EndTime       *time.Time `json:"endTime" bson:"endTime"`
	DurationMs    int64      `json:"duration" bson:"duration"`
	Status        TaskStatus `json:"status" bson:"status"`
	ReworkVersion int        `json:"reworkVersion" bson:"reworkVersion"`
}

// Open reports whether the session timer is still running.
func (s Session) Open() bool {
	return s.EndTime == nil
}

type Decline struct {
	UserID string    `json:"userId" bson:"userId"`
	Reason string    `json:"reason" bson:"reason"`
	Date   time.Time `json:"date" bson:"date"`
}

type Task struct {
	ID           string     `json:"id" bson:"_id,omitempty"`
	ProjectName  string     `json:"projectName" bson:"projectName"`
	TaskTitle    string     `json:"taskTitle" bson:"taskTitle"`
	Description  string     `json:"description" bson:"description"`
	Department   []string   `json:"department" bson:"department"`
	TeamLead     string     `json:"teamLead,omitempty" bson:"teamLead,omitempty"`
	ProjectLead  []string   `json:"projectLead" bson:"projectLead"`
	WorkCategory string     `json:"workCategory,omitempty" bson:"workCategory,omitempty"`
	Roles        []string   `json:"roles" bson:"roles"`
	AssignType   AssignType `json:"assignType" bson:"assignType"`
	Assignee     []string   `json:"assignee" bson:"assignee"`
	Priority     Priority   `json:"priority" bson:"priority"`
	StartDate    string     `json:"startDate,omitempty" bson:"startDate,omitempty"`
	StartTime    string     `json:"startTime,omitempty" bson:"startTime,omitempty"`
	Deadline     string     `json:"deadline,omitempty" bson:"deadline,omitempty"`
	MultiAssign  bool       `json:"multiAssign" bson:"multiAssign"`
	DocumentPath string     `json:"documentPath,omitempty" bson:"documentPath,omitempty"`
	AudioPath    string     `json:"audioPath,omitempty" bson:"audioPath,omitempty"`
	ChatTopic    string     `json:"chatTopic,omitempty" bson:"chatTopic,omitempty"`
	Status       TaskStatus `json:"status" bson:"status"`
	AssignedBy   string     `json:"assignedBy,omitempty" bson:"assignedBy,omitempty"`
	AssignedTo   []string   `json:"assignedTo" bson:"assignedTo"`
	DeclinedBy   []Decline  `json:"declinedBy" bson:"declinedBy"`
	Sessions     []Session  `json:"sessions" bson:"sessions"`
	ReworkCount  int        `json:"reworkCount" bson:"reworkCount"`
	Version      int64      `json:"version" bson:"version"`
	CreatedAt    time.Time  `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt" bson:"updatedAt"`
}

// OpenSession returns the index of the running session, or -1.
func (t *Task) OpenSession() int {
	for i := range t.Sessions {
		if t.Sessions[i].Open() {
			return i
		}
	}
	return -1
}

// OpenSessionCount is the number of sessions without an end time.
func (t *Task) OpenSessionCount() int {
	n := 0
	for _, s := range t.Sessions {
		if s.Open() {
			n++
		}
	}
	return n
}

func (t *Task) IsAssigned(userID string) bool {
	for _, id := range t.AssignedTo {
		if id == userID {
			return true
		}
	}
	return false
}

func (t *Task) HasDeclined(userID string) bool {
	for _, d := range t.DeclinedBy {
		if d.UserID == userID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so stores and callers never share slices.
func (t *Task) Clone() *Task {
	cp := *t
	cp.Department = append([]string(nil), t.Department...)
	cp.ProjectLead = append([]string(nil), t.ProjectLead...)
	cp.Roles = append([]string(nil), t.Roles...)
	cp.Assignee = append([]string(nil), t.Assignee...)
	cp.AssignedTo = append([]string(nil), t.AssignedTo...)
	cp.DeclinedBy = append([]Decline(nil), t.DeclinedBy...)
	cp.Sessions = make([]Session, len(t.Sessions))
	for i, s := range t.Sessions {
		if s.EndTime != nil {
			end := *s.EndTime
			s.EndTime = &end
		}
		cp.Sessions[i] = s
	}
	return &cp
}

type DashboardStats struct {
	TotalProjects int `json:"totalProjects"`
	TotalTasks    int `json:"totalTasks"`
	PendingTasks  int `json:"pendingTasks"`
	ActiveTasks   int `json:"activeTasks"`
}
