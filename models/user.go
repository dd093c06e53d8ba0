package models

import "time"

const (
	RoleUser       = "User"
	RoleAdmin      = "Admin"
	RoleSuperAdmin = "Super Admin"
	RoleManager    = "Manager"
)

// User is the directory view of an employee. Role doubles as the set of
// department tags, the same way the rosters are kept upstream.
type User struct {
	ID          string    `json:"id" bson:"_id,omitempty"`
	Name        string    `json:"name" bson:"name"`
	EmployeeID  string    `json:"employeeId" bson:"employeeId"`
	Email       string    `json:"email" bson:"email"`
	Roles       []string  `json:"role" bson:"role"`
	Designation string    `json:"designation,omitempty" bson:"designation,omitempty"`
	WorkType    string    `json:"workType,omitempty" bson:"workType,omitempty"`
	Team        string    `json:"team,omitempty" bson:"team,omitempty"`
	JoiningDate time.Time `json:"joiningDate" bson:"joiningDate"`
}

func (u *User) HasAnyRole(roles ...string) bool {
	for _, r := range u.Roles {
		for _, want := range roles {
			if r == want {
				return true
			}
		}
	}
	return false
}

// Departments returns the user's role tags minus the reserved ones.
func (u *User) Departments(reserved []string) []string {
	var out []string
	for _, r := range u.Roles {
		if r == "" {
			continue
		}
		skip := false
		for _, res := range reserved {
			if r == res {
				skip = true
				break
			}
		}
		if !skip {
			out = append(out, r)
		}
	}
	return out
}
