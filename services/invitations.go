package services

import "taskhub/models"

// IsInvited reports whether a task should be offered to the user. Users who
// declined never see the task again; users already working on an in-progress
// task are not re-invited.
func IsInvited(task *models.Task, user *models.User, aliases *DepartmentAliases) bool {
	if task.Status != models.StatusPending && task.Status != models.StatusInProgress {
		return false
	}
	if task.HasDeclined(user.ID) {
		return false
	}
	if task.Status == models.StatusInProgress && task.IsAssigned(user.ID) {
		return false
	}

	switch task.AssignType {
	case models.AssignOverall:
		return true
	case models.AssignSingle:
		return contains(task.Assignee, user.ID)
	case models.AssignDepartment:
		return aliases.Matches(task.Assignee, user.Roles)
	case models.AssignProjectWise:
		return aliases.Matches(task.Roles, user.Roles)
	}
	return false
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// union appends the values of each extra list missing from base, keeping
// first-seen order. Empty strings are skipped.
func union(base []string, extra ...[]string) []string {
	out := make([]string, 0, len(base))
	seen := make(map[string]struct{}, len(base))
	add := func(v string) {
		if v == "" {
			return
		}
		if _, ok := seen[v]; ok {
			return
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	for _, v := range base {
		add(v)
	}
	for _, list := range extra {
		for _, v := range list {
			add(v)
		}
	}
	return out
}

// cleanList drops placeholder values that form clients send for empty fields.
func cleanList(in []string) []string {
	var out []string
	for _, v := range in {
		if v == "" || v == "null" || v == "undefined" {
			continue
		}
		out = append(out, v)
	}
	return out
}

func cleanValue(v string) string {
	if v == "null" || v == "undefined" {
		return ""
	}
	return v
}
