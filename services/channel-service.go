package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"taskhub/logging"
	"taskhub/models"
	"taskhub/repositories"

	"golang.org/x/sync/singleflight"
)

type MembershipPolicy string

const (
	// MembershipUnion keeps members added out of band; sync only adds.
	MembershipUnion MembershipPolicy = "union"
	// MembershipExact makes sync the sole owner of the member set.
	MembershipExact MembershipPolicy = "exact"
)

type SyncPolicy struct {
	Membership   MembershipPolicy
	ChannelType  models.ChannelType
	ReservedTags []string
	AdminRoles   []string
}

func DefaultSyncPolicy() SyncPolicy {
	return SyncPolicy{
		Membership:   MembershipUnion,
		ChannelType:  models.ChannelPrivate,
		ReservedTags: []string{models.RoleUser, models.RoleAdmin, models.RoleSuperAdmin, models.RoleManager},
		AdminRoles:   []string{models.RoleAdmin, models.RoleSuperAdmin, models.RoleManager},
	}
}

func (p SyncPolicy) Validate() error {
	switch p.Membership {
	case MembershipUnion, MembershipExact:
	default:
		return fmt.Errorf("%w: unknown membership policy %q", ErrValidation, p.Membership)
	}
	switch p.ChannelType {
	case models.ChannelPrivate, models.ChannelDepartment:
	default:
		return fmt.Errorf("%w: department channels cannot be of type %q", ErrValidation, p.ChannelType)
	}
	return nil
}

type SyncReport struct {
	Departments int `json:"departments"`
	Created     int `json:"created"`
	Updated     int `json:"updated"`
	Unchanged   int `json:"unchanged"`
	Failed      int `json:"failed"`
}

func DepartmentKey(tag string) string { return "department:" + tag }
func TaskKey(taskID string) string    { return "task:" + taskID }
func GlobalKey(name string) string    { return "global:" + name }

type ChannelService struct {
	channels repositories.ChannelRepository
	users    repositories.UserDirectory
	notifier Notifier
	policy   SyncPolicy
	retry    RetryPolicy
	group    singleflight.Group
}

func NewChannelService(channels repositories.ChannelRepository, users repositories.UserDirectory,
	notifier Notifier, policy SyncPolicy, retry RetryPolicy) *ChannelService {
	return &ChannelService{
		channels: channels,
		users:    users,
		notifier: notifier,
		policy:   policy,
		retry:    retry,
	}
}

func (s *ChannelService) emit(event string, payload any) {
	if s.notifier != nil {
		s.notifier.Emit(event, payload)
	}
}

// SyncDepartmentChannels converges every department channel onto its roster.
// Concurrent calls share one run. A failing department is counted in the
// report and does not stop the others.
func (s *ChannelService) SyncDepartmentChannels(ctx context.Context) (SyncReport, error) {
	v, err, shared := s.group.Do("department-sync", func() (interface{}, error) {
		return s.syncDepartments(ctx)
	})
	if err != nil {
		return SyncReport{}, err
	}
	if shared {
		logging.Logger.Debug("Event ID: SYNC_COALESCED, Description: Joined an in-flight department sync")
	}
	return v.(SyncReport), nil
}

func (s *ChannelService) syncDepartments(ctx context.Context) (SyncReport, error) {
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return SyncReport{}, fmt.Errorf("failed to list users: %v", err)
	}

	var admins []string
	rosters := make(map[string][]string)
	for _, u := range users {
		if u.HasAnyRole(s.policy.AdminRoles...) {
			admins = append(admins, u.ID)
		}
		for _, tag := range u.Departments(s.policy.ReservedTags) {
			rosters[tag] = append(rosters[tag], u.ID)
		}
	}

	tags := make([]string, 0, len(rosters))
	for tag := range rosters {
		tags = append(tags, tag)
	}
	sort.Strings(tags)

	report := SyncReport{Departments: len(tags)}
	for _, tag := range tags {
		target := union(rosters[tag], admins)
		outcome, err := s.syncDepartment(ctx, tag, target)
		if err != nil {
			report.Failed++
			logging.Logger.Errorf("Event ID: DEPARTMENT_SYNC_FAILED, Description: Department %s not synced: %v", tag, err)
			continue
		}
		switch outcome {
		case syncCreated:
			report.Created++
		case syncUpdated:
			report.Updated++
		default:
			report.Unchanged++
		}
	}

	logging.Logger.Infof("Event ID: DEPARTMENT_SYNC_DONE, Description: %d departments, %d created, %d updated, %d unchanged, %d failed",
		report.Departments, report.Created, report.Updated, report.Unchanged, report.Failed)
	return report, nil
}

type syncOutcome int

const (
	syncUnchanged syncOutcome = iota
	syncCreated
	syncUpdated
)

func (s *ChannelService) syncDepartment(ctx context.Context, tag string, target []string) (syncOutcome, error) {
	var outcome syncOutcome
	var written *models.Channel
	err := retryOnConflict(ctx, s.retry, func() error {
		written = nil
		ch, created, err := s.channels.FindOrCreate(ctx, &models.Channel{
			Name:         tag,
			Type:         s.policy.ChannelType,
			AllowedUsers: target,
			SyncKey:      DepartmentKey(tag),
			Description:  tag + " Department Channel",
		})
		if err != nil {
			return err
		}
		if created {
			outcome, written = syncCreated, ch
			return nil
		}

		desired := target
		if s.policy.Membership == MembershipUnion {
			desired = union(ch.AllowedUsers, target)
		}
		if sameMembers(desired, ch.AllowedUsers) && ch.Type == s.policy.ChannelType {
			outcome = syncUnchanged
			return nil
		}
		ch.AllowedUsers = desired
		ch.Type = s.policy.ChannelType
		if err := s.channels.Update(ctx, ch); err != nil {
			return err
		}
		outcome, written = syncUpdated, ch
		return nil
	})
	if err != nil {
		return syncUnchanged, err
	}

	switch outcome {
	case syncCreated:
		s.emit(models.EventNewChannel, written.Clone())
	case syncUpdated:
		s.emit(models.EventChannelUpdated, written.Clone())
	}
	return outcome, nil
}

func sameMembers(a, b []string) bool {
	sa := make(map[string]struct{}, len(a))
	for _, v := range a {
		sa[v] = struct{}{}
	}
	sb := make(map[string]struct{}, len(b))
	for _, v := range b {
		sb[v] = struct{}{}
	}
	if len(sa) != len(sb) {
		return false
	}
	for v := range sa {
		if _, ok := sb[v]; !ok {
			return false
		}
	}
	return true
}

func (s *ChannelService) adminIDs(ctx context.Context) ([]string, error) {
	ids, err := s.users.ListUsersByRoles(ctx, s.policy.AdminRoles...)
	if err != nil {
		return nil, fmt.Errorf("failed to list admins: %v", err)
	}
	return ids, nil
}

// ProvisionTaskChannel finds or creates the channel of a task and makes sure
// the accepting user belongs to it. The department parent is created first
// when the task names one.
func (s *ChannelService) ProvisionTaskChannel(ctx context.Context, task *models.Task, userID string) (*models.Channel, error) {
	admins, err := s.adminIDs(ctx)
	if err != nil {
		return nil, err
	}

	var parentID string
	if len(task.Department) > 0 && task.Department[0] != "" {
		dept := task.Department[0]
		parent, created, err := s.channels.FindOrCreate(ctx, &models.Channel{
			Name:         dept,
			Type:         s.policy.ChannelType,
			AllowedUsers: union(admins, []string{userID}),
			SyncKey:      DepartmentKey(dept),
			Description:  dept + " Department Channel",
		})
		if err != nil {
			return nil, fmt.Errorf("failed to provision department channel %s: %v", dept, err)
		}
		if created {
			s.emit(models.EventNewChannel, parent.Clone())
		}
		parentID = parent.ID
	}

	name := task.ProjectName
	if name == "" {
		name = task.TaskTitle
	}
	members := union([]string{userID}, admins, []string{task.TeamLead}, task.ProjectLead, []string{task.AssignedBy})

	ch, created, err := s.channels.FindOrCreate(ctx, &models.Channel{
		Name:         name,
		Type:         models.ChannelPrivate,
		AllowedUsers: members,
		TaskID:       task.ID,
		ProjectID:    task.ProjectName,
		Parent:       parentID,
		Description:  "Discussion for " + task.TaskTitle,
		SyncKey:      TaskKey(task.ID),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to provision task channel: %v", err)
	}
	if created {
		logging.Logger.Infof("Event ID: TASK_CHANNEL_CREATED, Description: Channel %s created for task %s", ch.ID, task.ID)
		s.emit(models.EventNewChannel, ch.Clone())
		return ch, nil
	}
	if ch.HasMember(userID) {
		return ch, nil
	}
	return s.AddMembers(ctx, ch.ID, []string{userID})
}

// EnsureGlobalChannel creates the company-wide channel if it is missing.
func (s *ChannelService) EnsureGlobalChannel(ctx context.Context, name string) (*models.Channel, error) {
	var result *models.Channel
	var created bool
	err := retryOnConflict(ctx, s.retry, func() error {
		ch, c, err := s.channels.FindOrCreate(ctx, &models.Channel{
			Name:         name,
			Type:         models.ChannelGlobal,
			AllowedUsers: []string{},
			SyncKey:      GlobalKey(name),
			Description:  "Official Company-Wide Channel",
		})
		if err != nil {
			return err
		}
		created = c
		if !c && ch.Type != models.ChannelGlobal {
			ch.Type = models.ChannelGlobal
			if err := s.channels.Update(ctx, ch); err != nil {
				return err
			}
		}
		result = ch
		return nil
	})
	if err != nil {
		return nil, err
	}
	if created {
		logging.Logger.Infof("Event ID: GLOBAL_CHANNEL_CREATED, Description: Global channel %s created", name)
		s.emit(models.EventNewChannel, result.Clone())
	}
	return result, nil
}

type CreateChannelInput struct {
	Name         string             `json:"name"`
	Type         models.ChannelType `json:"type"`
	Parent       string             `json:"parent,omitempty"`
	Description  string             `json:"description,omitempty"`
	AllowedUsers []string           `json:"allowedUsers"`
	AllowedTeams []string           `json:"allowedTeams,omitempty"`
	TargetUserID string             `json:"targetUserId,omitempty"`
}

// CreateChannel creates a manually curated channel. For DMs it returns the
// existing conversation between the two users when there is one; the bool
// reports whether a channel was created.
func (s *ChannelService) CreateChannel(ctx context.Context, creatorID string, in CreateChannelInput) (*models.Channel, bool, error) {
	if in.Type == "" {
		in.Type = models.ChannelGlobal
	}
	if !in.Type.Valid() {
		return nil, false, fmt.Errorf("%w: unknown channel type %q", ErrValidation, in.Type)
	}

	if in.Type == models.ChannelDM {
		if creatorID == "" || in.TargetUserID == "" {
			return nil, false, fmt.Errorf("%w: a direct message needs both users", ErrValidation)
		}
		existing, err := s.channels.FindDM(ctx, creatorID, in.TargetUserID)
		if err == nil {
			return existing, false, nil
		}
		if !errors.Is(err, repositories.ErrNotFound) {
			return nil, false, err
		}
		ch := &models.Channel{
			Name:         fmt.Sprintf("dm-%d", time.Now().UnixMilli()),
			Type:         models.ChannelDM,
			AllowedUsers: union([]string{creatorID}, []string{in.TargetUserID}),
		}
		if err := s.channels.Create(ctx, ch); err != nil {
			return nil, false, fmt.Errorf("failed to create channel: %v", err)
		}
		s.emit(models.EventNewChannel, ch.Clone())
		return ch, true, nil
	}

	if strings.TrimSpace(in.Name) == "" {
		return nil, false, fmt.Errorf("%w: channel name is required", ErrValidation)
	}
	if in.Parent != "" {
		if _, err := s.GetChannel(ctx, in.Parent); err != nil {
			return nil, false, err
		}
	}
	ch := &models.Channel{
		Name:         strings.TrimSpace(in.Name),
		Type:         in.Type,
		AllowedUsers: union([]string{creatorID}, in.AllowedUsers),
		AllowedTeams: in.AllowedTeams,
		Parent:       in.Parent,
		Description:  in.Description,
		IsManual:     true,
	}
	if err := s.channels.Create(ctx, ch); err != nil {
		return nil, false, fmt.Errorf("failed to create channel: %v", err)
	}
	s.emit(models.EventNewChannel, ch.Clone())
	return ch, true, nil
}

func (s *ChannelService) GetChannel(ctx context.Context, id string) (*models.Channel, error) {
	ch, err := s.channels.Get(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrChannelNotFound
	}
	return ch, err
}

func (s *ChannelService) GetChannelByTaskID(ctx context.Context, taskID string) (*models.Channel, error) {
	ch, err := s.channels.FindByTaskID(ctx, taskID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrChannelNotFound
	}
	return ch, err
}

// ListChannelsForUser returns every channel to admins and the global plus
// member-of channels to everyone else.
func (s *ChannelService) ListChannelsForUser(ctx context.Context, userID string) ([]*models.Channel, error) {
	u, err := s.users.GetUser(ctx, userID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	if u.HasAnyRole(models.RoleAdmin, models.RoleSuperAdmin) {
		return s.channels.List(ctx)
	}
	return s.channels.ListForUser(ctx, userID)
}

// editChannel applies fn under the version check. fn returns false when
// nothing needs writing.
func (s *ChannelService) editChannel(ctx context.Context, id string, fn func(ch *models.Channel) bool) (*models.Channel, error) {
	var result *models.Channel
	var changed bool
	err := retryOnConflict(ctx, s.retry, func() error {
		ch, err := s.GetChannel(ctx, id)
		if err != nil {
			return err
		}
		changed = fn(ch)
		if changed {
			if err := s.channels.Update(ctx, ch); err != nil {
				if errors.Is(err, repositories.ErrNotFound) {
					return ErrChannelNotFound
				}
				return err
			}
		}
		result = ch
		return nil
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.emit(models.EventChannelUpdated, result.Clone())
	}
	return result, nil
}

func (s *ChannelService) RenameChannel(ctx context.Context, id, name string) (*models.Channel, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: channel name is required", ErrValidation)
	}
	return s.editChannel(ctx, id, func(ch *models.Channel) bool {
		if ch.Name == name {
			return false
		}
		ch.Name = name
		return true
	})
}

func (s *ChannelService) AddMembers(ctx context.Context, id string, userIDs []string) (*models.Channel, error) {
	return s.editChannel(ctx, id, func(ch *models.Channel) bool {
		merged := union(ch.AllowedUsers, userIDs)
		if len(merged) == len(ch.AllowedUsers) {
			return false
		}
		ch.AllowedUsers = merged
		return true
	})
}

func (s *ChannelService) RemoveMembers(ctx context.Context, id string, userIDs []string) (*models.Channel, error) {
	return s.editChannel(ctx, id, func(ch *models.Channel) bool {
		kept := ch.AllowedUsers[:0:0]
		for _, u := range ch.AllowedUsers {
			if !contains(userIDs, u) {
				kept = append(kept, u)
			}
		}
		if len(kept) == len(ch.AllowedUsers) {
			return false
		}
		ch.AllowedUsers = kept
		return true
	})
}

// DeleteChannel removes a channel and its sub-channels and returns how many
// were deleted.
func (s *ChannelService) DeleteChannel(ctx context.Context, id string) (int, error) {
	n, err := s.channels.Delete(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return 0, ErrChannelNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to delete channel: %v", err)
	}
	logging.Logger.Infof("Event ID: CHANNEL_DELETED, Description: Channel %s deleted with %d sub-channels", id, n-1)
	s.emit(models.EventChannelDeleted, map[string]any{"id": id})
	return n, nil
}
