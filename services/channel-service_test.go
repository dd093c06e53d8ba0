package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"taskhub/models"
	"taskhub/repositories"
)

func members(ch *models.Channel) []string {
	out := append([]string(nil), ch.AllowedUsers...)
	sort.Strings(out)
	return out
}

func equalSets(a, b []string) bool {
	return sameMembers(a, b)
}

func TestSyncCreatesDepartmentChannels(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	report, err := h.chans.SyncDepartmentChannels(ctx)
	if err != nil {
		t.Fatal(err)
	}
	// Designer, Software Developer, Developer, Sales Executive
	if report.Departments != 4 || report.Created != 4 || report.Failed != 0 {
		t.Fatalf("report = %+v", report)
	}

	ch, err := h.channels.FindByKey(ctx, DepartmentKey("Designer"))
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"admin1", "mgr1", "u1"}; !equalSets(ch.AllowedUsers, want) {
		t.Errorf("Designer members = %v, want %v", members(ch), want)
	}
	if ch.Type != models.ChannelPrivate || ch.IsManual {
		t.Errorf("type %q manual %v", ch.Type, ch.IsManual)
	}
	if _, err := h.channels.FindByKey(ctx, DepartmentKey(models.RoleUser)); err == nil {
		t.Errorf("reserved tag got a channel")
	}
}

func TestSyncSecondRunWritesNothing(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	if _, err := h.chans.SyncDepartmentChannels(ctx); err != nil {
		t.Fatal(err)
	}
	before := h.channels.Writes()

	report, err := h.chans.SyncDepartmentChannels(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if h.channels.Writes() != before {
		t.Errorf("second sync wrote %d times", h.channels.Writes()-before)
	}
	if report.Unchanged != report.Departments || report.Created != 0 || report.Updated != 0 {
		t.Errorf("report = %+v", report)
	}
}

func TestSyncUnionKeepsOutOfBandMembers(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.chans.SyncDepartmentChannels(ctx)

	ch, _ := h.channels.FindByKey(ctx, DepartmentKey("Designer"))
	if _, err := h.chans.AddMembers(ctx, ch.ID, []string{"guest"}); err != nil {
		t.Fatal(err)
	}
	h.dir.Put(models.User{ID: "u5", Roles: []string{"Designer"}})

	report, err := h.chans.SyncDepartmentChannels(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if report.Updated != 1 {
		t.Errorf("report = %+v", report)
	}
	ch, _ = h.channels.FindByKey(ctx, DepartmentKey("Designer"))
	if want := []string{"admin1", "guest", "mgr1", "u1", "u5"}; !equalSets(ch.AllowedUsers, want) {
		t.Errorf("members = %v, want %v", members(ch), want)
	}
}

func TestSyncExactRoundTrip(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	policy := DefaultSyncPolicy()
	policy.Membership = MembershipExact
	svc := NewChannelService(h.channels, h.dir, h.events, policy, fastRetry(8))

	if _, err := svc.SyncDepartmentChannels(ctx); err != nil {
		t.Fatal(err)
	}
	ch, _ := h.channels.FindByKey(ctx, DepartmentKey("Designer"))
	svc.AddMembers(ctx, ch.ID, []string{"guest"})

	// u1 leaves Designer, u5 joins, a new manager arrives
	h.dir.Put(models.User{ID: "u1", Roles: []string{"Sales Executive"}})
	h.dir.Put(models.User{ID: "u5", Roles: []string{"Designer"}})
	h.dir.Put(models.User{ID: "mgr2", Roles: []string{models.RoleManager}})

	if _, err := svc.SyncDepartmentChannels(ctx); err != nil {
		t.Fatal(err)
	}

	users, _ := h.dir.ListUsers(ctx)
	var admins []string
	rosters := map[string][]string{}
	for _, u := range users {
		if u.HasAnyRole(policy.AdminRoles...) {
			admins = append(admins, u.ID)
		}
		for _, tag := range u.Departments(policy.ReservedTags) {
			rosters[tag] = append(rosters[tag], u.ID)
		}
	}
	for tag, roster := range rosters {
		ch, err := h.channels.FindByKey(ctx, DepartmentKey(tag))
		if err != nil {
			t.Fatalf("%s: %v", tag, err)
		}
		if want := union(roster, admins); !equalSets(ch.AllowedUsers, want) {
			t.Errorf("%s members = %v, want %v", tag, members(ch), want)
		}
	}
}

func TestSyncForcesChannelType(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.chans.SyncDepartmentChannels(ctx)

	ch, _ := h.channels.FindByKey(ctx, DepartmentKey("Designer"))
	ch.Type = models.ChannelGlobal
	if err := h.channels.Update(ctx, ch); err != nil {
		t.Fatal(err)
	}

	report, _ := h.chans.SyncDepartmentChannels(ctx)
	if report.Updated != 1 {
		t.Errorf("report = %+v", report)
	}
	ch, _ = h.channels.FindByKey(ctx, DepartmentKey("Designer"))
	if ch.Type != models.ChannelPrivate {
		t.Errorf("type = %q", ch.Type)
	}
}

func TestSyncLeavesManualChannelsAlone(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	manual, _, err := h.chans.CreateChannel(ctx, "admin1", CreateChannelInput{
		Name: "Designer", Type: models.ChannelGlobal, AllowedUsers: []string{"u9"},
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := h.chans.SyncDepartmentChannels(ctx); err != nil {
		t.Fatal(err)
	}
	got, _ := h.channels.Get(ctx, manual.ID)
	if got.Version != manual.Version || got.Type != models.ChannelGlobal || !got.IsManual {
		t.Errorf("manual channel was rewritten: %+v", got)
	}
}

func TestConcurrentSyncsConverge(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := h.chans.SyncDepartmentChannels(ctx); err != nil {
				t.Errorf("sync: %v", err)
			}
		}()
	}
	wg.Wait()

	all, _ := h.channels.List(ctx)
	if len(all) != 4 {
		t.Errorf("expected 4 department channels, got %d", len(all))
	}
}

func TestProvisionTaskChannel(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	task := &models.Task{
		ID: "t-1", ProjectName: "Website", TaskTitle: "Hero", Department: []string{"Designer"},
		TeamLead: "lead1", ProjectLead: []string{"pl1", "pl2"}, AssignedBy: "admin1",
	}

	ch, err := h.chans.ProvisionTaskChannel(ctx, task, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"u1", "admin1", "mgr1", "lead1", "pl1", "pl2"}; !equalSets(ch.AllowedUsers, want) {
		t.Errorf("members = %v, want %v", members(ch), want)
	}
	if ch.Name != "Website" || ch.TaskID != "t-1" || ch.Type != models.ChannelPrivate {
		t.Errorf("channel = %+v", ch)
	}

	parent, err := h.channels.FindByKey(ctx, DepartmentKey("Designer"))
	if err != nil {
		t.Fatalf("parent not created: %v", err)
	}
	if ch.Parent != parent.ID {
		t.Errorf("parent = %q, want %q", ch.Parent, parent.ID)
	}
	if want := []string{"admin1", "mgr1", "u1"}; !equalSets(parent.AllowedUsers, want) {
		t.Errorf("parent members = %v", members(parent))
	}

	writes := h.channels.Writes()
	again, err := h.chans.ProvisionTaskChannel(ctx, task, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if again.ID != ch.ID || h.channels.Writes() != writes {
		t.Errorf("repeat provisioning wrote or created a channel")
	}

	joined, err := h.chans.ProvisionTaskChannel(ctx, task, "u2")
	if err != nil {
		t.Fatal(err)
	}
	if joined.ID != ch.ID || !joined.HasMember("u2") {
		t.Errorf("second user not added: %+v", joined)
	}
}

func TestEnsureGlobalChannel(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	first, err := h.chans.EnsureGlobalChannel(ctx, "General")
	if err != nil {
		t.Fatal(err)
	}
	second, err := h.chans.EnsureGlobalChannel(ctx, "General")
	if err != nil {
		t.Fatal(err)
	}
	if first.ID != second.ID || second.Type != models.ChannelGlobal {
		t.Errorf("got %+v then %+v", first, second)
	}
	if h.events.count(models.EventNewChannel) != 1 {
		t.Errorf("newChannel emitted %d times", h.events.count(models.EventNewChannel))
	}
}

func TestDirectMessagesAreFoundByPair(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	dm, created, err := h.chans.CreateChannel(ctx, "u1", CreateChannelInput{Type: models.ChannelDM, TargetUserID: "u2"})
	if err != nil || !created {
		t.Fatalf("create DM: %v (created %v)", err, created)
	}
	again, created, err := h.chans.CreateChannel(ctx, "u2", CreateChannelInput{Type: models.ChannelDM, TargetUserID: "u1"})
	if err != nil {
		t.Fatal(err)
	}
	if created || again.ID != dm.ID {
		t.Errorf("expected existing DM %s, got %s (created %v)", dm.ID, again.ID, created)
	}
	if _, _, err := h.chans.CreateChannel(ctx, "u1", CreateChannelInput{Type: models.ChannelDM}); !errors.Is(err, ErrValidation) {
		t.Errorf("DM without target: %v", err)
	}
}

func TestChannelAdministration(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	parent, _, err := h.chans.CreateChannel(ctx, "admin1", CreateChannelInput{Name: "Design", Type: models.ChannelTeam})
	if err != nil {
		t.Fatal(err)
	}
	child, _, err := h.chans.CreateChannel(ctx, "admin1", CreateChannelInput{Name: "Design/Web", Type: models.ChannelPrivate, Parent: parent.ID})
	if err != nil {
		t.Fatal(err)
	}

	renamed, err := h.chans.RenameChannel(ctx, parent.ID, "Design Team")
	if err != nil || renamed.Name != "Design Team" {
		t.Fatalf("rename: %v %+v", err, renamed)
	}
	added, err := h.chans.AddMembers(ctx, child.ID, []string{"u1", "u2"})
	if err != nil || !added.HasMember("u1") || !added.HasMember("u2") {
		t.Fatalf("add: %v %+v", err, added)
	}
	removed, err := h.chans.RemoveMembers(ctx, child.ID, []string{"u1"})
	if err != nil || removed.HasMember("u1") || !removed.HasMember("u2") {
		t.Fatalf("remove: %v %+v", err, removed)
	}

	// u2 sees the child through membership, not the parent
	visible, err := h.chans.ListChannelsForUser(ctx, "u2")
	if err != nil {
		t.Fatal(err)
	}
	if len(visible) != 1 || visible[0].ID != child.ID {
		t.Errorf("u2 sees %d channels", len(visible))
	}
	all, _ := h.chans.ListChannelsForUser(ctx, "admin1")
	if len(all) != 2 {
		t.Errorf("admin sees %d channels, want 2", len(all))
	}

	n, err := h.chans.DeleteChannel(ctx, parent.ID)
	if err != nil || n != 2 {
		t.Fatalf("delete = %d, %v", n, err)
	}
	if _, err := h.chans.GetChannel(ctx, child.ID); !errors.Is(err, ErrChannelNotFound) {
		t.Errorf("child survived parent delete: %v", err)
	}
	if _, err := h.chans.DeleteChannel(ctx, parent.ID); !errors.Is(err, ErrChannelNotFound) {
		t.Errorf("second delete: %v", err)
	}
	if _, _, err := h.chans.CreateChannel(ctx, "admin1", CreateChannelInput{Name: "x", Parent: "nope"}); !errors.Is(err, ErrChannelNotFound) {
		t.Errorf("missing parent: %v", err)
	}
}

// flakyChannels fails updates for one department.
type flakyChannels struct {
	*repositories.MemoryChannelRepo
	failKey string
}

func (f flakyChannels) Update(ctx context.Context, ch *models.Channel) error {
	if ch.SyncKey == f.failKey {
		return errors.New("disk full")
	}
	return f.MemoryChannelRepo.Update(ctx, ch)
}

func TestSyncCountsFailuresAndContinues(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.chans.SyncDepartmentChannels(ctx)

	h.dir.Put(models.User{ID: "u5", Roles: []string{"Designer"}})
	h.dir.Put(models.User{ID: "u6", Roles: []string{"Developer"}})
	svc := NewChannelService(flakyChannels{h.channels, DepartmentKey("Designer")}, h.dir, h.events, DefaultSyncPolicy(), fastRetry(3))

	report, err := svc.SyncDepartmentChannels(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if report.Failed != 1 || report.Updated != 1 {
		t.Errorf("report = %+v", report)
	}
	dev, _ := h.channels.FindByKey(ctx, DepartmentKey("Developer"))
	if !dev.HasMember("u6") {
		t.Errorf("healthy department was not synced")
	}
}
