package repositories

import (
	"context"
	"errors"
	"sync"
	"testing"

	"taskhub/models"
)

func TestMemoryTaskRepoCompareAndSwap(t *testing.T) {
	r := NewMemoryTaskRepo()
	ctx := context.Background()
	task := &models.Task{ProjectName: "P", TaskTitle: "T", Status: models.StatusPending}
	if err := r.Insert(ctx, task); err != nil {
		t.Fatal(err)
	}

	a, _ := r.Get(ctx, task.ID)
	b, _ := r.Get(ctx, task.ID)
	a.Status = models.StatusInProgress
	if err := r.Update(ctx, a); err != nil {
		t.Fatalf("first writer: %v", err)
	}
	b.Status = models.StatusHold
	if err := r.Update(ctx, b); !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("stale writer: expected ErrVersionConflict, got %v", err)
	}

	got, _ := r.Get(ctx, task.ID)
	if got.Status != models.StatusInProgress || got.Version != 2 {
		t.Errorf("stored %q v%d", got.Status, got.Version)
	}
	if err := r.Update(ctx, &models.Task{ID: "missing"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing: %v", err)
	}
}

func TestMemoryTaskRepoReturnsCopies(t *testing.T) {
	r := NewMemoryTaskRepo()
	ctx := context.Background()
	task := &models.Task{ProjectName: "P", TaskTitle: "T", AssignedTo: []string{"u1"}}
	r.Insert(ctx, task)

	got, _ := r.Get(ctx, task.ID)
	got.AssignedTo[0] = "intruder"
	again, _ := r.Get(ctx, task.ID)
	if again.AssignedTo[0] != "u1" {
		t.Errorf("caller mutation leaked into the store")
	}
}

func TestMemoryTaskRepoDuplicate(t *testing.T) {
	r := NewMemoryTaskRepo()
	ctx := context.Background()
	r.Insert(ctx, &models.Task{ProjectName: "P", TaskTitle: "T", Status: models.StatusCompleted})
	if err := r.Insert(ctx, &models.Task{ProjectName: "P", TaskTitle: "T", Status: models.StatusPending}); err != nil {
		t.Fatalf("completed tasks do not block: %v", err)
	}
	if err := r.Insert(ctx, &models.Task{ProjectName: "P", TaskTitle: "T"}); !errors.Is(err, ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}
}

func TestMemoryChannelFindOrCreateIsAtomic(t *testing.T) {
	r := NewMemoryChannelRepo()
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	created := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, c, err := r.FindOrCreate(ctx, &models.Channel{Name: "Design", SyncKey: "department:Design"})
			if err != nil {
				t.Error(err)
				return
			}
			if c {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	all, _ := r.List(ctx)
	if created != 1 || len(all) != 1 {
		t.Errorf("created %d, stored %d", created, len(all))
	}
	if err := r.Create(ctx, &models.Channel{SyncKey: "department:Design"}); !errors.Is(err, ErrDuplicate) {
		t.Errorf("Create with taken key: %v", err)
	}
}

func TestMemoryChannelDeleteCascades(t *testing.T) {
	r := NewMemoryChannelRepo()
	ctx := context.Background()
	parent := &models.Channel{Name: "parent"}
	r.Create(ctx, parent)
	r.Create(ctx, &models.Channel{Name: "a", Parent: parent.ID})
	r.Create(ctx, &models.Channel{Name: "b", Parent: parent.ID})
	other := &models.Channel{Name: "other"}
	r.Create(ctx, other)

	n, err := r.Delete(ctx, parent.ID)
	if err != nil || n != 3 {
		t.Fatalf("Delete = %d, %v", n, err)
	}
	all, _ := r.List(ctx)
	if len(all) != 1 || all[0].ID != other.ID {
		t.Errorf("remaining = %d", len(all))
	}
}

func TestMemoryWorkLogLatestForTask(t *testing.T) {
	r := NewMemoryWorkLogRepo()
	ctx := context.Background()
	main := &models.WorkLog{TaskID: "t1", LogType: models.LogTypeMainTask}
	rework := &models.WorkLog{TaskID: "t1", LogType: models.LogTypeRework}
	r.Create(ctx, rework)
	r.Create(ctx, main)

	got, err := r.LatestForTask(ctx, "t1", models.LogTypeRework)
	if err != nil || got.ID != rework.ID {
		t.Errorf("rework lookup = %v, %v", got, err)
	}
	got, err = r.LatestForTask(ctx, "t1", "")
	if err != nil || got.ID != main.ID {
		t.Errorf("any-type lookup returned %v, %v", got, err)
	}
	if _, err := r.LatestForTask(ctx, "t2", ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown task: %v", err)
	}
}
