package batch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"screenplay-wizard/internal/application/storytree"
	"screenplay-wizard/internal/domain/entity"
	apperrors "screenplay-wizard/pkg/errors"
)

type recordingObserver struct {
	mu        sync.Mutex
	started   int
	completed []Progress
	failed    []Progress
	finished  []*Outcome
}

func (o *recordingObserver) BatchStarted(context.Context, entity.BatchRecord) {
	o.mu.Lock()
	o.started++
	o.mu.Unlock()
}

func (o *recordingObserver) UnitCompleted(_ context.Context, p Progress) {
	o.mu.Lock()
	o.completed = append(o.completed, p)
	o.mu.Unlock()
}

func (o *recordingObserver) UnitFailed(_ context.Context, p Progress) {
	o.mu.Lock()
	o.failed = append(o.failed, p)
	o.mu.Unlock()
}

func (o *recordingObserver) BatchFinished(_ context.Context, out *Outcome) {
	o.mu.Lock()
	o.finished = append(o.finished, out)
	o.mu.Unlock()
}

// dialogueFixture 一幕三个场景的状态树
func dialogueFixture(t *testing.T, sceneCount int) (*storytree.Tree, []Unit) {
	t.Helper()
	tree := storytree.New(entity.NewProjectState("tester"))
	if err := tree.SetStructure([]storytree.ActEntry{{Key: "act_1", Act: entity.Act{Name: "Setup"}}}); err != nil {
		t.Fatalf("SetStructure: %v", err)
	}
	if _, err := tree.SetPlotPoints("act_1", []string{"beat"}); err != nil {
		t.Fatalf("SetPlotPoints: %v", err)
	}
	scenes := make([]entity.Scene, sceneCount)
	units := make([]Unit, sceneCount)
	for i := range scenes {
		scenes[i] = entity.Scene{Title: fmt.Sprintf("Scene %d", i)}
		units[i] = Unit{
			ActKey:     "act_1",
			SceneIndex: entity.IntPtr(i),
			Path:       fmt.Sprintf("Act 1 / Scene %d", i+1),
			Title:      scenes[i].Title,
		}
	}
	if err := tree.SetScenesForPlotPoint("act_1", 0, scenes); err != nil {
		t.Fatalf("SetScenesForPlotPoint: %v", err)
	}
	return tree, units
}

func mergeDialogue(tree *storytree.Tree) MergeFunc {
	return func(unit Unit, result any) (string, error) {
		text := result.(string)
		if err := tree.SetDialogue(entity.SceneID(unit.ActKey, *unit.SceneIndex), text); err != nil {
			return "", err
		}
		return text, nil
	}
}

func dialogueCount(tree *storytree.Tree) int {
	var n int
	tree.Read(func(state *entity.ProjectState) { n = len(state.Dialogue) })
	return n
}

func hasDialogue(tree *storytree.Tree, id string) bool {
	var ok bool
	tree.Read(func(state *entity.ProjectState) { _, ok = state.Dialogue[id] })
	return ok
}

func TestDriverOrderingObservesOnlyEarlierUnits(t *testing.T) {
	tree, units := dialogueFixture(t, 5)
	driver := NewDriver(nil)

	job := Job{
		Level:  entity.LevelDialogue,
		Label:  "All dialogue",
		Units:  units,
		Policy: entity.PolicyAbort,
		Generate: func(_ context.Context, unit Unit) (any, error) {
			i := *unit.SceneIndex
			for j := range units {
				present := hasDialogue(tree, entity.SceneID("act_1", j))
				if j < i && !present {
					return nil, fmt.Errorf("unit %d did not observe unit %d", i, j)
				}
				if j >= i && present {
					return nil, fmt.Errorf("unit %d observed future unit %d", i, j)
				}
			}
			return fmt.Sprintf("dialogue %d", i), nil
		},
		Merge: mergeDialogue(tree),
	}

	outcome, err := driver.Run(context.Background(), job)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcome.Status != entity.BatchStatusCompleted {
		t.Fatalf("expected completed, got %s (%v)", outcome.Status, outcome.Err)
	}
	if outcome.Succeeded != 5 {
		t.Fatalf("expected 5 succeeded, got %d", outcome.Succeeded)
	}
}

func TestDriverCancellationAfterSecondUnit(t *testing.T) {
	tree, units := dialogueFixture(t, 5)
	obs := &recordingObserver{}
	driver := NewDriver(obs)

	secondMerged := make(chan struct{})
	job := Job{
		Level:  entity.LevelDialogue,
		Label:  "All dialogue",
		Units:  units,
		Policy: entity.PolicyAbort,
		Generate: func(ctx context.Context, unit Unit) (any, error) {
			if *unit.SceneIndex >= 2 {
				<-ctx.Done()
				return nil, ctx.Err()
			}
			return "text", nil
		},
		Merge: func(unit Unit, result any) (string, error) {
			preview, err := mergeDialogue(tree)(unit, result)
			if *unit.SceneIndex == 1 {
				close(secondMerged)
			}
			return preview, err
		},
	}

	h, err := driver.Start(context.Background(), job)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	select {
	case <-secondMerged:
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for second unit")
	}
	h.Cancel()
	outcome := h.Wait()

	if outcome.Status != entity.BatchStatusCancelled {
		t.Fatalf("expected cancelled, got %s", outcome.Status)
	}
	if outcome.Err != nil {
		t.Fatalf("expected no error on cancellation, got %v", outcome.Err)
	}
	if got := dialogueCount(tree); got != 2 {
		t.Fatalf("expected exactly 2 merged units, got %d", got)
	}
	obs.mu.Lock()
	defer obs.mu.Unlock()
	if len(obs.failed) != 0 {
		t.Fatalf("expected no failure events, got %d", len(obs.failed))
	}
	if len(obs.completed) != 2 {
		t.Fatalf("expected 2 completed events, got %d", len(obs.completed))
	}
	if rec := h.Record(); rec.Status != entity.BatchStatusCancelled || rec.CompletedAt == nil {
		t.Fatalf("unexpected record after cancel: %+v", rec)
	}
}

func TestDriverDiscardsResultReturnedAfterCancel(t *testing.T) {
	tree, units := dialogueFixture(t, 2)
	driver := NewDriver(nil)

	inFlight := make(chan struct{})
	release := make(chan struct{})
	job := Job{
		Level: entity.LevelDialogue,
		Label: "All dialogue",
		Units: units,
		Generate: func(ctx context.Context, unit Unit) (any, error) {
			close(inFlight)
			<-release
			// 传输层忽略了取消并返回了结果
			return "late", nil
		},
		Merge: mergeDialogue(tree),
	}
	h, err := driver.Start(context.Background(), job)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	<-inFlight
	h.Cancel()
	close(release)

	if outcome := h.Wait(); outcome.Status != entity.BatchStatusCancelled {
		t.Fatalf("expected cancelled, got %s", outcome.Status)
	}
	if got := dialogueCount(tree); got != 0 {
		t.Fatalf("expected late result to be discarded, got %d dialogue entries", got)
	}
}

func failingDialogueJob(tree *storytree.Tree, units []Unit, policy entity.FailurePolicy) Job {
	return Job{
		Level:  entity.LevelDialogue,
		Label:  "Dialogue",
		Units:  units,
		Policy: policy,
		Generate: func(_ context.Context, unit Unit) (any, error) {
			if *unit.SceneIndex == 2 {
				return nil, apperrors.New(apperrors.CodeGenerationFailed, "rate limited")
			}
			return "INT. KITCHEN - NIGHT", nil
		},
		Merge: mergeDialogue(tree),
	}
}

func TestDriverAbortPolicyScenarioB(t *testing.T) {
	tree, units := dialogueFixture(t, 3)
	obs := &recordingObserver{}
	driver := NewDriver(obs)

	outcome, err := driver.Run(context.Background(), failingDialogueJob(tree, units, entity.PolicyAbort))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcome.Status != entity.BatchStatusAborted {
		t.Fatalf("expected aborted, got %s", outcome.Status)
	}
	if !hasDialogue(tree, "act_1-0") || !hasDialogue(tree, "act_1-1") || hasDialogue(tree, "act_1-2") {
		t.Fatalf("expected only units 0 and 1 merged")
	}
	if outcome.Err == nil {
		t.Fatalf("expected a single surfaced error")
	}
	msg := outcome.Summary()
	if !strings.Contains(msg, `"Scene 2"`) || !strings.Contains(msg, "rate limited") {
		t.Fatalf("expected error naming Scene 2 with server message, got %q", msg)
	}
	if !apperrors.HasCode(outcome.Err, apperrors.CodeGenerationFailed) {
		t.Fatalf("expected generation failed code, got %v", outcome.Err)
	}
	obs.mu.Lock()
	defer obs.mu.Unlock()
	if len(obs.failed) != 1 || len(obs.finished) != 1 {
		t.Fatalf("expected one failure and one finish event, got %d/%d", len(obs.failed), len(obs.finished))
	}
}

func TestDriverCollectPolicyScenarioC(t *testing.T) {
	tree, units := dialogueFixture(t, 3)
	// 失败单元放在中间，验证批次继续执行
	units[1], units[2] = units[2], units[1]
	driver := NewDriver(nil)

	outcome, err := driver.Run(context.Background(), failingDialogueJob(tree, units, entity.PolicyCollect))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcome.Status != entity.BatchStatusCompleted {
		t.Fatalf("expected completed, got %s", outcome.Status)
	}
	if outcome.Succeeded != 2 || outcome.Total != 3 {
		t.Fatalf("expected 2/3, got %d/%d", outcome.Succeeded, outcome.Total)
	}
	if len(outcome.Failures) != 1 || outcome.Failures[0].Title != "Scene 2" {
		t.Fatalf("expected one failure for Scene 2, got %+v", outcome.Failures)
	}
	if outcome.Failures[0].Error != "rate limited" {
		t.Fatalf("expected server message recorded, got %q", outcome.Failures[0].Error)
	}
	if !strings.Contains(outcome.Summary(), "2/3") {
		t.Fatalf("expected summary to contain 2/3, got %q", outcome.Summary())
	}
	if outcome.Err != nil {
		t.Fatalf("expected no batch error under collect policy, got %v", outcome.Err)
	}
}

func TestDriverRejectsOverlappingBatches(t *testing.T) {
	driver := NewDriver(nil)
	release := make(chan struct{})
	job := Job{
		Level: entity.LevelScenes,
		Label: "All scenes",
		Units: []Unit{{ActKey: "act_1", Title: "one"}},
		Generate: func(ctx context.Context, _ Unit) (any, error) {
			<-release
			return nil, nil
		},
		Merge: func(Unit, any) (string, error) { return "", nil },
	}

	h, err := driver.Start(context.Background(), job)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := driver.Start(context.Background(), job); !errors.Is(err, apperrors.ErrBatchRunning) {
		t.Fatalf("expected batch running conflict, got %v", err)
	}
	if driver.Current() != h {
		t.Fatalf("expected first batch to stay current")
	}
	close(release)
	h.Wait()

	if driver.Current() != nil {
		t.Fatalf("expected no current batch after completion")
	}
	if driver.Last() != h {
		t.Fatalf("expected last batch to be recorded")
	}
	h2, err := driver.Start(context.Background(), Job{
		Level:    entity.LevelScenes,
		Label:    "again",
		Units:    job.Units,
		Generate: func(context.Context, Unit) (any, error) { return nil, nil },
		Merge:    job.Merge,
	})
	if err != nil {
		t.Fatalf("expected new batch to start after the first finished, got %v", err)
	}
	h2.Wait()
}

func TestDriverRejectsEmptyBatch(t *testing.T) {
	driver := NewDriver(nil)
	_, err := driver.Start(context.Background(), Job{
		Label:    "nothing",
		Generate: func(context.Context, Unit) (any, error) { return nil, nil },
		Merge:    func(Unit, any) (string, error) { return "", nil },
	})
	if !errors.Is(err, apperrors.ErrNothingToGenerate) {
		t.Fatalf("expected nothing to generate, got %v", err)
	}
}

func TestDriverFinishRunsBeforeRelease(t *testing.T) {
	driver := NewDriver(nil)
	var finished *Outcome
	job := Job{
		Level:    entity.LevelPlotPoints,
		Label:    "Plot points",
		Units:    []Unit{{ActKey: "act_1", Title: "Act 1"}},
		Generate: func(context.Context, Unit) (any, error) { return []string{"a"}, nil },
		Merge:    func(Unit, any) (string, error) { return "a", nil },
		Finish: func(ctx context.Context, outcome *Outcome) {
			if ctx.Err() != nil {
				t.Errorf("expected finish context to be live")
			}
			finished = outcome
		},
	}
	outcome, err := driver.Run(context.Background(), job)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if finished != outcome {
		t.Fatalf("expected finish hook to receive the final outcome")
	}
}

func TestDriverPanicAborts(t *testing.T) {
	driver := NewDriver(nil)
	outcome, err := driver.Run(context.Background(), Job{
		Level:    entity.LevelScenes,
		Label:    "boom",
		Units:    []Unit{{Title: "x"}},
		Generate: func(context.Context, Unit) (any, error) { panic("bad response") },
		Merge:    func(Unit, any) (string, error) { return "", nil },
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcome.Status != entity.BatchStatusAborted || outcome.Err == nil {
		t.Fatalf("expected aborted with error, got %s %v", outcome.Status, outcome.Err)
	}
	if driver.Current() != nil {
		t.Fatalf("expected driver to release the batch lock after panic")
	}
}
