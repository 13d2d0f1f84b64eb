package wizard

import (
	"context"
	"sync"
	"testing"
	"time"

	"screenplay-wizard/internal/domain/entity"
	"screenplay-wizard/internal/domain/service"
	apperrors "screenplay-wizard/pkg/errors"
)

type fakeStore struct {
	mu       sync.Mutex
	projects map[string]*entity.ProjectState
	saves    int
	edits    []string
	loadErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{projects: make(map[string]*entity.ProjectState)}
}

func (s *fakeStore) Load(_ context.Context, _, projectPath string) (*entity.ProjectState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	state, ok := s.projects[projectPath]
	if !ok {
		return nil, apperrors.ErrProjectNotFound.WithDetail(projectPath)
	}
	return state.Clone(), nil
}

func (s *fakeStore) Save(_ context.Context, _ string, state *entity.ProjectState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	s.projects[state.ProjectPath] = state.Clone()
	return nil
}

func (s *fakeStore) List(context.Context, string) ([]entity.ProjectSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var list []entity.ProjectSummary
	for _, p := range s.projects {
		list = append(list, p.Summary())
	}
	return list, nil
}

func (s *fakeStore) Delete(_ context.Context, _, projectPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[projectPath]; !ok {
		return apperrors.ErrProjectNotFound.WithDetail(projectPath)
	}
	delete(s.projects, projectPath)
	return nil
}

func (s *fakeStore) Duplicate(_ context.Context, _, sourcePath, newTitle string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	src, ok := s.projects[sourcePath]
	if !ok {
		return "", apperrors.ErrProjectNotFound.WithDetail(sourcePath)
	}
	cp := src.Clone()
	cp.ProjectPath = entity.NewProjectPath(newTitle)
	cp.StoryInput.Title = newTitle
	s.projects[cp.ProjectPath] = cp
	return cp.ProjectPath, nil
}

func (s *fakeStore) edit(what string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.edits = append(s.edits, what)
	return nil
}

func (s *fakeStore) EditAct(_ context.Context, _, _, actKey string, _ entity.Act) error {
	return s.edit("act:" + actKey)
}

func (s *fakeStore) EditPlotPoint(_ context.Context, _, _, actKey string, _ int, _ string) error {
	return s.edit("plot_point:" + actKey)
}

func (s *fakeStore) EditScene(_ context.Context, _, _, actKey string, index int, _ entity.Scene) error {
	return s.edit("scene:" + entity.SceneID(actKey, index))
}

func (s *fakeStore) EditDialogue(_ context.Context, _, _, sceneID, _ string) error {
	return s.edit("dialogue:" + sceneID)
}

func (s *fakeStore) saveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

type fakeMirror struct {
	mu      sync.Mutex
	state   *entity.ProjectState
	cleared int
}

func (m *fakeMirror) Get(context.Context, string) (*entity.ProjectState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Clone(), nil
}

func (m *fakeMirror) Put(_ context.Context, _ string, state *entity.ProjectState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = state.Clone()
	return nil
}

func (m *fakeMirror) Clear(context.Context, string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = nil
	m.cleared++
	return nil
}

type fakeGenerator struct {
	mu    sync.Mutex
	calls []string

	structure  func(req service.StructureRequest) (*service.StructureResult, error)
	plotPoints func(req service.PlotPointsRequest) ([]string, error)
	scenesPP   func(req service.ScenesForPlotPointRequest) ([]entity.Scene, error)
	scenesAct  func(req service.ScenesForActRequest) ([]service.PlotPointScenes, error)
	dialogue   func(ctx context.Context, req service.DialogueRequest) (string, error)
}

func (g *fakeGenerator) record(call string) {
	g.mu.Lock()
	g.calls = append(g.calls, call)
	g.mu.Unlock()
}

func (g *fakeGenerator) Calls() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.calls...)
}

func (g *fakeGenerator) GenerateStructure(_ context.Context, req service.StructureRequest) (*service.StructureResult, error) {
	g.record("structure")
	return g.structure(req)
}

func (g *fakeGenerator) GeneratePlotPoints(_ context.Context, req service.PlotPointsRequest) ([]string, error) {
	g.record("plot_points:" + req.ActKey)
	return g.plotPoints(req)
}

func (g *fakeGenerator) GenerateScenesForPlotPoint(_ context.Context, req service.ScenesForPlotPointRequest) ([]entity.Scene, error) {
	g.record("scenes_pp:" + req.ActKey)
	return g.scenesPP(req)
}

func (g *fakeGenerator) GenerateScenesForAct(_ context.Context, req service.ScenesForActRequest) ([]service.PlotPointScenes, error) {
	g.record("scenes_act:" + req.ActKey)
	return g.scenesAct(req)
}

func (g *fakeGenerator) GenerateDialogue(ctx context.Context, req service.DialogueRequest) (string, error) {
	g.record("dialogue:" + req.SceneID)
	return g.dialogue(ctx, req)
}

type fakeCredits struct {
	mu        sync.Mutex
	balance   int64
	refreshes int
}

func (c *fakeCredits) CanAfford(_ context.Context, cost int64) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.balance >= cost, nil
}

func (c *fakeCredits) RefreshAfterOperation(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refreshes++
	return nil
}

func (c *fakeCredits) refreshCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshes
}

type fakeAuth struct{ ok bool }

func (a fakeAuth) IsAuthenticated(context.Context) (bool, error) { return a.ok, nil }

type fakeTemplates map[string]*entity.Template

func (f fakeTemplates) Get(id string) (*entity.Template, error) {
	t, ok := f[id]
	if !ok {
		return nil, apperrors.ErrTemplateMissing.WithDetail(id)
	}
	return t.Clone(), nil
}

func (f fakeTemplates) List() []*entity.Template {
	var list []*entity.Template
	for _, t := range f {
		list = append(list, t.Clone())
	}
	return list
}

// nonLinear 倒叙模板：声明顺序 present, past；时间线顺序 past, present
func nonLinear() *entity.Template {
	return &entity.Template{
		ID:   "in-medias-res",
		Name: "In Medias Res",
		Acts: []entity.TemplateAct{
			{Key: "present", Name: "Present", ChronologicalOrder: 2, Weight: 1},
			{Key: "past", Name: "Past", ChronologicalOrder: 1, Weight: 1},
		},
	}
}

type harness struct {
	c       *Coordinator
	store   *fakeStore
	mirror  *fakeMirror
	gen     *fakeGenerator
	credits *fakeCredits
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		store:   newFakeStore(),
		mirror:  &fakeMirror{},
		gen:     &fakeGenerator{},
		credits: &fakeCredits{balance: 1000},
	}
	h.c = New(Config{
		Username:     "writer",
		DefaultModel: "test-model",
		UnitCosts: map[entity.GenerationLevel]int64{
			entity.LevelStructure:  5,
			entity.LevelPlotPoints: 3,
			entity.LevelScenes:     2,
			entity.LevelDialogue:   1,
		},
		AutosaveDebounce:       time.Hour,
		DefaultPlotPointBudget: 6,
	}, Deps{
		Store:     h.store,
		Mirror:    h.mirror,
		Generator: h.gen,
		Credits:   h.credits,
		Auth:      fakeAuth{ok: true},
		Templates: fakeTemplates{"in-medias-res": nonLinear()},
	})
	t.Cleanup(func() { _ = h.c.Close(context.Background()) })
	return h
}

// seed 直接装载状态，跳过存储
func (h *harness) seed(state *entity.ProjectState) {
	state.Normalize()
	h.c.tree.Replace(state)
}

// dialogueProject 一幕一个剧情点，n 个场景都属于该剧情点
func dialogueProject(n int) *entity.ProjectState {
	state := entity.NewProjectState("writer")
	state.ProjectPath = "film-1"
	state.StoryInput.Title = "Film"
	state.Structure["act_1"] = entity.Act{Name: "Setup"}
	state.StructureOrder = []string{"act_1"}
	state.PlotPoints["act_1"] = []string{"Hero leaves home"}
	for i := 0; i < n; i++ {
		state.Scenes["act_1"] = append(state.Scenes["act_1"], entity.Scene{
			Title:          "Scene " + string(rune('A'+i)),
			Location:       "kitchen",
			TimeOfDay:      "night",
			PlotPointIndex: entity.IntPtr(0),
		})
	}
	return state
}
