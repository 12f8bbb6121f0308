package tui_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-iform/pkg/bridge"
	"github.com/goliatone/go-iform/pkg/bridge/memory"
	"github.com/goliatone/go-iform/pkg/eventloop"
	"github.com/goliatone/go-iform/pkg/renderer"
	"github.com/goliatone/go-iform/pkg/testsupport"
	"github.com/goliatone/go-iform/pkg/tui"
	"github.com/goliatone/go-iform/pkg/widgets/headless"
)

// scriptDriver replays canned answers. Inputs rejected by the prompt's
// validator are recorded and the next scripted input is used, the way survey
// re-asks.
type scriptDriver struct {
	inputs    []string
	confirms  []bool
	selects   []int
	textAreas []string

	asked    []string
	rejected []string
	infos    []string
}

func (s *scriptDriver) Input(_ context.Context, cfg tui.InputConfig) (string, error) {
	s.asked = append(s.asked, cfg.Message)
	for len(s.inputs) > 0 {
		val := s.inputs[0]
		s.inputs = s.inputs[1:]
		if cfg.Validator != nil {
			if err := cfg.Validator(val); err != nil {
				s.rejected = append(s.rejected, err.Error())
				continue
			}
		}
		return val, nil
	}
	return "", errors.New("no input scripted for " + cfg.Message)
}

func (s *scriptDriver) Confirm(_ context.Context, cfg tui.ConfirmConfig) (bool, error) {
	s.asked = append(s.asked, cfg.Message)
	if len(s.confirms) == 0 {
		return false, errors.New("no confirm scripted for " + cfg.Message)
	}
	val := s.confirms[0]
	s.confirms = s.confirms[1:]
	return val, nil
}

func (s *scriptDriver) Select(_ context.Context, cfg tui.SelectConfig) (int, error) {
	s.asked = append(s.asked, cfg.Message)
	if len(s.selects) == 0 {
		return -1, errors.New("no select scripted for " + cfg.Message)
	}
	val := s.selects[0]
	s.selects = s.selects[1:]
	return val, nil
}

func (s *scriptDriver) TextArea(_ context.Context, cfg tui.TextAreaConfig) (string, error) {
	s.asked = append(s.asked, cfg.Message)
	if len(s.textAreas) == 0 {
		return "", errors.New("no text scripted for " + cfg.Message)
	}
	val := s.textAreas[0]
	s.textAreas = s.textAreas[1:]
	return val, nil
}

func (s *scriptDriver) Info(_ context.Context, msg string) error {
	s.infos = append(s.infos, msg)
	return nil
}

type fixture struct {
	r     *renderer.Renderer
	store *memory.Bridge
	pump  func()
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	allow := bridge.MustAllowList(
		bridge.Table{Name: "employees", Columns: []string{"code", "full_name", "status", "is_manager", "notes", "team_size", "email", "phone"}},
		bridge.Table{Name: "statuses", Columns: []string{"name"}},
	)
	store := memory.New(allow)
	require.NoError(t, store.Seed("statuses",
		bridge.Record{"id": 1, "name": "Active"},
		bridge.Record{"id": 2, "name": "Suspended"},
	))
	loop := eventloop.NewQueue()
	exec := &eventloop.Manual{}
	r := renderer.New(headless.New(),
		renderer.WithBridge(store),
		renderer.WithExecutor(exec),
		renderer.WithDispatcher(loop),
	)
	require.NoError(t, r.LoadForm(context.Background(), []byte(testsupport.EmployeeForm)))
	pump := func() {
		for exec.Run()+loop.Flush() > 0 {
		}
	}
	pump()
	return &fixture{r: r, store: store, pump: pump}
}

func TestSession_FillsAndSaves(t *testing.T) {
	f := newFixture(t)
	driver := &scriptDriver{
		inputs:    []string{"emp-1", "EMP-0001", "Jane Doe", "5", "jane@example.com", ""},
		selects:   []int{1},
		confirms:  []bool{true},
		textAreas: []string{"Joined in spring"},
	}
	s, err := tui.NewSession(f.r, tui.WithDriver(driver), tui.WithPump(f.pump))
	require.NoError(t, err)

	res, err := s.Run(context.Background())
	require.NoError(t, err)
	require.NoError(t, res.Err)
	assert.True(t, res.Saved.Created)

	assert.Equal(t, []string{"Code must look like EMP-0000"}, driver.rejected)
	assert.Equal(t, []string{
		"Employee code *", "Full name *", "Status *", "Manager", "Notes", "Team size", "Email", "Phone",
	}, driver.asked, "team size is asked once the manager answer shows its section")

	rows := f.store.Rows("employees")
	require.Len(t, rows, 1)
	assert.Equal(t, "EMP-0001", rows[0]["code"])
	assert.Equal(t, int64(5), rows[0]["team_size"])
	assert.Equal(t, true, rows[0]["is_manager"])
}

func TestSession_SkipsHiddenSection(t *testing.T) {
	f := newFixture(t)
	driver := &scriptDriver{
		inputs:    []string{"EMP-0002", "John Roe", "", ""},
		selects:   []int{0},
		confirms:  []bool{false},
		textAreas: []string{""},
	}
	s, err := tui.NewSession(f.r, tui.WithDriver(driver), tui.WithPump(f.pump))
	require.NoError(t, err)
	require.NoError(t, s.Fill(context.Background()))
	assert.NotContains(t, driver.asked, "Team size")
}

func TestSession_ReasksFieldsThatFailOnSave(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Seed("employees", bridge.Record{"id": 40, "code": "EMP-0040", "email": "jane@example.com"}))

	driver := &scriptDriver{
		inputs:    []string{"EMP-0001", "Jane Doe", "jane@example.com", "", "jane.doe@example.com"},
		selects:   []int{0},
		confirms:  []bool{false},
		textAreas: []string{""},
	}
	s, err := tui.NewSession(f.r, tui.WithDriver(driver), tui.WithPump(f.pump))
	require.NoError(t, err)

	res, err := s.Run(context.Background())
	require.NoError(t, err)
	require.NoError(t, res.Err)
	assert.Equal(t, "Email", driver.asked[len(driver.asked)-1], "only the failing field is asked again")
	require.NotEmpty(t, driver.infos)
	assert.Contains(t, driver.infos[len(driver.infos)-1], "Email: ")
	assert.Len(t, f.store.Rows("employees"), 2)
}

func TestSession_GivesUpAfterAttempts(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Seed("employees", bridge.Record{"id": 40, "email": "taken@example.com"}))

	driver := &scriptDriver{
		inputs:    []string{"EMP-0001", "Jane Doe", "taken@example.com", "", "taken@example.com"},
		selects:   []int{0},
		confirms:  []bool{false},
		textAreas: []string{""},
	}
	s, err := tui.NewSession(f.r, tui.WithDriver(driver), tui.WithPump(f.pump), tui.WithAttempts(2))
	require.NoError(t, err)

	res, err := s.Run(context.Background())
	assert.ErrorIs(t, err, tui.ErrGaveUp)
	assert.ErrorIs(t, res.Err, renderer.ErrInvalid)
	assert.Zero(t, f.store.Calls("save"), "an invalid form never reaches the bridge")
}

func TestSession_WithoutPumpReportsIncomplete(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.r.SetData(map[string]any{"employee_code": "EMP-0001", "full_name": "Jane Doe", "status": 1}))
	s, err := tui.NewSession(f.r, tui.WithDriver(&scriptDriver{}))
	require.NoError(t, err)
	_, err = s.Submit(context.Background())
	assert.ErrorIs(t, err, tui.ErrIncomplete)
}

func TestConfirmer_UsesDriver(t *testing.T) {
	driver := &scriptDriver{confirms: []bool{true}}
	ok, err := tui.NewConfirmer(driver).Confirm(context.Background(), "Discard changes?")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"Discard changes?"}, driver.asked)
}

func TestNewSession_RequiresForm(t *testing.T) {
	_, err := tui.NewSession(renderer.New(headless.New()))
	assert.ErrorIs(t, err, renderer.ErrNoForm)
}

func TestSurveyDriver_NoTerminalNeeded(t *testing.T) {
	d := tui.NewSurveyDriver(tui.WithPageSize(5))

	if _, err := d.Select(context.Background(), tui.SelectConfig{Message: "Status"}); err == nil {
		t.Fatal("expected an error for a select without choices")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := d.Input(ctx, tui.InputConfig{Message: "Name"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if err := d.Info(ctx, "hello"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
