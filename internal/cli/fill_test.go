package cli

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-iform/pkg/tui"
)

// cannedDriver answers prompts from fixed lists and records the questions.
type cannedDriver struct {
	inputs   []string
	confirms []bool
	asked    []string
	infos    []string
}

func (d *cannedDriver) Input(_ context.Context, cfg tui.InputConfig) (string, error) {
	d.asked = append(d.asked, cfg.Message)
	for len(d.inputs) > 0 {
		v := d.inputs[0]
		d.inputs = d.inputs[1:]
		if cfg.Validator == nil || cfg.Validator(v) == nil {
			return v, nil
		}
	}
	return "", tui.ErrAborted
}

func (d *cannedDriver) Confirm(_ context.Context, cfg tui.ConfirmConfig) (bool, error) {
	d.asked = append(d.asked, cfg.Message)
	if len(d.confirms) == 0 {
		return false, errors.New("no confirm scripted")
	}
	v := d.confirms[0]
	d.confirms = d.confirms[1:]
	return v, nil
}

func (d *cannedDriver) Select(context.Context, tui.SelectConfig) (int, error) {
	return -1, errors.New("no select scripted")
}

func (d *cannedDriver) TextArea(context.Context, tui.TextAreaConfig) (string, error) {
	return "", errors.New("no text scripted")
}

func (d *cannedDriver) Info(_ context.Context, msg string) error {
	d.infos = append(d.infos, msg)
	return nil
}

const memoryConfig = `bridge:
  driver: memory
  tables:
    - name: contacts
      columns: [name, age, active]
`

func runFillWith(t *testing.T, driver tui.PromptDriver, args ...string) (string, error) {
	t.Helper()
	dir := t.TempDir()
	form := writeFile(t, dir, "contact.iform", contactForm)
	cfg := writeFile(t, dir, "iform.yaml", memoryConfig)

	cmd := NewFillCommand(nil)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetContext(context.Background())
	require.NoError(t, cmd.ParseFlags(args))

	opts := &FillOptions{Attempts: tui.DefaultAttempts, driver: driver}
	opts.Record, _ = cmd.Flags().GetString("record")
	err := runFill(&RootOptions{ConfigPath: cfg}, opts, cmd, form)
	return out.String(), err
}

func TestFill_CreatesRecord(t *testing.T) {
	driver := &cannedDriver{
		inputs:   []string{"J", "Jane", "-3", "41"},
		confirms: []bool{true},
	}
	out, err := runFillWith(t, driver)
	require.NoError(t, err)
	assert.Equal(t, "created record 1\n", out)
	assert.Equal(t, []string{"Name *", "Age", "Active"}, driver.asked)
	assert.Equal(t, []string{"Contact"}, driver.infos)
}

func TestFill_Aborted(t *testing.T) {
	_, err := runFillWith(t, &cannedDriver{})
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "aborted")
}

func TestFill_MissingRecord(t *testing.T) {
	_, err := runFillWith(t, &cannedDriver{}, "--record", "99")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "load record")
}

func TestRecordID(t *testing.T) {
	assert.Equal(t, int64(42), recordID("42"))
	assert.Equal(t, "EMP-7", recordID("EMP-7"))
}
