package tui

import (
	"context"

	"github.com/goliatone/go-iform/pkg/renderer"
)

// Confirmer answers the renderer's yes/no questions (close with unsaved
// changes, action confirmations) through a prompt driver.
type Confirmer struct {
	driver PromptDriver
}

var _ renderer.Confirmer = (*Confirmer)(nil)

func NewConfirmer(driver PromptDriver) *Confirmer {
	if driver == nil {
		driver = NewSurveyDriver()
	}
	return &Confirmer{driver: driver}
}

func (c *Confirmer) Confirm(ctx context.Context, message string) (bool, error) {
	return c.driver.Confirm(ctx, ConfirmConfig{Message: message})
}
