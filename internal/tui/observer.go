package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"isoflash/internal/app"
	"isoflash/internal/domain"
)

// Observer forwards flash events to a running program. Send is usually
// (*tea.Program).Send.
type Observer struct {
	Send func(tea.Msg)
}

func (o Observer) Phase(phase domain.Phase, err error) {
	o.send(PhaseMsg{Phase: phase, Err: err})
}

func (o Observer) Step(message string) {
	o.send(StepMsg{Text: message})
}

func (o Observer) Line(line string) {
	o.send(LineMsg{Line: line})
}

func (o Observer) Progress(p app.Progress) {
	o.send(ProgressMsg{Progress: p})
}

func (o Observer) send(msg tea.Msg) {
	if o.Send != nil {
		o.Send(msg)
	}
}
