package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"orlint/internal/driver"
	"orlint/internal/ui"
)

type uiMode string

const (
	uiModeAuto uiMode = "auto"
	uiModeOn   uiMode = "on"
	uiModeOff  uiMode = "off"
)

func readUIMode(value string) (uiMode, error) {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "", "auto":
		return uiModeAuto, nil
	case "on":
		return uiModeOn, nil
	case "off":
		return uiModeOff, nil
	default:
		return "", fmt.Errorf("invalid --progress value %q (expected auto|on|off)", value)
	}
}

func shouldUseTUI(mode uiMode) bool {
	switch mode {
	case uiModeOn:
		return true
	case uiModeOff:
		return false
	default:
		return isTerminal(os.Stderr)
	}
}

type outcome[T any] struct {
	result T
	err    error
}

// runWithUI runs fn with a progress sink feeding a Bubble Tea view on
// stderr. Quitting the view cancels the run.
func runWithUI[T any](ctx context.Context, title string, files []string, fn func(context.Context, driver.ProgressSink) (T, error)) (T, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := make(chan driver.Event, 256)
	outcomeCh := make(chan outcome[T], 1)
	go func() {
		res, err := fn(ctx, driver.ChannelSink{Ch: events})
		close(events)
		outcomeCh <- outcome[T]{result: res, err: err}
	}()

	model := ui.NewProgressModel(title, files, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stderr), tea.WithContext(ctx))
	_, uiErr := program.Run()
	// обычный выход модели бывает только после закрытия events, то есть после
	// возврата fn; иначе пользователь прервал просмотр
	cancel()
	// модель могла выйти раньше (ctrl+c): дочитываем события, чтобы воркеры не встали
	go func() {
		for range events {
		}
	}()
	out := <-outcomeCh
	if uiErr != nil && out.err == nil {
		return out.result, uiErr
	}
	return out.result, out.err
}
