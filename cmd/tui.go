package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/omarmustafa130/LoomAutomation/internal/events"
	"github.com/omarmustafa130/LoomAutomation/internal/shared"
	"github.com/omarmustafa130/LoomAutomation/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive pipeline dashboard.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	if err := r.loadConfig(cmd); err != nil {
		return err
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(r.config.Paths.LogFile)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	ledger, err := r.openLedger(ctx)
	if err != nil {
		return err
	}
	defer ledger.Close()

	records, err := ledger.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list ledger: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ch := events.NewChannel()
	defer ch.Close()
	controller := r.newController(ledger, ch)

	model := ui.NewModel(ctx, ui.ModelOpts{
		Controller: controller,
		Source:     ch,
		Records:    records,
	})
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	_, runErr := p.Run()

	controller.Pause()
	cancel()
	controller.Wait()

	config := controller.Config()
	if err := r.saveConfig(&config); err != nil {
		r.logger.Warn("failed to save config on exit", "error", err)
	}

	if runErr != nil {
		return fmt.Errorf("error running TUI: %w", runErr)
	}
	return nil
}
