package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/omarmustafa130/LoomAutomation/internal/services"
	"github.com/omarmustafa130/LoomAutomation/internal/shared"
	"github.com/urfave/cli/v3"
)

// Login saves a Loom session, either interactively through a visible browser
// or from the cookies of a cURL command copied out of the browser's dev tools.
func (r *Runner) Login(ctx context.Context, cmd *cli.Command) error {
	if err := r.loadConfig(cmd); err != nil {
		return err
	}

	if path := cmd.String("curl-file"); path != "" {
		return r.loginFromCurl(path)
	}

	browser, ok := r.loomBrowser(false).(loginBrowser)
	if !ok {
		return fmt.Errorf("%w: browser does not support interactive login", shared.ErrServiceUnavailable)
	}

	r.writePlain("A browser window will open on Loom. Sign in, then press Enter here to save the session.\n")
	n, err := browser.Login(ctx, r.waitForEnter)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	return r.writePlain("✓ Saved %d cookies to %s\n", n, r.config.Paths.Session)
}

func (r *Runner) loginFromCurl(path string) error {
	req, err := shared.ParseCurlFile(path)
	if err != nil {
		return err
	}

	cookies := req.Cookies(services.CookieDomain)
	if err := shared.SaveSession(r.config.Paths.Session, cookies); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	r.logger.Info("session imported from curl", "cookies", len(cookies), "file", r.config.Paths.Session)
	return r.writePlain("✓ Saved %d cookies to %s\n", len(cookies), r.config.Paths.Session)
}

// waitForEnter blocks until a line is read from the runner's input or ctx ends.
func (r *Runner) waitForEnter(ctx context.Context) error {
	read := make(chan error, 1)
	go func() {
		_, err := bufio.NewReader(r.input).ReadString('\n')
		read <- err
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-read:
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: input closed before confirmation", shared.ErrInvalidInput)
		}
		return err
	}
}

// Logout deletes the session file and the configuration file.
func (r *Runner) Logout(ctx context.Context, cmd *cli.Command) error {
	if err := r.loadConfig(cmd); err != nil {
		return err
	}

	if err := shared.RemoveFiles(r.config.Paths.Session, r.configPath); err != nil {
		return fmt.Errorf("failed to remove session: %w", err)
	}

	r.logger.Info("logged out", "session", r.config.Paths.Session, "config", r.configPath)
	return r.writePlain("✓ Logged out\n")
}
