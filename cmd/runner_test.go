package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/omarmustafa130/LoomAutomation/internal/events"
	"github.com/omarmustafa130/LoomAutomation/internal/formatter"
	"github.com/omarmustafa130/LoomAutomation/internal/models"
	"github.com/omarmustafa130/LoomAutomation/internal/repositories"
	"github.com/omarmustafa130/LoomAutomation/internal/services"
	"github.com/omarmustafa130/LoomAutomation/internal/shared"
	"github.com/omarmustafa130/LoomAutomation/internal/tasks"
	tu "github.com/omarmustafa130/LoomAutomation/internal/testing"
	"github.com/urfave/cli/v3"
)

type cliFixture struct {
	dir        string
	configPath string
	config     *shared.Config
	output     *bytes.Buffer
}

// setupCLI writes a config whose paths all live in a temp dir.
func setupCLI(t *testing.T, loggedIn bool) *cliFixture {
	t.Helper()
	dir := t.TempDir()

	config := shared.DefaultConfig()
	config.Paths.StagingDir = filepath.Join(dir, "downloads")
	config.Paths.Ledger = filepath.Join(dir, "loomops.db")
	config.Paths.Session = filepath.Join(dir, "cookies.json")
	config.Paths.LogFile = filepath.Join(dir, "loomops.log")

	configPath := filepath.Join(dir, "loomops.toml")
	if err := shared.SaveConfig(configPath, config); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	if err := os.MkdirAll(config.Paths.StagingDir, 0755); err != nil {
		t.Fatal(err)
	}

	if loggedIn {
		cookies := []shared.Cookie{{Name: "connect.sid", Value: "1", Domain: services.CookieDomain, Path: "/"}}
		if err := shared.SaveSession(config.Paths.Session, cookies); err != nil {
			t.Fatal(err)
		}
	}

	return &cliFixture{dir: dir, configPath: configPath, config: config, output: &bytes.Buffer{}}
}

func (f *cliFixture) runner(opts RunnerOpts) *Runner {
	opts.Output = f.output
	opts.Logger = shared.NewLogger(io.Discard)
	if opts.Clock == nil {
		opts.Clock = tu.NewFakeClock()
	}
	return NewRunner(opts)
}

// run executes one subcommand; flags go right after the command name.
func (f *cliFixture) run(t *testing.T, r *Runner, name string, args ...string) error {
	t.Helper()
	return f.runContext(t, context.Background(), r, name, args...)
}

func (f *cliFixture) runContext(t *testing.T, ctx context.Context, r *Runner, name string, args ...string) error {
	t.Helper()
	argv := []string{"loomops"}
	argv = append(argv, strings.Fields(name)...)
	argv = append(argv, "--config", f.configPath)
	argv = append(argv, args...)

	app := &cli.Command{Name: "loomops", Commands: r.register()}
	return app.Run(ctx, argv)
}

func (f *cliFixture) stage(t *testing.T, name, content string) {
	t.Helper()
	tu.WriteFile(t, filepath.Join(f.config.Paths.StagingDir, name), []byte(content))
}

func (f *cliFixture) records(t *testing.T) []models.VideoRecord {
	t.Helper()
	ledger, err := repositories.OpenLedger(context.Background(), f.config.Paths.Ledger)
	if err != nil {
		t.Fatalf("failed to open ledger: %v", err)
	}
	defer ledger.Close()

	records, err := ledger.List(context.Background())
	if err != nil {
		t.Fatalf("failed to list ledger: %v", err)
	}
	return records
}

// fakeLoginBrowser completes an interactive login by writing a session once confirmed.
type fakeLoginBrowser struct {
	tu.FakeBrowser
	session string
}

func (b *fakeLoginBrowser) Login(ctx context.Context, confirm func(ctx context.Context) error) (int, error) {
	if err := confirm(ctx); err != nil {
		return 0, err
	}
	cookies := []shared.Cookie{{Name: "connect.sid", Value: "fresh", Domain: services.CookieDomain, Path: "/"}}
	return len(cookies), shared.SaveSession(b.session, cookies)
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("creates runner with all fields", func(t *testing.T) {
			config := shared.DefaultConfig()
			output := &bytes.Buffer{}
			input := strings.NewReader("")
			browser := &tu.FakeBrowser{}

			runner := NewRunner(RunnerOpts{
				Config:     config,
				ConfigPath: "custom.toml",
				Browser:    browser,
				Output:     output,
				Input:      input,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.configPath != "custom.toml" {
				t.Errorf("expected config path custom.toml, got %s", runner.configPath)
			}
			if runner.browser != browser {
				t.Error("expected browser to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.input != input {
				t.Error("expected input to be set")
			}
		})

		t.Run("uses defaults for nil values", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.config == nil {
				t.Error("expected default config to be created")
			}
			if runner.configPath != shared.DefaultConfigPath {
				t.Errorf("expected default config path, got %s", runner.configPath)
			}
			if runner.logger == nil {
				t.Error("expected default logger to be created")
			}
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
			if runner.input != os.Stdin {
				t.Error("expected input to default to os.Stdin")
			}
			if runner.clock == nil {
				t.Error("expected default clock")
			}
		})

		t.Run("builds loom browser when none is injected", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})
			if _, ok := runner.loomBrowser(true).(*services.LoomBrowser); !ok {
				t.Error("expected a LoomBrowser")
			}
			if _, ok := runner.loomBrowser(false).(loginBrowser); !ok {
				t.Error("expected LoomBrowser to support login")
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			err := runner.writeJSON(map[string]string{"key": "value"}, true)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			expected := `{"key":"value"}` + "\n"
			if output.String() != expected {
				t.Errorf("expected %q, got %q", expected, output.String())
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			// channels cannot be marshaled to JSON
			err := runner.writeJSON(make(chan int), false)
			if err == nil || !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("hello %s", "world"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "hello world" {
				t.Errorf("expected 'hello world', got %q", output.String())
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writePlain("test")
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		names := map[string]bool{}
		for i, cmd := range commands {
			if cmd == nil {
				t.Fatalf("command at index %d is nil", i)
			}
			names[cmd.Name] = true
		}

		for _, want := range []string{"setup", "login", "logout", "fetch", "upload", "auto", "embeds", "sync", "pending", "rename", "ledger", "tui"} {
			if !names[want] {
				t.Errorf("expected command %q to be registered", want)
			}
		}
	})

	t.Run("loadConfig", func(t *testing.T) {
		t.Run("rejects invalid budgets", func(t *testing.T) {
			f := setupCLI(t, false)
			f.config.Upload.MaxAttempts = 0
			if err := shared.SaveConfig(f.configPath, f.config); err != nil {
				t.Fatal(err)
			}

			err := f.run(t, f.runner(RunnerOpts{}), "pending")
			if !errors.Is(err, shared.ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	})
}

func TestSetupCommand(t *testing.T) {
	t.Run("migrates ledger for an existing config", func(t *testing.T) {
		f := setupCLI(t, false)
		os.Remove(f.config.Paths.StagingDir)

		if err := f.run(t, f.runner(RunnerOpts{}), "setup"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		tu.AssertFileExists(t, f.config.Paths.Ledger)
		tu.AssertDirExists(t, f.config.Paths.StagingDir)
		if !strings.Contains(f.output.String(), "run `loomops login`") {
			t.Errorf("expected login hint, got %q", f.output.String())
		}
	})

	t.Run("creates config from template", func(t *testing.T) {
		dir := t.TempDir()
		t.Chdir(dir)

		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Output: output, Logger: shared.NewLogger(io.Discard)})
		app := &cli.Command{Name: "loomops", Commands: runner.register()}

		if err := app.Run(context.Background(), []string{"loomops", "setup"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		tu.AssertFileExists(t, filepath.Join(dir, shared.DefaultConfigPath))
		tu.AssertFileExists(t, filepath.Join(dir, "loomops.db"))
		tu.AssertDirExists(t, filepath.Join(dir, "downloads"))
	})
}

func TestLoginCommands(t *testing.T) {
	t.Run("imports cookies from a curl file", func(t *testing.T) {
		f := setupCLI(t, false)
		curlFile := filepath.Join(f.dir, "loom.sh")
		tu.WriteFile(t, curlFile, []byte(`curl 'https://www.loom.com/looms/videos' -b 'connect.sid=abc; loom_anon=1'`))

		if err := f.run(t, f.runner(RunnerOpts{}), "login", "--curl-file", curlFile); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		cookies, err := shared.LoadSession(f.config.Paths.Session)
		if err != nil {
			t.Fatalf("failed to load session: %v", err)
		}
		if len(cookies) != 2 {
			t.Fatalf("expected 2 cookies, got %d", len(cookies))
		}
		if cookies[0].Name != "connect.sid" || cookies[0].Domain != services.CookieDomain {
			t.Errorf("unexpected cookie %+v", cookies[0])
		}
		if !strings.Contains(f.output.String(), "Saved 2 cookies") {
			t.Errorf("unexpected output %q", f.output.String())
		}
	})

	t.Run("curl file without cookies", func(t *testing.T) {
		f := setupCLI(t, false)
		curlFile := filepath.Join(f.dir, "loom.sh")
		tu.WriteFile(t, curlFile, []byte(`curl 'https://www.loom.com/looms/videos'`))

		err := f.run(t, f.runner(RunnerOpts{}), "login", "--curl-file", curlFile)
		if !errors.Is(err, shared.ErrInvalidCredentials) {
			t.Errorf("expected ErrInvalidCredentials, got %v", err)
		}
		tu.AssertFileMissing(t, f.config.Paths.Session)
	})

	t.Run("interactive login waits for enter", func(t *testing.T) {
		f := setupCLI(t, false)
		browser := &fakeLoginBrowser{session: f.config.Paths.Session}
		runner := f.runner(RunnerOpts{Browser: browser, Input: strings.NewReader("\n")})

		if err := f.run(t, runner, "login"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !shared.HasSession(f.config.Paths.Session) {
			t.Error("expected session to be saved")
		}
	})

	t.Run("interactive login with closed input", func(t *testing.T) {
		f := setupCLI(t, false)
		browser := &fakeLoginBrowser{session: f.config.Paths.Session}
		runner := f.runner(RunnerOpts{Browser: browser, Input: strings.NewReader("")})

		err := f.run(t, runner, "login")
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
		tu.AssertFileMissing(t, f.config.Paths.Session)
	})

	t.Run("browser without login support", func(t *testing.T) {
		f := setupCLI(t, false)
		err := f.run(t, f.runner(RunnerOpts{Browser: &tu.FakeBrowser{}}), "login")
		if !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})

	t.Run("logout removes session and config", func(t *testing.T) {
		f := setupCLI(t, true)

		if err := f.run(t, f.runner(RunnerOpts{}), "logout"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		tu.AssertFileMissing(t, f.config.Paths.Session)
		tu.AssertFileMissing(t, f.configPath)
	})
}

func TestStagingCommands(t *testing.T) {
	t.Run("pending as json", func(t *testing.T) {
		f := setupCLI(t, false)
		f.stage(t, "b.mp4", "bb")
		f.stage(t, "a.mp4", "a")

		if err := f.run(t, f.runner(RunnerOpts{}), "pending", "--json"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var items []models.PendingItem
		if err := json.Unmarshal(f.output.Bytes(), &items); err != nil {
			t.Fatalf("invalid json %q: %v", f.output.String(), err)
		}
		if len(items) != 2 || items[0].FileName != "a.mp4" || items[1].SizeBytes != 2 {
			t.Errorf("unexpected items %+v", items)
		}
	})

	t.Run("pending with nothing staged", func(t *testing.T) {
		f := setupCLI(t, false)

		if err := f.run(t, f.runner(RunnerOpts{}), "pending", "--json"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.TrimSpace(f.output.String()) != "[]" {
			t.Errorf("expected empty array, got %q", f.output.String())
		}
	})

	t.Run("pending as text", func(t *testing.T) {
		f := setupCLI(t, false)
		f.stage(t, "clip1.mp4", "hello")

		if err := f.run(t, f.runner(RunnerOpts{}), "pending"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		out := f.output.String()
		if !strings.Contains(out, "1 staged videos") || !strings.Contains(out, "clip1.mp4") {
			t.Errorf("unexpected output %q", out)
		}
	})

	t.Run("rename keeps the extension", func(t *testing.T) {
		f := setupCLI(t, false)
		f.stage(t, "clip1.mp4", "hello")

		if err := f.run(t, f.runner(RunnerOpts{}), "rename", "clip1.mp4", "Intro"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		tu.AssertFileExists(t, filepath.Join(f.config.Paths.StagingDir, "Intro.mp4"))
		tu.AssertFileMissing(t, filepath.Join(f.config.Paths.StagingDir, "clip1.mp4"))
	})

	t.Run("rename needs two arguments", func(t *testing.T) {
		f := setupCLI(t, false)

		err := f.run(t, f.runner(RunnerOpts{}), "rename", "clip1.mp4")
		if !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})
}

func TestPipelineCommands(t *testing.T) {
	t.Run("upload records and removes staged files", func(t *testing.T) {
		f := setupCLI(t, true)
		f.stage(t, "clip1.mp4", "hello")
		browser := &tu.FakeBrowser{Script: func(int) *tu.FakeSession {
			return &tu.FakeSession{URL: "https://www.loom.com/share/abc", Embed: "<iframe></iframe>"}
		}}

		if err := f.run(t, f.runner(RunnerOpts{Browser: browser}), "upload"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		tu.AssertFileMissing(t, filepath.Join(f.config.Paths.StagingDir, "clip1.mp4"))
		records := f.records(t)
		if len(records) != 1 || records[0].Title != "clip1.mp4" || records[0].ReferenceURL != "https://www.loom.com/share/abc" {
			t.Errorf("unexpected ledger rows %+v", records)
		}
		if !strings.Contains(f.output.String(), "Upload complete: 1 uploaded") {
			t.Errorf("expected completion message, got %q", f.output.String())
		}
		if s := browser.Sessions(); len(s) == 0 || s[0].Polls() == 0 {
			t.Error("expected transfer status to be polled")
		}
	})

	t.Run("interrupt pauses the upload", func(t *testing.T) {
		f := setupCLI(t, true)
		f.config.Upload.PollIntervalSeconds = 1
		if err := shared.SaveConfig(f.configPath, f.config); err != nil {
			t.Fatal(err)
		}
		f.stage(t, "clip1.mp4", "hello")

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		browser := &tu.FakeBrowser{Script: func(int) *tu.FakeSession {
			return &tu.FakeSession{
				Transfer: []string{"Uploading: 10%"},
				OnPoll: func(n int) {
					if n == 0 {
						cancel()
					}
				},
			}
		}}

		err := f.runContext(t, ctx, f.runner(RunnerOpts{Browser: browser, Clock: tasks.RealClock{}}), "upload")
		if err != nil {
			t.Fatalf("expected a clean pause, got %v", err)
		}

		out := f.output.String()
		if !strings.Contains(out, "Upload paused: 0 uploaded") {
			t.Errorf("expected pause message, got %q", out)
		}
		if strings.Contains(out, "context canceled") {
			t.Errorf("worker saw the cancellation: %q", out)
		}
		tu.AssertFileExists(t, filepath.Join(f.config.Paths.StagingDir, "clip1.mp4"))
		if got := len(f.records(t)); got != 0 {
			t.Errorf("expected no ledger rows, got %d", got)
		}
	})

	t.Run("upload without session", func(t *testing.T) {
		f := setupCLI(t, false)
		f.stage(t, "clip1.mp4", "hello")

		err := f.run(t, f.runner(RunnerOpts{Browser: &tu.FakeBrowser{}}), "upload")
		if !errors.Is(err, shared.ErrNoSession) {
			t.Errorf("expected ErrNoSession, got %v", err)
		}
	})

	t.Run("upload with nothing staged", func(t *testing.T) {
		f := setupCLI(t, true)

		err := f.run(t, f.runner(RunnerOpts{Browser: &tu.FakeBrowser{}}), "upload")
		if !errors.Is(err, shared.ErrNothingPending) {
			t.Errorf("expected ErrNothingPending, got %v", err)
		}
	})

	t.Run("fetch saves the folder to the config", func(t *testing.T) {
		f := setupCLI(t, false)
		creds := filepath.Join(f.dir, "credentials.json")
		tu.WriteFile(t, creds, []byte("{}"))

		storage := &tu.FakeStorage{
			Files:   []models.RemoteFile{{ID: "1", Name: "clip1.mp4", MimeType: "video/mp4", Size: 5}},
			Content: map[string][]byte{"1": []byte("hello")},
		}
		factory := func(context.Context, string) (services.StorageLister, error) { return storage, nil }

		err := f.run(t, f.runner(RunnerOpts{Storage: factory}), "fetch", "--folder", "folder-1", "--credentials", creds)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		tu.AssertFileExists(t, filepath.Join(f.config.Paths.StagingDir, "clip1.mp4"))
		saved, err := shared.LoadConfig(f.configPath)
		if err != nil {
			t.Fatalf("failed to reload config: %v", err)
		}
		if saved.FolderID != "folder-1" || saved.CredentialsFile != creds {
			t.Errorf("expected folder and credentials to be saved, got %q %q", saved.FolderID, saved.CredentialsFile)
		}
	})

	t.Run("fetch without folder", func(t *testing.T) {
		f := setupCLI(t, false)

		err := f.run(t, f.runner(RunnerOpts{}), "fetch")
		if !errors.Is(err, shared.ErrMissingConfig) {
			t.Errorf("expected ErrMissingConfig, got %v", err)
		}
	})

	t.Run("fetch failure is reported", func(t *testing.T) {
		f := setupCLI(t, false)
		creds := filepath.Join(f.dir, "credentials.json")
		tu.WriteFile(t, creds, []byte("{}"))

		storage := &tu.FakeStorage{ListErr: errors.New("quota exceeded")}
		factory := func(context.Context, string) (services.StorageLister, error) { return storage, nil }

		err := f.run(t, f.runner(RunnerOpts{Storage: factory}), "fetch", "--folder", "folder-1", "--credentials", creds)
		if !errors.Is(err, shared.ErrFailed) {
			t.Fatalf("expected ErrFailed, got %v", err)
		}
		if !strings.Contains(err.Error(), "quota exceeded") {
			t.Errorf("expected cause in error, got %v", err)
		}
	})

	t.Run("sync appends missing videos", func(t *testing.T) {
		f := setupCLI(t, true)
		browser := &tu.FakeBrowser{Script: func(int) *tu.FakeSession {
			return &tu.FakeSession{Listed: []models.ListedVideo{
				{URL: "https://www.loom.com/share/1", Title: "One"},
				{URL: "https://www.loom.com/share/2", Title: "Two"},
			}}
		}}

		if err := f.run(t, f.runner(RunnerOpts{Browser: browser}), "sync"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := len(f.records(t)); got != 2 {
			t.Errorf("expected 2 rows, got %d", got)
		}
		if !strings.Contains(f.output.String(), "Sync complete: 2 new videos") {
			t.Errorf("unexpected output %q", f.output.String())
		}
	})

	t.Run("embeds fills missing snippets", func(t *testing.T) {
		f := setupCLI(t, true)
		ledger, err := repositories.OpenLedger(context.Background(), f.config.Paths.Ledger)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := ledger.Record(context.Background(), "One", "https://www.loom.com/share/1", ""); err != nil {
			t.Fatal(err)
		}
		ledger.Close()

		browser := &tu.FakeBrowser{Script: func(int) *tu.FakeSession {
			return &tu.FakeSession{Embed: "<iframe src=1></iframe>"}
		}}
		if err := f.run(t, f.runner(RunnerOpts{Browser: browser}), "embeds"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		records := f.records(t)
		if len(records) != 1 || records[0].EmbedSnippet != "<iframe src=1></iframe>" {
			t.Errorf("expected snippet to be stored, got %+v", records)
		}
	})
}

func TestLedgerCommands(t *testing.T) {
	seed := func(t *testing.T, f *cliFixture) {
		t.Helper()
		ledger, err := repositories.OpenLedger(context.Background(), f.config.Paths.Ledger)
		if err != nil {
			t.Fatal(err)
		}
		defer ledger.Close()
		if _, err := ledger.Record(context.Background(), "One", "https://www.loom.com/share/1", "<iframe>1</iframe>"); err != nil {
			t.Fatal(err)
		}
		if _, err := ledger.RecordFailure(context.Background(), "Broken"); err != nil {
			t.Fatal(err)
		}
	}

	t.Run("list as json", func(t *testing.T) {
		f := setupCLI(t, false)
		seed(t, f)

		if err := f.run(t, f.runner(RunnerOpts{}), "ledger list", "--format", "json"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(f.output.String(), "https://www.loom.com/share/1") {
			t.Errorf("expected url in output, got %q", f.output.String())
		}
	})

	t.Run("list with unknown format", func(t *testing.T) {
		f := setupCLI(t, false)

		err := f.run(t, f.runner(RunnerOpts{}), "ledger list", "--format", "yaml")
		if !errors.Is(err, shared.ErrInvalidFlag) {
			t.Errorf("expected ErrInvalidFlag, got %v", err)
		}
	})

	t.Run("export then import into a fresh ledger", func(t *testing.T) {
		f := setupCLI(t, false)
		seed(t, f)
		out := filepath.Join(f.dir, "videos.xlsx")

		if err := f.run(t, f.runner(RunnerOpts{}), "ledger export", "--output", out); err != nil {
			t.Fatalf("export failed: %v", err)
		}
		tu.AssertFileExists(t, out)

		rows, err := formatter.ReadXLSX(out)
		if err != nil {
			t.Fatalf("failed to read export: %v", err)
		}
		if len(rows) != 2 {
			t.Fatalf("expected 2 rows in export, got %d", len(rows))
		}

		g := setupCLI(t, false)
		if err := g.run(t, g.runner(RunnerOpts{}), "ledger import", out); err != nil {
			t.Fatalf("import failed: %v", err)
		}

		records := g.records(t)
		if len(records) != 1 || records[0].EmbedSnippet != "<iframe>1</iframe>" {
			t.Errorf("expected the recorded row only, got %+v", records)
		}
		if !strings.Contains(g.output.String(), "Imported 1 rows, skipped 1") {
			t.Errorf("unexpected output %q", g.output.String())
		}
	})

	t.Run("import needs a path", func(t *testing.T) {
		f := setupCLI(t, false)

		err := f.run(t, f.runner(RunnerOpts{}), "ledger import")
		if !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})
}

func TestFollow(t *testing.T) {
	t.Run("returns on complete with the last error", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Output: output, Logger: shared.NewLogger(io.Discard)})

		ch := events.NewChannel()
		ch.Publish(events.Error("fetch failed: boom"))
		ch.Publish(events.Complete{Message: "fetch stopped"})

		failed := runner.follow(context.Background(), ch, func() {})
		if failed != "fetch failed: boom" {
			t.Errorf("expected error text, got %q", failed)
		}
		if !strings.Contains(output.String(), "✗ fetch failed: boom") {
			t.Errorf("unexpected output %q", output.String())
		}
	})

	t.Run("cancellation pauses once", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}, Logger: shared.NewLogger(io.Discard)})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		ch := events.NewChannel()
		pauses := 0
		pause := func() {
			pauses++
			ch.Publish(events.Complete{Message: "Upload paused: 0 uploaded, 0 skipped"})
		}

		if failed := runner.follow(ctx, ch, pause); failed != "" {
			t.Errorf("expected no failure, got %q", failed)
		}
		if pauses != 1 {
			t.Errorf("expected one pause, got %d", pauses)
		}
	})
}

func TestEventPrinter(t *testing.T) {
	output := &bytes.Buffer{}
	p := &eventPrinter{out: output}

	for _, pct := range []int{0, 3, 9, 10, 55, 58, 100} {
		p.print(events.Progress{Stage: events.KindUpload, Text: "clip1.mp4", Percent: pct})
	}
	p.print(events.Warning("abandoned clip2.mp4"))
	p.print(events.FileRemoved{Name: "clip1.mp4"})

	lines := strings.Split(strings.TrimSpace(output.String()), "\n")
	if len(lines) != 6 {
		t.Fatalf("expected 6 lines, got %d: %q", len(lines), lines)
	}
	if !strings.HasPrefix(lines[4], "! ") || !strings.Contains(lines[5], "removed clip1.mp4") {
		t.Errorf("unexpected lines %q", lines)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{512, "512 B"},
		{1024, "1.0 KiB"},
		{1048576, "1.0 MiB"},
		{1572864, "1.5 MiB"},
	}
	for _, tt := range tests {
		if got := formatBytes(tt.in); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
