package integration

import (
	"os"
	"strings"
	"testing"

	"github.com/nxshell/nxshell/tests/helpers"
)

// TestShell runs the nxshell binary against a fake repository, typing the
// commands on stdin.
func TestShell(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	cb := helpers.NewCLIBuilder(t)
	if err := cb.Build("./cmd/nxshell"); err != nil {
		t.Fatalf("failed to build nxshell: %v", err)
	}

	repo := helpers.NewRepository()
	t.Cleanup(repo.Close)
	repo.AddDocument("/ws/a", "File", false)
	repo.AddDocument("/ws/b", "Note", false)
	repo.AddDocument("/ws/c", "Folder", true)

	t.Run("version", func(t *testing.T) {
		res := cb.Run("--version")
		res.AssertSuccess(t)
		res.AssertContains(t, "version")
	})

	t.Run("connect from the command line", func(t *testing.T) {
		input := strings.Join([]string{
			"pwd",
			"cd ws",
			"ls",
			"cd nowhere",
			"frobnicate",
			"exit",
			"ls",
		}, "\n") + "\n"
		res := cb.RunWithInput(input, "-u", helpers.DefaultUsername, "-p", helpers.DefaultPassword, repo.URL())

		res.AssertSuccess(t)
		res.AssertContains(t, "nxshell version:")
		res.AssertContains(t, "Connected to "+repo.URL())
		res.AssertContains(t, "/ > ")
		res.AssertContains(t, "/ws/a - ")
		res.AssertContains(t, "/ws/c - ")
		res.AssertContains(t, "End of page.")
		res.AssertContains(t, "/ws > ")
		res.AssertContains(t, "HTTP 404")
		res.AssertContains(t, "nxshell: command not found: frobnicate")

		data, err := os.ReadFile(cb.HistoryPath())
		if err != nil {
			t.Fatalf("history not saved: %v", err)
		}
		if got := strings.Count(string(data), "\n"); got != 6 {
			t.Errorf("history has %d lines, want 6:\n%s", got, data)
		}
	})

	t.Run("disconnected commands", func(t *testing.T) {
		before := repo.GetRequestCount()
		res := cb.RunWithInput("ls\ncat /ws/a\n")

		res.AssertSuccess(t)
		res.AssertContains(t, "ls: not connected")
		res.AssertContains(t, "cat: not connected")
		res.AssertNotContains(t, "Connected to")
		if repo.GetRequestCount() != before {
			t.Errorf("disconnected commands sent %d requests", repo.GetRequestCount()-before)
		}
	})

	t.Run("remote operation", func(t *testing.T) {
		input := "connect " + repo.URL() + "\nDocument.Copy /ws/a --target /ws/c --name copy\nls /ws/c\n"
		res := cb.RunWithInput(input)

		res.AssertSuccess(t)
		res.AssertContains(t, "/ws/c/copy - ")
		if _, ok := repo.Document("/ws/c/copy"); !ok {
			t.Error("copy not created")
		}
	})

	t.Run("declined confirmation", func(t *testing.T) {
		input := "connect " + repo.URL() + "\nrm /ws/b\nn\n"
		res := cb.RunWithInput(input)

		res.AssertSuccess(t)
		res.AssertContains(t, "Operation canceled")
		if _, ok := repo.Document("/ws/b"); !ok {
			t.Error("declined rm deleted the document")
		}
	})

	t.Run("failed startup connect keeps the shell", func(t *testing.T) {
		res := cb.RunWithInput("whoami\n", "-p", "wrong", repo.URL())

		res.AssertSuccess(t)
		res.AssertContains(t, "HTTP 401")
		res.AssertContains(t, "whoami: not connected")
	})

	t.Run("passwords stay out of the history", func(t *testing.T) {
		input := "connect -u " + helpers.DefaultUsername + " -p " + helpers.DefaultPassword + " " + repo.URL() + "\nexit\n"
		res := cb.RunWithInput(input)
		res.AssertSuccess(t)
		res.AssertContains(t, "Connected to "+repo.URL())

		data, err := os.ReadFile(cb.HistoryPath())
		if err != nil {
			t.Fatalf("history not saved: %v", err)
		}
		if strings.Contains(string(data), " -p "+helpers.DefaultPassword) {
			t.Errorf("password recorded in history:\n%s", data)
		}
		if !strings.Contains(string(data), repo.URL()+" -p\n") {
			t.Errorf("redacted connect line missing from history:\n%s", data)
		}
	})

	t.Run("config file", func(t *testing.T) {
		cb.WithConfig("output:\n  format: yaml\nconnect:\n  password: hunter2\n")
		t.Cleanup(func() { _ = os.Remove(cb.WorkDir() + "/config.yaml") })

		res := cb.RunWithInput("config get output.format\nconfig\n")
		res.AssertSuccess(t)
		res.AssertContains(t, "yaml\n")
		res.AssertContains(t, "***")
		res.AssertNotContains(t, "hunter2")
	})

	t.Run("missing config file", func(t *testing.T) {
		res := cb.Run("--config", cb.WorkDir()+"/missing.yaml")
		res.AssertExitCode(t, 1)
		res.AssertStderrContains(t, "missing.yaml")
	})
}
