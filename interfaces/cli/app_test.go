package cli

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

	"github.com/felixgeelhaar/react-agent/domain/agent"
	"github.com/felixgeelhaar/react-agent/infrastructure/logging"
	"github.com/felixgeelhaar/react-agent/pack/search"
)

func TestMain(m *testing.M) {
	logging.Init(logging.Config{Level: "error", Format: "console", Output: io.Discard})
	os.Exit(m.Run())
}

func weatherProvider() *search.MemoryProvider {
	return search.NewMemoryProvider(
		search.Result{Title: "Hanoi forecast", Link: "https://weather.example/hanoi", Snippet: "Hanoi is sunny, 31°C."},
		search.Result{Title: "Saigon forecast", Link: "https://weather.example/hcm", Snippet: "Saigon brings afternoon rain."},
	)
}

func newTestApp(stdin string) (*App, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	app := New().
		WithOutput(&stdout, &stderr).
		WithInput(strings.NewReader(stdin)).
		WithSearchProvider(weatherProvider())
	return app, &stdout, &stderr
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestApp_Version(t *testing.T) {
	app, stdout, _ := newTestApp("")

	if err := app.ExecuteWithArgs(context.Background(), []string{"version"}); err != nil {
		t.Fatalf("version command failed: %v", err)
	}

	if !strings.Contains(stdout.String(), "react-agent version") {
		t.Errorf("version output missing 'react-agent version', got: %s", stdout.String())
	}
}

func TestApp_Help(t *testing.T) {
	app, stdout, _ := newTestApp("")

	if err := app.ExecuteWithArgs(context.Background(), []string{"--help"}); err != nil {
		t.Fatalf("help command failed: %v", err)
	}

	output := stdout.String()
	for _, want := range []string{"reasoning and acting", "run", "chat", "batch", "tools", "history", "mcp", "validate"} {
		if !strings.Contains(output, want) {
			t.Errorf("help output missing %q, got: %s", want, output)
		}
	}
}

func TestApp_Validate(t *testing.T) {
	path := writeConfig(t, `
agent:
  max_iterations: 5
oracle:
  provider: scripted
search:
  provider: memory
`)

	app, stdout, _ := newTestApp("")
	if err := app.ExecuteWithArgs(context.Background(), []string{"validate", "--no-color", "-c", path}); err != nil {
		t.Fatalf("validate command failed: %v", err)
	}

	output := stdout.String()
	if !strings.Contains(output, "valid") {
		t.Errorf("validate output missing 'valid', got: %s", output)
	}
	if !strings.Contains(output, "Oracle: scripted") {
		t.Errorf("validate output missing oracle summary, got: %s", output)
	}
}

func TestApp_ValidateInvalid(t *testing.T) {
	path := writeConfig(t, `
agent:
  max_iterations: 0
`)

	app, _, _ := newTestApp("")
	err := app.ExecuteWithArgs(context.Background(), []string{"validate", "-c", path})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "max_iterations") {
		t.Errorf("error = %v, want it to name max_iterations", err)
	}
}

func TestApp_ValidatePrint(t *testing.T) {
	app, stdout, _ := newTestApp("")

	if err := app.ExecuteWithArgs(context.Background(), []string{"validate", "--print", "json"}); err != nil {
		t.Fatalf("validate --print failed: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(stdout.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, stdout.String())
	}
	if _, ok := decoded["agent"]; !ok {
		t.Errorf("printed config missing agent section: %s", stdout.String())
	}
}

func TestApp_Run(t *testing.T) {
	app, stdout, _ := newTestApp("")

	err := app.ExecuteWithArgs(context.Background(), []string{"run", "--scripted", "--no-color", "-v", "Hanoi weather today"})
	if err != nil {
		t.Fatalf("run command failed: %v", err)
	}

	output := stdout.String()
	if !strings.Contains(output, "Answer: Based on the search results") {
		t.Errorf("run output missing answer, got: %s", output)
	}
	if !strings.Contains(output, "sunny") {
		t.Errorf("answer should quote the matching snippet, got: %s", output)
	}
	if !strings.Contains(output, "search_action") {
		t.Errorf("verbose output missing steps, got: %s", output)
	}
	if !strings.Contains(output, "status=finished") {
		t.Errorf("run output missing status, got: %s", output)
	}
}

func TestApp_RunJSON(t *testing.T) {
	app, stdout, _ := newTestApp("")

	err := app.ExecuteWithArgs(context.Background(), []string{"run", "--scripted", "--json", "Hanoi", "weather"})
	if err != nil {
		t.Fatalf("run command failed: %v", err)
	}

	var result agent.Result
	if err := json.Unmarshal(stdout.Bytes(), &result); err != nil {
		t.Fatalf("output is not a result: %v\n%s", err, stdout.String())
	}
	if result.Status != agent.StatusFinished {
		t.Errorf("Status = %v, want %v", result.Status, agent.StatusFinished)
	}
	if result.Query != "Hanoi weather" {
		t.Errorf("Query = %q, want %q", result.Query, "Hanoi weather")
	}
	if len(result.History) != 3 {
		t.Errorf("History = %d steps, want 3 (search, answer, finish)", len(result.History))
	}
}

func TestApp_RunExhausted(t *testing.T) {
	app, stdout, _ := newTestApp("")

	err := app.ExecuteWithArgs(context.Background(), []string{"run", "--scripted", "--no-color", "-n", "1", "Hanoi weather"})
	if !errors.Is(err, ErrNoAnswer) {
		t.Fatalf("error = %v, want ErrNoAnswer", err)
	}
	if !strings.Contains(stdout.String(), "status=exhausted") {
		t.Errorf("output missing exhausted status, got: %s", stdout.String())
	}
}

func TestApp_RunRequiresQuery(t *testing.T) {
	app, _, _ := newTestApp("")

	if err := app.ExecuteWithArgs(context.Background(), []string{"run", "--scripted"}); err == nil {
		t.Error("expected error without a query")
	}
}

func TestApp_Chat(t *testing.T) {
	app, stdout, _ := newTestApp("Hanoi weather\n\n  \nquit\nSaigon weather\n")

	if err := app.ExecuteWithArgs(context.Background(), []string{"chat", "--scripted", "--no-color"}); err != nil {
		t.Fatalf("chat command failed: %v", err)
	}

	output := stdout.String()
	if strings.Count(output, "Answer:") != 1 {
		t.Errorf("chat should answer once before quitting, got: %s", output)
	}
	if !strings.Contains(output, "Goodbye!") {
		t.Errorf("chat output missing goodbye, got: %s", output)
	}
	if strings.Contains(output, "rain") {
		t.Errorf("chat answered a question after quit, got: %s", output)
	}
}

func TestApp_ChatEOF(t *testing.T) {
	app, stdout, _ := newTestApp("Saigon weather\n")

	if err := app.ExecuteWithArgs(context.Background(), []string{"chat", "--scripted", "--no-color"}); err != nil {
		t.Fatalf("chat command failed: %v", err)
	}
	if !strings.Contains(stdout.String(), "rain") {
		t.Errorf("chat output missing answer, got: %s", stdout.String())
	}
}

func TestApp_Batch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queries.txt")
	content := "# weather questions\nHanoi weather\n\nSaigon weather\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write queries: %v", err)
	}

	app, stdout, _ := newTestApp("")
	if err := app.ExecuteWithArgs(context.Background(), []string{"batch", "--scripted", "-j", "2", path}); err != nil {
		t.Fatalf("batch command failed: %v", err)
	}

	output := stdout.String()
	if !strings.Contains(output, "2/2 answered") {
		t.Errorf("batch output missing summary, got: %s", output)
	}
	if strings.Index(output, "Hanoi weather") > strings.Index(output, "Saigon weather") {
		t.Errorf("batch rows out of input order, got: %s", output)
	}
}

func TestApp_BatchJSONFromStdin(t *testing.T) {
	app, stdout, _ := newTestApp("Hanoi weather\nSaigon weather\n")

	if err := app.ExecuteWithArgs(context.Background(), []string{"batch", "--scripted", "--json", "-"}); err != nil {
		t.Fatalf("batch command failed: %v", err)
	}

	var items []batchItem
	if err := json.Unmarshal(stdout.Bytes(), &items); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, stdout.String())
	}
	if len(items) != 2 {
		t.Fatalf("items = %d, want 2", len(items))
	}
	for i, want := range []string{"Hanoi weather", "Saigon weather"} {
		if items[i].Query != want {
			t.Errorf("items[%d].Query = %q, want %q", i, items[i].Query, want)
		}
		if items[i].Result == nil || !items[i].Result.Succeeded() {
			t.Errorf("items[%d] did not finish: %+v", i, items[i])
		}
	}
}

func TestApp_BatchEmpty(t *testing.T) {
	app, _, _ := newTestApp("# nothing\n\n")

	err := app.ExecuteWithArgs(context.Background(), []string{"batch", "--scripted", "-"})
	if !errors.Is(err, ErrNoQueries) {
		t.Errorf("error = %v, want ErrNoQueries", err)
	}
}

func TestApp_Tools(t *testing.T) {
	app, stdout, _ := newTestApp("")

	if err := app.ExecuteWithArgs(context.Background(), []string{"tools", "--json"}); err != nil {
		t.Fatalf("tools command failed: %v", err)
	}

	var infos []toolInfo
	if err := json.Unmarshal(stdout.Bytes(), &infos); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, stdout.String())
	}

	names := make(map[string]string, len(infos))
	for _, info := range infos {
		names[info.Name] = info.Pack
	}
	want := map[string]string{
		"do_nothing":           "core",
		"get_current_date":     "core",
		"search_action":        "search",
		"extract_weather_data": "search",
		"summarize_action":     "text",
		"answer_question":      "text",
	}
	for name, pack := range want {
		if names[name] != pack {
			t.Errorf("tool %s in pack %q, want %q", name, names[name], pack)
		}
	}
}

func TestApp_History(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, `
oracle:
  provider: scripted
storage:
  backend: file
  path: `+filepath.ToSlash(dir)+`
`)

	ctx := context.Background()

	runApp, runOut, _ := newTestApp("")
	if err := runApp.ExecuteWithArgs(ctx, []string{"run", "-c", path, "--json", "Hanoi weather"}); err != nil {
		t.Fatalf("run command failed: %v", err)
	}
	var saved agent.Result
	if err := json.Unmarshal(runOut.Bytes(), &saved); err != nil {
		t.Fatalf("run output is not a result: %v", err)
	}

	t.Run("list", func(t *testing.T) {
		app, stdout, _ := newTestApp("")
		if err := app.ExecuteWithArgs(ctx, []string{"history", "-c", path}); err != nil {
			t.Fatalf("history command failed: %v", err)
		}
		if !strings.Contains(stdout.String(), saved.RunID) {
			t.Errorf("history missing run %s, got: %s", saved.RunID, stdout.String())
		}
	})

	t.Run("filter excludes", func(t *testing.T) {
		app, stdout, _ := newTestApp("")
		if err := app.ExecuteWithArgs(ctx, []string{"history", "-c", path, "--status", "failed"}); err != nil {
			t.Fatalf("history command failed: %v", err)
		}
		if !strings.Contains(stdout.String(), "No results stored.") {
			t.Errorf("filtered history = %s, want empty", stdout.String())
		}
	})

	t.Run("get", func(t *testing.T) {
		app, stdout, _ := newTestApp("")
		if err := app.ExecuteWithArgs(ctx, []string{"history", "-c", path, "--json", saved.RunID}); err != nil {
			t.Fatalf("history command failed: %v", err)
		}
		var got agent.Result
		if err := json.Unmarshal(stdout.Bytes(), &got); err != nil {
			t.Fatalf("output is not a result: %v", err)
		}
		if got.FinalAnswer != saved.FinalAnswer {
			t.Errorf("FinalAnswer = %q, want %q", got.FinalAnswer, saved.FinalAnswer)
		}
	})

	t.Run("export mermaid", func(t *testing.T) {
		app, stdout, _ := newTestApp("")
		if err := app.ExecuteWithArgs(ctx, []string{"history", "-c", path, "-f", "mermaid", saved.RunID}); err != nil {
			t.Fatalf("history command failed: %v", err)
		}
		if !strings.Contains(stdout.String(), "Agent->>search_action: step 1") {
			t.Errorf("export = %s, want a sequence diagram", stdout.String())
		}
	})

	t.Run("unknown format", func(t *testing.T) {
		app, _, _ := newTestApp("")
		if err := app.ExecuteWithArgs(ctx, []string{"history", "-c", path, "-f", "xml", saved.RunID}); err == nil {
			t.Error("expected error for unknown format")
		}
	})

	t.Run("unknown status", func(t *testing.T) {
		app, _, _ := newTestApp("")
		if err := app.ExecuteWithArgs(ctx, []string{"history", "-c", path, "--status", "bogus"}); err == nil {
			t.Error("expected error for unknown status")
		}
	})
}

func TestApp_HistoryWithoutStorage(t *testing.T) {
	app, _, _ := newTestApp("")

	err := app.ExecuteWithArgs(context.Background(), []string{"history", "--storage", "none"})
	if !errors.Is(err, ErrNoStorage) {
		t.Errorf("error = %v, want ErrNoStorage", err)
	}
}

func TestPreview(t *testing.T) {
	tests := []struct {
		in    string
		limit int
		want  string
	}{
		{in: "short", limit: 10, want: "short"},
		{in: "line one\n  line two", limit: 50, want: "line one line two"},
		{in: "thời tiết hôm nay", limit: 9, want: "thời tiết..."},
	}

	for _, tt := range tests {
		if got := preview(tt.in, tt.limit); got != tt.want {
			t.Errorf("preview(%q, %d) = %q, want %q", tt.in, tt.limit, got, tt.want)
		}
	}
}
