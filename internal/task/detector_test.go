package task

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"

	setuperrors "github.com/spec-tools/claude-setup/internal/errors"
	"github.com/spec-tools/claude-setup/internal/logging"
)

func TestIsComplete(t *testing.T) {
	d := NewDetector()

	tests := []struct {
		name    string
		content string
		want    bool
	}{
		{
			name:    "all tasks checked",
			content: "# Tasks\n\n- [x] Set up project\n- [x] Write parser\n- [X] Ship it\n",
			want:    true,
		},
		{
			name:    "one task unchecked",
			content: "- [x] Set up project\n- [ ] Write parser\n",
			want:    false,
		},
		{
			name:    "empty document",
			content: "",
			want:    false,
		},
		{
			name:    "prose only",
			content: "# Tasks\n\nNothing here is a checkbox.\n",
			want:    false,
		},
		{
			name:    "only malformed markers",
			content: "- [y] Done maybe\n- [xx] Also done\n",
			want:    false,
		},
		{
			name:    "malformed markers ignored alongside complete ones",
			content: "- [x] Real task\n- [y] Not a marker\n",
			want:    true,
		},
		{
			name:    "nested tasks with tabs and spaces",
			content: "- [x] Parent\n\t- [x] Tab child\n    - [x] Space child\n",
			want:    true,
		},
		{
			name:    "nested incomplete child",
			content: "- [x] Parent\n  - [ ] Child\n",
			want:    false,
		},
		{
			name:    "windows line endings",
			content: "- [x] One\r\n- [x] Two\r\n",
			want:    true,
		},
		{
			name:    "mixed line endings",
			content: "- [x] One\r\n- [ ] Two\r- [x] Three\n",
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := d.IsComplete(tt.content); got != tt.want {
				t.Errorf("IsComplete() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidateFormat(t *testing.T) {
	d := NewDetector()

	tests := []struct {
		name       string
		content    string
		wantValid  bool
		wantIssues int
	}{
		{
			name:       "well formed list",
			content:    "- [x] One\n- [ ] Two\n",
			wantValid:  true,
			wantIssues: 0,
		},
		{
			name:       "empty document",
			content:    "   \n\t\n",
			wantValid:  false,
			wantIssues: 1,
		},
		{
			name:       "no markers at all",
			content:    "just prose\n",
			wantValid:  false,
			wantIssues: 1,
		},
		{
			name:       "minority malformed is advisory",
			content:    "- [x] One\n- [x] Two\n- [y] Broken\n",
			wantValid:  true,
			wantIssues: 1,
		},
		{
			name:       "majority malformed is blocking",
			content:    "- [x] One\n- [y] Broken\n- [done] Broken too\n",
			wantValid:  false,
			wantIssues: 1,
		},
		{
			name:       "marker without list dash",
			content:    "[x] One\n[ ] Two\n",
			wantValid:  false,
			wantIssues: 2, // no valid markers + wrong list style
		},
		{
			name:       "star bullet markers rejected",
			content:    "- [x] Fine\n* [x] Wrong bullet\n",
			wantValid:  false,
			wantIssues: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := d.ValidateFormat(tt.content)
			if result.IsValid != tt.wantValid {
				t.Errorf("ValidateFormat() IsValid = %v, want %v (issues: %v)",
					result.IsValid, tt.wantValid, result.Issues)
			}
			if len(result.Issues) != tt.wantIssues {
				t.Errorf("ValidateFormat() issues = %v, want %d", result.Issues, tt.wantIssues)
			}
		})
	}
}

func writeTasksFile(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "tasks.md")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCheckSpec(t *testing.T) {
	d := NewDetectorWithLogger(logging.ForTest(t))

	specDir := t.TempDir()
	writeTasksFile(t, specDir, "- [x] One\n- [ ] Two\n- [x] Three\n- [bad] Ignored\n")

	completion, err := d.CheckSpec(specDir)
	if err != nil {
		t.Fatalf("CheckSpec() error: %v", err)
	}

	if completion.IsComplete {
		t.Error("expected spec to be incomplete")
	}
	if completion.TotalTasks != 3 {
		t.Errorf("TotalTasks = %d, want 3", completion.TotalTasks)
	}
	if completion.CompletedTasks != 2 {
		t.Errorf("CompletedTasks = %d, want 2", completion.CompletedTasks)
	}
	if completion.LastModified.IsZero() {
		t.Error("LastModified should be set from the tasks file mtime")
	}
}

func TestCheckSpec_MissingTasksFile(t *testing.T) {
	d := NewDetector()
	specDir := t.TempDir()

	_, err := d.CheckSpec(specDir)
	if err == nil {
		t.Fatal("expected an error for a spec without tasks.md")
	}
	if !errors.Is(err, setuperrors.ErrValidationFailed) {
		t.Errorf("error should wrap ErrValidationFailed, got %v", err)
	}

	var specErr *setuperrors.SpecError
	if !errors.As(err, &specErr) {
		t.Fatalf("error should be a SpecError, got %T", err)
	}
	if specErr.SpecPath != specDir {
		t.Errorf("SpecError path = %q, want %q", specErr.SpecPath, specDir)
	}
}

func TestCompletionPercentage(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    int
	}{
		{"no markers", "nothing here\n", 0},
		{"half done", "- [x] One\n- [ ] Two\n", 50},
		{"two thirds rounds up", "- [x] One\n- [x] Two\n- [ ] Three\n", 67},
		{"all done", "- [x] One\n", 100},
	}

	d := NewDetector()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			specDir := t.TempDir()
			writeTasksFile(t, specDir, tt.content)

			got, err := d.CompletionPercentage(specDir)
			if err != nil {
				t.Fatalf("CompletionPercentage() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("CompletionPercentage() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCompletedSpecs(t *testing.T) {
	root := t.TempDir()

	mkSpec := func(name, tasks string) {
		dir := filepath.Join(root, name)
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatal(err)
		}
		if tasks != "" {
			writeTasksFile(t, dir, tasks)
		}
	}

	mkSpec("zeta-feature", "- [x] Done\n")
	mkSpec("alpha-feature", "- [x] Done\n- [x] Also done\n")
	mkSpec("in-progress", "- [x] Done\n- [ ] Not yet\n")
	mkSpec("no-tasks-file", "")
	mkSpec("archive", "- [x] Must never be scanned\n")

	d := NewDetectorWithLogger(logging.ForTest(t))
	completed, err := d.CompletedSpecs(root)
	if err != nil {
		t.Fatalf("CompletedSpecs() error: %v", err)
	}

	want := []string{
		filepath.Join(root, "alpha-feature"),
		filepath.Join(root, "zeta-feature"),
	}
	if len(completed) != len(want) {
		t.Fatalf("CompletedSpecs() = %v, want %v", completed, want)
	}
	for i := range want {
		if completed[i] != want[i] {
			t.Errorf("CompletedSpecs()[%d] = %q, want %q", i, completed[i], want[i])
		}
	}
}

func TestCompletedSpecs_MissingRoot(t *testing.T) {
	d := NewDetector()
	_, err := d.CompletedSpecs(filepath.Join(t.TempDir(), "does-not-exist"))
	if !errors.Is(err, setuperrors.ErrSpecsRootNotFound) {
		t.Errorf("error should wrap ErrSpecsRootNotFound, got %v", err)
	}
}
