package diff

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

const samplePatch = `diff --git a/search.py b/search.py
index abc1234..def5678 100644
--- a/search.py
+++ b/search.py
@@ -1,4 +1,5 @@
 def find(xs, t):
-    for i in range(len(xs)):
-        if xs[i] == t:
+    for i, x in enumerate(xs):
+        if x == t:
             return i
+    return -1
diff --git a/notes.md b/notes.md
new file mode 100644
index 0000000..e69de29
--- /dev/null
+++ b/notes.md
@@ -0,0 +1,2 @@
+# Notes
+Added line
`

func TestLines(t *testing.T) {
	tests := []struct {
		name    string
		a, b    string
		added   []string
		removed []string
	}{
		{"identical", "x = 1\ny = 2\n", "x = 1\ny = 2\n", []string{}, []string{}},
		{"added line", "x = 1\n", "x = 1\ny = 2\n", []string{"y = 2"}, []string{}},
		{"removed line", "x = 1\ny = 2", "y = 2", []string{}, []string{"x = 1"}},
		{"blank lines only", "a\nb", "a\n\nb\n\n", []string{"", ""}, []string{}},
		{"reorder is no change", "a\nb", "b\na", []string{}, []string{}},
		{"empty inputs", "", "", []string{}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Lines(tt.a, tt.b)
			if d := cmp.Diff(tt.added, got.Added); d != "" {
				t.Errorf("added mismatch (-want +got):\n%s", d)
			}
			if d := cmp.Diff(tt.removed, got.Removed); d != "" {
				t.Errorf("removed mismatch (-want +got):\n%s", d)
			}
			if len(got.Changed) != 0 {
				t.Errorf("changed = %v, want empty", got.Changed)
			}
			if got.RiskScore != len(tt.added)+len(tt.removed) {
				t.Errorf("risk score = %d", got.RiskScore)
			}
			if got.Summary != basicSummary {
				t.Errorf("summary = %q", got.Summary)
			}
		})
	}
}

func TestParsePatch(t *testing.T) {
	p, err := ParsePatch(samplePatch)
	if err != nil {
		t.Fatalf("ParsePatch failed: %v", err)
	}
	if len(p.Files) != 2 {
		t.Fatalf("expected 2 files, got %d", len(p.Files))
	}

	f, ok := p.Find("search.py")
	if !ok {
		t.Fatal("search.py not found")
	}
	wantBefore := "def find(xs, t):\n    for i in range(len(xs)):\n        if xs[i] == t:\n            return i\n"
	wantAfter := "def find(xs, t):\n    for i, x in enumerate(xs):\n        if x == t:\n            return i\n    return -1\n"
	if d := cmp.Diff(wantBefore, f.Before); d != "" {
		t.Errorf("before mismatch (-want +got):\n%s", d)
	}
	if d := cmp.Diff(wantAfter, f.After); d != "" {
		t.Errorf("after mismatch (-want +got):\n%s", d)
	}
	if f.AddedLines != 3 || f.DeletedLines != 2 {
		t.Errorf("added/deleted = %d/%d, want 3/2", f.AddedLines, f.DeletedLines)
	}

	notes := p.Files[1]
	if !notes.IsNew {
		t.Error("expected notes.md to be new")
	}
	if notes.Name() != "notes.md" {
		t.Errorf("expected name 'notes.md', got %q", notes.Name())
	}
	if notes.Before != "" {
		t.Errorf("new file should have empty before, got %q", notes.Before)
	}
}

func TestParsePatchEmpty(t *testing.T) {
	p, err := ParsePatch("")
	if err != nil {
		t.Fatalf("ParsePatch empty failed: %v", err)
	}
	if len(p.Files) != 0 {
		t.Errorf("expected 0 files, got %d", len(p.Files))
	}
	if _, ok := p.Find("x"); ok {
		t.Error("Find on empty patch should fail")
	}
}
