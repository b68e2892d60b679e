package analyzer

import (
	"strings"
	"testing"

	"moxigen/internal/tester"
	"moxigen/internal/types"
)

func TestNormalizeDedupAndSeparators(t *testing.T) {
	got := Normalize([]string{
		"src\\main.py",
		"src/main.py",
		" ./docs/readme.md ",
		"",
		"src/main.py",
		"/vendored/lib.py/",
	})
	want := types.FileTree{"src/main.py", "docs/readme.md", "vendored/lib.py"}
	tester.Eq(t, got, want)
}

func TestAnalyzeEmptyInputIsTotal(t *testing.T) {
	rep := Analyze(nil)
	tester.Eq(t, rep.ProjectType, types.ProjectUnknown)
	tester.Eq(t, rep.Language, types.LangUnknown)
	tester.True(t, len(rep.KeyFiles) == 0, "no key files for empty input")
	tester.True(t, len(rep.Tree) == 0, "no tree for empty input")
}

func TestDetectApplicationBeatsLibrary(t *testing.T) {
	// pyproject.toml alone says library, but an entry point wins.
	rep := Analyze([]string{"pyproject.toml", "main.py", "pkg/__init__.py"})
	tester.Eq(t, rep.ProjectType, types.ProjectApplication)
}

func TestDetectCLI(t *testing.T) {
	rep := Analyze([]string{"cli.py", "mypkg/core.py"})
	tester.Eq(t, rep.ProjectType, types.ProjectCLI)

	rep = Analyze([]string{"cmd/tool/run.go", "go.mod"})
	tester.Eq(t, rep.ProjectType, types.ProjectCLI)
}

func TestDetectLibraryAndLanguage(t *testing.T) {
	rep := Analyze([]string{"setup.py", "pkg/a.py", "pkg/b.py"})
	tester.Eq(t, rep.ProjectType, types.ProjectLibrary)
	tester.Eq(t, rep.Language, types.LangPython)

	rep = Analyze([]string{"go.mod", "lib.go"})
	tester.Eq(t, rep.Language, types.LangGo)

	rep = Analyze([]string{"Cargo.toml", "src/lib.rs"})
	tester.Eq(t, rep.Language, types.LangRust)
}

func TestKeyFilesPriorityAndBound(t *testing.T) {
	rep := Analyze([]string{"main.py", "setup.py", "deep/nested/Dockerfile"})
	// Manifests come before entry points.
	tester.Eq(t, rep.KeyFiles[0], "setup.py")
	tester.True(t, len(rep.KeyFiles) <= MaxKeyFiles, "key files bounded")
}

func TestRenderTree(t *testing.T) {
	out := RenderTree(types.FileTree{"src/main.go", "src/utils/helper.go", "go.mod"})
	tester.True(t, strings.Contains(out, "main.go"), "contains leaf")
	tester.True(t, strings.Contains(out, "└── "), "renders branches")
	tester.Eq(t, RenderTree(nil), "")
}
