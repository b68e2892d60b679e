package analyzer

import (
	"path"
	"strings"

	"moxigen/internal/types"
)

// MaxKeyFiles bounds how many key files a report carries.
const MaxKeyFiles = 10

// Report is the derived structural view of one repository. The analyzer is
// total: any input, including an empty one, yields a usable report.
type Report struct {
	Tree        types.FileTree
	KeyFiles    []string
	ProjectType types.ProjectType
	Language    types.Language
}

// Analyze normalizes the raw path list and infers key files, project type and
// primary language. It never fails; missing or empty input yields an unknown
// classification with an empty tree.
func Analyze(paths []string) Report {
	tree := Normalize(paths)
	key := keyFiles(tree)
	return Report{
		Tree:        tree,
		KeyFiles:    key,
		ProjectType: detectProjectType(tree, key),
		Language:    detectLanguage(tree),
	}
}

// Normalize converts a raw path listing into an ordered, unique,
// slash-separated tree. First occurrence wins; order is preserved.
func Normalize(paths []string) types.FileTree {
	if len(paths) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(paths))
	out := make(types.FileTree, 0, len(paths))
	for _, p := range paths {
		p = strings.TrimSpace(p)
		p = strings.ReplaceAll(p, "\\", "/")
		p = strings.TrimPrefix(p, "./")
		p = strings.Trim(p, "/")
		if p == "" || p == "." {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// keyFilePatterns are matched against base names, in priority order.
// Manifests first, then entry points.
var keyFilePatterns = []string{
	"pyproject.toml", "setup.py", "setup.cfg", "requirements.txt",
	"package.json", "go.mod", "cargo.toml", "makefile", "dockerfile",
	"docker-compose.yml",
	"main.py", "app.py", "manage.py", "server.py", "cli.py", "__main__.py",
	"main.go", "index.js", "main.rs",
}

func keyFiles(tree types.FileTree) []string {
	if len(tree) == 0 {
		return nil
	}
	byBase := make(map[string]string, len(tree))
	for _, p := range tree {
		base := strings.ToLower(path.Base(p))
		if _, ok := byBase[base]; !ok {
			byBase[base] = p
		}
	}
	var out []string
	for _, pat := range keyFilePatterns {
		if p, ok := byBase[pat]; ok {
			out = append(out, p)
			if len(out) == MaxKeyFiles {
				break
			}
		}
	}
	return out
}

// detectProjectType applies fixed priority rules over the normalized tree:
// application signals beat CLI signals beat library signals. First match wins.
func detectProjectType(tree types.FileTree, key []string) types.ProjectType {
	if len(tree) == 0 {
		return types.ProjectUnknown
	}
	bases := baseSet(tree)
	lower := loweredPaths(tree)

	appSignals := []string{"main.py", "app.py", "manage.py", "wsgi.py", "asgi.py", "application.py", "server.py"}
	for _, s := range appSignals {
		if _, ok := bases[s]; ok {
			return types.ProjectApplication
		}
	}
	for _, fw := range []string{"flask", "django", "fastapi", "tornado", "bottle"} {
		for _, p := range lower {
			if strings.Contains(p, fw) {
				return types.ProjectApplication
			}
		}
	}
	if _, ok := bases["docker-compose.yml"]; ok {
		return types.ProjectApplication
	}
	if _, ok := bases["dockerfile"]; ok {
		return types.ProjectApplication
	}

	cliSignals := []string{"cli.py", "command.py", "commands.py", "__main__.py"}
	for _, s := range cliSignals {
		if _, ok := bases[s]; ok {
			return types.ProjectCLI
		}
	}
	for _, dir := range []string{"cli/", "commands/", "cmd/"} {
		for _, p := range lower {
			if strings.HasPrefix(p, dir) || strings.Contains(p, "/"+dir) {
				return types.ProjectCLI
			}
		}
	}

	libSignals := []string{"pyproject.toml", "setup.py", "setup.cfg", "poetry.lock"}
	for _, s := range libSignals {
		if _, ok := bases[s]; ok {
			return types.ProjectLibrary
		}
	}
	if sourceFileCount(tree, ".py") > 5 || len(key) > 0 {
		return types.ProjectLibrary
	}
	return types.ProjectUnknown
}

// detectLanguage checks characteristic manifests first, then extensions.
func detectLanguage(tree types.FileTree) types.Language {
	if len(tree) == 0 {
		return types.LangUnknown
	}
	bases := baseSet(tree)
	check := func(names ...string) bool {
		for _, n := range names {
			if _, ok := bases[n]; ok {
				return true
			}
		}
		return false
	}
	switch {
	case check("pyproject.toml", "setup.py", "setup.cfg", "requirements.txt", "pipfile", "poetry.lock"):
		return types.LangPython
	case sourceFileCount(tree, ".py") > 0:
		return types.LangPython
	case check("package.json", "package-lock.json", "yarn.lock", "pnpm-lock.yaml"):
		return types.LangNodeJS
	case check("go.mod", "go.sum"):
		return types.LangGo
	case check("cargo.toml", "cargo.lock"):
		return types.LangRust
	}
	return types.LangUnknown
}

func baseSet(tree types.FileTree) map[string]struct{} {
	out := make(map[string]struct{}, len(tree))
	for _, p := range tree {
		out[strings.ToLower(path.Base(p))] = struct{}{}
	}
	return out
}

func loweredPaths(tree types.FileTree) []string {
	out := make([]string, len(tree))
	for i, p := range tree {
		out[i] = strings.ToLower(p)
	}
	return out
}

func sourceFileCount(tree types.FileTree, ext string) int {
	n := 0
	for _, p := range tree {
		if strings.HasSuffix(strings.ToLower(p), ext) {
			n++
		}
	}
	return n
}
