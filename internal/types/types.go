package types

// ProjectType labels the coarse shape of a repository, inferred from its
// file listing.
type ProjectType string

const (
	ProjectApplication ProjectType = "application"
	ProjectCLI         ProjectType = "cli"
	ProjectLibrary     ProjectType = "library"
	ProjectUnknown     ProjectType = "unknown"
)

// Language is the best-effort primary language of a repository.
type Language string

const (
	LangPython  Language = "python"
	LangNodeJS  Language = "nodejs"
	LangGo      Language = "go"
	LangRust    Language = "rust"
	LangUnknown Language = "unknown"
)

// FileTree is an ordered list of slash-separated relative paths. Once a tree
// is attached to chunks it is shared by reference and must not be mutated.
type FileTree []string

// RepoRecord is one source repository as produced by the crawler. Records are
// read-only to the pipeline; identity is (Owner, Repo).
type RepoRecord struct {
	Owner       string   `json:"owner" bson:"owner"`
	Repo        string   `json:"repo" bson:"repo"`
	RepoURL     string   `json:"repo_url" bson:"repo_url"`
	Readme      string   `json:"readme" bson:"readme"`
	FileTree    FileTree `json:"file_tree" bson:"file_tree"`
	ProjectType string   `json:"project_type,omitempty" bson:"project_type,omitempty"`
	Language    string   `json:"language,omitempty" bson:"language,omitempty"`
	Stars       *int     `json:"stars,omitempty" bson:"stars,omitempty"`
	Source      string   `json:"source,omitempty" bson:"source,omitempty"`
}

// Key returns the dedup identity of the record.
func (r RepoRecord) Key() string { return r.Owner + "/" + r.Repo }

// Chunk is a bounded README segment tagged with its source repository's
// (shared, immutable) file tree.
type Chunk struct {
	Text        string   `json:"chunk"`
	FileTree    FileTree `json:"file_tree"`
	RepoURL     string   `json:"repo_url"`
	ProjectType string   `json:"project_type"`
	Owner       string   `json:"owner,omitempty"`
	Repo        string   `json:"repo,omitempty"`
}

// SampleInput is the structured input of a training sample.
type SampleInput struct {
	FileTree    FileTree `json:"file_tree" bson:"file_tree"`
	ProjectType string   `json:"project_type" bson:"project_type"`
}

// Sample is the final training record. Content must equal the text of the
// chunk the instruction was generated for; the pairing index never drifts.
type Sample struct {
	Instruction string      `json:"instruction" bson:"instruction"`
	Input       SampleInput `json:"input" bson:"input"`
	Content     string      `json:"content" bson:"content"`
}

// InstructionRecord is a chunk paired with exactly one synthesized
// instruction. Structurally a Sample; the alias keeps stage signatures honest
// about which invariants have been checked.
type InstructionRecord = Sample

// NewRecord pairs a validated instruction with its source chunk.
func NewRecord(instruction string, c Chunk) InstructionRecord {
	return InstructionRecord{
		Instruction: instruction,
		Input: SampleInput{
			FileTree:    c.FileTree,
			ProjectType: c.ProjectType,
		},
		Content: c.Text,
	}
}
