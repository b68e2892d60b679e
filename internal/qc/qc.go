// Package qc holds the deduplication and validation stage between synthesis
// and assembly. Everything here is a pure function of its input: running it
// twice on the same data yields identical partitions and counts.
package qc

import (
	"moxigen/internal/types"
)

// Rejection reasons, tallied per sample. A sample is never dropped without
// one of these being counted.
const (
	ReasonContentTooShort    = "content_too_short"
	ReasonContentTooLong     = "content_too_long"
	ReasonEmptyInstruction   = "empty_instruction"
	ReasonInstructionTooLong = "instruction_too_long"
	ReasonEmptyFileTree      = "empty_file_tree"
)

const DefaultMaxInstructionLen = 2000

// Thresholds configures sample validation. MinContent/MaxContent mirror the
// chunker bounds of the run.
type Thresholds struct {
	MinContent     int
	MaxContent     int
	MaxInstruction int
}

func (t Thresholds) withDefaults() Thresholds {
	if t.MaxInstruction <= 0 {
		t.MaxInstruction = DefaultMaxInstructionLen
	}
	return t
}

// Report counts every stage decision. It is computable deterministically from
// a given input set.
type Report struct {
	Candidates       int            `json:"candidates"`
	Accepted         int            `json:"accepted"`
	Rejected         int            `json:"rejected"`
	RejectedByReason map[string]int `json:"rejected_by_reason,omitempty"`
	DuplicateRepos   int            `json:"duplicate_repos,omitempty"`
}

// DedupRepos drops repositories whose (owner, repo) identity was already
// seen; the first occurrence wins. It runs upstream of chunking so duplicate
// source repos never produce near-identical samples.
func DedupRepos(records []types.RepoRecord) (unique []types.RepoRecord, duplicates int) {
	seen := make(map[string]struct{}, len(records))
	unique = make([]types.RepoRecord, 0, len(records))
	for _, r := range records {
		key := r.Key()
		if _, ok := seen[key]; ok {
			duplicates++
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, r)
	}
	return unique, duplicates
}

// Check returns the rejection reason for a sample, or "" when it is
// acceptable. Checks run in a fixed order so tallies are deterministic.
func Check(s types.Sample, t Thresholds) string {
	t = t.withDefaults()
	switch {
	case s.Instruction == "":
		return ReasonEmptyInstruction
	case len(s.Instruction) > t.MaxInstruction:
		return ReasonInstructionTooLong
	case t.MinContent > 0 && len(s.Content) < t.MinContent:
		return ReasonContentTooShort
	case t.MaxContent > 0 && len(s.Content) > t.MaxContent:
		return ReasonContentTooLong
	case len(s.Input.FileTree) == 0:
		return ReasonEmptyFileTree
	}
	return ""
}

// Filter partitions samples into accepted and rejected, tallying rejections
// by reason. Input order is preserved in the accepted slice.
func Filter(samples []types.Sample, t Thresholds) ([]types.Sample, Report) {
	report := Report{
		Candidates:       len(samples),
		RejectedByReason: make(map[string]int),
	}
	accepted := make([]types.Sample, 0, len(samples))
	for _, s := range samples {
		if reason := Check(s, t); reason != "" {
			report.Rejected++
			report.RejectedByReason[reason]++
			continue
		}
		accepted = append(accepted, s)
	}
	report.Accepted = len(accepted)
	if len(report.RejectedByReason) == 0 {
		report.RejectedByReason = nil
	}
	return accepted, report
}
