package model

import (
	"sort"
	"strings"
)

// Kind is the variant of automation definition a record was extracted from.
type Kind string

const (
	KindStructuredPipeline Kind = "structured_pipeline"
	KindMarkdownRunbook    Kind = "markdown_runbook"
	KindUnknown            Kind = "unknown"
)

// ParserKind tells which parse path produced a record.
type ParserKind string

const (
	ParserStructured ParserKind = "structured"
	ParserHeuristic  ParserKind = "heuristic"
	ParserNone       ParserKind = "none"
)

// WorkflowRecord is the normalized summary of one automation definition file.
type WorkflowRecord struct {
	Path        string     `json:"path" yaml:"path"`
	Kind        Kind       `json:"kind" yaml:"kind"`
	Parser      ParserKind `json:"parser" yaml:"parser"`
	Platform    string     `json:"platform,omitempty" yaml:"platform,omitempty"`
	Name        string     `json:"name,omitempty" yaml:"name,omitempty"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	// Triggers keeps declaration order, exact duplicates removed.
	Triggers []string `json:"triggers" yaml:"triggers"`
	// Actions keeps declaration order, duplicates by NormalizeStep removed.
	Actions      []string `json:"actions" yaml:"actions"`
	Dependencies []string `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	Tags         []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	Warnings     []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// NewUnknownRecord returns the record kept for a file that could not be parsed.
func NewUnknownRecord(path string, warning error) *WorkflowRecord {
	rec := &WorkflowRecord{
		Path:     path,
		Kind:     KindUnknown,
		Parser:   ParserNone,
		Triggers: []string{},
		Actions:  []string{},
	}
	if warning != nil {
		rec.Warnings = append(rec.Warnings, warning.Error())
	}

	return rec
}

// AddTrigger appends trigger unless it is empty or already present.
func (r *WorkflowRecord) AddTrigger(trigger string) {
	trigger = strings.TrimSpace(trigger)
	if trigger == "" {
		return
	}
	for _, t := range r.Triggers {
		if t == trigger {
			return
		}
	}
	r.Triggers = append(r.Triggers, trigger)
}

// AddAction appends action unless an action with the same normalized form is present.
func (r *WorkflowRecord) AddAction(action string) {
	action = strings.TrimSpace(action)
	norm := NormalizeStep(action)
	if norm == "" {
		return
	}
	for _, a := range r.Actions {
		if NormalizeStep(a) == norm {
			return
		}
	}
	r.Actions = append(r.Actions, action)
}

// AddDependency adds dep to the dependency set. The set is kept sorted.
func (r *WorkflowRecord) AddDependency(dep string) {
	r.Dependencies = insertSorted(r.Dependencies, dep)
}

// AddTag adds tag to the tag set. The set is kept sorted.
func (r *WorkflowRecord) AddTag(tag string) {
	r.Tags = insertSorted(r.Tags, tag)
}

// HasSignal reports whether the record declares any trigger or action.
func (r *WorkflowRecord) HasSignal() bool {
	return len(r.Triggers) > 0 || len(r.Actions) > 0
}

// NormalizeStep is the form used to compare steps: trimmed and case-folded.
func NormalizeStep(step string) string {
	return strings.ToLower(strings.TrimSpace(step))
}

func insertSorted(set []string, value string) []string {
	value = strings.TrimSpace(value)
	if value == "" {
		return set
	}
	idx := sort.SearchStrings(set, value)
	if idx < len(set) && set[idx] == value {
		return set
	}
	set = append(set, "")
	copy(set[idx+1:], set[idx:])
	set[idx] = value

	return set
}
