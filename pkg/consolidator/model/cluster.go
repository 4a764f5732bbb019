package model

// FallbackLabel is the label of clusters built from records no taxonomy category matched.
const FallbackLabel = "General Automation"

// ClusterAssignment groups the records judged functionally overlapping.
type ClusterAssignment struct {
	ID    string `json:"cluster_id" yaml:"cluster_id"`
	Label string `json:"label" yaml:"label"`
	// Members are record paths, sorted.
	Members []string `json:"members" yaml:"members"`
	// Cohesion is the mean pairwise similarity of the members, 1 for a single member.
	Cohesion float64 `json:"cohesion" yaml:"cohesion"`
}

// ClusterLink is the mean similarity between the members of two clusters.
type ClusterLink struct {
	From       string  `json:"from" yaml:"from"`
	To         string  `json:"to" yaml:"to"`
	Similarity float64 `json:"similarity" yaml:"similarity"`
}

// ConsolidatedWorkflow is the deduplicated merge of one cluster.
type ConsolidatedWorkflow struct {
	ClusterID      string   `json:"cluster_id" yaml:"cluster_id"`
	Label          string   `json:"label" yaml:"label"`
	Name           string   `json:"name" yaml:"name"`
	Description    string   `json:"description" yaml:"description"`
	Members        []string `json:"members" yaml:"members"`
	MergedTriggers []string `json:"merged_triggers" yaml:"merged_triggers"`
	MergedSteps    []string `json:"merged_steps" yaml:"merged_steps"`
	// Provenance maps every merged step to the path of the record that contributed it first.
	Provenance   map[string]string     `json:"provenance" yaml:"provenance"`
	Dependencies []string              `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	Annotations  map[string]Annotation `json:"annotations,omitempty" yaml:"annotations,omitempty"`
}

// Annotation is optional enrichment attached to a workflow path by an external source.
type Annotation struct {
	Emotion string  `json:"emotion,omitempty" yaml:"emotion,omitempty"`
	Tag     string  `json:"tag,omitempty" yaml:"tag,omitempty"`
	Context string  `json:"context,omitempty" yaml:"context,omitempty"`
	Prompt  string  `json:"prompt,omitempty" yaml:"prompt,omitempty"`
	Score   float64 `json:"score,omitempty" yaml:"score,omitempty"`
}
