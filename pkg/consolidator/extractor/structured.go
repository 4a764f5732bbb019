package extractor

import (
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/askiada/go-consolidator/pkg/consolidator/model"
)

// parseStructured recognizes a YAML mapping declaring at least one of on, triggers, jobs or
// steps. It walks yaml.Node trees so declaration order is kept.
func parseStructured(path string, content []byte) (*model.WorkflowRecord, bool) {
	var doc yaml.Node
	err := yaml.Unmarshal(content, &doc)
	if err != nil || doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, false
	}
	root := resolve(doc.Content[0])
	if root.Kind != yaml.MappingNode {
		return nil, false
	}

	rec := &model.WorkflowRecord{
		Path:     path,
		Kind:     model.KindStructuredPipeline,
		Parser:   model.ParserStructured,
		Triggers: []string{},
		Actions:  []string{},
	}
	for _, candidate := range structuredPlatforms {
		if mappingValue(root, candidate.key) != nil {
			rec.Platform = candidate.platform

			break
		}
	}
	if rec.Platform == "" {
		return nil, false
	}

	rec.Name = scalar(mappingValue(root, "name"))
	rec.Description = scalar(mappingValue(root, "description"))

	if on := mappingValue(root, "on"); on != nil {
		if on.Kind == yaml.MappingNode {
			for _, key := range mappingKeys(on) {
				rec.AddTrigger(key)
			}
		} else {
			for _, trigger := range scalars(on) {
				rec.AddTrigger(trigger)
			}
		}
	}
	for _, trigger := range scalars(mappingValue(root, "triggers")) {
		rec.AddTrigger(trigger)
	}

	if jobs := mappingValue(root, "jobs"); jobs != nil {
		for _, job := range jobNodes(jobs) {
			addSteps(rec, mappingValue(job, "steps"))
			for _, need := range scalars(mappingValue(job, "needs")) {
				rec.AddDependency(need)
			}
		}
	}
	addSteps(rec, mappingValue(root, "steps"))

	for _, key := range []string{"needs", "dependencies"} {
		for _, dep := range scalars(mappingValue(root, key)) {
			rec.AddDependency(dep)
		}
	}
	for _, key := range []string{"tags", "labels"} {
		for _, tag := range scalars(mappingValue(root, key)) {
			rec.AddTag(tag)
		}
	}

	return rec, true
}

// addSteps appends the commands of a steps sequence. A step contributes its run (or script)
// command and then its uses (or task) reference; a step with neither contributes its name.
func addSteps(rec *model.WorkflowRecord, steps *yaml.Node) {
	if steps == nil || steps.Kind != yaml.SequenceNode {
		return
	}
	for _, step := range steps.Content {
		step = resolve(step)
		switch step.Kind {
		case yaml.ScalarNode:
			rec.AddAction(step.Value)
		case yaml.MappingNode:
			run := firstScalar(step, "run", "script")
			uses := firstScalar(step, "uses", "task")
			if run == "" && uses == "" {
				rec.AddAction(scalar(mappingValue(step, "name")))

				continue
			}
			rec.AddAction(run)
			rec.AddAction(uses)
		}
	}
}

// jobNodes returns the job definitions of a jobs mapping (keyed by job id) or sequence.
func jobNodes(jobs *yaml.Node) []*yaml.Node {
	var nodes []*yaml.Node
	switch jobs.Kind {
	case yaml.MappingNode:
		for i := 1; i < len(jobs.Content); i += 2 {
			if job := resolve(jobs.Content[i]); job.Kind == yaml.MappingNode {
				nodes = append(nodes, job)
			}
		}
	case yaml.SequenceNode:
		for _, job := range jobs.Content {
			if job = resolve(job); job.Kind == yaml.MappingNode {
				nodes = append(nodes, job)
			}
		}
	}

	return nodes
}

func resolve(node *yaml.Node) *yaml.Node {
	for node != nil && node.Kind == yaml.AliasNode {
		node = node.Alias
	}

	return node
}

func mappingValue(node *yaml.Node, key string) *yaml.Node {
	if node == nil || node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return resolve(node.Content[i+1])
		}
	}

	return nil
}

func mappingKeys(node *yaml.Node) []string {
	keys := make([]string, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		keys = append(keys, node.Content[i].Value)
	}

	return keys
}

func scalar(node *yaml.Node) string {
	if node == nil || node.Kind != yaml.ScalarNode || node.Tag == "!!null" {
		return ""
	}

	return strings.TrimSpace(node.Value)
}

func firstScalar(node *yaml.Node, keys ...string) string {
	for _, key := range keys {
		if value := scalar(mappingValue(node, key)); value != "" {
			return value
		}
	}

	return ""
}

// scalars flattens a scalar or a sequence of scalars.
func scalars(node *yaml.Node) []string {
	if node == nil {
		return nil
	}
	switch node.Kind {
	case yaml.ScalarNode:
		if value := scalar(node); value != "" {
			return []string{value}
		}
	case yaml.SequenceNode:
		values := make([]string, 0, len(node.Content))
		for _, item := range node.Content {
			if value := scalar(resolve(item)); value != "" {
				values = append(values, value)
			}
		}

		return values
	}

	return nil
}
