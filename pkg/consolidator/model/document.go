package model

import (
	"strings"
	"unicode/utf8"
)

const stepNameMaxLen = 50

// Document is the pipeline-shaped view of a consolidated workflow. External writers can
// marshal it with yaml.v3; triggers are a sequence so their order survives.
type Document struct {
	Name        string                 `json:"name" yaml:"name"`
	Description string                 `json:"description,omitempty" yaml:"description,omitempty"`
	On          []string               `json:"on" yaml:"on"`
	Jobs        map[string]DocumentJob `json:"jobs" yaml:"jobs"`
}

// DocumentJob is a job of Document.
type DocumentJob struct {
	RunsOn string         `json:"runs-on" yaml:"runs-on"`
	Steps  []DocumentStep `json:"steps" yaml:"steps"`
}

// DocumentStep is one step of a DocumentJob.
type DocumentStep struct {
	Name string `json:"name" yaml:"name"`
	Run  string `json:"run,omitempty" yaml:"run,omitempty"`
	Uses string `json:"uses,omitempty" yaml:"uses,omitempty"`
}

// Document renders the consolidated workflow as a single-job pipeline definition.
func (c *ConsolidatedWorkflow) Document() Document {
	steps := make([]DocumentStep, 0, len(c.MergedSteps))
	for _, step := range c.MergedSteps {
		if isActionRef(step) {
			steps = append(steps, DocumentStep{Name: "Action: " + truncate(step), Uses: step})

			continue
		}
		steps = append(steps, DocumentStep{Name: "Run: " + truncate(firstLine(step)), Run: step})
	}

	return Document{
		Name:        c.Name,
		Description: c.Description,
		On:          append([]string{}, c.MergedTriggers...),
		Jobs: map[string]DocumentJob{
			"consolidated": {
				RunsOn: "ubuntu-latest",
				Steps:  steps,
			},
		},
	}
}

// isActionRef matches references such as actions/checkout@v4.
func isActionRef(step string) bool {
	if strings.ContainsAny(step, " \t\n") {
		return false
	}
	at := strings.LastIndex(step, "@")

	return at > 0 && strings.Contains(step[:at], "/") && at < len(step)-1
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}

	return s
}

func truncate(s string) string {
	if utf8.RuneCountInString(s) <= stepNameMaxLen {
		return s
	}
	runes := []rune(s)

	return string(runes[:stepNameMaxLen]) + "..."
}
