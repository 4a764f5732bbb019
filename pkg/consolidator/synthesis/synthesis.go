// Package synthesis merges the records of one cluster into a consolidated workflow.
package synthesis

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/askiada/go-consolidator/pkg/consolidator/annotation"
	"github.com/askiada/go-consolidator/pkg/consolidator/model"
)

// ErrMissingMember is returned when a cluster member has no record.
var ErrMissingMember = errors.New("cluster member has no record")

// TriggerPrecedence orders merged triggers. Triggers not listed keep first-seen order after
// the listed ones.
var TriggerPrecedence = []string{"pull_request", "push", "schedule", "workflow_dispatch"}

// Synthesize merges the members of assignment. records may hold more than the members, only
// members are used, visited in path order. Steps are deduplicated on their trimmed,
// case-folded form and the first occurrence wins. lookup may be nil.
func Synthesize(
	assignment model.ClusterAssignment,
	records []*model.WorkflowRecord,
	lookup annotation.Lookup,
) (*model.ConsolidatedWorkflow, error) {
	byPath := make(map[string]*model.WorkflowRecord, len(records))
	for _, rec := range records {
		byPath[rec.Path] = rec
	}

	members := make([]string, len(assignment.Members))
	copy(members, assignment.Members)
	sort.Strings(members)

	cw := &model.ConsolidatedWorkflow{
		ClusterID:      assignment.ID,
		Label:          assignment.Label,
		Name:           assignment.Label + " Master Workflow",
		Description:    "Consolidated workflow for " + assignment.Label + " operations",
		Members:        members,
		MergedTriggers: []string{},
		MergedSteps:    []string{},
		Provenance:     map[string]string{},
	}

	var (
		triggers  []string
		seenTrig  = map[string]struct{}{}
		seenSteps = map[string]struct{}{}
		deps      = map[string]struct{}{}
	)
	for _, path := range members {
		rec, ok := byPath[path]
		if !ok {
			return nil, errors.Wrapf(ErrMissingMember, "cluster %s: %s", assignment.ID, path)
		}

		for _, trigger := range rec.Triggers {
			if _, ok := seenTrig[trigger]; ok {
				continue
			}
			seenTrig[trigger] = struct{}{}
			triggers = append(triggers, trigger)
		}

		for _, step := range rec.Actions {
			norm := model.NormalizeStep(step)
			if norm == "" {
				continue
			}
			if _, ok := seenSteps[norm]; ok {
				continue
			}
			seenSteps[norm] = struct{}{}
			cw.MergedSteps = append(cw.MergedSteps, step)
			cw.Provenance[step] = path
		}

		for _, dep := range rec.Dependencies {
			deps[dep] = struct{}{}
		}

		if lookup != nil {
			if a, ok := lookup.Annotation(path); ok {
				if cw.Annotations == nil {
					cw.Annotations = map[string]model.Annotation{}
				}
				cw.Annotations[path] = a
			}
		}
	}

	cw.MergedTriggers = orderTriggers(triggers)
	for dep := range deps {
		cw.Dependencies = append(cw.Dependencies, dep)
	}
	sort.Strings(cw.Dependencies)

	return cw, nil
}

// orderTriggers sorts first-seen triggers by TriggerPrecedence, keeping first-seen order for
// the rest.
func orderTriggers(triggers []string) []string {
	rank := make(map[string]int, len(TriggerPrecedence))
	for i, trigger := range TriggerPrecedence {
		rank[trigger] = i
	}
	ordered := make([]string, len(triggers))
	copy(ordered, triggers)
	sort.SliceStable(ordered, func(i, j int) bool {
		ri, okI := rank[ordered[i]]
		rj, okJ := rank[ordered[j]]
		switch {
		case okI && okJ:
			return ri < rj
		case okI != okJ:
			return okI
		default:
			return false
		}
	})

	return ordered
}
