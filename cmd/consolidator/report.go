package main

import (
	"encoding/json"
	"io"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/askiada/go-consolidator/pkg/consolidator"
	"github.com/askiada/go-consolidator/pkg/consolidator/model"
	"github.com/askiada/go-consolidator/pkg/consolidator/similarity"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"
)

// report is the document printed by the run command.
type report struct {
	RunID        string                            `json:"run_id" yaml:"run_id"`
	Root         string                            `json:"root" yaml:"root"`
	Records      []*model.WorkflowRecord           `json:"records" yaml:"records"`
	Clusters     []model.ClusterAssignment         `json:"clusters" yaml:"clusters"`
	Consolidated []*model.ConsolidatedWorkflow     `json:"consolidated" yaml:"consolidated"`
	ClusterLinks []model.ClusterLink               `json:"cluster_links" yaml:"cluster_links"`
	Documents    map[string]model.Document         `json:"documents" yaml:"documents"`
	Similar      map[string][]similarity.Neighbour `json:"similar,omitempty" yaml:"similar,omitempty"`
	Stats        consolidator.Stats                `json:"stats" yaml:"stats"`
}

func newReport(root string, res *consolidator.Result, top int) report {
	rep := report{
		RunID:        res.RunID.String(),
		Root:         root,
		Records:      res.Records,
		Clusters:     res.Assignments,
		Consolidated: res.Consolidated,
		ClusterLinks: res.ClusterLinks,
		Documents:    make(map[string]model.Document, len(res.Consolidated)),
		Stats:        res.Stats,
	}
	for _, cw := range res.Consolidated {
		rep.Documents[cw.ClusterID] = cw.Document()
	}

	if top > 0 && res.Matrix != nil {
		rep.Similar = map[string][]similarity.Neighbour{}
		for i, path := range res.Matrix.Paths() {
			if neighbours := res.Matrix.MostSimilar(i, top); len(neighbours) > 0 {
				rep.Similar[path] = neighbours
			}
		}
	}

	return rep
}

func writeReport(w io.Writer, format string, rep report) error {
	switch format {
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		err := enc.Encode(rep)
		if err != nil {
			return errors.Wrap(err, "unable to encode yaml report")
		}

		return errors.Wrap(enc.Close(), "unable to flush yaml report")
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		err := enc.Encode(rep)
		if err != nil {
			return errors.Wrap(err, "unable to encode json report")
		}

		return nil
	}
}
