// Package model holds the records exchanged by the consolidator stages: the WorkflowRecord
// extracted from each scanned file, the ClusterAssignment produced by clustering and the
// ConsolidatedWorkflow synthesized for each cluster.
package model
