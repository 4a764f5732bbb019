// Package model provides the data structures shared by the pipeline package and its options.
// It defines the step descriptors passed between stages and the hook interface that
// pipeline options (such as measure) implement.
package model
