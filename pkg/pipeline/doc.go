// Package pipeline runs a chain of concurrent stages connected by channels.
//
// A pipeline starts with a root step that produces elements, continues with any number of
// one-to-one steps that transform them (optionally with several goroutines per step) and ends
// with sinks that consume the results. Every stage reports errors on its own channel; the
// pipeline merges them and stops on the first one, cancelling the shared context so that every
// other stage returns promptly.
//
// The consolidator engine uses it to stream discovered file paths through a bounded pool of
// extraction workers into a single aggregating sink.
package pipeline
