package consolidator

import (
	"time"

	"github.com/askiada/go-consolidator/pkg/consolidator/cluster"
	"github.com/askiada/go-consolidator/pkg/consolidator/extractor"
	"github.com/askiada/go-consolidator/pkg/consolidator/scanner"
)

// Config is what a caller hands to one consolidation run.
type Config struct {
	// Root is the workspace directory to scan.
	Root string `mapstructure:"root" yaml:"root" validate:"required"`
	// Exclude lists directory names skipped at any depth.
	Exclude []string `mapstructure:"exclude" yaml:"exclude"`
	// Extensions lists the file extensions considered, matched case-insensitively.
	Extensions []string `mapstructure:"extensions" yaml:"extensions" validate:"required,min=1,dive,required"`
	// Threshold is the inclusive similarity needed to join two unclassified records.
	Threshold float64 `mapstructure:"threshold" yaml:"threshold" validate:"gte=0,lte=1"`
	// Concurrency bounds the extraction workers and the parallel synthesis.
	Concurrency int `mapstructure:"concurrency" yaml:"concurrency" validate:"gte=1"`
	// ParseTimeout bounds the extraction of one file, 0 disables it. A file exceeding it is
	// kept as an Unknown record.
	ParseTimeout time.Duration `mapstructure:"parse_timeout" yaml:"parse_timeout" validate:"gte=0"`
	// MaxFileBytes is the largest file parsed, 0 disables the limit.
	MaxFileBytes int64 `mapstructure:"max_file_bytes" yaml:"max_file_bytes" validate:"gte=0"`
	// Taxonomy is the ordered category table.
	Taxonomy cluster.Taxonomy `mapstructure:"taxonomy" yaml:"taxonomy" validate:"dive"`
	// AnnotationsFile optionally points at a YAML annotation file.
	AnnotationsFile string `mapstructure:"annotations_file" yaml:"annotations_file"`
}

// DefaultConfig returns the configuration used when the caller overrides nothing.
func DefaultConfig() Config {
	return Config{
		Root:         ".",
		Exclude:      append([]string(nil), scanner.DefaultExclude...),
		Extensions:   append([]string(nil), scanner.DefaultExtensions...),
		Threshold:    cluster.DefaultThreshold,
		Concurrency:  4,
		ParseTimeout: 5 * time.Second,
		MaxFileBytes: extractor.DefaultMaxBytes,
		Taxonomy:     cluster.DefaultTaxonomy(),
	}
}
