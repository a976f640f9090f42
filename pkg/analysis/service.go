// Package analysis implements the statistical analysis operations the
// engine exposes over relational tables: single-column statistics,
// duplicate detection, whole-table profiling and pairwise correlation.
// All operations are stateless; each call resolves schema metadata, issues
// aggregate queries through the datasource executor and post-processes the
// raw aggregates into derived statistics.
package analysis

import (
	"go.uber.org/zap"

	"github.com/statlens/statlens-engine/pkg/datasource"
)

// Limits bounds the caller-tunable knobs of the analysis operations.
type Limits struct {
	// MaxDuplicateLimit caps the number of duplicate groups a caller may
	// request in one call.
	MaxDuplicateLimit int
}

// DefaultLimits returns the limits used when none are configured.
func DefaultLimits() Limits {
	return Limits{MaxDuplicateLimit: 10000}
}

// Service runs the analysis operations against one database via its query
// executor. Identifier quoting is delegated to the executor's dialect.
type Service struct {
	executor datasource.QueryExecutor
	resolver *Resolver
	builder  *QueryBuilder
	detector *SensitiveDetector
	logger   *zap.Logger
	limits   Limits
}

// NewService creates an analysis service on top of the given executor.
// If logger is nil, a no-op logger is used.
func NewService(executor datasource.QueryExecutor, logger *zap.Logger, limits Limits) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if limits.MaxDuplicateLimit <= 0 {
		limits.MaxDuplicateLimit = DefaultLimits().MaxDuplicateLimit
	}
	return &Service{
		executor: executor,
		resolver: NewResolver(executor),
		builder:  NewQueryBuilder(executor.QuoteIdentifier),
		detector: DefaultSensitiveDetector,
		logger:   logger,
		limits:   limits,
	}
}
