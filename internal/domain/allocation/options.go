package allocation

import (
	"context"

	"github.com/dakheliyah/vms/internal/domain/constraint"
	"github.com/dakheliyah/vms/pkg/logger"
)

// Option configures a Submitter.
type Option func(*Submitter)

// WithRequireBlock makes a block mandatory for venues that have blocks.
func WithRequireBlock(require bool) Option {
	return func(s *Submitter) {
		s.requireBlock = require
	}
}

// WithEvaluator replaces the default constraint evaluator.
func WithEvaluator(e *constraint.Evaluator) Option {
	return func(s *Submitter) {
		if e != nil {
			s.evaluator = e
		}
	}
}

// WithOnConfirmed registers fn to run once after a submission in which at
// least one member was confirmed, while those members are still busy.
func WithOnConfirmed(fn func(ctx context.Context, memberIDs []int64)) Option {
	return func(s *Submitter) {
		s.onConfirmed = fn
	}
}

// WithOutcomeSink sends every result to sink.
func WithOutcomeSink(sink OutcomeSink) Option {
	return func(s *Submitter) {
		s.sink = sink
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Submitter) {
		if l != nil {
			s.logger = l
		}
	}
}
