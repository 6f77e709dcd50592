package categorizer

import "context"

// LearnedWriter records a learned classification for a user.
type LearnedWriter interface {
	SetLearnedEntry(ctx context.Context, userID, key, category string) error
}
