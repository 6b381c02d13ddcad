package durastore

import "log/slog"

// Options configures how a store opens its WAL and shards its in-memory map.
// A plain struct with a DefaultOptions constructor, not a functional-options
// builder, matching the teacher's own internal/config.Config shape.
type Options struct {
	// Shards is the number of independently-locked buckets the outer map is
	// split across. Rounded up to the next power of two. Zero uses the
	// default.
	Shards int

	// Logger receives structured recovery events: falling back from backward
	// to forward scan, corruption detected during recovery, startup
	// compaction stats. Nil uses slog.Default().
	Logger *slog.Logger
}

// DefaultOptions returns the Options used when a store is opened without an
// explicit configuration.
func DefaultOptions() Options {
	return Options{
		Shards: 64,
		Logger: slog.Default(),
	}
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

func (o Options) shards() int {
	if o.Shards > 0 {
		return o.Shards
	}
	return DefaultOptions().Shards
}
