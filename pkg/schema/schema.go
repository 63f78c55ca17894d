package schema

import "time"

////////////////////////////////////////////////////////////////////////////////
// GLOBALS

const (
	SchemaName = "filesplit"

	// ChunkSize is the maximum payload of a single chunk object (8 MiB)
	ChunkSize = 8 * 1024 * 1024

	// PartMarker separates the original filename from the index and total
	// in a chunk object name
	PartMarker = ".part_"

	// PartSeparator separates the index from the total in a chunk object name
	PartSeparator = "_of_"
)

const (
	// RetryLimit is the number of attempts made for a single chunk
	RetryLimit = 3

	// RetryBackoff is the wait between attempts after a transient failure
	RetryBackoff = 10 * time.Second

	// AttemptTimeout bounds the wall-clock time of a single attempt
	AttemptTimeout = 2 * time.Minute

	// ChunkPace is the wait after every successfully sent chunk
	ChunkPace = time.Second

	// BatchPauseEvery is the chunk interval before which BatchPause is applied
	BatchPauseEvery = 50

	// BatchPause is the wait before every BatchPauseEvery'th chunk
	BatchPause = 5 * time.Second
)

const (
	// DefaultDownloadDir is the directory fresh downloads are written into
	DefaultDownloadDir = "uploads"

	// AttrName is the object metadata key holding the chunk object name
	AttrName = "name"
)
