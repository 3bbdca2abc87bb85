package core

// PoolStats represents runtime observability state for a thread pool.
type PoolStats struct {
	ID         string
	Workers    int
	Queued     int
	Active     int
	Running    bool
	Shutdown   bool
	Terminated bool
}
