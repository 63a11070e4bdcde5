/*
Package workers sizes the indexer's worker pool in containerized environments.

runtime.NumCPU reports the host's CPUs, while GOMAXPROCS follows the container
CPU limit (Go 1.19+). Sizing from GOMAXPROCS keeps a library scan on a 2-core
pod from spawning 64 goroutines that all hammer the same NFS share.

	limit := workers.ForIO(16) // directory enumeration is I/O bound

Set INDEX_WORKERS to pin the count, e.g. INDEX_WORKERS=2 for slow network
storage.
*/
package workers
