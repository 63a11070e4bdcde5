// Package memory keeps the server inside its container memory limit.
//
// Archive pages are decompressed into memory before they are served, and a
// full reindex may hold many of them at once alongside rar dictionary
// windows. The package does two things about that.
//
// [ConfigureFromEnv] sets the runtime soft limit early in main:
//
//   - GOMEMLIMIT: standard Go variable; takes precedence when set.
//   - MEMORY_LIMIT: container limit in bytes, typically from the Kubernetes
//     Downward API.
//   - MEMORY_RATIO: share of MEMORY_LIMIT given to the heap (default 0.85).
//
// A Downward API example:
//
//	env:
//	  - name: MEMORY_LIMIT
//	    valueFrom:
//	      resourceFieldRef:
//	        resource: limits.memory
//
// [Monitor] samples heap usage and implements the indexer's gate: once
// allocation crosses the pause watermark, entry builds block in
// [Monitor.Wait] until usage falls below the resume watermark.
package memory
