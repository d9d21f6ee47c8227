// Package todo defines tasks, the in-memory task collection and the per-user
// task file.
//
// The task file (tasks_<user>.json) is a JSON array validated against the
// embedded tasks.schema.json:
//
//	[
//	  {
//	    "id": "01927a5e-7f3c-7b0e-9d1c-3f2a8e5b6c7d",
//	    "title": "Buy milk",
//	    "description": "",
//	    "completed": true,
//	    "createdAt": "2026-10-15T09:00:00Z",
//	    "completedAt": "2026-10-15T10:30:00Z"
//	  }
//	]
//
// # Invariants
//
//   - ids are unique within a collection
//   - title is non-empty after trimming
//   - completedAt is set exactly when completed is true
//
// # Ordering
//
// Collections are unordered maps; every listing is sorted by createdAt
// ascending, ties broken by id (ids are time-ordered UUIDs).
//
// # File Format
//
// When writing task files, the package uses:
//   - 2-space indentation
//   - Trailing newline
//   - Atomic replace (temp file + rename)
package todo
