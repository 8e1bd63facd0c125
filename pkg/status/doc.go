/*
Package status owns file I/O and per-file bookkeeping for a replacement run.

	            +-------------+
	            |   Status    |
	            |  (Manager)  |
	            +------+------+
	                   |
	      +-----------+-----------+
	      |                       |
	+-----+-----+           +----+----+
	|   Files   |           | Tracking |
	|  (R / W)  |           | (UI/UX)  |
	+-----------+           +---------+

🎯 Purpose:
- Reads candidate files relative to the scanned root
- Rewrites changed files atomically, keeping permissions
- Records what happened to every file (modified, skipped, failed)
- Reports progress through zerolog

🔄 Flow:
 1. operation reads a file through FileManager
 2. the matcher transforms the content
 3. changed content goes back through WriteFileAtomic
 4. the outcome lands in StatusReporter.TrackFile

🤝 Interfaces:
- FileManager: ReadFile, WriteFileAtomic
- StatusReporter: TrackFile, ListFiles, progress hooks
- FileFormatter: turns a FileInfo into a log line

Paths handed to a Manager are slash separated and relative to its base
directory. Absolute paths are accepted when they sit below the base. Anything
that resolves outside it is rejected.
*/
package status
