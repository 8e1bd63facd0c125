/*
Package operation scans a directory tree for matches and applies replacements.

	+-------------+
	|  Operation  |
	| (Core Logic)|
	+------+------+
	       |
	+------+------+
	|    Apply    |
	| (Transform) |
	+------+------+

🎯 Purpose:
- Runs the walker and the matcher over every candidate file
- Rewrites matched files, or only counts in dry-run mode
- Folds per-file results into a Summary
- Renders line diffs for previews

🔄 Flow:
 1. Scan reads candidate files from walk through status.FileManager
 2. text.Matcher counts matches, undecodable files become warnings
 3. Apply transforms each matched file and writes it back atomically
 4. DryRunReporter (or Summarize) totals the results

⚡ Notes:
  - File I/O goes through the status package, never os directly
  - Dry run and a real run share the same code path up to the write
  - A file whose replacement is identical to its match is counted with zero
    replacements and never written

🔍 Example:

	op, err := operation.New(operation.Options{Walker: w, Matcher: m})
	scan, err := op.Scan(ctx)
	applied, err := op.Apply(ctx, scan.Matches, false)
	summary := operation.Summarize(scan.FilesScanned, applied.Results)
*/
package operation
