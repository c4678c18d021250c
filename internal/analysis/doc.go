// Package analysis defines the per-URL result model, the collaborator
// interfaces, and the Analyzer that fans each URL out to traffic, screenshot,
// and page-content lookups before merging them into a Result.
//
// Every collaborator failure except a systemic one is absorbed: traffic lookups
// recover internally through heuristic estimates, and a failed screenshot or
// page fetch only omits that field. A malformed URL produces a sentinel Result
// carrying an error string instead of aborting the batch.
package analysis
