// Package collector writes joined worker results in a deterministic order.
//
// Results are walked by worker index, then in the order each worker
// completed its tasks. The output is therefore grouped by worker and does
// not follow input order unless a single worker was used.
//
// Three formats are supported: text ("<label> f1 f2 ... fk" per line),
// json (one object per line) and yaml (a single sequence document).
package collector
