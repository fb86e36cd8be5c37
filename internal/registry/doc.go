// Package registry is the closed catalog of resource types.
//
// Everything type-specific lives here as plain data: the identifier and
// natural-key fields, deletion-by-absence behavior, push ordering, skip
// sets, and the read-only fields stripped before comparisons. The import
// and push engines contain no per-type code paths beyond what these tables
// express.
package registry
