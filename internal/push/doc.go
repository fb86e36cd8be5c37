// Package push reconciles a baseline configuration envelope into a target
// tenant: it refreshes the target's cached state, classifies every baseline
// entry against it, and executes ordered multi-pass create/update calls with
// source-to-target identifier remapping, emitting a per-entry outcome report.
package push
