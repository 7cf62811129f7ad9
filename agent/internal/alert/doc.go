// Package alert holds the local view of OpsGenie alerts.
//
// Alert is the agent's copy of one remote alert. Every field except ID is
// optional: OpsGenie omits fields freely and consumers must branch on nil
// rather than assume presence.
//
// Store maps alert ID to the most recently retrieved Alert. Put replaces the
// whole record (no field-level merge) and reports whether the ID was already
// known; entries are never removed for the lifetime of the process.
package alert
