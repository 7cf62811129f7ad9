// Package alertsync keeps an alert.Store in step with OpsGenie.
//
// Each Sync call:
//  1. derives a watermark from the store (latest UpdatedAt, or now minus the
//     configured history when nothing is known yet),
//  2. asks for "status: open OR updatedAt >= <watermark>" page by page,
//     sleeping a fixed delay between pages,
//  3. writes every returned alert into the store, replacing older versions,
//  4. returns the IDs that were not in the store before, in fetch order.
//
// A failed page request aborts the whole fetch and surfaces as *FetchError;
// nothing from that cycle is merged.
package alertsync
