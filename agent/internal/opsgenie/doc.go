// Package opsgenie is a minimal client for the OpsGenie alert list API.
//
// Only the one operation the agent needs is implemented:
// ListAlerts issues GET {base}/v2/alerts with query, offset, limit, sort and
// order parameters and decodes the data and paging sections of the reply.
//
// Authentication uses the "Authorization: GenieKey <key>" header, injected by
// a RoundTripper so the key never appears in request-building code.
//
// An HTTP status of 400 or above is returned as *APIError. A body that is
// empty or cannot be decoded is treated as a page with no alerts.
package opsgenie
