// Package moonraker provides the HTTP request executor for a Moonraker
// printer host.
//
// # Overview
//
// Every request roost sends goes through Client.Execute. It applies one
// policy in one place so call sites never branch on raw status codes:
//
//   - GET requests time out after 10s, POST requests after 60s (POSTs carry
//     G-code such as G28 that legitimately runs for a long time)
//   - up to 3 attempts, waiting attempt × 500ms before each retry
//   - the response is classified into a closed set of outcomes
//
// # Outcomes
//
//	2xx            Success            clears the unconnected indicator
//	400            ApplicationError   delivered; error message sent to the warning sink
//	5xx, 408       Retryable          retried, then Abandoned
//	other status   Abandoned          not retried
//	no response    Retryable          GET only: raises the unconnected indicator
//
// Execute never hands Retryable back to the caller; a request that ran out of
// attempts is reported as Abandoned with the last error attached.
//
// # Unconnected Indicator
//
// Client.Unconnected starts true and flips on responses. POST transport
// failures leave it alone: a homing move that outlives the timeout says
// nothing about the link.
//
// # Typed Queries
//
// QueryReadiness, QueryPrinter, QueryProgress and QueryStatusMacro decode the
// endpoints the status poller reads. Payload fields are pointers so that a
// missing key can be told apart from a zero value; the poller keeps the last
// known value for anything the host did not send.
//
// # API Endpoints
//
//	GET  /printer/objects/query?webhooks
//	GET  /api/printer
//	GET  /printer/objects/query?virtual_sdcard
//	GET  /printer/objects/query?gcode_macro%20<macro>
//	POST /printer/gcode/script?script=<gcode>
package moonraker
