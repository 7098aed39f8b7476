// Package sse renders triage graph events as Server-Sent Events and reads them
// back.
//
// Every frame is an "event:" line naming one of the frame types below, a single
// "data:" line carrying compact JSON, and a blank line:
//
//	event: routing
//	data: {"routing":["aci","palo_alto"],"reasoning":"both IPs are known"}
//
// Node lifecycle events become "thought" frames, routing decisions "routing"
// frames, the final report a "triage_report" frame, and a failed run an
// "error" frame.
package sse
