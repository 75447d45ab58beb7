// Package http provides the HTTP transport adapter for the approval
// gate. It exposes two inbound endpoints: a creation endpoint that
// accepts provisioning request payloads from internal tooling, and an
// interaction endpoint that receives Slack interactivity callbacks
// (button clicks and modal submissions).
//
// The interaction endpoint authenticates every request with Slack's
// signing-secret scheme before any payload parsing. The creation
// endpoint is meant to sit behind the caller's own network controls.
//
// The adapter also serves /health and /metrics. Metrics live in a
// private Prometheus registry owned by the transport so two transports
// in one process (as in tests) never collide on registration.
package http
