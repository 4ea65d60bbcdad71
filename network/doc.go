// Package network exposes proposers over HTTP(S) so that a committee can
// include members running in other processes.
//
// # Core Components
//
// Server: serves one local consensus.Proposer. POST /propose takes a JSON
// consensus.Request and answers with the proposed move in its wire shape;
// GET /healthz reports the proposer id.
//
// Client: a consensus.Proposer that forwards every call to a Server. The
// request is bound to the call context, so cancelling a round cancels the
// remote call.
//
// # Transport Security
//
// Servers can present a generated self-signed certificate. Clients either
// trust that certificate explicitly or, for LAN play, skip verification.
package network
