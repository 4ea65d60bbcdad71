// Package provider holds the committee members a resolver can poll: local
// heuristic bots, an OpenAI-compatible language model client and, through
// package network, proposers in other processes. Build assembles a committee
// from configuration.
package provider
