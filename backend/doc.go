// Package backend routes memory operations across storage destinations.
//
// A Chain owns an ordered pair of backends: an optional remote one
// (typically a vector database reached over unreliable transport) and
// a local one that is always present. Writes land on the local backend
// first, then are mirrored to the remote one under a retry policy; a
// remote failure after retries degrades to local-only, invisibly to
// the caller. Retrieval prefers the remote backend and falls back to
// local whenever the remote fails or comes back empty. A per-user rate
// limiter, when configured, sheds remote calls for users issuing them
// faster than the configured interval.
package backend
