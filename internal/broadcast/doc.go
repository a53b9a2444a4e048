// Package broadcast delivers mode snapshots to live display clients.
//
// A Broadcaster owns the subscriber registry and the last published
// snapshot. Subscribe queues that snapshot on the new channel before
// returning, so every subscriber starts from the current state. Publish is
// non-blocking: each subscriber has a bounded queue and one that cannot
// keep up is removed and its channel closed. Other subscribers are never
// delayed by a slow one.
//
// Within one subscriber messages arrive in publish order. Across
// subscribers no delivery timing is implied.
package broadcast
