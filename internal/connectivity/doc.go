// Package connectivity tracks whether the network is reachable and tells
// listeners when that changes. Its signal gates deferred work that requires
// a network connection.
//
// The state can come from periodic probes (Monitor.Run with a Prober) or be
// set directly by the host through Monitor.Set.
package connectivity
