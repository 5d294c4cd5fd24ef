// Package datasync implements the simulated data synchronisation used in two
// ways: a fire-and-forget Service that runs one sync and stops itself, and a
// Worker whose sync body is submitted as deferred work gated on network
// connectivity.
package datasync
