// Package calculator implements a bound service: clients bind to obtain a
// Connection and call arithmetic operations through the Calculator handle it
// returns. The handle is only valid while its connection is bound.
package calculator
