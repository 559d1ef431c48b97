// Package backend holds the fixed pool of origin servers and their health
// flags. The Registry is the only shared view of that pool: the health monitor
// writes flags through it, the balancer and status endpoint read snapshots.
package backend
