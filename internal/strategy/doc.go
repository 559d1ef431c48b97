// Package strategy defines how the balancer picks one backend out of the
// currently healthy subset.
//
// Only round robin is provided. Its cursor is a slot into whatever healthy
// slice it is handed, so the same cursor value may map to a different
// backend after health flags change.
package strategy
