// Package database manages the GORM connection used by every feature.
//
// Production runs against MySQL with connection-pool limits and DSN-level
// timeouts. The sqlite driver exists so tests and local tooling can run
// against an in-memory database with the same code paths.
package database
