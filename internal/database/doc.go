// Package database manages the gorm connection pool: sizing, periodic
// health checks, and transaction helpers with retry for transient
// failures. This package is internal and should not be imported by
// external projects.
package database
