// Package migration manages database schema versioning using embedded
// SQL migration files and golang-migrate. Migrations run against an
// already-open database handle so the package stays driver-agnostic.
package migration
