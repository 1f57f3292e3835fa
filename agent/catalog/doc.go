// Package catalog registers the restoration-report agent set shipped with
// the platform: intake, survey, estimation, compliance, and report
// assembly agents wired into the dependency graph the product uses.
package catalog
