// Command reportflow runs the restoration report workflow service.
//
// Usage:
//
//	reportflow serve                        # start the service
//	reportflow serve --config config.yaml   # with a config file
//	reportflow migrate up                   # apply schema migrations
//	reportflow migrate status               # show migration status
//	reportflow version                      # print build information
//	reportflow health                       # probe a running instance
package main
