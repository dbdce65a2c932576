// Package cmd defines and implements the CLI commands for the newopenings executable.
//
//	newopenings serve   # API, weekly scheduler and run worker
//	newopenings run     # one synchronous discovery-and-reconciliation pass
package cmd
