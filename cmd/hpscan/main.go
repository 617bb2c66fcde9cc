// Package main provides the hpscan CLI: a walkup scan client for HP
// network scanners.
//
// Usage:
//
//	hpscan scan --host printer.local
//	hpscan listen --host printer.local
//	hpscan destinations list --host printer.local
//
// See --help for all available options.
package main

func main() {
	Execute()
}
