// Command smartsaver runs the SmartSaver ledger CLI and API server.
package main

import "github.com/smartsaver/smartsaver/internal/cli"

func main() {
	cli.Execute()
}
