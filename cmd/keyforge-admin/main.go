// Command keyforge-admin administers a running keyforge server.
package main

import "github.com/keyforge/keyforge/cmd/cli"

func main() {
	cli.Execute()
}
