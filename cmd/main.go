package main

import "github.com/canopy-network/dpos/cmd/cli"

func main() {
	cli.Execute()
}
