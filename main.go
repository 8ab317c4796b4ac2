package main

import "github.com/node-pulse/apcupsd-exporter/cmd"

func main() {
	cmd.Execute()
}
