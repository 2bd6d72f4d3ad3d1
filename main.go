package main

import "nathanbeddoewebdev/fleetmetrics/cmd"

func main() {
	cmd.Execute()
}
