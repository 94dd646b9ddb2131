package main

import "timekeeper/cli"

func main() {
	cli.Execute()
}
