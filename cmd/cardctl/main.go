package main

import "bizcards/internal/cli"

func main() {
	cli.Execute()
}
