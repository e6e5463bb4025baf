package main

import "github.com/quantpipe/quantpipe/internal/cli"

func main() {
	cli.Execute()
}
