package main

import "regrag/internal/cli"

func main() {
	cli.Execute()
}
