package main

import "contextrag/internal/cli"

func main() {
	cli.Execute()
}
