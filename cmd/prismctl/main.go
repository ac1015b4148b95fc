package main

import "github.com/prismctl/prismctl/internal/cli"

func main() {
	cli.Execute()
}
