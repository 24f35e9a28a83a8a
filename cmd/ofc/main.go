package main

import "github.com/mcoot/openface/internal/cli"

func main() {
	cli.Execute()
}
