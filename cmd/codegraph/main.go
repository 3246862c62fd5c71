package main

import "github.com/MonsieurBarti/codegraph/cmd/codegraph/cli"

func main() {
	cli.Execute()
}
