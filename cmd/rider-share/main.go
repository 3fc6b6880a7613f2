package main

import "github.com/rudransh-shrivastava/rider-share/internal/cli"

func main() {
	cli.Execute()
}
