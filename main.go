package main

import "github.com/docgate/docgate/cmd"

func main() {
	cmd.Execute()
}
