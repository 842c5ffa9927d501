package main

import "github.com/workspace-dev/workspace/cmd"

func main() {
	cmd.Execute()
}
