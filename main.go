package main

import "github.com/theirongolddev/agentinsights/cmd"

func main() {
	cmd.Execute()
}
