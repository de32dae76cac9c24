package main

import "github.com/Togather-Foundation/campus/cmd/campus/cmd"

func main() {
	cmd.Execute()
}
