package main

import "github.com/rebs-build/rebs/cmd"

func main() {
	cmd.Execute()
}
