package main

import "loro-platform/cmd"

func main() {
	cmd.Execute()
}
