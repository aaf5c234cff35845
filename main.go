package main

import "rowferry/cmd"

func main() {
	cmd.Execute()
}
