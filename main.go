package main

import "rowsetstats/cmd"

func main() {
	cmd.Execute()
}
