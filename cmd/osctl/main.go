package main

import "objectstore/cmd/osctl/cmd"

func main() {
	cmd.Execute()
}
