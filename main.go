package main

import "nxsetup/cmd"

func main() {
	cmd.Execute()
}
