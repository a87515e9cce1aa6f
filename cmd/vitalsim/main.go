package main

import "github.com/vitalsim/vitalsim/cmd/vitalsim/cmd"

func main() {
	cmd.Execute()
}
