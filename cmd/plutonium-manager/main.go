package main

import "github.com/oshokin/plutonium-manager/cmd/plutonium-manager/cmd"

func main() {
	cmd.Execute()
}
