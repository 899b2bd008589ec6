package main

import "github.com/Alijeyrad/cogniscreen/cmd"

func main() {
	cmd.Execute()
}
