package main

import (
	"os"

	"github.com/MeKo-Tech/codescan/cmd/codescan/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
