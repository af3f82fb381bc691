package main

import (
	"os"

	"github.com/arnavsurve/minipas/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
