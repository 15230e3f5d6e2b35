package main

import (
	"os"

	"github.com/fruitstand/fruitstand/internal/cmd"
)

func main() {
	os.Exit(cmd.Main(os.Args))
}
