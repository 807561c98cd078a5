package main

import (
	_ "go.uber.org/automaxprocs"

	"github.com/JustFiesta/DB-engine-comparison/cmd"
)

func main() {
	cmd.Execute()
}
