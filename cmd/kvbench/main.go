package main

import (
	"os"

	"github.com/hhkbp2/kvbench/binding"
)

func main() {
	binding.AddBindings()
	os.Exit(Execute(os.Args[1:], streams{in: os.Stdin, out: os.Stdout, err: os.Stderr}))
}
