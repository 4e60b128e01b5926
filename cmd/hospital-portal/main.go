package main

import (
	"os"

	"github.com/raksha360/hospital-portal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
