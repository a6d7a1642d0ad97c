package main

import (
	"os"

	"github.com/tpcgrp/p6ebs-sync/internal/cli/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
