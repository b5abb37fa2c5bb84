package main

import (
	"github.com/bnema/shipit/cmd"
)

var (
	version string
	commit  string
	date    string
)

func main() {
	cmd.ExecuteCLI(version, commit, date)
}
