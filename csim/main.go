// Package main is the entry point of csim.
package main

import (
	"github.com/jedisct1/dlog"
	"github.com/sarchlab/csim/csim/cmd"
)

func main() {
	dlog.Init("csim", dlog.SeverityNotice, "USER")
	cmd.Execute()
}
