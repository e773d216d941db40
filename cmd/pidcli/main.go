package main

import (
	"github.com/robotalks/pidctl.go/pkg/cli/sh"
	"github.com/robotalks/pidctl.go/pkg/l1/env"

	_ "github.com/robotalks/pidctl.go/pkg/cli/cmds/ctl"
)

//go-build: CGO_ENABLED=0

func init() {
	env.SetupFlags()
}

func main() {
	sh.Main()
}
