//go:build !linux

package daemonctl

import "os/exec"

func configureSysProcAttr(*exec.Cmd) {}
