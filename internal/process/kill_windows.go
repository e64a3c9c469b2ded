//go:build windows

package process

import (
	"os/exec"
	"strconv"
)

// killTree uses taskkill: /F forces, /T includes child processes.
func killTree(pid int) {
	_ = exec.Command("taskkill", "/F", "/T", "/PID", strconv.Itoa(pid)).Run()
}
