// Package process stops the headless browsers launched for PDF export.
package process

// Terminate kills the process pid and every child it spawned. Chrome forks
// renderer and GPU helpers that outlive a plain kill of the parent. Errors
// are ignored: the process may already be gone. pid <= 0 is a no-op, since
// it would address the caller's own process group.
func Terminate(pid int) {
	if pid <= 0 {
		return
	}
	killTree(pid)
}
