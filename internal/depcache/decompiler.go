package depcache

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

// ExecDecompiler invokes an external decompiler binary (CFR-style CLI):
// the binary receives the JAR path and the internal class path and prints
// Java-like source on stdout.
type ExecDecompiler struct {
	// Path is the decompiler binary; empty disables decompilation.
	Path string
}

// Decompile runs the binary under the caller's context.
func (d *ExecDecompiler) Decompile(ctx context.Context, jarPath, internalClassPath string) (string, error) {
	if d.Path == "" {
		return "", fmt.Errorf("decompiler binary not configured")
	}
	cmd := exec.CommandContext(ctx, d.Path, jarPath, internalClassPath)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("decompiler: %w (%s)", err, bytes.TrimSpace(stderr.Bytes()))
	}
	if stdout.Len() == 0 {
		return "", fmt.Errorf("decompiler produced no output for %s", internalClassPath)
	}
	return stdout.String(), nil
}
