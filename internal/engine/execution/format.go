package execution

import (
	"fmt"
	"strings"
	"time"

	"go.trai.ch/wash/internal/core/domain"
)

// Header returns the line shown above a run's output.
func Header(tool string, cmd domain.Command, dir string) string {
	return fmt.Sprintf("$ %s %s (in %s)", tool, cmd, dir)
}

// Footer summarizes a terminal status below a run's output.
func Footer(tool string, status domain.ExitStatus, lines int) string {
	switch status.Kind {
	case domain.Exited:
		if status.Code == 0 {
			return fmt.Sprintf("✓ Finished successfully in %s (%d lines)", seconds(status.Duration), lines)
		}
		return fmt.Sprintf("✗ Failed with exit code %d after %s", status.Code, seconds(status.Duration))
	case domain.FailedToStart:
		var b strings.Builder
		b.WriteString("✗ Failed to start")
		if status.Err != nil {
			b.WriteString(": ")
			b.WriteString(status.Err.Error())
		}
		b.WriteString("\nPossible causes:")
		fmt.Fprintf(&b, "\n  • %s is not installed or not on PATH", tool)
		b.WriteString("\n  • the project directory was removed or is not accessible")
		return b.String()
	case domain.Terminated:
		return fmt.Sprintf("⊘ Terminated after %s", seconds(status.Duration))
	default:
		return ""
	}
}

func seconds(d time.Duration) string {
	return fmt.Sprintf("%.2fs", d.Seconds())
}
