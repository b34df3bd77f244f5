package main

import (
	"io"
	"os"
	"strings"

	"github.com/Conceptual-Machines/workplan-api/internal/workplan"
	"github.com/mattn/go-isatty"
)

const progressBarWidth = 30

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// progressPrinter redraws a bar in place on terminals and prints one line
// per item otherwise
func progressPrinter(w io.Writer, interactive bool) workplan.ProgressFunc {
	return func(completed, total int) {
		if !interactive {
			printf(w, "processed %d/%d\n", completed, total)
			return
		}
		printf(w, "\r[%s] %d/%d", progressBar(completed, total), completed, total)
		if completed == total {
			printf(w, "\n")
		}
	}
}

func progressBar(completed, total int) string {
	filled := 0
	if total > 0 {
		filled = completed * progressBarWidth / total
	}
	return strings.Repeat("#", filled) + strings.Repeat(".", progressBarWidth-filled)
}
