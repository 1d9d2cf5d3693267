//go:build windows

package main

import (
	"os"

	"golang.org/x/sys/windows"
)

// enableVT makes the console deliver arrow keys as ANSI sequences and
// interpret the redraw escapes.
func enableVT() {
	addConsoleMode(os.Stdin, windows.ENABLE_VIRTUAL_TERMINAL_INPUT)
	addConsoleMode(os.Stdout, windows.ENABLE_VIRTUAL_TERMINAL_PROCESSING)
}

// addConsoleMode ORs flag into f's console mode. Redirected handles have no
// console mode and are left alone.
func addConsoleMode(f *os.File, flag uint32) {
	h := windows.Handle(f.Fd())
	var mode uint32
	if err := windows.GetConsoleMode(h, &mode); err != nil || mode&flag != 0 {
		return
	}
	_ = windows.SetConsoleMode(h, mode|flag)
}
