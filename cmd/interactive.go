package main

import (
	"bufio"
	"fmt"
	"os"
	"runtime"
	"strings"

	"golang.org/x/term"
)

// interactiveSelect lets the user move through lines with the arrow keys and
// press Enter to run show for the selected index.
func interactiveSelect(lines []string, show func(i int)) {
	if len(lines) == 0 {
		return
	}

	if runtime.GOOS == "windows" {
		enableVT()
	}

	raw := newRawMode(int(os.Stdin.Fd()))
	if err := raw.enter(); err != nil {
		fmt.Println("(interactive selection not supported on this terminal)")
		return
	}
	defer raw.leave()

	reader := bufio.NewReader(os.Stdin)
	selected := 0

	redraw := func() {
		// Clear screen (ANSI reset to top + clear screen)
		fmt.Print("\033[H\033[2J")
		for i, l := range lines {
			prefix := "  "
			if i == selected {
				prefix = "> "
			}
			// Raw mode needs an explicit carriage return.
			fmt.Print(prefix + l + "\r\n")
		}
		fmt.Print("(↑/↓ to navigate, Enter to preview, Esc to quit)\r\n")
	}

	move := func(delta int) {
		next := selected + delta
		if next >= 0 && next < len(lines) {
			selected = next
			redraw()
		}
	}

	open := func() bool {
		raw.leave()
		fmt.Println()
		show(selected)

		fmt.Print("\n(press Enter to return)")
		_, _ = bufio.NewReader(os.Stdin).ReadBytes('\n')

		if err := raw.enter(); err != nil {
			return false
		}
		reader = bufio.NewReader(os.Stdin)
		redraw()
		return true
	}

	redraw()

	for {
		b1, err := reader.ReadByte()
		if err != nil {
			return
		}
		// Windows console arrow sequences (0 or 224, then code)
		if b1 == 0 || b1 == 224 {
			b2, _ := reader.ReadByte()
			switch b2 {
			case 72: // up
				move(-1)
			case 80: // down
				move(1)
			case 13: // Enter
				if !open() {
					return
				}
			}
			continue
		}

		switch b1 {
		case 27: // ESC or ANSI sequence
			if reader.Buffered() == 0 {
				fmt.Print("\r\n")
				return
			}
			b2, _ := reader.ReadByte()
			if b2 != '[' || reader.Buffered() == 0 {
				continue
			}
			b3, _ := reader.ReadByte()
			switch b3 {
			case 'A':
				move(-1)
			case 'B':
				move(1)
			}
		case '\r', '\n':
			if !open() {
				return
			}
		case 'q', 3: // q or Ctrl-C
			fmt.Print("\r\n")
			return
		}
	}
}

// rawMode holds the state to restore while the terminal is raw; leave is a
// no-op otherwise.
type rawMode struct {
	fd      int
	state   *term.State
	makeRaw func(fd int) (*term.State, error)
	restore func(fd int, state *term.State) error
}

func newRawMode(fd int) *rawMode {
	return &rawMode{fd: fd, makeRaw: term.MakeRaw, restore: term.Restore}
}

func (m *rawMode) enter() error {
	state, err := m.makeRaw(m.fd)
	if err != nil {
		return err
	}
	m.state = state
	return nil
}

func (m *rawMode) leave() {
	if m.state == nil {
		return
	}
	_ = m.restore(m.fd, m.state)
	m.state = nil
}

// confirm asks a yes/no question on the cooked terminal.
func confirm(prompt string) bool {
	fmt.Print(prompt)
	resp, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	resp = strings.ToLower(strings.TrimSpace(resp))
	return resp == "y" || resp == "yes"
}
