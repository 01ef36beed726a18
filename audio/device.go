package audio

import (
	"fmt"
	"os"

	"golang.org/x/term"
)

// DeviceByIndex resolves an index as printed by SelectDevice.
func DeviceByIndex(ctx Context, index int) (*DeviceInfo, error) {
	devices, err := ctx.Devices()
	if err != nil {
		return nil, fmt.Errorf("enumerating devices: %w", err)
	}
	if len(devices) == 0 {
		return nil, ErrNoDevices
	}
	if index < 0 || index >= len(devices) {
		return nil, fmt.Errorf("device index %d out of range (0-%d)", index, len(devices)-1)
	}
	return &devices[index], nil
}

func describe(d DeviceInfo) string {
	s := d.Name
	if d.Channels > 0 && d.SampleRate > 0 {
		s += fmt.Sprintf(" \x1b[2m(%d ch, %d Hz)\x1b[0m", d.Channels, d.SampleRate)
	}
	if IsBluetooth(d.Name) {
		s += " \x1b[33m[⚠ Lower audio quality]\x1b[0m"
	}
	return s
}

// SelectDevice presents an interactive device picker and returns the selected
// device and its index. If only one device is available, it returns that
// device without prompting. The first device is preselected.
func SelectDevice(ctx Context) (*DeviceInfo, int, error) {
	devices, err := ctx.Devices()
	if err != nil {
		return nil, -1, fmt.Errorf("enumerating devices: %w", err)
	}

	if len(devices) == 0 {
		return nil, -1, ErrNoDevices
	}

	if len(devices) == 1 {
		return &devices[0], 0, nil
	}

	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return nil, -1, fmt.Errorf("setting raw mode: %w", err)
	}

	defer term.Restore(fd, oldState)

	pk := picker{count: len(devices)}
	renderList := func() {
		fmt.Print("\r\x1b[J")
		fmt.Printf("Select input device (↑/↓ or type 0-%d, Enter to confirm):\r\n\r\n", len(devices)-1)
		for i, d := range devices {
			if i == pk.cursor {
				fmt.Printf("  \x1b[1;36m▶ %2d. %s\x1b[0m\r\n", i, describe(d))
			} else {
				fmt.Printf("    %2d. %s\r\n", i, describe(d))
			}
		}
	}

	renderList()

	buf := make([]byte, 3)
	for {
		n, err := os.Stdin.Read(buf)
		if err != nil {
			return nil, -1, fmt.Errorf("reading input: %w", err)
		}

		switch pk.key(buf[:n]) {
		case pickDone:
			fmt.Print("\r\n")
			return &devices[pk.cursor], pk.cursor, nil
		case pickCancel:
			fmt.Print("\r\n")
			return nil, -1, nil
		}

		lines := len(devices) + 2
		fmt.Printf("\x1b[%dA", lines)
		renderList()
	}
}

type pickResult int

const (
	pickMore pickResult = iota
	pickDone
	pickCancel
)

// picker tracks the cursor of the device list. Digits typed in a row form
// one index, so lists longer than ten entries can be reached by number.
type picker struct {
	count  int
	cursor int
	typed  int  // index typed so far
	digits bool // typed continues with the next digit
}

func (p *picker) key(in []byte) pickResult {
	if len(in) == 3 && in[0] == 0x1b && in[1] == '[' {
		p.digits = false
		switch in[2] {
		case 'A': // Up arrow
			p.up()
		case 'B': // Down arrow
			p.down()
		}
		return pickMore
	}
	if len(in) != 1 {
		return pickMore
	}

	c := in[0]
	if c >= '0' && c <= '9' {
		d := int(c - '0')
		if next := p.typed*10 + d; p.digits && next < p.count {
			p.typed = next
		} else if d < p.count {
			p.typed = d
		} else {
			p.digits = false
			return pickMore
		}
		p.digits = true
		p.cursor = p.typed
		return pickMore
	}

	p.digits = false
	switch c {
	case 13: // Enter
		return pickDone
	case 3: // Ctrl+C
		return pickCancel
	case 'j':
		p.down()
	case 'k':
		p.up()
	}
	return pickMore
}

func (p *picker) up() {
	if p.cursor > 0 {
		p.cursor--
	}
}

func (p *picker) down() {
	if p.cursor < p.count-1 {
		p.cursor++
	}
}
