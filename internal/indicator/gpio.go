package indicator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const DefaultGPIORoot = "/sys/class/gpio"

// GPIO drives one output pin through the Linux sysfs GPIO interface.
type GPIO struct {
	Root string
	Pin  int
}

// OpenGPIO exports pin if needed and configures it as an output driven low.
func OpenGPIO(root string, pin int) (*GPIO, error) {
	if pin < 0 {
		return nil, fmt.Errorf("gpio pin %d is not valid", pin)
	}
	if root == "" {
		root = DefaultGPIORoot
	}
	g := &GPIO{Root: root, Pin: pin}

	if _, err := os.Stat(g.dir()); errors.Is(err, os.ErrNotExist) {
		if err := os.WriteFile(filepath.Join(root, "export"), []byte(strconv.Itoa(pin)), 0o200); err != nil {
			return nil, fmt.Errorf("export gpio %d: %w", pin, err)
		}
		// udev needs a moment to hand the new node to the gpio group
		if err := waitFor(filepath.Join(g.dir(), "direction"), time.Second); err != nil {
			return nil, fmt.Errorf("export gpio %d: %w", pin, err)
		}
	}
	if err := os.WriteFile(filepath.Join(g.dir(), "direction"), []byte("low"), 0o644); err != nil {
		return nil, fmt.Errorf("set gpio %d direction: %w", pin, err)
	}
	return g, nil
}

func (g *GPIO) SetAlert(_ context.Context, on bool) error {
	v := []byte("0")
	if on {
		v = []byte("1")
	}
	if err := os.WriteFile(filepath.Join(g.dir(), "value"), v, 0o644); err != nil {
		return fmt.Errorf("write gpio %d: %w", g.Pin, err)
	}
	return nil
}

func (g *GPIO) dir() string {
	return filepath.Join(g.Root, "gpio"+strconv.Itoa(g.Pin))
}

func waitFor(path string, limit time.Duration) error {
	end := time.Now().Add(limit)
	for {
		_, err := os.Stat(path)
		if err == nil || time.Now().After(end) {
			return err
		}
		time.Sleep(20 * time.Millisecond)
	}
}
