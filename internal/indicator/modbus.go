package indicator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goburrow/modbus"
)

const (
	coilOn  uint16 = 0xFF00
	coilOff uint16 = 0x0000
)

type coilWriter interface {
	WriteSingleCoil(address, value uint16) ([]byte, error)
}

type ModbusConfig struct {
	Endpoint string
	SlaveID  uint8
	Coil     uint16
	Timeout  time.Duration
}

// Modbus drives a single coil on a Modbus TCP device, e.g. a PLC output
// wired to a stack light.
type Modbus struct {
	mu      sync.Mutex
	handler *modbus.TCPClientHandler
	client  coilWriter
	coil    uint16
}

func OpenModbus(cfg ModbusConfig) (*Modbus, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("modbus indicator: endpoint required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}

	h := modbus.NewTCPClientHandler(cfg.Endpoint)
	h.Timeout = cfg.Timeout
	h.SlaveId = cfg.SlaveID
	if err := h.Connect(); err != nil {
		return nil, fmt.Errorf("modbus indicator connect %s: %w", cfg.Endpoint, err)
	}

	return &Modbus{
		handler: h,
		client:  modbus.NewClient(h),
		coil:    cfg.Coil,
	}, nil
}

func (m *Modbus) SetAlert(_ context.Context, on bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	v := coilOff
	if on {
		v = coilOn
	}
	if _, err := m.client.WriteSingleCoil(m.coil, v); err != nil {
		return fmt.Errorf("write coil %d: %w", m.coil, err)
	}
	return nil
}

func (m *Modbus) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.handler == nil {
		return nil
	}
	return m.handler.Close()
}
