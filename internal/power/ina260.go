package power

import (
	"encoding/binary"
	"fmt"

	"periph.io/x/conn/v3/i2c"
)

// INA260 register map (datasheet SBOS656).
const (
	regCurrent    = 0x01
	regBusVoltage = 0x02
	regMfgID      = 0xFE

	mfgIDTexasInstruments = 0x5449

	// Both measurement registers have an LSB of 1.25 units.
	lsbNumerator   = 5
	lsbDenominator = 4
)

// DefaultAddr is the INA260 address with A0/A1 tied to ground.
const DefaultAddr = 0x40

// INA260 reads a TI INA260 power monitor.
type INA260 struct {
	dev *i2c.Dev
}

// NewINA260 probes the device at addr and verifies its manufacturer ID.
func NewINA260(bus i2c.Bus, addr uint16) (*INA260, error) {
	s := &INA260{dev: &i2c.Dev{Bus: bus, Addr: addr}}
	id, err := s.readRegister(regMfgID)
	if err != nil {
		return nil, fmt.Errorf("probe ina260 at 0x%02x: %w", addr, err)
	}
	if id != mfgIDTexasInstruments {
		return nil, fmt.Errorf("probe ina260 at 0x%02x: unexpected manufacturer id 0x%04x", addr, id)
	}
	return s, nil
}

// ReadVoltageMV returns the bus voltage in millivolts.
func (s *INA260) ReadVoltageMV() (int32, error) {
	raw, err := s.readRegister(regBusVoltage)
	if err != nil {
		return 0, fmt.Errorf("read bus voltage: %w", err)
	}
	return DecodeBusVoltage(raw), nil
}

// ReadCurrentMA returns the load current in milliamps.
func (s *INA260) ReadCurrentMA() (int32, error) {
	raw, err := s.readRegister(regCurrent)
	if err != nil {
		return 0, fmt.Errorf("read current: %w", err)
	}
	return DecodeCurrent(raw), nil
}

func (s *INA260) readRegister(reg byte) (uint16, error) {
	var buf [2]byte
	if err := s.dev.Tx([]byte{reg}, buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(buf[:]), nil
}

// DecodeBusVoltage converts the unsigned bus voltage register to millivolts.
func DecodeBusVoltage(raw uint16) int32 {
	return int32(raw) * lsbNumerator / lsbDenominator
}

// DecodeCurrent converts the two's-complement current register to milliamps.
func DecodeCurrent(raw uint16) int32 {
	return int32(int16(raw)) * lsbNumerator / lsbDenominator
}
