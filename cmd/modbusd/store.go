package main

import "sync"

// memoryStore is an in-memory Modbus data table, adapted from a
// map-per-object-type data store: one map per object type (coils, discrete
// inputs, holding registers, input registers), addresses absent from a map
// read back as the zero value. It exists so the reference binary has
// something to answer requests against; a real deployment would inject its
// own transport.Handler over live I/O instead.
type memoryStore struct {
	mu               sync.RWMutex
	coils            map[uint16]bool
	discreteInputs   map[uint16]bool
	holdingRegisters map[uint16]uint16
	inputRegisters   map[uint16]uint16
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		coils:            make(map[uint16]bool),
		discreteInputs:   make(map[uint16]bool),
		holdingRegisters: make(map[uint16]uint16),
		inputRegisters:   make(map[uint16]uint16),
	}
}

func (s *memoryStore) readCoils(address, nobjs uint16) []bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]bool, nobjs)
	for i := range out {
		out[i] = s.coils[address+uint16(i)]
	}
	return out
}

func (s *memoryStore) readDiscreteInputs(address, nobjs uint16) []bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]bool, nobjs)
	for i := range out {
		out[i] = s.discreteInputs[address+uint16(i)]
	}
	return out
}

func (s *memoryStore) readHoldingRegisters(address, nobjs uint16) []uint16 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]uint16, nobjs)
	for i := range out {
		out[i] = s.holdingRegisters[address+uint16(i)]
	}
	return out
}

func (s *memoryStore) readInputRegisters(address, nobjs uint16) []uint16 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]uint16, nobjs)
	for i := range out {
		out[i] = s.inputRegisters[address+uint16(i)]
	}
	return out
}

func (s *memoryStore) writeCoil(address uint16, value bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.coils[address] = value
}

func (s *memoryStore) writeRegister(address, value uint16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.holdingRegisters[address] = value
}

func (s *memoryStore) writeMultipleCoils(address uint16, values []bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, v := range values {
		s.coils[address+uint16(i)] = v
	}
}

func (s *memoryStore) writeMultipleRegisters(address uint16, values []uint16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, v := range values {
		s.holdingRegisters[address+uint16(i)] = v
	}
}
