// guest_memory.go - Guest physical memory for the IntuitionGT simulator

/*
 ██▓ ███▄    █ ▄▄▄█████▓ █    ██  ██▓▄▄▄█████▓ ██▓ ▒█████   ███▄    █    ▓█████  ███▄    █   ▄████  ██▓ ███▄    █ ▓█████
▓██▒ ██ ▀█   █ ▓  ██▒ ▓▒ ██  ▓██▒▓██▒▓  ██▒ ▓▒▓██▒▒██▒  ██▒ ██ ▀█   █    ▓█   ▀  ██ ▀█   █  ██▒ ▀█▒▓██▒ ██ ▀█   █ ▓█   ▀
▒██▒▓██  ▀█ ██▒▒ ▓██░ ▒░▓██  ▒██░▒██▒▒ ▓██░ ▒░▒██▒▒██░  ██▒▓██  ▀█ ██▒   ▒███   ▓██  ▀█ ██▒▒██░▄▄▄░▒██▒▓██  ▀█ ██▒▒███
░██░▓██▒  ▐▌██▒░ ▓██▓ ░ ▓▓█  ░██░░██░░ ▓██▓ ░ ░██░▒██   ██░▓██▒  ▐▌██▒   ▒▓█  ▄ ▓██▒  ▐▌██▒░▓█  ██▓░██░▓██▒  ▐▌██▒▒▓█  ▄
░██░▒██░   ▓██░  ▒██▒ ░ ▒▒█████▓ ░██░  ▒██▒ ░ ░██░░ ████▓▒░▒██░   ▓██░   ░▒████▒▒██░   ▓██░░▒▓███▀▒░██░▒██░   ▓██░░▒████▒
░▓  ░ ▒░   ▒ ▒   ▒ ░░   ░▒▓▒ ▒ ▒ ░▓    ▒ ░░   ░▓  ░ ▒░▒░▒░ ░ ▒░   ▒ ▒    ░░ ▒░ ░░ ▒░   ▒ ▒  ░▒   ▒ ░▓  ░ ▒░   ▒ ▒ ░░ ▒░ ░
 ▒ ░░ ░░   ░ ▒░    ░    ░░▒░ ░ ░  ▒ ░    ░     ▒ ░  ░ ▒ ▒░ ░ ░░   ░ ▒░    ░ ░  ░░ ░░   ░ ▒░  ░   ░  ▒ ░░ ░░   ░ ▒░ ░ ░  ░
 ▒ ░   ░   ░ ░   ░       ░░░ ░ ░  ▒ ░  ░       ▒ ░░ ░ ░ ▒     ░   ░ ░       ░      ░   ░ ░ ░ ░   ░  ▒ ░   ░   ░ ░    ░
 ░           ░             ░      ░            ░      ░ ░           ░       ░  ░         ░       ░  ░           ░    ░  ░

(c) 2025 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/IntuitionGT

License: GPLv3 or later
*/

/*
guest_memory.go - Guest Physical Memory

This module holds the flat guest address space that the command
streamer, the fixed-function units and the shader dataports all read
and write. The real device works on a GTT-mapped address space; the
simulator models it as a single contiguous byte slice.

Translate is the one primitive everything else is built on: it maps a
guest address to the backing bytes and tells the caller how many bytes
remain from that address. Every structured decoder must check the
remaining length before interpreting a payload.

All multi-byte accesses are little-endian, matching the device's wire
format.
*/

package main

import (
	"encoding/binary"
	"fmt"
	"os"
)

const DEFAULT_GUEST_MEMORY_SIZE = 64 * 1024 * 1024

type GuestMemory struct {
	data []byte
}

func NewGuestMemory(size int) *GuestMemory {
	if size <= 0 {
		size = DEFAULT_GUEST_MEMORY_SIZE
	}
	return &GuestMemory{data: make([]byte, size)}
}

// LoadImage replaces guest memory with the contents of a raw memory
// image file. The image defines the memory size.
func LoadImage(path string) (*GuestMemory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading guest memory image: %w", err)
	}
	return &GuestMemory{data: data}, nil
}

func (m *GuestMemory) Size() uint64 {
	return uint64(len(m.data))
}

// Translate maps a guest address to the backing byte slice. The length
// of the returned slice is the number of bytes addressable from addr;
// a nil return means the address is outside guest memory.
func (m *GuestMemory) Translate(addr uint64) []byte {
	if addr >= uint64(len(m.data)) {
		return nil
	}
	return m.data[addr:]
}

func (m *GuestMemory) ReadU32(addr uint64) uint32 {
	p := m.Translate(addr)
	gtAssert(len(p) >= 4, "u32 read at 0x%x outside guest memory", addr)
	return binary.LittleEndian.Uint32(p)
}

func (m *GuestMemory) ReadU64(addr uint64) uint64 {
	p := m.Translate(addr)
	gtAssert(len(p) >= 8, "u64 read at 0x%x outside guest memory", addr)
	return binary.LittleEndian.Uint64(p)
}

func (m *GuestMemory) WriteU32(addr uint64, value uint32) {
	p := m.Translate(addr)
	gtAssert(len(p) >= 4, "u32 write at 0x%x outside guest memory", addr)
	binary.LittleEndian.PutUint32(p, value)
}

func (m *GuestMemory) Reset() {
	for i := range m.data {
		m.data[i] = 0
	}
}

// field extracts the inclusive bit range [start, end] of a dword. All
// packet and descriptor decoding goes through this helper.
func field(value uint32, start, end int) uint32 {
	mask := ^uint32(0) >> (31 - end + start)
	return (value >> start) & mask
}

func getU64(p []uint32) uint64 {
	return uint64(p[0]) | uint64(p[1])<<32
}
