// surface.go - Surface state and binding table decoding

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
surface.go - Surface State

Shader dataports name surfaces indirectly: a binding table (an array
of 32-bit offsets relative to the surface-state base address) selects
a 16-dword SURFACE_STATE descriptor, which in turn carries the format,
tiling, dimensions and the 64-bit base address of the pixel data.

Descriptor layout consumed here:

    dword 0  bits 18-26 format, bits 12-13 tile mode
    dword 2  bits 0-13 width-1, bits 16-29 height-1
    dword 3  bits 0-17 stride-1
    dwords 8-9  base address
*/

package main

import "encoding/binary"

type Surface struct {
	Format   uint32
	TileMode uint32
	Width    uint32
	Height   uint32
	Stride   uint32
	CPP      uint32
	Pixels   []byte
}

// readDwords copies n dwords from guest memory, checking the mapping
// is large enough.
func (gt *GT) readDwords(addr uint64, n int) []uint32 {
	p := gt.Mem.Translate(addr)
	if len(p) < n*4 {
		return nil
	}
	out := make([]uint32, n)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(p[i*4:])
	}
	return out
}

// getSurface resolves entry index of the binding table at
// bindingTableOffset (relative to the surface-state base) into a
// decoded surface.
func (gt *GT) getSurface(bindingTableOffset uint32, index uint32, s *Surface) bool {
	table := gt.Mem.Translate(gt.SurfaceStateBaseAddress + uint64(bindingTableOffset))
	if len(table) < int(index+1)*4 {
		return false
	}
	stateOffset := binary.LittleEndian.Uint32(table[index*4:])

	state := gt.readDwords(gt.SurfaceStateBaseAddress+uint64(stateOffset), 16)
	if state == nil {
		return false
	}

	s.Format = field(state[0], 18, 26)
	s.TileMode = field(state[0], 12, 13)
	s.Width = field(state[2], 0, 13) + 1
	s.Height = field(state[2], 16, 29) + 1
	s.Stride = field(state[3], 0, 17) + 1
	s.CPP = formatSize(s.Format)

	base := getU64(state[8:10])
	s.Pixels = gt.Mem.Translate(base)
	if uint64(len(s.Pixels)) < uint64(s.Height)*uint64(s.Stride) {
		return false
	}
	s.Pixels = s.Pixels[:uint64(s.Height)*uint64(s.Stride)]

	return true
}
