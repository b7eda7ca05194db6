// vertex_formats.go - Surface format codes and vertex format decoding

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
Buy me a coffee: https://ko-fi.com/intuition/tip

License: GPLv3 or later
*/

/*
vertex_formats.go - Surface Formats

The format code namespace is shared by vertex elements, sampler
surfaces and render targets; this module holds the codes the simulator
understands, their per-element byte sizes, and the vertex-fetch
decoder that expands raw buffer bytes into a four-lane Value.

Missing components take hardware defaults: 0 for x/y/z and 1.0 (or
integer 1) for w.
*/

package main

import (
	"encoding/binary"
	"math"
)

// Surface format codes (SURFACE_STATE dword 0, bits 18-26).
const (
	SF_R32G32B32A32_FLOAT     = 0x000
	SF_R32G32B32A32_SINT      = 0x001
	SF_R32G32B32A32_UINT      = 0x002
	SF_R32G32B32_FLOAT        = 0x040
	SF_R16G16B16A16_UNORM     = 0x080
	SF_R16G16B16A16_FLOAT     = 0x084
	SF_R32G32_FLOAT           = 0x085
	SF_B8G8R8A8_UNORM         = 0x0C0
	SF_B8G8R8A8_UNORM_SRGB    = 0x0C1
	SF_R8G8B8A8_UNORM         = 0x0C7
	SF_R8G8B8A8_UNORM_SRGB    = 0x0C8
	SF_R8G8B8A8_UINT          = 0x0CB
	SF_R32_FLOAT              = 0x0D8
	SF_R32_UINT               = 0x0D7
	SF_B8G8R8X8_UNORM         = 0x0E9
	SF_B8G8R8X8_UNORM_SRGB    = 0x0EA
	SF_R8G8B8X8_UNORM         = 0x0EB
	SF_R8_UNORM               = 0x140
	SF_R8_UINT                = 0x143
)

// Surface tiling modes (SURFACE_STATE dword 0, bits 12-13).
const (
	TILE_LINEAR = 0
	TILE_WMAJOR = 1
	TILE_XMAJOR = 2
	TILE_YMAJOR = 3
)

// formatSize returns the byte size of one element of the format, or 0
// for formats the simulator does not know.
func formatSize(format uint32) uint32 {
	switch format {
	case SF_R32G32B32A32_FLOAT, SF_R32G32B32A32_SINT, SF_R32G32B32A32_UINT:
		return 16
	case SF_R32G32B32_FLOAT:
		return 12
	case SF_R16G16B16A16_UNORM, SF_R16G16B16A16_FLOAT, SF_R32G32_FLOAT:
		return 8
	case SF_B8G8R8A8_UNORM, SF_B8G8R8A8_UNORM_SRGB,
		SF_R8G8B8A8_UNORM, SF_R8G8B8A8_UNORM_SRGB, SF_R8G8B8A8_UINT,
		SF_R32_FLOAT, SF_R32_UINT,
		SF_B8G8R8X8_UNORM, SF_B8G8R8X8_UNORM_SRGB, SF_R8G8B8X8_UNORM:
		return 4
	case SF_R8_UNORM, SF_R8_UINT:
		return 1
	default:
		return 0
	}
}

func validVertexFormat(format uint32) bool {
	return formatSize(format) != 0
}

func depthFormatSize(format uint32) uint32 {
	switch format {
	case D32_FLOAT, D24_UNORM_X8:
		return 4
	case D16_UNORM:
		return 2
	default:
		gtAssert(false, "unknown depth format %d", format)
		return 0
	}
}

func vec4(x, y, z, w uint32) Value {
	return Value{V: [4]uint32{x, y, z, w}}
}

func fbits(f float32) uint32 {
	return math.Float32bits(f)
}

// fetchFormat decodes one vertex element from raw buffer bytes. Typed
// float formats produce float bit patterns; integer formats produce
// integers. UNORM8/16 expand to normalized floats the way the VF unit
// does.
func fetchFormat(data []byte, format uint32) Value {
	switch format {
	case SF_R32G32B32A32_FLOAT, SF_R32G32B32A32_SINT, SF_R32G32B32A32_UINT:
		return vec4(
			binary.LittleEndian.Uint32(data[0:]),
			binary.LittleEndian.Uint32(data[4:]),
			binary.LittleEndian.Uint32(data[8:]),
			binary.LittleEndian.Uint32(data[12:]))
	case SF_R32G32B32_FLOAT:
		return vec4(
			binary.LittleEndian.Uint32(data[0:]),
			binary.LittleEndian.Uint32(data[4:]),
			binary.LittleEndian.Uint32(data[8:]),
			fbits(1.0))
	case SF_R32G32_FLOAT:
		return vec4(
			binary.LittleEndian.Uint32(data[0:]),
			binary.LittleEndian.Uint32(data[4:]),
			0,
			fbits(1.0))
	case SF_R32_FLOAT:
		return vec4(binary.LittleEndian.Uint32(data[0:]), 0, 0, fbits(1.0))
	case SF_R32_UINT:
		return vec4(binary.LittleEndian.Uint32(data[0:]), 0, 0, 1)
	case SF_R16G16B16A16_UNORM:
		return vec4(
			fbits(float32(binary.LittleEndian.Uint16(data[0:]))/65535.0),
			fbits(float32(binary.LittleEndian.Uint16(data[2:]))/65535.0),
			fbits(float32(binary.LittleEndian.Uint16(data[4:]))/65535.0),
			fbits(float32(binary.LittleEndian.Uint16(data[6:]))/65535.0))
	case SF_R8G8B8A8_UNORM, SF_R8G8B8A8_UNORM_SRGB:
		return vec4(
			fbits(float32(data[0])/255.0),
			fbits(float32(data[1])/255.0),
			fbits(float32(data[2])/255.0),
			fbits(float32(data[3])/255.0))
	case SF_R8G8B8A8_UINT:
		return vec4(uint32(data[0]), uint32(data[1]), uint32(data[2]), uint32(data[3]))
	case SF_R8_UNORM:
		return vec4(fbits(float32(data[0])/255.0), 0, 0, fbits(1.0))
	case SF_R8_UINT:
		return vec4(uint32(data[0]), 0, 0, 1)
	default:
		stub("vertex format 0x%03x", format)
		return vec4(0, 0, 0, 0)
	}
}
