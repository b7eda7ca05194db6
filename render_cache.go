// render_cache.go - Render cache dataport: render target writes

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
render_cache.go - Render Target Writes

The render cache message is how pixel data leaves a thread: a SIMD8
write covers one 4x2 pixel block (two 2x2 subspans), a rep16 write
broadcasts a single colour oword over two blocks (the fast-clear
path). The dispatcher picks a specialization by render-target format
and tiling; a missing specialization logs a stub and skips the write,
it never corrupts memory.

Pixel lane geometry for a block anchored at (x, y):

    lane i -> (x + (i&1) + (i/2&2), y + (i/2&1))

X-major tiles are 4KiB as 8 rows of 512 bytes; Y-major tiles are 4KiB
as 8 columns of 16 bytes by 32 rows. All stores honour the per-lane
quad masks so disabled lanes leave memory untouched.
*/

package main

import "encoding/binary"

// rtWriteArgs carries one render-cache message.
type rtWriteArgs struct {
	src     uint32
	surface uint32
	rt      Surface
}

func (gt *GT) sfidRenderCache(t *Thread, src uint32, send *instSend) {
	opcode := field(send.functionControl, 14, 17)
	msgType := field(send.functionControl, 8, 10)
	surface := field(send.functionControl, 0, 7)

	args := rtWriteArgs{src: src, surface: surface}
	rtValid := gt.getSurface(t.ud(0, 4), surface, &args.rt)
	gtAssert(rtValid, "render target %d unresolvable", surface)

	switch opcode {
	case 12: /* rt write */
		switch msgType {
		case 1: /* rep16 */
			switch {
			case isBGRA8XTiled(&args.rt):
				gt.rtWriteRep16BGRAUnorm8XTiled(t, &args)
			default:
				stub("rep16 rt write format/tile_mode: 0x%03x %d",
					args.rt.Format, args.rt.TileMode)
			}
		case 4: /* simd8 */
			switch {
			case args.rt.Format == SF_R16G16B16A16_UNORM && args.rt.TileMode == TILE_LINEAR:
				gt.rtWriteSIMD8RGBAUnorm16Linear(t, &args)
			case args.rt.Format == SF_R8G8B8A8_UNORM && args.rt.TileMode == TILE_LINEAR:
				gt.rtWriteSIMD8RGBAUnorm8Linear(t, &args)
			case isBGRA8XTiled(&args.rt):
				gt.rtWriteSIMD8BGRAUnorm8XTiled(t, &args)
			case args.rt.Format == SF_R8_UINT && args.rt.TileMode == TILE_YMAJOR:
				gt.rtWriteSIMD8R8UintYMajor(t, &args)
			default:
				stub("simd8 rt write format/tile_mode: 0x%03x %d",
					args.rt.Format, args.rt.TileMode)
			}
		default:
			stub("rt write type %d", msgType)
		}
	default:
		stub("render cache message opcode %d", opcode)
	}
}

func isBGRA8XTiled(rt *Surface) bool {
	if rt.TileMode != TILE_XMAJOR {
		return false
	}
	switch rt.Format {
	case SF_B8G8R8A8_UNORM, SF_B8G8R8A8_UNORM_SRGB,
		SF_B8G8R8X8_UNORM, SF_B8G8R8X8_UNORM_SRGB:
		return true
	default:
		return false
	}
}

// unorm8 converts one float lane to an 8-bit channel with round to
// nearest and saturation.
func unorm8(f float32) uint32 {
	v := cvttF32(f*255.0 + 0.5)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint32(v)
}

func unorm16(f float32) uint32 {
	v := cvttF32(f*65535.0 + 0.5)
	if v < 0 {
		return 0
	}
	if v > 65535 {
		return 65535
	}
	return uint32(v)
}

// laneXY gives the screen position of lane i in a 4x2 block anchored
// at (x, y).
func laneXY(x, y, i uint32) (uint32, uint32) {
	return x + (i & 1) + (i / 2 & 2), y + (i / 2 & 1)
}

// xTileOffset maps a pixel to its byte offset under X-major tiling:
// 4KiB tiles of 8 rows by 512 bytes.
func xTileOffset(x, y, cpp, stride uint32) uint32 {
	tileX := x * cpp / 512
	tileY := y / 8
	tileStride := stride / 512
	tileBase := (tileX + tileY*tileStride) * 4096

	ix := (x * cpp) & 511
	iy := y & 7
	return tileBase + ix + iy*512
}

// yTileOffset maps a pixel to its byte offset under Y-major tiling:
// 4KiB tiles of 8 columns, each 16 bytes wide by 32 rows tall.
func yTileOffset(x, y, cpp, stride uint32) uint32 {
	tileX := x * cpp / 128
	tileY := y / 32
	tileStride := stride / 128
	tileBase := (tileX + tileY*tileStride) * 4096

	ix := (x * cpp) & 15
	column := (x * cpp / 16) & 7
	iy := y & 31
	return tileBase + ix + column*16*32 + iy*16
}

func (gt *GT) rtWriteSIMD8BGRAUnorm8XTiled(t *Thread, args *rtWriteArgs) {
	x := uint32(t.uw(1, 4))
	y := uint32(t.uw(1, 5))

	if x >= args.rt.Width || y >= args.rt.Height {
		return
	}

	for i := uint32(0); i < 8; i++ {
		if t.maskQ1[i] == 0 {
			continue
		}
		r := unorm8(t.f(args.src+0, i))
		g := unorm8(t.f(args.src+1, i))
		b := unorm8(t.f(args.src+2, i))
		a := unorm8(t.f(args.src+3, i))
		argb := a<<24 | r<<16 | g<<8 | b

		sx, sy := laneXY(x, y, i)
		off := xTileOffset(sx, sy, 4, args.rt.Stride)
		binary.LittleEndian.PutUint32(args.rt.Pixels[off:], argb)
	}
}

func (gt *GT) rtWriteSIMD8RGBAUnorm8Linear(t *Thread, args *rtWriteArgs) {
	x := uint32(t.uw(1, 4))
	y := uint32(t.uw(1, 5))

	if x >= args.rt.Width || y >= args.rt.Height {
		return
	}

	for i := uint32(0); i < 8; i++ {
		if t.maskQ1[i] == 0 {
			continue
		}
		r := unorm8(t.f(args.src+0, i))
		g := unorm8(t.f(args.src+1, i))
		b := unorm8(t.f(args.src+2, i))
		a := unorm8(t.f(args.src+3, i))
		abgr := a<<24 | b<<16 | g<<8 | r

		sx, sy := laneXY(x, y, i)
		off := sx*args.rt.CPP + sy*args.rt.Stride
		binary.LittleEndian.PutUint32(args.rt.Pixels[off:], abgr)
	}
}

func (gt *GT) rtWriteSIMD8RGBAUnorm16Linear(t *Thread, args *rtWriteArgs) {
	x := uint32(t.uw(1, 4))
	y := uint32(t.uw(1, 5))

	if x >= args.rt.Width || y >= args.rt.Height {
		return
	}

	for i := uint32(0); i < 8; i++ {
		if t.maskQ1[i] == 0 {
			continue
		}
		r := unorm16(t.f(args.src+0, i))
		g := unorm16(t.f(args.src+1, i))
		b := unorm16(t.f(args.src+2, i))
		a := unorm16(t.f(args.src+3, i))

		sx, sy := laneXY(x, y, i)
		off := sx*args.rt.CPP + sy*args.rt.Stride
		binary.LittleEndian.PutUint32(args.rt.Pixels[off:], g<<16|r)
		binary.LittleEndian.PutUint32(args.rt.Pixels[off+4:], a<<16|b)
	}
}

func (gt *GT) rtWriteSIMD8R8UintYMajor(t *Thread, args *rtWriteArgs) {
	x := uint32(t.uw(1, 4))
	y := uint32(t.uw(1, 5))

	for i := uint32(0); i < 8; i++ {
		if t.maskQ1[i] == 0 {
			continue
		}
		v := t.ud(args.src, i)
		if v > 255 {
			v = 255
		}

		sx, sy := laneXY(x, y, i)
		off := yTileOffset(sx, sy, 1, args.rt.Stride)
		args.rt.Pixels[off] = byte(v)
	}
}

func (gt *GT) rtWriteRep16BGRAUnorm8XTiled(t *Thread, args *rtWriteArgs) {
	// One colour oword, replicated: channels come from lanes 0-3 of
	// the single source register, already in r,g,b,a order.
	r := unorm8(t.f(args.src, 0))
	g := unorm8(t.f(args.src, 1))
	b := unorm8(t.f(args.src, 2))
	a := unorm8(t.f(args.src, 3))
	argb := a<<24 | r<<16 | g<<8 | b

	blocks := [2]struct {
		x, y uint32
		mask Vec8
	}{
		{uint32(t.uw(1, 4)), uint32(t.uw(1, 5)), t.maskQ1},
		{uint32(t.uw(1, 8)), uint32(t.uw(1, 9)), t.maskQ2},
	}

	for _, blk := range blocks {
		for i := uint32(0); i < 8; i++ {
			if blk.mask[i] == 0 {
				continue
			}
			sx, sy := laneXY(blk.x, blk.y, i)
			off := xTileOffset(sx, sy, 4, args.rt.Stride)
			binary.LittleEndian.PutUint32(args.rt.Pixels[off:], argb)
		}
	}
}
