// sfid_messages.go - Send message dispatch: URB and sampler dataports

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
sfid_messages.go - Send Message Dispatch

A send instruction hands a block of message registers to a shared
function selected by SFID. The simulator services three: the URB
dataport (VUE reads and writes), the sampler (nearest-filtered 2D
lookups), and the render cache (render target writes, in
render_cache.go). Everything else is a logged stub.

URB message layout: function-control bits 0-3 carry the message
opcode, bits 4-14 the global cell offset. The first message register
holds one URB handle per lane; subsequent registers carry the payload,
four registers (x, y, z, w, each across the lanes) per VUE cell.
*/

package main

import "github.com/chewxy/math32"

func (gt *GT) execSend(t *Thread, in *Inst, send *instSend) {
	dst := unpack2SrcDst(in).num
	src := unpack2SrcSrc0(in).num

	switch send.sfid {
	case SFID_URB:
		gt.sfidURB(t, dst, src, send)
	case SFID_SAMPLER:
		gt.sfidSampler(t, dst, src, send)
	case SFID_RENDER_CACHE:
		gt.sfidRenderCache(t, src, send)
	case SFID_NULL, SFID_MATH, SFID_GATEWAY, SFID_THREAD_SPAWNER:
		// Thread-management traffic carries no simulator-visible
		// state; the EOT bit has already been honoured.
	default:
		stub("sfid %d message", send.sfid)
	}
}

func (gt *GT) sfidURB(t *Thread, dst, src uint32, send *instSend) {
	opcode := field(send.functionControl, 0, 3)
	offset := field(send.functionControl, 4, 14)

	switch opcode {
	case URB_OPCODE_WRITE_SIMD8:
		gt.urbWriteSIMD8(t, src, offset, send.mlen)
	case URB_OPCODE_READ_SIMD8:
		gt.urbReadSIMD8(t, dst, src, offset, send.rlen)
	default:
		stub("urb message opcode %d", opcode)
	}
}

func (gt *GT) urbWriteSIMD8(t *Thread, src, offset, mlen uint32) {
	if traceMask&TRACE_URB != 0 {
		gtTrace(TRACE_URB,
			"urb simd8 write, src g%d, global offset %d, mlen %d, mask %02x\n",
			src, offset, mlen, t.mask)

		gtTrace(TRACE_URB, "  grf%d:", src)
		for c := uint32(0); c < 8; c++ {
			gtTrace(TRACE_URB, "  %6d", int32(t.ud(src, c)))
		}
		gtTrace(TRACE_URB, "\n")

		for i := uint32(1); i < mlen; i++ {
			gtTrace(TRACE_URB, "  grf%d:", src+i)
			for c := uint32(0); c < 8; c++ {
				gtTrace(TRACE_URB, "  %6.1f", t.f(src+i, c))
			}
			gtTrace(TRACE_URB, "\n")
		}
	}

	forEachBit(t.mask, func(c int) {
		handle := t.ud(src, uint32(c))
		for i := uint32(0); i+1 < mlen; i++ {
			gt.vueWrite(handle, int(offset+i/4), int(i%4), t.ud(src+1+i, uint32(c)))
		}
	})
}

func (gt *GT) urbReadSIMD8(t *Thread, dst, src, offset, rlen uint32) {
	gtTrace(TRACE_URB, "urb simd8 read, dst g%d, global offset %d, rlen %d, mask %02x\n",
		dst, offset, rlen, t.mask)

	forEachBit(t.mask, func(c int) {
		handle := t.ud(src, uint32(c))
		for i := uint32(0); i < rlen; i++ {
			t.setUD(dst+i, uint32(c), gt.vueRead(handle, int(offset+i/4), int(i%4)))
		}
	})
}

// sfidSampler services a sample message: nearest filtering with wrap
// addressing, u in grf[src] and v in grf[src+1], four response
// registers r,g,b,a.
func (gt *GT) sfidSampler(t *Thread, dst, src uint32, send *instSend) {
	surfaceIndex := field(send.functionControl, 0, 7)
	if send.headerPresent {
		src++
	}

	var tex Surface
	ok := gt.getSurface(t.ud(0, 4), surfaceIndex, &tex)
	gtAssert(ok, "sampler surface %d unresolvable", surfaceIndex)

	for c := uint32(0); c < 8; c++ {
		// Wrap
		u := t.f(src, c)
		v := t.f(src+1, c)
		u -= math32.Floor(u)
		v -= math32.Floor(v)

		texX := uint32(cvttF32(u * float32(tex.Width)))
		texY := uint32(cvttF32(v * float32(tex.Height)))
		if texX >= tex.Width {
			texX = tex.Width - 1
		}
		if texY >= tex.Height {
			texY = tex.Height - 1
		}
		off := texX*tex.CPP + texY*tex.Stride

		const scale = float32(1.0 / 255.0)

		switch tex.Format {
		case SF_R8G8B8X8_UNORM:
			p := tex.Pixels[off:]
			t.setF(dst+0, c, float32(p[0])*scale)
			t.setF(dst+1, c, float32(p[1])*scale)
			t.setF(dst+2, c, float32(p[2])*scale)
			t.setF(dst+3, c, 1.0)
		case SF_R8G8B8A8_UNORM:
			p := tex.Pixels[off:]
			t.setF(dst+0, c, float32(p[0])*scale)
			t.setF(dst+1, c, float32(p[1])*scale)
			t.setF(dst+2, c, float32(p[2])*scale)
			t.setF(dst+3, c, float32(p[3])*scale)
		case SF_R32G32B32A32_FLOAT:
			for ch := uint32(0); ch < 4; ch++ {
				t.setUD(dst+ch, c, leU32(tex.Pixels[off+ch*4:]))
			}
		default:
			stub("sampler format 0x%03x", tex.Format)
			return
		}
	}
}

func leU32(p []byte) uint32 {
	return uint32(p[0]) | uint32(p[1])<<8 | uint32(p[2])<<16 | uint32(p[3])<<24
}
