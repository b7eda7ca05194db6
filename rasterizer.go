// rasterizer.go - Tiled edge-function rasterizer and PS dispatch

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
rasterizer.go - Rasterizer and Pixel Dispatch

Triangles are scanned with integer edge functions over 32x32-pixel
tiles. Per tile, a conservative maximum-edge-value test rejects tiles
the triangle cannot touch; inside a tile the scan steps a 4x2 pixel
block at a time, deriving the coverage mask from the edge-value sign
bits. Covered blocks run early depth, then dispatch one SIMD8 PS
thread whose payload carries the subspan positions, the sample mask,
the barycentric weights and the per-attribute interpolation deltas.

The edge test is e >= 0 on all three edges, which over-rasterizes
shared lower-right edges; this matches the behaviour of the reference
device model rather than a strict top-left fill rule.
*/

package main

import (
	"math/bits"

	"github.com/chewxy/math32"
)

const (
	tileWidth  = 128 / 4
	tileHeight = 32
)

// rastPayload carries one triangle's setup through tile traversal
// into PS dispatch.
type rastPayload struct {
	x0, y0                       int32
	startW2, startW0, startW1    int32
	invArea                      float32
	w2, w0, w1                   Vec8
	a01, b01, c01                int32
	a12, b12, c12                int32
	a20, b20, c20                int32

	zDeltas        [4]float32
	attributeDeltas [128]Vec8
}

// depthTestQuad interpolates depth over the block, compares against
// the depth buffer and stores surviving lanes. Returns the surviving
// mask.
func (gt *GT) depthTestQuad(p *rastPayload, mask uint32, x, y int32) uint32 {
	buffer := gt.Mem.Translate(gt.Depth.Address)
	gtAssert(buffer != nil, "depth buffer at 0x%x unmapped", gt.Depth.Address)

	stride := gt.Depth.Stride
	cpp := depthFormatSize(gt.Depth.Format)

	var scale float32
	switch gt.Depth.Format {
	case D24_UNORM_X8:
		scale = float32(1<<24 - 1)
	case D16_UNORM:
		scale = float32(1<<16 - 1)
	default:
		scale = 1.0
	}

	for i := uint32(0); i < 8; i++ {
		if mask&(1<<i) == 0 {
			continue
		}
		z := p.zDeltas[0]*p.w1.F(int(i)) + p.zDeltas[1]*p.w2.F(int(i)) + p.zDeltas[3]
		zUnorm := uint32(cvttF32(z * scale))

		sx := uint32(x) + (i & 1) + (i / 2 & 2)
		sy := uint32(y) + (i / 2 & 1)
		off := sy*stride + sx*cpp

		var stored uint32
		switch cpp {
		case 4:
			stored = leU32(buffer[off:])
		case 2:
			stored = uint32(buffer[off]) | uint32(buffer[off+1])<<8
		}

		if gt.Depth.TestEnable && !depthCompare(gt.Depth.TestFunction, zUnorm, stored) {
			mask &^= 1 << i
			continue
		}
		if gt.Depth.WriteEnable {
			switch cpp {
			case 4:
				buffer[off] = byte(zUnorm)
				buffer[off+1] = byte(zUnorm >> 8)
				buffer[off+2] = byte(zUnorm >> 16)
				buffer[off+3] = byte(zUnorm >> 24)
			case 2:
				buffer[off] = byte(zUnorm)
				buffer[off+1] = byte(zUnorm >> 8)
			}
		}
	}

	return mask
}

// depthCompare applies the programmed depth function: does the
// incoming value pass against the stored one?
func depthCompare(function, incoming, stored uint32) bool {
	switch function {
	case COMPARE_ALWAYS:
		return true
	case COMPARE_NEVER:
		return false
	case COMPARE_LESS:
		return incoming < stored
	case COMPARE_EQUAL:
		return incoming == stored
	case COMPARE_LEQUAL:
		return incoming <= stored
	case COMPARE_GREATER:
		return incoming > stored
	case COMPARE_NOTEQUAL:
		return incoming != stored
	case COMPARE_GEQUAL:
		return incoming >= stored
	}
	return true
}

// dispatchPS builds a SIMD8 pixel thread for one covered 4x2 block
// and runs the pixel shader.
func (gt *GT) dispatchPS(p *rastPayload, mask uint32, x, y int32) {
	gtAssert(gt.PS.EnableSIMD8, "only SIMD8 PS dispatch is modelled")

	// Not sure what we should make this.
	const fftid = 0

	var t Thread
	t.mask = mask
	t.maskQ1 = maskExpand(mask)

	/* Fixed function header */
	// R0.0: topology and friends
	t.setUD(0, 0, gt.IA.Topology)
	// R0.1: colour calculator state
	t.setUD(0, 1, gt.CC.State)
	// R0.3: per-thread scratch space, sampler ptr
	t.setUD(0, 3, gt.PS.SamplerStateAddress|gt.PS.ScratchSize)
	// R0.4: binding table pointer
	t.setUD(0, 4, gt.PS.BindingTableAddress)
	// R0.5: fftid, scratch offset
	t.setUD(0, 5, uint32(gt.PS.ScratchPointer)|fftid)
	// R0.6: thread id
	t.setUD(0, 6, gt.PS.TID&0xffffff)
	gt.PS.TID++

	// R1.2: x, y for subspan 0
	t.setUD(1, 2, uint32(y)<<16|uint32(x)&0xffff)
	// R1.3: x, y for subspan 1
	t.setUD(1, 3, uint32(y)<<16|uint32(x+2)&0xffff)
	// R1.7: pixel sample mask and copy
	t.setUD(1, 7, mask|mask<<16)

	g := uint32(2)
	if gt.WM.BarycentricMode&BIM_PERSPECTIVE_PIXEL != 0 {
		t.storeVec(g, p.w1)
		t.storeVec(g+1, p.w2)
		g += 2
	}
	if gt.WM.BarycentricMode&BIM_PERSPECTIVE_CENTROID != 0 {
		t.storeVec(g, p.w1)
		t.storeVec(g+1, p.w2)
		g += 2
	}
	if gt.WM.BarycentricMode&BIM_PERSPECTIVE_SAMPLE != 0 {
		t.storeVec(g, p.w1)
		t.storeVec(g+1, p.w2)
		g += 2
	}
	if gt.WM.BarycentricMode&BIM_LINEAR_PIXEL != 0 {
		g += 2
	}
	if gt.WM.BarycentricMode&BIM_LINEAR_CENTROID != 0 {
		g += 2
	}
	if gt.WM.BarycentricMode&BIM_LINEAR_SAMPLE != 0 {
		g += 2
	}

	if gt.PS.UsesSourceDepth {
		var z Vec8
		for i := 0; i < 8; i++ {
			z.SetF(i, p.zDeltas[0]*p.w1.F(i)+p.zDeltas[1]*p.w2.F(i)+p.zDeltas[3])
		}
		t.storeVec(g, z)
		g++
	}
	if gt.PS.UsesSourceW {
		g++
	}
	if gt.PS.UsesInputCoverage {
		g++
	}

	if gt.PS.PushConstantEnable {
		g = gt.loadConstants(&t, &gt.PS.Curbe, gt.PS.GRFStart0)
	} else {
		g = gt.PS.GRFStart0
	}

	if gt.PS.AttributeEnable {
		for i := uint32(0); i < gt.SBE.NumAttributes*2; i++ {
			t.storeVec(g+i, p.attributeDeltas[i])
		}
	}

	if gt.PS.Statistics {
		gt.PSInvocationCount += uint64(bits.OnesCount32(mask))
	}

	gt.RunShader(gt.PS.ShaderSIMD8, &t)
}

// rasterizeTile scans one 32x32 tile in 4x2 blocks, deriving coverage
// from the edge-value sign bits.
func (gt *GT) rasterizeTile(p *rastPayload) {
	// Block-local pixel offsets: two 2x2 subspans side by side.
	sx := Vec8{0, 1, 0, 1, 2, 3, 2, 3}
	sy := Vec8{0, 0, 1, 1, 0, 0, 1, 1}

	var w2Offsets, w0Offsets, w1Offsets Vec8
	for i := 0; i < 8; i++ {
		w2Offsets.SetI(i, p.a01*sx.I(i)+p.b01*sy.I(i))
		w0Offsets.SetI(i, p.a12*sx.I(i)+p.b12*sy.I(i))
		w1Offsets.SetI(i, p.a20*sx.I(i)+p.b20*sy.I(i))
	}

	rowW2 := Vec8SplatI(p.startW2).AddI(w2Offsets)
	rowW0 := Vec8SplatI(p.startW0).AddI(w0Offsets)
	rowW1 := Vec8SplatI(p.startW1).AddI(w1Offsets)

	for y := int32(0); y < tileHeight; y += 2 {
		w2 := rowW2
		w0 := rowW0
		w1 := rowW1

		for x := int32(0); x < tileWidth; x += 4 {
			det := w1.Or(w0).Or(w2)

			// This is an e >= 0 test, which over-rasterizes
			// lower-right edge pixels.
			mask := det.MoveMask() ^ 0xff
			if mask != 0 {
				for i := 0; i < 8; i++ {
					p.w2.SetF(i, float32(w2.I(i))*p.invArea)
					p.w0.SetF(i, float32(w0.I(i))*p.invArea)
					p.w1.SetF(i, float32(w1.I(i))*p.invArea)
				}

				if gt.Depth.TestEnable || gt.Depth.WriteEnable {
					mask = gt.depthTestQuad(p, mask, p.x0+x, p.y0+y)
				}
				if mask != 0 && gt.PS.Enable {
					gt.dispatchPS(p, mask, p.x0+x, p.y0+y)
				}
			}

			w2 = w2.AddI(Vec8SplatI(p.a01 * 4))
			w0 = w0.AddI(Vec8SplatI(p.a12 * 4))
			w1 = w1.AddI(Vec8SplatI(p.a20 * 4))
		}

		rowW2 = rowW2.AddI(Vec8SplatI(p.b01 * 2))
		rowW0 = rowW0.AddI(Vec8SplatI(p.b12 * 2))
		rowW1 = rowW1.AddI(Vec8SplatI(p.b20 * 2))
	}
}

// rasterizePrimitive does edge setup, computes the attribute deltas
// and walks the tiles the triangle's bounding box touches.
func (gt *GT) rasterizePrimitive(prim *Primitive) {
	x0 := int32(prim.v[0][0])
	y0 := int32(prim.v[0][1])
	x1 := int32(prim.v[1][0])
	y1 := int32(prim.v[1][1])
	x2 := int32(prim.v[2][0])
	y2 := int32(prim.v[2][1])

	var p rastPayload

	p.a01 = y1 - y0
	p.b01 = x0 - x1
	p.c01 = x1*y0 - y1*x0

	p.a12 = y2 - y1
	p.b12 = x1 - x2
	p.c12 = x2*y1 - y2*x1

	p.a20 = y0 - y2
	p.b20 = x2 - x0
	p.c20 = x0*y2 - y0*x2

	area := p.a01*x2 + p.b01*y2 + p.c01
	if area <= 0 {
		return
	}
	p.invArea = 1.0 / float32(area)

	z := [3]float32{prim.v[0][2], prim.v[1][2], prim.v[2][2]}
	p.zDeltas[0] = z[1] - z[0]
	p.zDeltas[1] = z[2] - z[0]
	p.zDeltas[2] = 0.0
	p.zDeltas[3] = z[0]

	for i := uint32(0); i < gt.SBE.NumAttributes; i++ {
		a0 := gt.vueReadValue(prim.vue[0], int(i)+2)
		a1 := gt.vueReadValue(prim.vue[1], int(i)+2)
		a2 := gt.vueReadValue(prim.vue[2], int(i)+2)

		p.attributeDeltas[i*2] = Vec8{
			fbits(a1.F(0) - a0.F(0)),
			fbits(a2.F(0) - a0.F(0)),
			0,
			a0.V[0],
			fbits(a1.F(1) - a0.F(1)),
			fbits(a2.F(1) - a0.F(1)),
			0,
			a0.V[1],
		}
		p.attributeDeltas[i*2+1] = Vec8{
			fbits(a1.F(2) - a0.F(2)),
			fbits(a2.F(2) - a0.F(2)),
			0,
			a0.V[2],
			fbits(a1.F(3) - a0.F(3)),
			fbits(a2.F(3) - a0.F(3)),
			0,
			a0.V[3],
		}
	}

	const tileMaxX = tileWidth - 1
	const tileMaxY = tileHeight - 1

	// Delta from the edge value in the tile's top-left corner to its
	// maximum inside the tile, per edge.
	var maxW2Delta, maxW0Delta, maxW1Delta int32
	if p.a01 > 0 {
		maxW2Delta += p.a01 * tileMaxX
	}
	if p.b01 > 0 {
		maxW2Delta += p.b01 * tileMaxY
	}
	if p.a12 > 0 {
		maxW0Delta += p.a12 * tileMaxX
	}
	if p.b12 > 0 {
		maxW0Delta += p.b12 * tileMaxY
	}
	if p.a20 > 0 {
		maxW1Delta += p.a20 * tileMaxX
	}
	if p.b20 > 0 {
		maxW1Delta += p.b20 * tileMaxY
	}

	minX := int32(math32.Floor(min3f(prim.v[0][0], prim.v[1][0], prim.v[2][0])))
	minY := int32(math32.Floor(min3f(prim.v[0][1], prim.v[1][1], prim.v[2][1])))
	maxX := int32(math32.Ceil(max3f(prim.v[0][0], prim.v[1][0], prim.v[2][0])))
	maxY := int32(math32.Ceil(max3f(prim.v[0][1], prim.v[1][1], prim.v[2][1])))

	if minX < gt.DrawRect.MinX {
		minX = gt.DrawRect.MinX
	}
	if minY < gt.DrawRect.MinY {
		minY = gt.DrawRect.MinY
	}
	if maxX > gt.DrawRect.MaxX {
		maxX = gt.DrawRect.MaxX
	}
	if maxY > gt.DrawRect.MaxY {
		maxY = gt.DrawRect.MaxY
	}

	minX &^= tileWidth - 1
	minY &^= tileHeight - 1
	maxX = (maxX + tileWidth - 1) &^ (tileWidth - 1)
	maxY = (maxY + tileHeight - 1) &^ (tileHeight - 1)

	rowW2 := p.a01*minX + p.b01*minY + p.c01
	rowW0 := p.a12*minX + p.b12*minY + p.c12
	rowW1 := p.a20*minX + p.b20*minY + p.c20
	for p.y0 = minY; p.y0 < maxY; p.y0 += tileHeight {
		p.startW2 = rowW2
		p.startW0 = rowW0
		p.startW1 = rowW1

		for p.x0 = minX; p.x0 < maxX; p.x0 += tileWidth {
			maxW2 := p.startW2 + maxW2Delta
			maxW0 := p.startW0 + maxW0Delta
			maxW1 := p.startW1 + maxW1Delta

			if maxW2|maxW0|maxW1 >= 0 {
				gt.rasterizeTile(&p)
			}

			p.startW2 += tileWidth * p.a01
			p.startW0 += tileWidth * p.a12
			p.startW1 += tileWidth * p.a20
		}

		rowW2 += tileHeight * p.b01
		rowW0 += tileHeight * p.b12
		rowW1 += tileHeight * p.b20
	}
}

func min3f(a, b, c float32) float32 {
	if a < b {
		if a < c {
			return a
		}
		return c
	}
	if b < c {
		return b
	}
	return c
}

func max3f(a, b, c float32) float32 {
	if a > b {
		if a > c {
			return a
		}
		return c
	}
	if b > c {
		return b
	}
	return c
}

// wmFlush publishes the bound render target: to the display backend
// when one is attached, and to the framebuffer dump file when a path
// was given.
func (gt *GT) wmFlush() {
	var rt Surface
	if !gt.getSurface(gt.PS.BindingTableAddress, 0, &rt) {
		return
	}

	if gt.Display != nil {
		gt.presentSurface(&rt)
	}
	if gt.FramebufferPath != "" {
		if err := gt.dumpFramebuffer(gt.FramebufferPath, &rt); err != nil {
			gtWarn("framebuffer dump: %v\n", err)
		}
	}
}

// wmClear is the fast-clear path: zero the bound render target and
// the depth buffer.
func (gt *GT) wmClear() {
	var rt Surface
	if gt.PS.Resolve || !gt.getSurface(gt.PS.BindingTableAddress, 0, &rt) {
		return
	}

	for i := range rt.Pixels {
		rt.Pixels[i] = 0
	}

	depth := gt.Mem.Translate(gt.Depth.Address)
	size := uint64(gt.Depth.Stride) * uint64(gt.Depth.Height)
	gtAssert(uint64(len(depth)) >= size, "depth buffer at 0x%x unmapped", gt.Depth.Address)
	for i := uint64(0); i < size; i++ {
		depth[i] = 0
	}
}
