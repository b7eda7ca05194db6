// pipeline_integration_test.go - End-to-end batch execution tests

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

package main

import (
	"math"
	"testing"
)

const (
	testVSKernel  = 0x12000
	testPS2Kernel = 0x14000
	testTexPixels = 0x180000
	testDynBase   = 0x40000
)

// writeConstantColorPS assembles a SIMD8 PS that writes the given
// colour to render target 0.
func writeConstantColorPS(mem *GuestMemory, addr uint64, r, g, b, a float32) {
	writeKernel(mem, addr,
		asmMOV(grf(HW_TYPE_F, 10), immF(r)),
		asmMOV(grf(HW_TYPE_F, 11), immF(g)),
		asmMOV(grf(HW_TYPE_F, 12), immF(b)),
		asmMOV(grf(HW_TYPE_F, 13), immF(a)),
		asmSend(SFID_RENDER_CACHE, rtWriteFC(4, 0), 0, 10, 5, 0, true, true),
	)
}

// emitPSState programs 3DSTATE_PS + binding table + PS_EXTRA for a
// SIMD8 kernel at ksp.
func emitPSState(b *testBatch, ksp uint64, extra uint32) {
	b.emit(render3D(3, 0, 32, 12),
		uint32(ksp), uint32(ksp>>32),
		0,
		0, 0, // scratch
		4<<16|1, // grf_start0 = 4, simd8 enable
		0, 0, 0, 0, 0)
	b.emit(render3D(3, 0, 42, 2), 0x1000) // binding table pointers PS
	b.emit(render3D(3, 0, 79, 2), 1<<31|1<<4|extra)
}

// bindRT writes the render target surface state and binding table
// entry 0.
func bindRT(gt *GT, format, tile, width, height, stride uint32) {
	gt.SurfaceStateBaseAddress = testSurfBase
	writeSurfaceState(gt.Mem, testSurfState, format, tile, width, height, stride, testRTPixels)
	gt.Mem.WriteU32(testSurfBase+0x1000, testSurfState-testSurfBase)
}

func TestDrawTriangleConstantColor(t *testing.T) {
	gt := newTestGT()
	bindRT(gt, SF_R8G8B8A8_UNORM, TILE_LINEAR, 64, 64, 256)
	writeConstantColorPS(gt.Mem, testPSKernel, 1, 0, 0, 1)

	writePositions(gt.Mem, [][4]float32{
		{0, 0, 0, 1}, {0, 64, 0, 1}, {64, 0, 0, 1},
	})

	var b testBatch
	emitDrawState(&b, 3)
	emitPSState(&b, testPSKernel, 0)
	b.emit(render3D(3, 3, 0, 7), 0, 3, 0, 1, 0, 0)
	b.emit(miCommand(10, 1))
	b.writeTo(gt.Mem, testBatchAddr)

	if err := gt.StartBatchBuffer(testBatchAddr); err != nil {
		t.Fatal(err)
	}

	// Covered pixels carry 0xFF0000FF; pixels past the hypotenuse do
	// not.
	for _, pos := range [][2]uint64{{0, 0}, {10, 5}, {31, 31}} {
		if v := gt.Mem.ReadU32(testRTPixels + pos[1]*256 + pos[0]*4); v != 0xff0000ff {
			t.Errorf("pixel (%d,%d): got 0x%08x, want 0xff0000ff", pos[0], pos[1], v)
		}
	}
	for _, pos := range [][2]uint64{{60, 60}, {63, 10}} {
		if v := gt.Mem.ReadU32(testRTPixels + pos[1]*256 + pos[0]*4); v != 0 {
			t.Errorf("pixel (%d,%d): got 0x%08x, want untouched", pos[0], pos[1], v)
		}
	}
}

func TestDrawWithPassthroughVS(t *testing.T) {
	gt := newTestGT()
	bindRT(gt, SF_R8G8B8A8_UNORM, TILE_LINEAR, 64, 64, 256)
	writeConstantColorPS(gt.Mem, testPSKernel, 0, 1, 0, 1)

	// Pass-through VS: copy the URB handles next to the input
	// position payload and write cell 1 back unchanged.
	writeKernel(gt.Mem, testVSKernel,
		asmMOV(grf(HW_TYPE_UD, 5), grf(HW_TYPE_UD, 1)),
		asmSend(SFID_URB, urbWriteFC(1), 0, 5, 5, 0, true, true),
	)

	writePositions(gt.Mem, [][4]float32{
		{0, 0, 0, 1}, {0, 64, 0, 1}, {64, 0, 0, 1},
	})

	var b testBatch
	emitDrawState(&b, 3)
	// 3DSTATE_VS: ksp, urb_start_grf 2, read length 1, offset 0,
	// statistics + simd8 + enable.
	b.emit(render3D(3, 0, 16, 9),
		uint32(testVSKernel), 0,
		0,
		0, 0,
		2<<20|1<<11|0<<4,
		1<<10|1<<2|1,
		0)
	emitPSState(&b, testPSKernel, 0)
	b.emit(render3D(3, 3, 0, 7), 0, 3, 0, 1, 0, 0)
	b.emit(miCommand(10, 1))
	b.writeTo(gt.Mem, testBatchAddr)

	if err := gt.StartBatchBuffer(testBatchAddr); err != nil {
		t.Fatal(err)
	}

	if gt.VSInvocationCount != 1 {
		t.Errorf("vs threads: %d, want 1", gt.VSInvocationCount)
	}
	if v := gt.Mem.ReadU32(testRTPixels + 5*256 + 5*4); v != 0xff00ff00 {
		t.Errorf("pixel (5,5): got 0x%08x, want green", v)
	}
}

func TestDrawViewportTransform(t *testing.T) {
	gt := newTestGT()
	bindRT(gt, SF_R8G8B8A8_UNORM, TILE_LINEAR, 64, 64, 256)
	writeConstantColorPS(gt.Mem, testPSKernel, 1, 1, 1, 1)

	// Clip-space positions; the viewport maps [-1,1] onto the 64x64
	// target.
	writePositions(gt.Mem, [][4]float32{
		{-1, -1, 0, 1}, {-1, 1, 0, 1}, {1, -1, 0, 1},
	})

	// 14-float SF_CLIP viewport entry at dynamic base + 0x100.
	viewport := []float32{32, 32, 0.5, 32, 32, 0.5}
	for i, f := range viewport {
		gt.Mem.WriteU32(testDynBase+0x100+uint64(i*4), math.Float32bits(f))
	}

	var b testBatch
	// STATE_BASE_ADDRESS: dynamic state base.
	sba := make([]uint32, 16)
	sba[0] = render3D(0, 1, 1, 16)
	sba[6] = testDynBase | 1
	b.emit(sba...)

	emitDrawState(&b, 3)
	b.emit(render3D(3, 0, 33, 2), 0x100) // viewport state pointer
	b.emit(render3D(3, 0, 19, 4), 1<<1, 0, 0) // SF: viewport transform enable
	emitPSState(&b, testPSKernel, 0)
	b.emit(render3D(3, 3, 0, 7), 0, 3, 0, 1, 0, 0)
	b.emit(miCommand(10, 1))
	b.writeTo(gt.Mem, testBatchAddr)

	if err := gt.StartBatchBuffer(testBatchAddr); err != nil {
		t.Fatal(err)
	}

	// The triangle maps to (0,0) (0,64) (64,0).
	if v := gt.Mem.ReadU32(testRTPixels + 2*256 + 2*4); v != 0xffffffff {
		t.Errorf("pixel (2,2): got 0x%08x", v)
	}
	if v := gt.Mem.ReadU32(testRTPixels + 60*256 + 60*4); v != 0 {
		t.Errorf("pixel (60,60): got 0x%08x, want untouched", v)
	}
}

func TestDrawTexturedQuadNearest(t *testing.T) {
	gt := newTestGT()
	bindRT(gt, SF_R8G8B8A8_UNORM, TILE_LINEAR, 32, 32, 128)

	// Texture surface: 2x2 RGBA8 {R, G; B, W} at binding entry 1.
	writeSurfaceState(gt.Mem, testSurfState+0x40, SF_R8G8B8A8_UNORM, TILE_LINEAR,
		2, 2, 8, testTexPixels)
	gt.Mem.WriteU32(testSurfBase+0x1004, testSurfState+0x40-testSurfBase)

	texels := [][4]byte{
		{0xff, 0x00, 0x00, 0xff}, {0x00, 0xff, 0x00, 0xff},
		{0x00, 0x00, 0xff, 0xff}, {0xff, 0xff, 0xff, 0xff},
	}
	for i, tx := range texels {
		for c, v := range tx {
			gt.Mem.data[testTexPixels+uint64(i*4+c)] = v
		}
	}

	// PS: interpolate (u, v) from attribute 0 deltas, sample surface
	// 1 nearest, write the texel colour.
	attr := oper{file: FILE_GRF, typ: HW_TYPE_F, num: 4}
	attrV := oper{file: FILE_GRF, typ: HW_TYPE_F, num: 4, sub: 16}
	writeKernel(gt.Mem, testPSKernel,
		asmOp2(OPCODE_PLN, grf(HW_TYPE_F, 10), attr, grf(HW_TYPE_F, 2)),
		asmOp2(OPCODE_PLN, grf(HW_TYPE_F, 11), attrV, grf(HW_TYPE_F, 2)),
		asmSend(SFID_SAMPLER, samplerFC(1), 20, 10, 2, 4, false, false),
		asmSend(SFID_RENDER_CACHE, rtWriteFC(4, 0), 0, 20, 5, 0, true, true),
	)

	// Quad as an indexed tristrip: positions + (u, v) attribute.
	positions := [][4]float32{
		{0, 0, 0, 1}, {0, 32, 0, 1}, {32, 0, 0, 1}, {32, 32, 0, 1},
	}
	uvs := [][2]float32{{0, 0}, {0, 1}, {1, 0}, {1, 1}}
	for i := range positions {
		for c, f := range positions[i] {
			gt.Mem.WriteU32(testVBAddr+uint64(i*24+c*4), math.Float32bits(f))
		}
		gt.Mem.WriteU32(testVBAddr+uint64(i*24+16), math.Float32bits(uvs[i][0]))
		gt.Mem.WriteU32(testVBAddr+uint64(i*24+20), math.Float32bits(uvs[i][1]))
	}
	indices := []uint16{0, 1, 2, 3}
	for i, idx := range indices {
		gt.Mem.data[testIBAddr+uint64(i*2)] = byte(idx)
		gt.Mem.data[testIBAddr+uint64(i*2)+1] = byte(idx >> 8)
	}

	var b testBatch
	b.emit(render3D(3, 0, 48, 2), 0<<25|3<<16|64) // URB VS
	b.emit(render3D(3, 0, 8, 5), 0<<26|1<<14|24, testVBAddr, 0, 4*24)
	storeSrc := uint32(VFCOMP_STORE_SRC)
	store0 := uint32(VFCOMP_STORE_0)
	b.emit(render3D(3, 0, 9, 7),
		0<<26|1<<25|SF_R32G32B32A32_FLOAT<<16,
		store0<<28|store0<<24|store0<<20|store0<<16,
		0<<26|1<<25|SF_R32G32B32A32_FLOAT<<16,
		storeSrc<<28|storeSrc<<24|storeSrc<<20|storeSrc<<16,
		0<<26|1<<25|SF_R32G32_FLOAT<<16|16,
		storeSrc<<28|storeSrc<<24|storeSrc<<20|storeSrc<<16)
	b.emit(render3D(3, 0, 10, 5), INDEX_WORD<<8, testIBAddr, 0, 8) // index buffer
	b.emit(render3D(3, 0, 75, 2), _3DPRIM_TRISTRIP)
	b.emit(render3D(3, 0, 18, 4), 1<<9, 0, 0)  // clip: no divide
	b.emit(render3D(3, 0, 19, 4), 0, 0, 0)     // sf
	b.emit(render3D(3, 0, 16, 9), 0, 0, 0, 0, 0, 0, 0, 0) // vs off
	b.emit(render3D(3, 0, 20, 3), 1<<11, 0)    // wm: perspective pixel barycentrics
	b.emit(render3D(3, 0, 31, 3), 1<<22, 0)    // sbe: one attribute
	b.emit(render3D(3, 1, 0, 4), 0, 31|31<<16, 0)
	emitPSState(&b, testPSKernel, 1<<8) // attribute enable
	// Indexed (RANDOM) draw of 4 vertices.
	b.emit(render3D(3, 3, 0, 7), 1<<8, 4, 0, 1, 0, 0)
	b.emit(miCommand(10, 1))
	b.writeTo(gt.Mem, testBatchAddr)

	if err := gt.StartBatchBuffer(testBatchAddr); err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		x, y uint64
		want uint32
	}{
		{8, 8, 0xff0000ff},   // R quadrant
		{24, 8, 0xff00ff00},  // G
		{8, 24, 0xffff0000},  // B
		{24, 24, 0xffffffff}, // W
	}
	for _, c := range cases {
		if v := gt.Mem.ReadU32(testRTPixels + c.y*128 + c.x*4); v != c.want {
			t.Errorf("pixel (%d,%d): got 0x%08x, want 0x%08x", c.x, c.y, v, c.want)
		}
	}
}

func TestDrawDepthOverlap(t *testing.T) {
	gt := newTestGT()
	bindRT(gt, SF_R8G8B8A8_UNORM, TILE_LINEAR, 64, 64, 256)
	writeConstantColorPS(gt.Mem, testPSKernel, 1, 0, 0, 1)  // near: red
	writeConstantColorPS(gt.Mem, testPS2Kernel, 0, 1, 0, 1) // far: green

	// Clear depth to the far plane.
	for i := uint64(0); i < 64*64; i++ {
		gt.Mem.WriteU32(testDepthPixels+i*4, 0xffffff)
	}

	writePositions(gt.Mem, [][4]float32{
		{0, 0, 0.25, 1}, {0, 64, 0.25, 1}, {64, 0, 0.25, 1},
		{0, 0, 0.75, 1}, {0, 64, 0.75, 1}, {64, 0, 0.75, 1},
	})

	var b testBatch
	emitDrawState(&b, 6)
	// Depth buffer + depth/stencil state: test LESS, write enabled.
	b.emit(render3D(3, 0, 5, 8),
		1<<28|D24_UNORM_X8<<18|(256-1),
		uint32(testDepthPixels), 0,
		63<<4|63<<18,
		0, 0, 0)
	b.emit(render3D(3, 0, 78, 4), 1<<31|1<<30|COMPARE_LESS<<27, 0, 0)

	emitPSState(&b, testPSKernel, 0)
	b.emit(render3D(3, 3, 0, 7), 0, 3, 0, 1, 0, 0) // near triangle

	emitPSState(&b, testPS2Kernel, 0)
	b.emit(render3D(3, 3, 0, 7), 0, 3, 3, 1, 0, 0) // far triangle, start_vertex 3

	b.emit(miCommand(10, 1))
	b.writeTo(gt.Mem, testBatchAddr)

	if err := gt.StartBatchBuffer(testBatchAddr); err != nil {
		t.Fatal(err)
	}

	// The nearer (red) triangle survives in the overlap.
	if v := gt.Mem.ReadU32(testRTPixels + 5*256 + 5*4); v != 0xff0000ff {
		t.Errorf("overlap pixel (5,5): got 0x%08x, want red", v)
	}
}

func TestDrawFlushesDisplay(t *testing.T) {
	gt := newTestGT()
	bindRT(gt, SF_R8G8B8A8_UNORM, TILE_LINEAR, 64, 64, 256)
	writeConstantColorPS(gt.Mem, testPSKernel, 1, 0, 0, 1)

	display := NewHeadlessDisplayOutput()
	display.Start()
	gt.Display = display

	writePositions(gt.Mem, [][4]float32{
		{0, 0, 0, 1}, {0, 64, 0, 1}, {64, 0, 0, 1},
	})

	var b testBatch
	emitDrawState(&b, 3)
	emitPSState(&b, testPSKernel, 0)
	b.emit(render3D(3, 3, 0, 7), 0, 3, 0, 1, 0, 0)
	b.emit(miCommand(10, 1))
	b.writeTo(gt.Mem, testBatchAddr)

	if err := gt.StartBatchBuffer(testBatchAddr); err != nil {
		t.Fatal(err)
	}

	if display.GetFrameCount() != 1 {
		t.Errorf("display frames: %d, want 1", display.GetFrameCount())
	}
}

func TestComputeWalker(t *testing.T) {
	gt := newTestGT()

	writeKernel(gt.Mem, testPSKernel, eotSend())

	// Interface descriptor at dynamic base + 0x200.
	desc := [8]uint32{uint32(testPSKernel), 0, 0, 0, 0x1000, 0, 0, 0}
	for i, d := range desc {
		gt.Mem.WriteU32(testDynBase+0x200+uint64(i*4), d)
	}

	var b testBatch
	sba := make([]uint32, 16)
	sba[0] = render3D(0, 1, 1, 16)
	sba[6] = testDynBase | 1
	b.emit(sba...)

	b.emit(render3D(2, 0, 2, 4), 0, 8*4, 0x200) // interface descriptor load
	// GPGPU_WALKER: 2 threads/group, SIMD8, 3x2x1 groups, full right
	// mask.
	walker := make([]uint32, 15)
	walker[0] = render3D(2, 1, 5, 15)
	walker[4] = 0<<30 | 1
	walker[7] = 3
	walker[8] = 2
	walker[9] = 1
	walker[10] = 0xff
	b.emit(walker...)
	b.emit(miCommand(10, 1))
	b.writeTo(gt.Mem, testBatchAddr)

	if err := gt.StartBatchBuffer(testBatchAddr); err != nil {
		t.Fatal(err)
	}

	if gt.CSInvocationCount != 12 {
		t.Errorf("cs threads: %d, want 12", gt.CSInvocationCount)
	}
}

func TestComputeWalkerIndirect(t *testing.T) {
	gt := newTestGT()

	writeKernel(gt.Mem, testPSKernel, eotSend())
	desc := [8]uint32{uint32(testPSKernel), 0, 0, 0, 0x1000, 0, 0, 0}
	for i, d := range desc {
		gt.Mem.WriteU32(testDynBase+0x200+uint64(i*4), d)
	}

	var b testBatch
	sba := make([]uint32, 16)
	sba[0] = render3D(0, 1, 1, 16)
	sba[6] = testDynBase | 1
	b.emit(sba...)
	b.emit(render3D(2, 0, 2, 4), 0, 8*4, 0x200)

	// Dispatch dimensions through the MI registers, walker indirect.
	b.emit(miCommand(34, 3), REG_GPGPU_DISPATCHDIMX, 4)
	b.emit(miCommand(34, 3), REG_GPGPU_DISPATCHDIMY, 1)
	b.emit(miCommand(34, 3), REG_GPGPU_DISPATCHDIMZ, 1)

	walker := make([]uint32, 15)
	walker[0] = render3D(2, 1, 5, 15) | 1<<10
	walker[4] = 0<<30 | 0 // one thread per group
	walker[10] = 0xff
	b.emit(walker...)
	b.emit(miCommand(10, 1))
	b.writeTo(gt.Mem, testBatchAddr)

	if err := gt.StartBatchBuffer(testBatchAddr); err != nil {
		t.Fatal(err)
	}

	if gt.CSInvocationCount != 4 {
		t.Errorf("cs threads: %d, want 4", gt.CSInvocationCount)
	}
}
