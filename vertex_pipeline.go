// vertex_pipeline.go - Vertex fetch, VS dispatch, viewport transform and primitive assembly

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
vertex_pipeline.go - The Vertex Pipeline

One 3DPRIMITIVE drains completely through this module: vertices are
fetched into fresh VUEs (sequential, indexed or instanced, with
system-generated value injection), batched eight at a time into SIMD8
VS threads, viewport-transformed, queued on the 16-entry IA ring and
assembled into triangles per the active topology.

VUE ownership is strict: the URB pool owns every entry; the IA ring
and the trifan first-vertex slot hold handles only. Entries return to
the VS free list once the assembler's tail passes them, and
resetIAState drains whatever is left between instances.

Provoking-vertex selection permutes the three assembled slots through
the fixed table [0 1 2 0 1]; tristrips additionally swap winding on
odd parity.
*/

package main

import (
	"fmt"
	"math"
)

// Primitive is one assembled triangle: the three VUE handles and
// their screen-space positions.
type Primitive struct {
	vue [3]uint32
	v   [3][4]float32
}

func fpAsU32(f float32) uint32 {
	return math.Float32bits(f)
}

func storeComponent(cc uint32, src uint32) uint32 {
	switch cc {
	case VFCOMP_NOSTORE:
		return 77 // value never observed
	case VFCOMP_STORE_SRC:
		return src
	case VFCOMP_STORE_0:
		return 0
	case VFCOMP_STORE_1_FP:
		return fpAsU32(1.0)
	case VFCOMP_STORE_1_INT:
		return 1
	case VFCOMP_STORE_PID:
		return 0
	default:
		gtWarn("illegal component control: %d\n", cc)
		return 0
	}
}

// fetchVertex allocates a VUE and fills it from the configured vertex
// elements for one (instance, vertex) pair.
func (gt *GT) fetchVertex(instanceID, vertexID uint32) (uint32, error) {
	vue, err := gt.urbAlloc(&gt.VS.URB)
	if err != nil {
		return 0, err
	}

	for i := uint32(0); i < gt.VF.VECount; i++ {
		ve := &gt.VF.VE[i]
		gtAssert((1<<ve.VB)&gt.VF.VBValid != 0, "vertex element %d references invalid VB %d", i, ve.VB)
		vb := &gt.VF.VB[ve.VB]

		if !ve.Valid {
			continue
		}

		var index uint32
		if ve.Instancing {
			index = gt.Prim.StartInstance + instanceID/ve.StepRate
		} else if gt.Prim.AccessType == ACCESS_RANDOM {
			ib := gt.Mem.Translate(gt.VF.IB.Address)
			gtAssert(ib != nil, "index buffer at 0x%x unmapped", gt.VF.IB.Address)

			index = gt.Prim.StartVertex + vertexID

			switch gt.VF.IB.Format {
			case INDEX_BYTE:
				index = uint32(ib[index]) + gt.Prim.BaseVertex
			case INDEX_WORD:
				index = uint32(ib[index*2]) | uint32(ib[index*2+1])<<8
				index += gt.Prim.BaseVertex
			case INDEX_DWORD:
				index = leU32(ib[index*4:]) + gt.Prim.BaseVertex
			}
		} else {
			index = gt.Prim.StartVertex + vertexID
		}

		var v Value
		offset := index*vb.Pitch + ve.Offset
		if offset+formatSize(ve.Format) > vb.Size {
			gtTrace(TRACE_WARN, "vertex element %d overflows vertex buffer %d\n", i, ve.VB)
			v = vec4(0, 0, 0, 0)
		} else {
			v = fetchFormat(vb.data[offset:], ve.Format)
		}

		for c := 0; c < 4; c++ {
			gt.vueWrite(vue, int(i), c, storeComponent(ve.CC[c], v.V[c]))
		}

		/* edgeflag */
	}

	/* 3DSTATE_VF_SGVS */
	if gt.VF.IIDEnable && gt.VF.VIDEnable {
		gtAssert(gt.VF.IIDElement != gt.VF.VIDElement ||
			gt.VF.IIDComponent != gt.VF.VIDComponent,
			"instance-id and vertex-id target the same VUE slot")
	}

	if gt.VF.IIDEnable {
		gt.vueWrite(vue, int(gt.VF.IIDElement), int(gt.VF.IIDComponent), instanceID)
	}
	if gt.VF.VIDEnable {
		gt.vueWrite(vue, int(gt.VF.VIDElement), int(gt.VF.VIDComponent), vertexID)
	}

	if traceMask&TRACE_VF != 0 {
		gtTrace(TRACE_VF, "Loaded vue for vid=%d, iid=%d:\n", vertexID, instanceID)
		count := gt.VF.VECount
		if gt.VF.IIDEnable && gt.VF.IIDElement+1 > count {
			count = gt.VF.IIDElement + 1
		}
		if gt.VF.VIDEnable && gt.VF.VIDElement+1 > count {
			count = gt.VF.VIDElement + 1
		}
		for i := uint32(0); i < count; i++ {
			val := gt.vueReadValue(vue, int(i))
			gtTrace(TRACE_VF, "    %8.2f  %8.2f  %8.2f  %8.2f\n",
				val.F(0), val.F(1), val.F(2), val.F(3))
		}
	}

	return vue, nil
}

// dispatchVS packs up to eight fetched vertices into one SIMD8 VS
// thread and runs the shader.
func (gt *GT) dispatchVS(vue []uint32, mask uint32) {
	if !gt.VS.Enable {
		return
	}

	gtAssert(gt.VS.SIMD8, "only SIMD8 VS dispatch is modelled")

	// Not sure what we should make this.
	const fftid = 0

	var t Thread
	t.mask = mask
	t.maskQ1 = maskExpand(mask)

	/* Fixed function header */
	// R0.0 - R0.2: MBZ
	// R0.3: per-thread scratch space, sampler ptr
	t.setUD(0, 3, gt.VS.SamplerStateAddress|gt.VS.ScratchSize)
	// R0.4: binding table pointer
	t.setUD(0, 4, gt.VS.BindingTableAddress)
	// R0.5: fftid, scratch offset
	t.setUD(0, 5, uint32(gt.VS.ScratchPointer)|fftid)
	// R0.6: thread id
	t.setUD(0, 6, gt.VS.TID&0xffffff)
	gt.VS.TID++

	forEachBit(mask, func(c int) {
		t.setUD(1, uint32(c), vue[c])
	})

	g := gt.loadConstants(&t, &gt.VS.Curbe, gt.VS.URBStartGRF)

	/* SIMD8 VS payload */
	for i := uint32(0); i < gt.VS.VUEReadLength*2; i++ {
		forEachBit(mask, func(c int) {
			cell := int(gt.VS.VUEReadOffset*2 + i)
			for j := uint32(0); j < 4; j++ {
				t.setUD(g+j, uint32(c), gt.vueRead(vue[c], cell, int(j)))
			}
		})
		g += 4
	}

	if gt.VS.Statistics {
		gt.VSInvocationCount++
	}

	gt.RunShader(gt.VS.Shader, &t)
}

func (gt *GT) validateVFState() {
	// Make sure the VUE is big enough to hold all vertex elements.
	gtAssert(gt.VF.VECount*16 <= gt.VS.URB.Size,
		"%d vertex elements overflow the %d-byte VUE", gt.VF.VECount, gt.VS.URB.Size)

	var vbUsed uint32
	for i := uint32(0); i < gt.VF.VECount; i++ {
		gtAssert(validVertexFormat(gt.VF.VE[i].Format),
			"vertex element %d has unknown format 0x%03x", i, gt.VF.VE[i].Format)
		if gt.VF.VE[i].Valid {
			vbUsed |= 1 << gt.VF.VE[i].VB
		}
	}

	// Check all VEs reference valid VBs.
	gtAssert(vbUsed&gt.VF.VBValid == vbUsed, "vertex element references unprogrammed VB")

	forEachBit(vbUsed, func(b int) {
		vb := &gt.VF.VB[b]
		vb.data = gt.Mem.Translate(vb.Address)
		gtAssert(uint64(vb.Size) <= uint64(len(vb.data)), "VB %d overruns guest memory", b)
	})

	// Check that SGVs are written within bounds.
	if gt.VF.IIDEnable {
		gtAssert(gt.VF.IIDElement*16 < gt.VS.URB.Size, "instance-id element outside VUE")
	}
	if gt.VF.VIDEnable {
		gtAssert(gt.VF.VIDElement*16 < gt.VS.URB.Size, "vertex-id element outside VUE")
	}
}

func (gt *GT) validateURBState() {
	all := []*URBAlloc{&gt.VS.URB, &gt.HS.URB, &gt.DS.URB, &gt.GS.URB}

	// Validate that the URB allocations are properly sized and don't
	// overlap.
	for i, u := range all {
		uStart := u.Base
		uEnd := uStart + u.Total*u.Size
		gtAssert(uEnd <= uint32(len(gt.URB)), "URB window %d outside the slab", i)

		for _, v := range all[i+1:] {
			vStart := v.Base
			vEnd := vStart + v.Total*v.Size
			gtAssert(vEnd <= uStart || uEnd <= vStart,
				"URB windows overlap: [0x%x,0x%x) and [0x%x,0x%x)",
				uStart, uEnd, vStart, vEnd)
		}
	}

	// SIMD8 VS dispatch needs at least 8 VUEs; the hardware floor is
	// higher still.
	gtAssert(64 <= gt.VS.URB.Total && gt.VS.URB.Total <= 2560,
		"VS URB total %d outside hardware limits", gt.VS.URB.Total)
}

func (gt *GT) dumpSFClipViewport() {
	vp := gt.Mem.Translate(gt.SF.ViewportPointer)
	gtAssert(len(vp) >= 14*4, "viewport entry at 0x%x unmapped", gt.SF.ViewportPointer)

	gtTrace(TRACE_CS, "sf_clip viewport: %08x (w/o dyn base: %08x)\n",
		gt.SF.ViewportPointer, gt.SF.ViewportPointer-gt.DynamicStateBaseAddress)
	for i := 0; i < 14; i++ {
		gtTrace(TRACE_CS, "  %20.4f\n", math.Float32frombits(leU32(vp[i*4:])))
	}
}

// setupPrim maps three queued VUEs through provoking-vertex selection
// and hands the triangle to the rasterizer.
func (gt *GT) setupPrim(vue [3]uint32, parity uint32) {
	var provoking uint32

	switch gt.IA.Topology {
	case _3DPRIM_TRILIST, _3DPRIM_TRISTRIP:
		provoking = gt.SF.TriStripProvoking
	case _3DPRIM_TRIFAN:
		provoking = gt.SF.TriFanProvoking
	default:
		provoking = 0
	}

	indices := [5]uint32{0, 1, 2, 0, 1}

	var prim Primitive
	prim.vue[0] = vue[indices[provoking]]
	prim.vue[1] = vue[indices[provoking+1+parity]]
	prim.vue[2] = vue[indices[provoking+2-parity]]

	for i := 0; i < 3; i++ {
		pos := gt.vueReadValue(prim.vue[i], 1)
		for c := 0; c < 4; c++ {
			prim.v[i][c] = pos.F(c)
		}
	}

	if gt.primSink != nil {
		gt.primSink(&prim)
		return
	}
	gt.rasterizePrimitive(&prim)
}

// transformAndQueueVues applies the perspective divide and viewport
// scale to freshly shaded vertices and pushes them onto the IA ring.
func (gt *GT) transformAndQueueVues(vue []uint32, count int) {
	var m00, m11, m22, m30, m31, m32 float32

	if gt.SF.ViewportTransformEnable {
		vp := gt.Mem.Translate(gt.SF.ViewportPointer)
		gtAssert(len(vp) >= 14*4, "viewport entry at 0x%x unmapped", gt.SF.ViewportPointer)

		m00 = math.Float32frombits(leU32(vp[0:]))
		m11 = math.Float32frombits(leU32(vp[4:]))
		m22 = math.Float32frombits(leU32(vp[8:]))
		m30 = math.Float32frombits(leU32(vp[12:]))
		m31 = math.Float32frombits(leU32(vp[16:]))
		m32 = math.Float32frombits(leU32(vp[20:]))
	}

	for i := 0; i < count; i++ {
		pos := gt.vueReadValue(vue[i], 1)
		x, y, z, w := pos.F(0), pos.F(1), pos.F(2), pos.F(3)

		if !gt.Clip.PerspectiveDivideDisable {
			invW := 1.0 / w
			x *= invW
			y *= invW
			z *= invW
			w = 1
		}

		if gt.SF.ViewportTransformEnable {
			x = m00*x + m30
			y = m11*y + m31
			z = m22*z + m32
		}

		pos.SetF(0, x)
		pos.SetF(1, y)
		pos.SetF(2, z)
		pos.SetF(3, w)
		gt.vueWriteValue(vue[i], 1, pos)

		gt.IA.Queue.VUE[gt.IA.Queue.Head&15] = vue[i]
		gt.IA.Queue.Head++
	}

	gtAssert(gt.IA.Queue.Head-gt.IA.Queue.Tail < IA_QUEUE_SIZE, "IA queue overflow")
}

// assemblePrimitives consumes the IA ring per the active topology and
// returns fully consumed VUEs to the VS URB.
func (gt *GT) assemblePrimitives() {
	q := &gt.IA.Queue
	tail := q.Tail
	var vue [3]uint32

	switch gt.IA.Topology {
	case _3DPRIM_TRILIST:
		for q.Head-tail >= 3 {
			vue[0] = q.VUE[(tail+0)&15]
			vue[1] = q.VUE[(tail+1)&15]
			vue[2] = q.VUE[(tail+2)&15]
			gt.setupPrim(vue, 0)
			tail += 3
			gt.IAPrimitivesCount++
		}

	case _3DPRIM_TRISTRIP:
		for q.Head-tail >= 3 {
			vue[0] = q.VUE[(tail+0)&15]
			vue[1] = q.VUE[(tail+1)&15]
			vue[2] = q.VUE[(tail+2)&15]
			gt.setupPrim(vue, gt.IA.TristripParity)
			tail += 1
			gt.IA.TristripParity = 1 - gt.IA.TristripParity
			gt.IAPrimitivesCount++
		}

	case _3DPRIM_POLYGON, _3DPRIM_TRIFAN:
		if gt.IA.TrifanFirstVUE == VUE_NULL {
			// We always have at least one vertex when we get
			// here, so this is safe.
			gtAssert(q.Head-tail >= 1, "empty IA queue in trifan assembly")
			gt.IA.TrifanFirstVUE = q.VUE[tail&15]
			// Bump the queue tail now so we don't free the vue
			// below.
			q.Tail++
			tail++
		}

		for q.Head-tail >= 2 {
			vue[0] = gt.IA.TrifanFirstVUE
			vue[1] = q.VUE[(tail+0)&15]
			vue[2] = q.VUE[(tail+1)&15]
			gt.setupPrim(vue, gt.IA.TristripParity)
			tail += 1
			gt.IAPrimitivesCount++
		}

	case _3DPRIM_QUADLIST:
		for q.Head-tail >= 4 {
			vue[0] = q.VUE[(tail+3)&15]
			vue[1] = q.VUE[(tail+0)&15]
			vue[2] = q.VUE[(tail+1)&15]
			gt.setupPrim(vue, 0)
			vue[0] = q.VUE[(tail+3)&15]
			vue[1] = q.VUE[(tail+1)&15]
			vue[2] = q.VUE[(tail+2)&15]
			gt.setupPrim(vue, 0)
			tail += 4
			gt.IAPrimitivesCount++
		}

	case _3DPRIM_QUADSTRIP:
		for q.Head-tail >= 4 {
			vue[0] = q.VUE[(tail+3)&15]
			vue[1] = q.VUE[(tail+0)&15]
			vue[2] = q.VUE[(tail+1)&15]
			gt.setupPrim(vue, 0)
			vue[0] = q.VUE[(tail+3)&15]
			vue[1] = q.VUE[(tail+2)&15]
			vue[2] = q.VUE[(tail+0)&15]
			gt.setupPrim(vue, 0)
			tail += 2
			gt.IAPrimitivesCount++
		}

	case _3DPRIM_RECTLIST:
		for q.Head-tail >= 3 {
			vue[0] = q.VUE[(tail+0)&15]
			vue[1] = q.VUE[(tail+1)&15]
			vue[2] = q.VUE[(tail+2)&15]
			gt.setupPrim(vue, 0)
			tail += 3
		}

	default:
		stub("topology %d", gt.IA.Topology)
		tail = q.Head
	}

	for tail-q.Tail > 0 {
		gt.urbFree(&gt.VS.URB, q.VUE[q.Tail&15])
		q.Tail++
	}
}

// resetIAState drains the IA ring and the trifan first-vertex slot,
// returning every outstanding VUE to the VS URB.
func (gt *GT) resetIAState() {
	if gt.IA.TrifanFirstVUE != VUE_NULL {
		gt.urbFree(&gt.VS.URB, gt.IA.TrifanFirstVUE)
		gt.IA.TrifanFirstVUE = VUE_NULL
	}

	q := &gt.IA.Queue
	for q.Head-q.Tail > 0 {
		gt.urbFree(&gt.VS.URB, q.VUE[q.Tail&15])
		q.Tail++
	}

	q.Head = 0
	q.Tail = 0
	gt.IA.TristripParity = 0
}

// dispatchPrimitive executes one 3DPRIMITIVE: the full VF - VS - IA -
// raster - PS drain.
func (gt *GT) dispatchPrimitive() error {
	gt.validateVFState()
	gt.validateURBState()

	if gt.SF.ViewportTransformEnable {
		gt.dumpSFClipViewport()
	}

	gt.prepareShaders()

	gt.IA.Topology = gt.VF.Topology
	gt.Depth.WriteEnable = gt.Depth.WriteEnable0 && gt.Depth.WriteEnable1

	// Float-to-int conversions truncate: the EU goes through cvttF32 and
	// the rasterizer's coordinate conversions use int32(), so no global
	// rounding-mode switch is needed here.

	var vue [8]uint32
	i := 0
	for iid := uint32(0); iid < gt.Prim.InstanceCount; iid++ {
		for vid := uint32(0); vid < gt.Prim.VertexCount; vid++ {
			handle, err := gt.fetchVertex(iid, vid)
			if err != nil {
				return fmt.Errorf("fetching vertex %d of instance %d: %w", vid, iid, err)
			}
			vue[i] = handle
			i++
			if gt.VF.Statistics {
				gt.IAVerticesCount++
			}
			if i == 8 {
				gt.dispatchVS(vue[:], 255)
				gt.transformAndQueueVues(vue[:], i)
				gt.assemblePrimitives()
				i = 0
			}
		}
		if i > 0 {
			gt.dispatchVS(vue[:], (1<<i)-1)
			gt.transformAndQueueVues(vue[:], i)
			gt.assemblePrimitives()
			i = 0
		}

		gt.resetIAState()
	}

	gt.wmFlush()
	return nil
}
