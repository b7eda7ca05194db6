// command_streamer.go - Batch buffer command interpreter

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
command_streamer.go - Command Stream Interpreter

The command streamer walks a batch buffer of variable-length packets.
Bits 29-31 of each packet header select the family: type 0 is MI, type
3 is the render engine; render packets split further by subtype and
(sub)opcode into common-state, single-dword, 3DSTATE and media tables.

Dispatch is data-driven: one sparse handler table per family, a logged
no-op for anything recognized-but-irrelevant, and an assertion for
command types that cannot occur in a well-formed stream. State
handlers only mutate GT; the two action packets (3DPRIMITIVE,
GPGPU_WALKER) hand control to the vertex pipeline and the compute
walker respectively.

MI_LOAD_REGISTER_IMM/MEM write a small recognized register set: the
3DPRIMITIVE draw parameters and the compute dispatch dimensions.
Anything else is silently dropped, which is what the device does for
unprivileged batches.
*/

package main

import "encoding/binary"

// MI registers recognized by write_register.
const (
	REG_3DPRIM_END_OFFSET     = 0x2420
	REG_3DPRIM_START_VERTEX   = 0x2430
	REG_3DPRIM_VERTEX_COUNT   = 0x2434
	REG_3DPRIM_INSTANCE_COUNT = 0x2438
	REG_3DPRIM_START_INSTANCE = 0x243C
	REG_3DPRIM_BASE_VERTEX    = 0x2440
	REG_GPGPU_DISPATCHDIMX    = 0x2500
	REG_GPGPU_DISPATCHDIMY    = 0x2504
	REG_GPGPU_DISPATCHDIMZ    = 0x2508
)

const PIPELINE_3D = 0

type commandHandler func(gt *GT, p []uint32) error

func unhandledCommand(gt *GT, p []uint32) error {
	gtTrace(TRACE_CS, "unhandled command\n")
	return nil
}

/* MI commands */

func handleMINoop(gt *GT, p []uint32) error {
	gtTrace(TRACE_CS, "MI_NOOP\n")
	return nil
}

func handleMIBatchBufferEnd(gt *GT, p []uint32) error {
	gtTrace(TRACE_CS, "MI_BATCH_BUFFER_END\n")
	return nil
}

func handleMIMath(gt *GT, p []uint32) error {
	gtTrace(TRACE_CS, "MI_MATH\n")
	return nil
}

func (gt *GT) writeRegister(reg, value uint32) {
	switch reg {
	case REG_3DPRIM_END_OFFSET:
	case REG_3DPRIM_START_VERTEX:
		gt.Prim.StartVertex = value
	case REG_3DPRIM_VERTEX_COUNT:
		gt.Prim.VertexCount = value
	case REG_3DPRIM_INSTANCE_COUNT:
		gt.Prim.InstanceCount = value
	case REG_3DPRIM_START_INSTANCE:
		gt.Prim.StartInstance = value
	case REG_3DPRIM_BASE_VERTEX:
		gt.Prim.BaseVertex = value
	case REG_GPGPU_DISPATCHDIMX:
		gt.Dispatch.DimX = value
	case REG_GPGPU_DISPATCHDIMY:
		gt.Dispatch.DimY = value
	case REG_GPGPU_DISPATCHDIMZ:
		gt.Dispatch.DimZ = value
	}
}

func handleMILoadRegisterImm(gt *GT, p []uint32) error {
	gtTrace(TRACE_CS, "MI_LOAD_REGISTER_IMM\n")

	gt.writeRegister(p[1], p[2])
	return nil
}

func handleMILoadRegisterMem(gt *GT, p []uint32) error {
	gtTrace(TRACE_CS, "MI_LOAD_REGISTER_MEM\n")

	address := getU64(p[2:4])
	value := gt.Mem.Translate(address)
	gtAssert(len(value) >= 4, "MI_LOAD_REGISTER_MEM source 0x%x unmapped", address)
	gt.writeRegister(p[1], binary.LittleEndian.Uint32(value))
	return nil
}

func handleMIAtomic(gt *GT, p []uint32) error {
	gtTrace(TRACE_CS, "MI_ATOMIC\n")
	return nil
}

func handleMIBatchBufferStart(gt *GT, p []uint32) error {
	gtTrace(TRACE_CS, "MI_BATCH_BUFFER_START\n")
	return nil
}

var miCommands = map[uint32]commandHandler{
	0:  handleMINoop,
	10: handleMIBatchBufferEnd,
	26: handleMIMath,
	34: handleMILoadRegisterImm,
	41: handleMILoadRegisterMem,
	47: handleMIAtomic,
	49: handleMIBatchBufferStart,
}

/* Non-pipelined common state */

func handleStateBaseAddress(gt *GT, p []uint32) error {
	const mask = ^uint64(0xfff)

	gtTrace(TRACE_CS, "STATE_BASE_ADDRESS\n")

	if field(p[1], 0, 0) != 0 {
		gt.GeneralStateBaseAddress = getU64(p[1:3]) & mask
	}
	if field(p[4], 0, 0) != 0 {
		gt.SurfaceStateBaseAddress = getU64(p[4:6]) & mask
	}
	if field(p[6], 0, 0) != 0 {
		gt.DynamicStateBaseAddress = getU64(p[6:8]) & mask
	}
	if field(p[8], 0, 0) != 0 {
		gt.IndirectObjectBaseAddress = getU64(p[8:10]) & mask
	}
	if field(p[10], 0, 0) != 0 {
		gt.InstructionBaseAddress = getU64(p[10:12]) & mask
	}

	if field(p[12], 0, 0) != 0 {
		gt.GeneralStateBufferSize = p[12] &^ 0xfff
	}
	if field(p[13], 0, 0) != 0 {
		gt.DynamicStateBufferSize = p[13] &^ 0xfff
	}
	if field(p[14], 0, 0) != 0 {
		gt.IndirectObjectBufferSize = p[14] &^ 0xfff
	}
	if field(p[15], 0, 0) != 0 {
		gt.GeneralInstructionSize = p[15] &^ 0xfff
	}
	return nil
}

func handleStateSIP(gt *GT, p []uint32) error {
	gtTrace(TRACE_CS, "STATE_SIP\n")

	gt.SIPAddress = getU64(p[1:3])
	return nil
}

func handleSwtessBaseAddress(gt *GT, p []uint32) error {
	gtTrace(TRACE_CS, "SWTESS_BASE_ADDRESS\n")
	return nil
}

func handleGpgpuCsrBaseAddress(gt *GT, p []uint32) error {
	gtTrace(TRACE_CS, "GPGPU_CSR_BASE_ADDRESS\n")
	return nil
}

var nonpipelinedCommonCommands = map[uint32]commandHandler{
	1: handleStateBaseAddress,
	2: handleStateSIP,
	3: handleSwtessBaseAddress,
	4: handleGpgpuCsrBaseAddress,
}

func getCommonCommand(p []uint32) commandHandler {
	opcode := field(p[0], 24, 26)
	subopcode := field(p[0], 16, 23)

	if opcode == 1 {
		return nonpipelinedCommonCommands[subopcode]
	}
	// opcode 0 is pipelined common state (STATE_PREFETCH and such);
	// nothing there affects the simulator.
	return nil
}

/* Single-dword render commands */

func handlePipelineSelect(gt *GT, p []uint32) error {
	gtTrace(TRACE_CS, "PIPELINE_SELECT\n")

	pipeline := field(p[0], 0, 1)
	gtAssert(pipeline == PIPELINE_3D, "PIPELINE_SELECT %d: only the 3D pipeline is modelled", pipeline)
	return nil
}

func handle3DStateVFStatistics(gt *GT, p []uint32) error {
	gtTrace(TRACE_CS, "3DSTATE_VF_STATISTICS\n")

	gt.VF.Statistics = field(p[0], 0, 0) != 0
	return nil
}

func getDwordCommand(p []uint32) commandHandler {
	opcode := field(p[0], 24, 26)
	subopcode := field(p[0], 16, 23)

	if opcode == 0 && subopcode == 11 {
		return handle3DStateVFStatistics
	} else if opcode == 1 && subopcode == 4 {
		return handlePipelineSelect
	}
	return nil
}

/* Pipelined 3DSTATE commands */

func logged3DState(name string) commandHandler {
	return func(gt *GT, p []uint32) error {
		gtTrace(TRACE_CS, name+"\n")
		return nil
	}
}

func handle3DStateDepthBuffer(gt *GT, p []uint32) error {
	gtTrace(TRACE_CS, "3DSTATE_DEPTH_BUFFER\n")

	gt.Depth.WriteEnable0 = field(p[1], 28, 28) != 0
	gt.Depth.Format = field(p[1], 18, 20)
	gt.Depth.Stride = field(p[1], 0, 17) + 1
	gt.Depth.Address = getU64(p[2:4])
	gt.Depth.Width = field(p[4], 4, 17) + 1
	gt.Depth.Height = field(p[4], 18, 31) + 1
	return nil
}

func handle3DStateVertexBuffers(gt *GT, p []uint32) error {
	length := field(p[0], 0, 7) + 2

	gtTrace(TRACE_CS, "3DSTATE_VERTEX_BUFFERS\n")
	gtAssert((length-1)%4 == 0, "3DSTATE_VERTEX_BUFFERS length %d", length)

	for i := uint32(1); i < length; i += 4 {
		vb := field(p[i], 26, 31)
		modifyAddress := field(p[i], 14, 14) != 0
		gt.VF.VB[vb].Pitch = field(p[i], 0, 11)
		if modifyAddress {
			gt.VF.VB[vb].Address = getU64(p[i+1 : i+3])
		}
		gt.VF.VB[vb].Size = p[i+3]
		gt.VF.VBValid |= 1 << vb
	}
	return nil
}

func handle3DStateVertexElements(gt *GT, p []uint32) error {
	length := field(p[0], 0, 7) + 2

	gtTrace(TRACE_CS, "3DSTATE_VERTEX_ELEMENTS\n")
	gtAssert((length-1)%2 == 0, "3DSTATE_VERTEX_ELEMENTS length %d", length)

	for i, n := uint32(1), 0; i < length; i, n = i+2, n+1 {
		gt.VF.VE[n].VB = field(p[i], 26, 31)
		gt.VF.VE[n].Valid = field(p[i], 25, 25) != 0
		gt.VF.VE[n].Format = field(p[i], 16, 24)
		gt.VF.VE[n].EdgeFlag = field(p[i], 15, 15) != 0
		gt.VF.VE[n].Offset = field(p[i], 0, 11)
		gt.VF.VE[n].CC[0] = field(p[i+1], 28, 30)
		gt.VF.VE[n].CC[1] = field(p[i+1], 24, 26)
		gt.VF.VE[n].CC[2] = field(p[i+1], 20, 22)
		gt.VF.VE[n].CC[3] = field(p[i+1], 16, 18)
	}

	gt.VF.VECount = (length - 1) / 2
	return nil
}

func handle3DStateIndexBuffer(gt *GT, p []uint32) error {
	gtTrace(TRACE_CS, "3DSTATE_INDEX_BUFFER\n")

	gt.VF.IB.Format = field(p[1], 8, 9)
	gt.VF.IB.Address = getU64(p[2:4])
	gt.VF.IB.Size = p[4]
	return nil
}

func handle3DStateVF(gt *GT, p []uint32) error {
	gtTrace(TRACE_CS, "3DSTATE_VF\n")

	gt.VF.CutIndex = p[1]
	return nil
}

func handle3DStateVS(gt *GT, p []uint32) error {
	gtTrace(TRACE_CS, "3DSTATE_VS\n")

	gt.VS.KSP = getU64(p[1:3])

	gt.VS.ScratchPointer = getU64(p[4:6]) &^ 1023
	gt.VS.ScratchSize = field(p[4], 0, 3)

	gt.VS.URBStartGRF = field(p[6], 20, 24)
	gt.VS.VUEReadLength = field(p[6], 11, 16)
	gt.VS.VUEReadOffset = field(p[6], 4, 9)

	gt.VS.Statistics = field(p[7], 10, 10) != 0
	gt.VS.SIMD8 = field(p[7], 2, 2) != 0
	gt.VS.Enable = field(p[7], 0, 0) != 0
	return nil
}

func handle3DStateClip(gt *GT, p []uint32) error {
	gtTrace(TRACE_CS, "3DSTATE_CLIP\n")

	gt.Clip.PerspectiveDivideDisable = field(p[1], 9, 9) != 0
	return nil
}

func handle3DStateSF(gt *GT, p []uint32) error {
	gtTrace(TRACE_CS, "3DSTATE_SF\n")

	gt.SF.TriStripProvoking = field(p[1], 29, 30)
	gt.SF.TriFanProvoking = field(p[1], 25, 26)
	gt.SF.ViewportTransformEnable = field(p[1], 1, 1) != 0
	return nil
}

func handle3DStateWM(gt *GT, p []uint32) error {
	gtTrace(TRACE_CS, "3DSTATE_WM\n")

	gt.WM.BarycentricMode = field(p[1], 11, 16)
	return nil
}

func fillCurbe(c *Curbe, p []uint32) {
	c.Buffer[0].Length = field(p[1], 0, 15)
	c.Buffer[1].Length = field(p[1], 16, 31)
	c.Buffer[2].Length = field(p[2], 0, 15)
	c.Buffer[3].Length = field(p[2], 16, 31)

	c.Buffer[0].Address = getU64(p[3:5])
	c.Buffer[1].Address = getU64(p[5:7])
	c.Buffer[2].Address = getU64(p[7:9])
	c.Buffer[3].Address = getU64(p[9:11])
}

func handle3DStateConstantVS(gt *GT, p []uint32) error {
	gtTrace(TRACE_CS, "3DSTATE_CONSTANT_VS\n")
	fillCurbe(&gt.VS.Curbe, p)
	return nil
}

func handle3DStateConstantGS(gt *GT, p []uint32) error {
	gtTrace(TRACE_CS, "3DSTATE_CONSTANT_GS\n")
	fillCurbe(&gt.GS.Curbe, p)
	return nil
}

func handle3DStateConstantPS(gt *GT, p []uint32) error {
	gtTrace(TRACE_CS, "3DSTATE_CONSTANT_PS\n")
	fillCurbe(&gt.PS.Curbe, p)
	return nil
}

func handle3DStateConstantHS(gt *GT, p []uint32) error {
	gtTrace(TRACE_CS, "3DSTATE_CONSTANT_HS\n")
	fillCurbe(&gt.HS.Curbe, p)
	return nil
}

func handle3DStateConstantDS(gt *GT, p []uint32) error {
	gtTrace(TRACE_CS, "3DSTATE_CONSTANT_DS\n")
	fillCurbe(&gt.DS.Curbe, p)
	return nil
}

func handle3DStateSBE(gt *GT, p []uint32) error {
	gtTrace(TRACE_CS, "3DSTATE_SBE\n")

	gt.SBE.NumAttributes = field(p[1], 22, 27)
	return nil
}

func handle3DStatePS(gt *GT, p []uint32) error {
	gtTrace(TRACE_CS, "3DSTATE_PS\n")

	gt.PS.KSP0 = getU64(p[1:3])
	gt.PS.ScratchPointer = getU64(p[4:6]) &^ 1023
	gt.PS.ScratchSize = field(p[4], 0, 3)
	gt.PS.GRFStart0 = field(p[6], 16, 22)
	gt.PS.EnableSIMD8 = field(p[6], 0, 0) != 0
	gt.PS.EnableSIMD16 = field(p[6], 1, 1) != 0
	gt.PS.EnableSIMD32 = field(p[6], 2, 2) != 0
	gt.PS.KSP2 = getU64(p[7:9])
	gt.PS.KSP1 = getU64(p[9:11])
	return nil
}

func handle3DStateViewportStatePointerSFClip(gt *GT, p []uint32) error {
	gtTrace(TRACE_CS, "3DSTATE_VIEWPORT_STATE_POINTER_SF_CLIP\n")

	// The driver is required to reemit dynamic indirect state packets
	// (viewports and such) after emitting STATE_BASE_ADDRESS, so the
	// dynamic state base captured here is the one that applies.
	gt.SF.ViewportPointer = gt.DynamicStateBaseAddress + uint64(p[1])
	return nil
}

func handle3DStateViewportStatePointerCC(gt *GT, p []uint32) error {
	gtTrace(TRACE_CS, "3DSTATE_VIEWPORT_STATE_POINTER_CC\n")

	gt.CC.ViewportPointer = gt.DynamicStateBaseAddress + uint64(p[1])
	return nil
}

func handle3DStateBindingTablePointersVS(gt *GT, p []uint32) error {
	gtTrace(TRACE_CS, "3DSTATE_BINDING_TABLE_POINTERS_VS\n")
	gt.VS.BindingTableAddress = p[1]
	return nil
}

func handle3DStateBindingTablePointersHS(gt *GT, p []uint32) error {
	gtTrace(TRACE_CS, "3DSTATE_BINDING_TABLE_POINTERS_HS\n")
	gt.HS.BindingTableAddress = p[1]
	return nil
}

func handle3DStateBindingTablePointersDS(gt *GT, p []uint32) error {
	gtTrace(TRACE_CS, "3DSTATE_BINDING_TABLE_POINTERS_DS\n")
	gt.DS.BindingTableAddress = p[1]
	return nil
}

func handle3DStateBindingTablePointersGS(gt *GT, p []uint32) error {
	gtTrace(TRACE_CS, "3DSTATE_BINDING_TABLE_POINTERS_GS\n")
	gt.GS.BindingTableAddress = p[1]
	return nil
}

func handle3DStateBindingTablePointersPS(gt *GT, p []uint32) error {
	gtTrace(TRACE_CS, "3DSTATE_BINDING_TABLE_POINTERS_PS\n")
	gt.PS.BindingTableAddress = p[1]
	return nil
}

func handle3DStateSamplerStatePointersVS(gt *GT, p []uint32) error {
	gtTrace(TRACE_CS, "3DSTATE_SAMPLER_STATE_POINTERS_VS\n")
	gt.VS.SamplerStateAddress = p[1]
	return nil
}

func handle3DStateSamplerStatePointersHS(gt *GT, p []uint32) error {
	gtTrace(TRACE_CS, "3DSTATE_SAMPLER_STATE_POINTERS_HS\n")
	gt.HS.SamplerStateAddress = p[1]
	return nil
}

func handle3DStateSamplerStatePointersDS(gt *GT, p []uint32) error {
	gtTrace(TRACE_CS, "3DSTATE_SAMPLER_STATE_POINTERS_DS\n")
	gt.DS.SamplerStateAddress = p[1]
	return nil
}

func handle3DStateSamplerStatePointersGS(gt *GT, p []uint32) error {
	gtTrace(TRACE_CS, "3DSTATE_SAMPLER_STATE_POINTERS_GS\n")
	gt.GS.SamplerStateAddress = p[1]
	return nil
}

func handle3DStateSamplerStatePointersPS(gt *GT, p []uint32) error {
	gtTrace(TRACE_CS, "3DSTATE_SAMPLER_STATE_POINTERS_PS\n")
	gt.PS.SamplerStateAddress = p[1]
	return nil
}

func setURBAllocation(urb *URBAlloc, p []uint32) {
	urb.Reset(
		field(p[1], 25, 31)*URB_CHUNK_SIZE,
		(field(p[1], 16, 24)+1)*64,
		field(p[1], 0, 15))
}

func handle3DStateURBVS(gt *GT, p []uint32) error {
	gtTrace(TRACE_CS, "3DSTATE_URB_VS\n")

	setURBAllocation(&gt.VS.URB, p)
	gtTrace(TRACE_CS, "vs urb: start=%d, size=%d, total=%d\n",
		gt.VS.URB.Base, gt.VS.URB.Size, gt.VS.URB.Total)
	return nil
}

func handle3DStateURBHS(gt *GT, p []uint32) error {
	gtTrace(TRACE_CS, "3DSTATE_URB_HS\n")
	setURBAllocation(&gt.HS.URB, p)
	return nil
}

func handle3DStateURBDS(gt *GT, p []uint32) error {
	gtTrace(TRACE_CS, "3DSTATE_URB_DS\n")
	setURBAllocation(&gt.DS.URB, p)
	return nil
}

func handle3DStateURBGS(gt *GT, p []uint32) error {
	gtTrace(TRACE_CS, "3DSTATE_URB_GS\n")
	setURBAllocation(&gt.GS.URB, p)
	return nil
}

func handle3DStateVFInstancing(gt *GT, p []uint32) error {
	gtTrace(TRACE_CS, "3DSTATE_VF_INSTANCING\n")

	ve := field(p[1], 0, 5)
	gt.VF.VE[ve].Instancing = field(p[1], 8, 8) != 0
	gt.VF.VE[ve].StepRate = p[2]
	return nil
}

func handle3DStateVFSGVS(gt *GT, p []uint32) error {
	gtTrace(TRACE_CS, "3DSTATE_VF_SGVS\n")

	gt.VF.IIDEnable = field(p[1], 31, 31) != 0
	gt.VF.IIDComponent = field(p[1], 29, 30)
	gt.VF.IIDElement = field(p[1], 16, 21)

	gt.VF.VIDEnable = field(p[1], 15, 15) != 0
	gt.VF.VIDComponent = field(p[1], 13, 14)
	gt.VF.VIDElement = field(p[1], 0, 5)
	return nil
}

func handle3DStateVFTopology(gt *GT, p []uint32) error {
	gtTrace(TRACE_CS, "3DSTATE_VF_TOPOLOGY\n")

	gt.VF.Topology = field(p[1], 0, 5)
	return nil
}

func handle3DStateWMDepthStencil(gt *GT, p []uint32) error {
	gtTrace(TRACE_CS, "3DSTATE_WM_DEPTH_STENCIL\n")

	gt.Depth.TestEnable = field(p[1], 31, 31) != 0
	gt.Depth.WriteEnable1 = field(p[1], 30, 30) != 0
	gt.Depth.TestFunction = field(p[1], 27, 29)
	return nil
}

func handle3DStatePSExtra(gt *GT, p []uint32) error {
	gtTrace(TRACE_CS, "3DSTATE_PS_EXTRA\n")

	gt.PS.Enable = field(p[1], 31, 31) != 0
	gt.PS.AttributeEnable = field(p[1], 8, 8) != 0
	gt.PS.UsesSourceDepth = field(p[1], 7, 7) != 0
	gt.PS.UsesSourceW = field(p[1], 6, 6) != 0
	gt.PS.PushConstantEnable = field(p[1], 5, 5) != 0
	gt.PS.Statistics = field(p[1], 4, 4) != 0
	gt.PS.UsesInputCoverage = field(p[1], 1, 1) != 0
	return nil
}

var pipelined3DStateCommands = map[uint32]commandHandler{
	4:  logged3DState("3DSTATE_CLEAR_PARAMS"),
	5:  handle3DStateDepthBuffer,
	6:  logged3DState("3DSTATE_STENCIL_BUFFER"),
	7:  logged3DState("3DSTATE_HIER_DEPTH_BUFFER"),
	8:  handle3DStateVertexBuffers,
	9:  handle3DStateVertexElements,
	10: handle3DStateIndexBuffer,

	12: handle3DStateVF,
	13: logged3DState("3DSTATE_MULTISAMPLE"),
	14: logged3DState("3DSTATE_CC_STATE_POINTERS"),
	15: logged3DState("3DSTATE_SCISSOR_STATE_POINTERS"),
	16: handle3DStateVS,
	17: logged3DState("3DSTATE_GS"),
	18: handle3DStateClip,
	19: handle3DStateSF,
	20: handle3DStateWM,

	21: handle3DStateConstantVS,
	22: handle3DStateConstantGS,
	23: handle3DStateConstantPS,
	24: logged3DState("3DSTATE_SAMPLE_MASK"),
	25: handle3DStateConstantHS,
	26: handle3DStateConstantDS,

	27: logged3DState("3DSTATE_HS"),
	28: logged3DState("3DSTATE_TE"),
	29: logged3DState("3DSTATE_DS"),
	30: logged3DState("3DSTATE_STREAMOUT"),
	31: handle3DStateSBE,
	32: handle3DStatePS,

	33: handle3DStateViewportStatePointerSFClip,
	35: handle3DStateViewportStatePointerCC,
	36: logged3DState("3DSTATE_BLEND_STATE_POINTERS"),

	38: handle3DStateBindingTablePointersVS,
	39: handle3DStateBindingTablePointersHS,
	40: handle3DStateBindingTablePointersDS,
	41: handle3DStateBindingTablePointersGS,
	42: handle3DStateBindingTablePointersPS,

	43: handle3DStateSamplerStatePointersVS,
	44: handle3DStateSamplerStatePointersHS,
	45: handle3DStateSamplerStatePointersDS,
	46: handle3DStateSamplerStatePointersGS,
	47: handle3DStateSamplerStatePointersPS,

	48: handle3DStateURBVS,
	49: handle3DStateURBHS,
	50: handle3DStateURBDS,
	51: handle3DStateURBGS,

	52: logged3DState("GATHER_CONSTANT_VS"),
	53: logged3DState("GATHER_CONSTANT_GS"),
	54: logged3DState("GATHER_CONSTANT_HS"),
	55: logged3DState("GATHER_CONSTANT_DS"),
	56: logged3DState("GATHER_CONSTANT_PS"),

	67: logged3DState("3DSTATE_BINDING_TABLE_EDIT_VS"),
	68: logged3DState("3DSTATE_BINDING_TABLE_EDIT_GS"),
	69: logged3DState("3DSTATE_BINDING_TABLE_EDIT_HS"),
	70: logged3DState("3DSTATE_BINDING_TABLE_EDIT_DS"),
	71: logged3DState("3DSTATE_BINDING_TABLE_EDIT_PS"),
	73: handle3DStateVFInstancing,
	74: handle3DStateVFSGVS,
	75: handle3DStateVFTopology,
	76: logged3DState("3DSTATE_WM_CHROMAKEY"),
	77: logged3DState("3DSTATE_PS_BLEND"),
	78: handle3DStateWMDepthStencil,
	79: handle3DStatePSExtra,
	80: logged3DState("3DSTATE_RASTER"),
	81: logged3DState("3DSTATE_SBE_SWIZ"),
	82: logged3DState("3DSTATE_WM_HZ_OP"),
}

/* Non-pipelined 3DSTATE commands */

func fillCurbeAlloc(c *Curbe, p []uint32) {
	c.Size = field(p[1], 0, 5) * 1024
}

func handle3DStateDrawingRectangle(gt *GT, p []uint32) error {
	gtTrace(TRACE_CS, "3DSTATE_DRAWING_RECTANGLE\n")

	gt.DrawRect.MinX = int32(field(p[1], 0, 15))
	gt.DrawRect.MinY = int32(field(p[1], 16, 31))
	gt.DrawRect.MaxX = int32(field(p[2], 0, 15)) + 1
	gt.DrawRect.MaxY = int32(field(p[2], 16, 31)) + 1
	return nil
}

func handle3DStatePushConstantAllocVS(gt *GT, p []uint32) error {
	gtTrace(TRACE_CS, "3DSTATE_PUSH_CONSTANT_ALLOC_VS\n")
	fillCurbeAlloc(&gt.VS.Curbe, p)
	return nil
}

func handle3DStatePushConstantAllocHS(gt *GT, p []uint32) error {
	gtTrace(TRACE_CS, "3DSTATE_PUSH_CONSTANT_ALLOC_HS\n")
	fillCurbeAlloc(&gt.HS.Curbe, p)
	return nil
}

func handle3DStatePushConstantAllocDS(gt *GT, p []uint32) error {
	gtTrace(TRACE_CS, "3DSTATE_PUSH_CONSTANT_ALLOC_DS\n")
	fillCurbeAlloc(&gt.DS.Curbe, p)
	return nil
}

func handle3DStatePushConstantAllocGS(gt *GT, p []uint32) error {
	gtTrace(TRACE_CS, "3DSTATE_PUSH_CONSTANT_ALLOC_GS\n")
	fillCurbeAlloc(&gt.GS.Curbe, p)
	return nil
}

func handle3DStatePushConstantAllocPS(gt *GT, p []uint32) error {
	gtTrace(TRACE_CS, "3DSTATE_PUSH_CONSTANT_ALLOC_PS\n")
	fillCurbeAlloc(&gt.PS.Curbe, p)
	return nil
}

var nonpipelined3DStateCommands = map[uint32]commandHandler{
	0:  handle3DStateDrawingRectangle,
	2:  logged3DState("3DSTATE_SAMPLER_PALETTE_LOAD0"),
	4:  logged3DState("3DSTATE_CHROMA_KEY"),
	6:  logged3DState("3DSTATE_POLY_STIPPLE_OFFSET"),
	7:  logged3DState("3DSTATE_POLY_STIPPLE_PATTERN"),
	8:  logged3DState("3DSTATE_LINE_STIPPLE"),
	10: logged3DState("3DSTATE_AA_LINE_PARAMETERS"),
	12: logged3DState("3DSTATE_SAMPLER_PALETTE_LOAD1"),
	17: logged3DState("3DSTATE_MONOFILTER_SIZE"),
	18: handle3DStatePushConstantAllocVS,
	19: handle3DStatePushConstantAllocHS,
	20: handle3DStatePushConstantAllocDS,
	21: handle3DStatePushConstantAllocGS,
	22: handle3DStatePushConstantAllocPS,
	23: logged3DState("3DSTATE_SO_DECL_LIST"),
	24: logged3DState("3DSTATE_SO_BUFFER"),
	25: logged3DState("3DSTATE_BINDING_TABLE_POOL_ALLOC"),
	26: logged3DState("3DSTATE_GATHER_POOL_ALLOC"),
	28: logged3DState("3DSTATE_SAMPLE_PATTERN"),
}

func handlePipeControl(gt *GT, p []uint32) error {
	gtTrace(TRACE_CS, "PIPE_CONTROL\n")
	return nil
}

func handle3DPrimitive(gt *GT, p []uint32) error {
	gtTrace(TRACE_CS, "3DPRIMITIVE\n")

	indirect := field(p[0], 10, 10) != 0

	gt.Prim.Predicate = field(p[0], 8, 8) != 0
	gt.Prim.EndOffset = field(p[1], 9, 9) != 0
	gt.Prim.AccessType = field(p[1], 8, 8)

	if !indirect {
		gt.Prim.VertexCount = p[2]
		gt.Prim.StartVertex = p[3]
		gt.Prim.InstanceCount = p[4]
		gt.Prim.StartInstance = p[5]
		gt.Prim.BaseVertex = p[6]
	}

	return gt.dispatchPrimitive()
}

func get3DStateCommand(p []uint32) commandHandler {
	opcode := field(p[0], 24, 26)
	subopcode := field(p[0], 16, 23)

	switch opcode {
	case 0:
		return pipelined3DStateCommands[subopcode]
	case 1:
		return nonpipelined3DStateCommands[subopcode]
	case 2:
		if subopcode == 0 {
			return handlePipeControl
		}
		return nil
	case 3:
		if subopcode == 0 {
			return handle3DPrimitive
		}
		return nil
	default:
		return nil
	}
}

/* Media (compute) commands */

func handleMediaVFEState(gt *GT, p []uint32) error {
	gtTrace(TRACE_CS, "MEDIA_VFE_STATE\n")

	gt.Compute.ScratchPointer = getU64(p[1:3]) &^ 1023
	gt.Compute.ScratchSize = field(p[1], 0, 3)
	return nil
}

func handleMediaCurbeLoad(gt *GT, p []uint32) error {
	gtTrace(TRACE_CS, "MEDIA_CURBE_LOAD\n")

	gt.Compute.CurbeDataLength = p[2]
	gt.Compute.CurbeDataAddress = gt.DynamicStateBaseAddress + uint64(p[3])
	return nil
}

func handleMediaInterfaceDescriptorLoad(gt *GT, p []uint32) error {
	gtTrace(TRACE_CS, "MEDIA_INTERFACE_DESCRIPTOR_LOAD\n")

	desc := gt.readDwords(gt.DynamicStateBaseAddress+uint64(p[3]), 8)
	gtAssert(desc != nil, "interface descriptor at 0x%x unmapped",
		gt.DynamicStateBaseAddress+uint64(p[3]))

	gt.Compute.KSP = uint64(desc[0])
	gt.Compute.SamplerStateAddress = desc[3] &^ 0x1f
	gt.Compute.BindingTableAddress = desc[4] &^ 0x1f
	return nil
}

func handleGpgpuWalker(gt *GT, p []uint32) error {
	gtTrace(TRACE_CS, "GPGPU_WALKER\n")

	indirect := field(p[0], 10, 10) != 0

	gt.Compute.SIMDSize = 8 << field(p[4], 30, 31)
	gt.Compute.Width = field(p[4], 0, 5) + 1
	gt.Compute.Height = 1
	gt.Compute.Depth = 1

	if indirect {
		gt.Compute.EndX = gt.Dispatch.DimX
		gt.Compute.EndY = gt.Dispatch.DimY
		gt.Compute.EndZ = gt.Dispatch.DimZ
	} else {
		gt.Compute.EndX = p[7]
		gt.Compute.EndY = p[8]
		gt.Compute.EndZ = p[9]
	}
	gt.Compute.StartX = 0
	gt.Compute.StartY = 0
	gt.Compute.StartZ = 0
	gt.Compute.RightMask = p[10]

	return gt.dispatchCompute()
}

var mediaCommands = map[uint32]commandHandler{
	// key is opcode<<8 | subopcode
	0<<8 | 0: handleMediaVFEState,
	0<<8 | 1: handleMediaCurbeLoad,
	0<<8 | 2: handleMediaInterfaceDescriptorLoad,
	1<<8 | 5: handleGpgpuWalker,
}

func getMediaCommand(p []uint32) commandHandler {
	opcode := field(p[0], 24, 26)
	subopcode := field(p[0], 16, 23)

	return mediaCommands[opcode<<8|subopcode]
}

// StartBatchBuffer executes a batch buffer at the given guest address
// until MI_BATCH_BUFFER_END.
func (gt *GT) StartBatchBuffer(address uint64) error {
	gt.CurbeDynamicStateBase = true

	base := gt.Mem.Translate(address)
	gtAssert(base != nil, "batch buffer at 0x%x unmapped", address)
	limit := uint32(len(base) / 4)

	var offset uint32
	done := false
	for !done {
		gtAssert(offset+4 <= limit, "batch buffer overrun at dword %d", offset)

		h := binary.LittleEndian.Uint32(base[offset*4:])
		cmdType := field(h, 29, 31)

		var length uint32
		switch cmdType {
		case 0: /* MI */
			if opcode := field(h, 23, 28); opcode < 16 {
				length = 1
			} else {
				length = field(h, 0, 7) + 2
			}
		case 3: /* Render */
			if field(h, 27, 28) == 1 {
				length = 1
			} else {
				length = field(h, 0, 7) + 2
			}
		default:
			gtAssert(false, "unknown command type %d at dword %d", cmdType, offset)
		}

		gtAssert(offset+length <= limit, "packet at dword %d overruns batch", offset)
		p := make([]uint32, length)
		for i := range p {
			p[i] = binary.LittleEndian.Uint32(base[(offset+uint32(i))*4:])
		}

		var handler commandHandler
		if cmdType == 0 {
			opcode := field(h, 23, 28)
			handler = miCommands[opcode]
			if opcode == 10 { /* bb end */
				done = true
			}
		} else {
			switch field(h, 27, 28) {
			case 0:
				handler = getCommonCommand(p)
			case 1:
				handler = getDwordCommand(p)
			case 2:
				handler = getMediaCommand(p)
			case 3:
				handler = get3DStateCommand(p)
			}
		}

		if handler == nil {
			handler = unhandledCommand
		}
		if err := handler(gt, p); err != nil {
			return err
		}
		offset += length
	}

	return nil
}
