// gt_state.go - Global pipeline state for the IntuitionGT simulator

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
gt_state.go - Global Pipeline State

GT mirrors the device's MMIO-visible pipeline state: one record,
reset at batch start, mutated only by the command streamer, read by
every downstream stage during a draw. The handful of stages that
mutate state as their purpose (URB alloc/free, depth write, render
target write) do so through their own entry points.

The unified return buffer (URB) backing store lives here too. Vertex
attributes travel between stages as VUEs: sequences of 16-byte Value
cells inside a per-stage URB window. Stages refer to VUEs by handle
(byte offset into the slab), never by pointer, so a handle can be
carried in a 32-bit GRF lane the way the hardware does it.
*/

package main

import (
	"encoding/binary"
	"math"
)

// Primitive topologies (3DSTATE_VF_TOPOLOGY encoding).
const (
	_3DPRIM_POINTLIST = 0x01
	_3DPRIM_LINELIST  = 0x02
	_3DPRIM_LINESTRIP = 0x03
	_3DPRIM_TRILIST   = 0x04
	_3DPRIM_TRISTRIP  = 0x05
	_3DPRIM_TRIFAN    = 0x06
	_3DPRIM_QUADLIST  = 0x07
	_3DPRIM_QUADSTRIP = 0x08
	_3DPRIM_POLYGON   = 0x0E
	_3DPRIM_RECTLIST  = 0x0F
)

// Vertex element component controls.
const (
	VFCOMP_NOSTORE     = 0
	VFCOMP_STORE_SRC   = 1
	VFCOMP_STORE_0     = 2
	VFCOMP_STORE_1_FP  = 3
	VFCOMP_STORE_1_INT = 4
	VFCOMP_STORE_PID   = 7
)

// Index buffer formats.
const (
	INDEX_BYTE  = 0
	INDEX_WORD  = 1
	INDEX_DWORD = 2
)

// 3DPRIMITIVE access types.
const (
	ACCESS_SEQUENTIAL = 0
	ACCESS_RANDOM     = 1
)

// Barycentric interpolation mode bits (3DSTATE_WM).
const (
	BIM_PERSPECTIVE_PIXEL    = 1 << 0
	BIM_PERSPECTIVE_CENTROID = 1 << 1
	BIM_PERSPECTIVE_SAMPLE   = 1 << 2
	BIM_LINEAR_PIXEL         = 1 << 3
	BIM_LINEAR_CENTROID      = 1 << 4
	BIM_LINEAR_SAMPLE        = 1 << 5
)

// Depth buffer formats (3DSTATE_DEPTH_BUFFER encoding).
const (
	D32_FLOAT       = 1
	D24_UNORM_X8    = 3
	D16_UNORM       = 5
)

// Depth compare functions (3DSTATE_WM_DEPTH_STENCIL encoding).
const (
	COMPARE_ALWAYS   = 0
	COMPARE_NEVER    = 1
	COMPARE_LESS     = 2
	COMPARE_EQUAL    = 3
	COMPARE_LEQUAL   = 4
	COMPARE_GREATER  = 5
	COMPARE_NOTEQUAL = 6
	COMPARE_GEQUAL   = 7
)

const (
	URB_CHUNK_SIZE = 8192
	URB_SIZE       = 128 * URB_CHUNK_SIZE
	IA_QUEUE_SIZE  = 16

	// Handle value marking an empty URB free list. Entries are
	// 64-byte aligned, so offset 1 can never name a real entry.
	URB_EMPTY = 1

	// Handle value meaning "no VUE".
	VUE_NULL = 0xffffffff
)

// Value is one 16-byte VUE cell: four 32-bit lanes, typeless until a
// consumer assigns a meaning.
type Value struct {
	V [4]uint32
}

func (v *Value) F(c int) float32        { return math.Float32frombits(v.V[c]) }
func (v *Value) SetF(c int, f float32)  { v.V[c] = math.Float32bits(f) }

type VertexBuffer struct {
	Address uint64
	Pitch   uint32
	Size    uint32
	data    []byte // resolved at draw validation
}

type VertexElement struct {
	VB       uint32
	Valid    bool
	Format   uint32
	EdgeFlag bool
	Offset   uint32
	CC       [4]uint32

	Instancing bool
	StepRate   uint32
}

type IndexBuffer struct {
	Address uint64
	Format  uint32
	Size    uint32
}

type VFState struct {
	VB      [32]VertexBuffer
	VBValid uint32
	VE      [34]VertexElement
	VECount uint32
	IB      IndexBuffer

	IIDEnable    bool
	IIDComponent uint32
	IIDElement   uint32
	VIDEnable    bool
	VIDComponent uint32
	VIDElement   uint32

	Topology   uint32
	CutIndex   uint32
	Statistics bool
}

type PrimState struct {
	Predicate     bool
	EndOffset     bool
	AccessType    uint32
	VertexCount   uint32
	StartVertex   uint32
	InstanceCount uint32
	StartInstance uint32
	BaseVertex    uint32
}

type CurbeBuffer struct {
	Length  uint32 // in 32-byte registers
	Address uint64
}

type Curbe struct {
	Buffer [4]CurbeBuffer
	Size   uint32
}

// ShaderStage carries the 3DSTATE_xS programming common to the
// geometry stages.
type ShaderStage struct {
	KSP                 uint64
	ScratchPointer      uint64
	ScratchSize         uint32
	BindingTableAddress uint32
	SamplerStateAddress uint32

	URBStartGRF   uint32
	VUEReadLength uint32
	VUEReadOffset uint32

	Statistics bool
	SIMD8      bool
	Enable     bool

	Curbe Curbe
	URB   URBAlloc
	TID   uint32

	Shader *Shader
}

// PSState carries 3DSTATE_PS plus the PS_EXTRA and WM programming the
// pixel dispatcher consumes.
type PSState struct {
	KSP0, KSP1, KSP2    uint64
	ScratchPointer      uint64
	ScratchSize         uint32
	BindingTableAddress uint32
	SamplerStateAddress uint32

	GRFStart0    uint32
	EnableSIMD8  bool
	EnableSIMD16 bool
	EnableSIMD32 bool

	Enable             bool
	Statistics         bool
	Resolve            bool
	AttributeEnable    bool
	PushConstantEnable bool
	UsesSourceDepth    bool
	UsesSourceW        bool
	UsesInputCoverage  bool

	Curbe Curbe
	TID   uint32

	ShaderSIMD8 *Shader
}

type ComputeState struct {
	KSP                 uint64
	ScratchPointer      uint64
	ScratchSize         uint32
	BindingTableAddress uint32
	SamplerStateAddress uint32

	CurbeDataAddress uint64
	CurbeDataLength  uint32

	SIMDSize  uint32
	Width     uint32
	Height    uint32
	Depth     uint32
	RightMask uint32

	StartX, EndX uint32
	StartY, EndY uint32
	StartZ, EndZ uint32

	Shader *Shader
}

type SFState struct {
	ViewportPointer         uint64
	ViewportTransformEnable bool
	TriStripProvoking       uint32
	TriFanProvoking         uint32
}

type ClipState struct {
	PerspectiveDivideDisable bool
}

type WMState struct {
	BarycentricMode uint32
}

type SBEState struct {
	NumAttributes uint32
}

type CCState struct {
	ViewportPointer uint64
	State           uint32
}

type DepthState struct {
	Address      uint64
	Stride       uint32
	Format       uint32
	Width        uint32
	Height       uint32
	TestEnable   bool
	TestFunction uint32
	WriteEnable0 bool
	WriteEnable1 bool
	WriteEnable  bool
}

type DrawingRectangle struct {
	MinX, MinY int32
	MaxX, MaxY int32
}

// IAQueue buffers transformed vertices between the VS and primitive
// assembly. Slots hold VUE handles, never owning references: the URB
// pool owns every entry.
type IAQueue struct {
	VUE  [IA_QUEUE_SIZE]uint32
	Head uint32
	Tail uint32
}

type IAState struct {
	Topology         uint32
	Queue            IAQueue
	TristripParity   uint32
	TrifanFirstVUE   uint32
}

type DispatchDims struct {
	DimX, DimY, DimZ uint32
}

// GT is the device: guest memory, the URB slab, and every piece of
// pipeline state the command streamer programs.
type GT struct {
	Mem *GuestMemory

	GeneralStateBaseAddress    uint64
	SurfaceStateBaseAddress    uint64
	DynamicStateBaseAddress    uint64
	IndirectObjectBaseAddress  uint64
	InstructionBaseAddress     uint64
	GeneralStateBufferSize     uint32
	DynamicStateBufferSize     uint32
	IndirectObjectBufferSize   uint32
	GeneralInstructionSize     uint32
	SIPAddress                 uint64
	CurbeDynamicStateBase      bool

	VF      VFState
	Prim    PrimState
	VS      ShaderStage
	HS      ShaderStage
	DS      ShaderStage
	GS      ShaderStage
	PS      PSState
	Compute ComputeState

	CC    CCState
	SF    SFState
	Clip  ClipState
	WM    WMState
	SBE   SBEState
	Depth DepthState
	IA    IAState

	DrawRect DrawingRectangle
	Dispatch DispatchDims

	URB []byte

	IAVerticesCount   uint64
	IAPrimitivesCount uint64
	VSInvocationCount uint64
	PSInvocationCount uint64
	CSInvocationCount uint64

	// primSink, when set, receives assembled primitives instead of
	// the rasterizer. The primitive-assembly tests hook it.
	primSink func(*Primitive)

	FramebufferPath string
	Display         DisplayOutput
}

func NewGT(mem *GuestMemory) *GT {
	return &GT{
		Mem: mem,
		URB: make([]byte, URB_SIZE),
		IA:  IAState{TrifanFirstVUE: VUE_NULL},
		DrawRect: DrawingRectangle{
			MaxX: math.MaxInt32,
			MaxY: math.MaxInt32,
		},
	}
}

// vueRead returns lane comp of VUE cell cell for the entry named by
// handle.
func (gt *GT) vueRead(handle uint32, cell, comp int) uint32 {
	off := int(handle) + cell*16 + comp*4
	return binary.LittleEndian.Uint32(gt.URB[off:])
}

func (gt *GT) vueWrite(handle uint32, cell, comp int, v uint32) {
	off := int(handle) + cell*16 + comp*4
	binary.LittleEndian.PutUint32(gt.URB[off:], v)
}

func (gt *GT) vueReadValue(handle uint32, cell int) Value {
	var v Value
	for c := 0; c < 4; c++ {
		v.V[c] = gt.vueRead(handle, cell, c)
	}
	return v
}

func (gt *GT) vueWriteValue(handle uint32, cell int, v Value) {
	for c := 0; c < 4; c++ {
		gt.vueWrite(handle, cell, c, v.V[c])
	}
}
