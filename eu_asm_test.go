// eu_asm_test.go - Test-side assembler for native EU instruction words

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
	"encoding/binary"
	"math"
)

// euInst builds one packed instruction word field by field, using the
// same positions the decoder consumes.
type euInst struct {
	in Inst
}

func (a *euInst) set(start, end int, v uint32) {
	mask := uint64(^uint32(0) >> (31 - end + start))
	if start < 64 {
		a.in.qw[0] &^= mask << start
		a.in.qw[0] |= (uint64(v) & mask) << start
	} else {
		a.in.qw[1] &^= mask << (start - 64)
		a.in.qw[1] |= (uint64(v) & mask) << (start - 64)
	}
}

// oper describes one ALU operand for the assembler.
type oper struct {
	file   uint32
	typ    uint32
	num    uint32
	sub    uint32
	scalar bool // <0;1,0> broadcast region
	imm    uint32
	negate bool
	abs    bool
}

func grf(typ, num uint32) oper {
	return oper{file: FILE_GRF, typ: typ, num: num}
}

func grfScalar(typ, num, sub uint32) oper {
	return oper{file: FILE_GRF, typ: typ, num: num, sub: sub, scalar: true}
}

func immF(f float32) oper {
	return oper{file: FILE_IMM, typ: HW_TYPE_F, imm: math.Float32bits(f)}
}

func immUD(v uint32) oper {
	return oper{file: FILE_IMM, typ: HW_TYPE_UD, imm: v}
}

func nullReg(typ uint32) oper {
	return oper{file: FILE_ARF, typ: typ, num: ARF_NULL}
}

func (a *euInst) encodeDst(d oper) {
	a.set(35, 36, d.file)
	a.set(37, 40, d.typ)
	a.set(48, 52, d.sub)
	a.set(53, 60, d.num)
	a.set(61, 62, 1) // hstride 1
}

func (a *euInst) encodeSrc0(s oper) {
	a.set(41, 42, s.file)
	a.set(43, 46, s.typ)
	if s.file == FILE_IMM {
		a.set(96, 127, s.imm)
		return
	}
	a.set(64, 68, s.sub)
	a.set(69, 76, s.num)
	if s.abs {
		a.set(77, 77, 1)
	}
	if s.negate {
		a.set(78, 78, 1)
	}
	if !s.scalar {
		a.set(80, 81, 1) // hstride 1
		a.set(82, 84, 3) // width 8
		a.set(85, 88, 4) // vstride 8
	}
}

func (a *euInst) encodeSrc1(s oper) {
	a.set(89, 90, s.file)
	a.set(43, 45, s.typ&7)
	if s.file == FILE_IMM {
		a.set(96, 127, s.imm)
		return
	}
	a.set(96, 100, s.sub)
	a.set(101, 108, s.num)
	if s.abs {
		a.set(109, 109, 1)
	}
	if s.negate {
		a.set(110, 110, 1)
	}
	if !s.scalar {
		a.set(112, 113, 1) // hstride 1
		a.set(114, 116, 3) // width 8
		a.set(117, 120, 4) // vstride 8
	}
}

func opCommon(opcode uint32) *euInst {
	a := &euInst{}
	a.set(0, 6, opcode)
	a.set(21, 23, 3) // exec size 8
	return a
}

func asmOp1(opcode uint32, dst, src0 oper) Inst {
	a := opCommon(opcode)
	a.encodeDst(dst)
	a.encodeSrc0(src0)
	return a.in
}

func asmOp2(opcode uint32, dst, src0, src1 oper) Inst {
	a := opCommon(opcode)
	a.encodeDst(dst)
	a.encodeSrc0(src0)
	a.encodeSrc1(src1)
	return a.in
}

func asmMOV(dst, src0 oper) Inst {
	return asmOp1(OPCODE_MOV, dst, src0)
}

// asmSEL encodes SEL with a condition modifier.
func asmSEL(cond uint32, dst, src0, src1 oper) Inst {
	a := opCommon(OPCODE_SEL)
	a.set(24, 27, cond)
	a.encodeDst(dst)
	a.encodeSrc0(src0)
	a.encodeSrc1(src1)
	return a.in
}

// asmCMP encodes CMP with a condition modifier targeting flag 0.
func asmCMP(cond uint32, dst, src0, src1 oper) Inst {
	a := opCommon(OPCODE_CMP)
	a.set(24, 27, cond)
	a.encodeDst(dst)
	a.encodeSrc0(src0)
	a.encodeSrc1(src1)
	return a.in
}

// asmMATH encodes the MATH instruction with the given function.
func asmMATH(function uint32, dst, src0, src1 oper) Inst {
	a := opCommon(OPCODE_MATH)
	a.set(24, 27, function)
	a.encodeDst(dst)
	a.encodeSrc0(src0)
	a.encodeSrc1(src1)
	return a.in
}

// saturated marks an assembled instruction's saturate bit.
func saturated(in Inst) Inst {
	a := &euInst{in: in}
	a.set(31, 31, 1)
	return a.in
}

// predicated marks an instruction as predicated on flag 0, optionally
// inverted.
func predicated(in Inst, inverted bool) Inst {
	a := &euInst{in: in}
	a.set(16, 19, 1)
	if inverted {
		a.set(20, 20, 1)
	}
	return a.in
}

// asmFlow encodes a bare control-flow instruction.
func asmFlow(opcode uint32) Inst {
	a := opCommon(opcode)
	return a.in
}

// asmMAD encodes an align-16 three-source MAD over full F registers
// with identity swizzles.
func asmMAD(dstNum, s0, s1, s2 uint32) Inst {
	a := opCommon(OPCODE_MAD)
	a.set(8, 8, ALIGN_16)
	a.set(43, 45, TYPE_3SRC_F)
	a.set(46, 48, TYPE_3SRC_F)
	a.set(49, 52, 0xf) // writemask xyzw
	a.set(56, 63, dstNum)

	encode3Src := func(swizStart, numStart int, num uint32) {
		a.set(swizStart, swizStart+1, 0)
		a.set(swizStart+2, swizStart+3, 1)
		a.set(swizStart+4, swizStart+5, 2)
		a.set(swizStart+6, swizStart+7, 3)
		a.set(numStart, numStart+7, num)
	}
	encode3Src(65, 76, s0)
	encode3Src(86, 97, s1)
	encode3Src(107, 118, s2)
	return a.in
}

// asmSend encodes a send instruction. The destination and source
// register numbers ride in the usual 2-src operand slots.
func asmSend(sfid, fc, dstReg, srcReg, mlen, rlen uint32, header, eot bool) Inst {
	a := opCommon(OPCODE_SEND)
	a.set(24, 27, sfid)
	a.set(53, 60, dstReg)
	a.set(69, 76, srcReg)
	a.set(96, 114, fc)
	if header {
		a.set(115, 115, 1)
	}
	a.set(116, 120, rlen)
	a.set(121, 124, mlen)
	if eot {
		a.set(127, 127, 1)
	}
	return a.in
}

func urbWriteFC(globalOffset uint32) uint32 {
	return globalOffset<<4 | URB_OPCODE_WRITE_SIMD8
}

func urbReadFC(globalOffset uint32) uint32 {
	return globalOffset<<4 | URB_OPCODE_READ_SIMD8
}

func rtWriteFC(msgType, surface uint32) uint32 {
	return 12<<14 | msgType<<8 | surface
}

func samplerFC(surface uint32) uint32 {
	return surface
}

// writeKernel lays packed instructions into guest memory.
func writeKernel(mem *GuestMemory, addr uint64, insts ...Inst) {
	p := mem.Translate(addr)
	for i, in := range insts {
		binary.LittleEndian.PutUint64(p[i*16:], in.qw[0])
		binary.LittleEndian.PutUint64(p[i*16+8:], in.qw[1])
	}
}

/* Shared test fixtures */

func newTestGT() *GT {
	return NewGT(NewGuestMemory(16 * 1024 * 1024))
}

// writeSurfaceState lays down a 16-dword SURFACE_STATE descriptor.
func writeSurfaceState(mem *GuestMemory, addr uint64, format, tile, width, height, stride uint32, base uint64) {
	var state [16]uint32
	state[0] = format<<18 | tile<<12
	state[2] = (width - 1) | (height-1)<<16
	state[3] = stride - 1
	state[8] = uint32(base)
	state[9] = uint32(base >> 32)
	for i, v := range state {
		mem.WriteU32(addr+uint64(i)*4, v)
	}
}

// testBatch accumulates a batch buffer dword by dword.
type testBatch struct {
	d []uint32
}

func (b *testBatch) emit(dws ...uint32) {
	b.d = append(b.d, dws...)
}

// render3D builds a type-3 render command header.
func render3D(subtype, opcode, subopcode, length uint32) uint32 {
	h := uint32(3)<<29 | subtype<<27 | opcode<<24 | subopcode<<16
	if subtype != 1 {
		h |= length - 2
	}
	return h
}

func miCommand(opcode, length uint32) uint32 {
	h := opcode << 23
	if opcode >= 16 {
		h |= length - 2
	}
	return h
}

func (b *testBatch) writeTo(mem *GuestMemory, addr uint64) {
	for i, d := range b.d {
		mem.WriteU32(addr+uint64(i)*4, d)
	}
}
