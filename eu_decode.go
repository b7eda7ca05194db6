// eu_decode.go - EU instruction word decoding

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
eu_decode.go - EU Instruction Decoding

Native EU instructions are 128-bit words. This module extracts the
operand descriptors from the packed form: the common control fields,
the destination and source regions, the send descriptor and the
immediate forms. Field positions follow the native (non-compacted)
encoding; compacted instructions are rejected at decode time.

A Shader is the decoded form of one kernel: the instruction sequence
from the kernel start pointer through the thread-terminating send,
plus a control-flow map pairing each IF with its ELSE/ENDIF and each
DO with its WHILE so the interpreter can take structured branches
without re-scanning.
*/

package main

import (
	"encoding/binary"
	"math"
)

// Inst is one packed 128-bit instruction word.
type Inst struct {
	qw [2]uint64
}

// bits extracts the inclusive bit range [start, end] of the packed
// word. Ranges never straddle the two quadwords.
func (in *Inst) bits(start, end int) uint32 {
	mask := ^uint32(0) >> (31 - end + start)
	if start < 64 {
		return uint32(in.qw[0]>>start) & mask
	}
	return uint32(in.qw[1]>>(start-64)) & mask
}

type instCommon struct {
	opcode       uint32
	accessMode   uint32
	qtrControl   uint32
	predControl  uint32
	predInv      bool
	execSize     uint32
	mathFunction uint32
	condModifier uint32
	cmptControl  uint32
	saturate     bool
	flagNr       uint32
	maskControl  uint32
}

type instDst struct {
	typ         uint32
	file        uint32
	num         uint32
	da1SubNum   uint32
	da16SubNum  uint32
	hstride     uint32
	addressMode uint32
	writemask   uint32
}

type instSrc struct {
	vstride     uint32
	width       uint32
	hstride     uint32
	addressMode uint32
	negate      bool
	abs         bool
	num         uint32
	da16SubNum  uint32
	da1SubNum   uint32
	swiz        [4]uint32
	typ         uint32
	file        uint32
}

type instSend struct {
	sfid            uint32
	functionControl uint32
	headerPresent   bool
	rlen            uint32
	mlen            uint32
	eot             bool
}

func unpackCommon(in *Inst) instCommon {
	return instCommon{
		opcode:       in.bits(0, 6),
		accessMode:   in.bits(8, 8),
		qtrControl:   in.bits(12, 13),
		predControl:  in.bits(16, 19),
		predInv:      in.bits(20, 20) != 0,
		execSize:     in.bits(21, 23),
		mathFunction: in.bits(24, 27),
		condModifier: in.bits(24, 27),
		cmptControl:  in.bits(29, 29),
		saturate:     in.bits(31, 31) != 0,
		flagNr:       in.bits(32, 32),
		maskControl:  in.bits(34, 34),
	}
}

func unpackSend(in *Inst) instSend {
	return instSend{
		sfid:            in.bits(24, 27),
		functionControl: in.bits(96, 114),
		headerPresent:   in.bits(115, 115) != 0,
		rlen:            in.bits(116, 120),
		mlen:            in.bits(121, 124),
		eot:             in.bits(127, 127) != 0,
	}
}

func unpack2SrcDst(in *Inst) instDst {
	return instDst{
		file:        in.bits(35, 36),
		typ:         in.bits(37, 40),
		da1SubNum:   in.bits(48, 52),
		writemask:   in.bits(48, 51),
		da16SubNum:  in.bits(52, 52) * 16,
		num:         in.bits(53, 60),
		hstride:     in.bits(61, 62),
		addressMode: in.bits(63, 63),
	}
}

func unpack2SrcSrc0(in *Inst) instSrc {
	return instSrc{
		vstride:     (1 << in.bits(85, 88)) >> 1,
		width:       1 << in.bits(82, 84),
		hstride:     (1 << in.bits(80, 81)) >> 1,
		addressMode: in.bits(79, 79),
		negate:      in.bits(78, 78) != 0,
		abs:         in.bits(77, 77) != 0,
		num:         in.bits(69, 76),
		da16SubNum:  in.bits(68, 68) * 16,
		da1SubNum:   in.bits(64, 68),
		swiz: [4]uint32{
			in.bits(66, 67),
			in.bits(64, 65),
			in.bits(80, 81),
			in.bits(82, 83),
		},
		typ:  in.bits(43, 46),
		file: in.bits(41, 42),
	}
}

func unpack2SrcSrc1(in *Inst) instSrc {
	return instSrc{
		file:        in.bits(89, 90),
		typ:         in.bits(43, 45),
		da1SubNum:   in.bits(96, 100),
		da16SubNum:  in.bits(100, 100) * 16,
		num:         in.bits(101, 108),
		abs:         in.bits(109, 109) != 0,
		negate:      in.bits(110, 110) != 0,
		addressMode: in.bits(111, 111),
		hstride:     (1 << in.bits(112, 113)) >> 1,
		swiz: [4]uint32{
			in.bits(96, 97),
			in.bits(98, 99),
			in.bits(112, 113),
			in.bits(114, 115),
		},
		width:   1 << in.bits(114, 116),
		vstride: (1 << in.bits(117, 120)) >> 1,
	}
}

func unpack3SrcDst(in *Inst) instDst {
	typ := type3SrcToType(in.bits(46, 48))

	return instDst{
		file:        FILE_GRF,
		typ:         typ,
		writemask:   in.bits(49, 52),
		da16SubNum:  in.bits(53, 55) * typeSize(typ),
		num:         in.bits(56, 63),
		hstride:     1,
		addressMode: ADDRESS_DIRECT,
	}
}

func unpack3SrcOperand(in *Inst, abs, neg, rep, swizStart, numStart int) instSrc {
	typ := type3SrcToType(in.bits(43, 45))
	replicate := in.bits(rep, rep) != 0

	src := instSrc{
		file:        FILE_GRF,
		typ:         typ,
		abs:         in.bits(abs, abs) != 0,
		negate:      in.bits(neg, neg) != 0,
		hstride:     1,
		width:       4,
		vstride:     4,
		addressMode: ADDRESS_DIRECT,
	}
	if replicate {
		src.hstride, src.width, src.vstride = 0, 1, 0
	}
	src.swiz = [4]uint32{
		in.bits(swizStart, swizStart+1),
		in.bits(swizStart+2, swizStart+3),
		in.bits(swizStart+4, swizStart+5),
		in.bits(swizStart+6, swizStart+7),
	}
	src.da16SubNum = in.bits(swizStart+8, swizStart+10) * typeSize(typ)
	src.num = in.bits(numStart, numStart+7)
	return src
}

func unpack3SrcSrc0(in *Inst) instSrc {
	return unpack3SrcOperand(in, 37, 38, 64, 65, 76)
}

func unpack3SrcSrc1(in *Inst) instSrc {
	return unpack3SrcOperand(in, 39, 40, 85, 86, 97)
}

func unpack3SrcSrc2(in *Inst) instSrc {
	return unpack3SrcOperand(in, 41, 42, 106, 107, 118)
}

type instImm struct {
	ud uint32
	f  float32
	vf [4]float32
}

func u32ToFloat(ud uint32) float32 {
	return math.Float32frombits(ud)
}

// vfToFloat expands one byte of a packed restricted-float vector.
func vfToFloat(vf uint32) float32 {
	// ±0.0 is special cased.
	if vf == 0x00 || vf == 0x80 {
		return u32ToFloat(vf << 24)
	}
	return u32ToFloat((((vf & 0x80) << 24) | ((vf & 0x7f) << (23 - 4))) + (127-3)<<23)
}

func unpackImm(in *Inst) instImm {
	ud := in.bits(96, 127)
	return instImm{
		ud: ud,
		f:  u32ToFloat(ud),
		vf: [4]float32{
			vfToFloat(in.bits(96, 103)),
			vfToFloat(in.bits(104, 111)),
			vfToFloat(in.bits(112, 119)),
			vfToFloat(in.bits(120, 127)),
		},
	}
}

// ctrlFlow gives the structured branch targets of one instruction,
// filled in by the decode prepass.
type ctrlFlow struct {
	// For IF: index of the matching ELSE if present, else the ENDIF.
	// For ELSE: index of the matching ENDIF.
	// For DO, BREAK, CONTINUE: index of the matching WHILE.
	// For WHILE: index of the matching DO.
	target  uint32
	// For IF: index of the matching ENDIF.
	endif   uint32
}

// Shader is one decoded kernel.
type Shader struct {
	insts []Inst
	ctrl  []ctrlFlow
}

const MAX_SHADER_LENGTH = 8192

// decodeShader reads packed instructions at the kernel start pointer
// until the thread-terminating send, then resolves structured
// control-flow targets. Compacted instructions are not modelled.
func (gt *GT) decodeShader(ksp uint64) *Shader {
	addr := gt.InstructionBaseAddress + ksp
	sh := &Shader{}

	depth := 0
	sawEOT := false
	for n := 0; n < MAX_SHADER_LENGTH; n++ {
		p := gt.Mem.Translate(addr + uint64(n)*16)
		gtAssert(len(p) >= 16, "kernel at 0x%x runs off guest memory", addr)

		var in Inst
		in.qw[0] = binary.LittleEndian.Uint64(p)
		in.qw[1] = binary.LittleEndian.Uint64(p[8:])

		c := unpackCommon(&in)
		gtAssert(c.cmptControl == 0, "compacted instruction at 0x%x", addr+uint64(n)*16)

		sh.insts = append(sh.insts, in)

		switch c.opcode {
		case OPCODE_IF, OPCODE_DO:
			depth++
		case OPCODE_ENDIF, OPCODE_WHILE:
			depth--
		case OPCODE_SEND, OPCODE_SENDC:
			if unpackSend(&in).eot {
				sawEOT = true
			}
		}

		if sawEOT && depth <= 0 {
			break
		}
	}

	gtAssert(sawEOT, "kernel at 0x%x has no EOT send", addr)
	sh.resolveControlFlow()
	return sh
}

// resolveControlFlow pairs IF/ELSE/ENDIF and DO/WHILE and records the
// targets BREAK and CONTINUE jump to.
func (sh *Shader) resolveControlFlow() {
	sh.ctrl = make([]ctrlFlow, len(sh.insts))

	type scope struct {
		index  uint32
		opcode uint32
		elseAt uint32
		breaks []uint32
	}
	var stack []scope

	for i := range sh.insts {
		opcode := unpackCommon(&sh.insts[i]).opcode
		idx := uint32(i)

		switch opcode {
		case OPCODE_IF:
			stack = append(stack, scope{index: idx, opcode: OPCODE_IF, elseAt: idx})
		case OPCODE_DO:
			stack = append(stack, scope{index: idx, opcode: OPCODE_DO})
		case OPCODE_ELSE:
			gtAssert(len(stack) > 0 && stack[len(stack)-1].opcode == OPCODE_IF,
				"ELSE without IF at instruction %d", i)
			stack[len(stack)-1].elseAt = idx
		case OPCODE_ENDIF:
			gtAssert(len(stack) > 0 && stack[len(stack)-1].opcode == OPCODE_IF,
				"ENDIF without IF at instruction %d", i)
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			if top.elseAt != top.index {
				sh.ctrl[top.index] = ctrlFlow{target: top.elseAt, endif: idx}
				sh.ctrl[top.elseAt] = ctrlFlow{target: idx, endif: idx}
			} else {
				sh.ctrl[top.index] = ctrlFlow{target: idx, endif: idx}
			}
		case OPCODE_WHILE:
			// BREAK/CONTINUE belong to the innermost DO scope.
			gtAssert(len(stack) > 0 && stack[len(stack)-1].opcode == OPCODE_DO,
				"WHILE without DO at instruction %d", i)
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			sh.ctrl[top.index] = ctrlFlow{target: idx}
			sh.ctrl[idx] = ctrlFlow{target: top.index}
			for _, b := range top.breaks {
				sh.ctrl[b] = ctrlFlow{target: idx}
			}
		case OPCODE_BREAK, OPCODE_CONTINUE:
			for j := len(stack) - 1; j >= 0; j-- {
				if stack[j].opcode == OPCODE_DO {
					stack[j].breaks = append(stack[j].breaks, idx)
					break
				}
			}
		}
	}

	gtAssert(len(stack) == 0, "unterminated control-flow scope in kernel")
}
