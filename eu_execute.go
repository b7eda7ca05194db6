// eu_execute.go - EU instruction interpreter

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
eu_execute.go - EU Instruction Interpreter

Executes one decoded kernel over eight SIMD lanes. Sources are
gathered from the register file through the regioning rules (vstride/
width/hstride for align-1, channel swizzles for align-16), operated on
as 8-lane vectors, and scatter-stored to the destination region gated
by the execution mask, the predicate and the align-16 writemask.

Control flow is structured: IF pushes a mask frame holding the lanes
that took the branch, ELSE flips to the complement, ENDIF restores.
DO/WHILE keep a continue mask; BREAK retires lanes from the loop until
the matching WHILE, CONTINUE until the next iteration. HALT retires
lanes for the rest of the thread. A thread ends at a send carrying
EOT, or when every lane has halted.

Recognized-but-unimplemented opcodes execute as logged no-ops; unknown
opcodes abort the batch.
*/

package main

import (
	"math"

	"github.com/chewxy/math32"
)

type ifFrame struct {
	savedMask uint32
	condMask  uint32
}

type loopFrame struct {
	savedMask uint32
	contMask  uint32
	doIP      int
}

type euExec struct {
	gt *GT
	sh *Shader
	t  *Thread

	ifStack   []ifFrame
	loopStack []loopFrame
	halted    uint32
}

// RunShader interprets a decoded kernel on the given thread.
func (gt *GT) RunShader(sh *Shader, t *Thread) {
	e := euExec{gt: gt, sh: sh, t: t}

	ip := 0
	for {
		gtAssert(ip >= 0 && ip < len(sh.insts), "instruction pointer %d outside kernel", ip)
		next, eot := e.execInst(ip)
		if eot {
			return
		}
		ip = next
	}
}

// live returns m with halted lanes removed.
func (e *euExec) live(m uint32) uint32 {
	return m &^ e.halted
}

// predMask evaluates the instruction predicate against the flag
// register. An unpredicated instruction enables all lanes.
func (e *euExec) predMask(c *instCommon) uint32 {
	if c.predControl == 0 {
		return 0xff
	}
	m := e.t.flag[c.flagNr] & 0xff
	if c.predInv {
		m = ^m & 0xff
	}
	return m
}

func (e *euExec) execInst(ip int) (int, bool) {
	in := &e.sh.insts[ip]
	c := unpackCommon(in)
	t := e.t

	info, known := opcodeTable[c.opcode]
	if !known {
		gtAssert(false, "illegal opcode %d at instruction %d", c.opcode, ip)
	}

	gate := t.mask & e.predMask(&c) & 0xff

	switch c.opcode {
	case OPCODE_NOP, OPCODE_NENOP:
		return ip + 1, false

	case OPCODE_WAIT:
		stub("wait")
		return ip + 1, false

	case OPCODE_JMPI:
		if gate != 0 || c.predControl == 0 {
			delta := int32(unpackImm(in).ud)
			gtAssert(delta%16 == 0, "jmpi offset %d not instruction aligned", delta)
			return ip + 1 + int(delta/16), false
		}
		return ip + 1, false

	case OPCODE_IF:
		e.ifStack = append(e.ifStack, ifFrame{savedMask: t.mask, condMask: gate})
		t.mask = gate
		if t.mask == 0 {
			return int(e.sh.ctrl[ip].target), false
		}
		return ip + 1, false

	case OPCODE_ELSE:
		gtAssert(len(e.ifStack) > 0, "ELSE with empty mask stack")
		f := &e.ifStack[len(e.ifStack)-1]
		t.mask = e.live(f.savedMask &^ f.condMask)
		if t.mask == 0 {
			return int(e.sh.ctrl[ip].target), false
		}
		return ip + 1, false

	case OPCODE_ENDIF:
		gtAssert(len(e.ifStack) > 0, "ENDIF with empty mask stack")
		f := e.ifStack[len(e.ifStack)-1]
		e.ifStack = e.ifStack[:len(e.ifStack)-1]
		t.mask = e.live(f.savedMask)
		return ip + 1, false

	case OPCODE_DO:
		e.loopStack = append(e.loopStack, loopFrame{savedMask: t.mask, doIP: ip})
		return ip + 1, false

	case OPCODE_BREAK:
		gtAssert(len(e.loopStack) > 0, "BREAK outside a loop")
		t.mask &^= gate
		if t.mask == 0 {
			return int(e.sh.ctrl[ip].target), false
		}
		return ip + 1, false

	case OPCODE_CONTINUE:
		gtAssert(len(e.loopStack) > 0, "CONTINUE outside a loop")
		f := &e.loopStack[len(e.loopStack)-1]
		f.contMask |= gate
		t.mask &^= gate
		if t.mask == 0 {
			return int(e.sh.ctrl[ip].target), false
		}
		return ip + 1, false

	case OPCODE_WHILE:
		gtAssert(len(e.loopStack) > 0, "WHILE without DO")
		f := &e.loopStack[len(e.loopStack)-1]
		t.mask = e.live(t.mask | f.contMask)
		f.contMask = 0

		loop := t.mask
		if c.predControl != 0 {
			loop &= e.predMask(&c)
		}
		if loop != 0 {
			t.mask = loop
			return f.doIP + 1, false
		}
		t.mask = e.live(f.savedMask)
		e.loopStack = e.loopStack[:len(e.loopStack)-1]
		return ip + 1, false

	case OPCODE_HALT:
		e.halted |= gate
		t.mask &^= gate
		alive := t.mask
		for _, f := range e.ifStack {
			alive |= e.live(f.savedMask)
		}
		for _, f := range e.loopStack {
			alive |= e.live(f.savedMask)
		}
		if alive == 0 {
			return ip, true
		}
		return ip + 1, false

	case OPCODE_SEND, OPCODE_SENDC:
		send := unpackSend(in)
		e.gt.execSend(t, in, &send)
		if send.eot {
			return ip, true
		}
		return ip + 1, false
	}

	/* ALU path */

	var src0, src1, src2 Vec8
	var src0Type uint32 = HW_TYPE_UD

	if info.numSrcs == 3 {
		s0 := unpack3SrcSrc0(in)
		s1 := unpack3SrcSrc1(in)
		s2 := unpack3SrcSrc2(in)
		src0 = e.loadSrc(in, &c, &s0)
		src1 = e.loadSrc(in, &c, &s1)
		src2 = e.loadSrc(in, &c, &s2)
		src0Type = s0.typ
		e.dumpReg("src0", src0, s0.typ)
		e.dumpReg("src1", src1, s1.typ)
		e.dumpReg("src2", src2, s2.typ)
	} else if info.numSrcs >= 1 {
		s0 := unpack2SrcSrc0(in)
		src0 = e.loadSrc(in, &c, &s0)
		src0Type = s0.typ
		e.dumpReg("src0", src0, s0.typ)
		if info.numSrcs == 2 {
			s1 := unpack2SrcSrc1(in)
			src1 = e.loadSrc(in, &c, &s1)
			e.dumpReg("src1", src1, s1.typ)
		}
	}

	var dst instDst
	if info.numSrcs == 3 {
		dst = unpack3SrcDst(in)
	} else {
		dst = unpack2SrcDst(in)
	}

	var result Vec8
	storeResult := info.storeDst

	switch c.opcode {
	case OPCODE_MOV:
		result = src0

	case OPCODE_SEL:
		var selMask uint32
		if c.predControl != 0 {
			selMask = e.predMask(&c)
		} else {
			selMask = evalCond(c.condModifier, src0Type, src0, src1)
		}
		result = src1.Blend(src0, selMask)

	case OPCODE_NOT:
		for i := range result {
			result[i] = ^src0[i]
		}

	case OPCODE_AND:
		for i := range result {
			result[i] = src0[i] & src1[i]
		}

	case OPCODE_OR:
		result = src0.Or(src1)

	case OPCODE_XOR:
		for i := range result {
			result[i] = src0[i] ^ src1[i]
		}

	case OPCODE_SHR:
		for i := range result {
			result[i] = src0[i] >> (src1[i] & 31)
		}

	case OPCODE_SHL:
		for i := range result {
			result[i] = src0[i] << (src1[i] & 31)
		}

	case OPCODE_ASR:
		for i := range result {
			result[i] = uint32(int32(src0[i]) >> (src1[i] & 31))
		}

	case OPCODE_CMP:
		condBits := evalCond(c.condModifier, src0Type, src0, src1)
		t.flag[c.flagNr] = (t.flag[c.flagNr] &^ gate) | (condBits & gate)
		result = maskExpand(condBits)
		if dst.file == FILE_ARF && dst.num&0xf0 == ARF_NULL {
			storeResult = false
		}

	case OPCODE_MATH:
		result = mathOp(c.mathFunction, src0, src1)

	case OPCODE_ADD:
		if isIntegerType(dst.typ) {
			result = src0.AddI(src1)
		} else {
			result = src0.AddF(src1)
		}

	case OPCODE_MUL:
		if isIntegerType(dst.typ) {
			result = src0.MulI(src1)
		} else {
			result = src0.MulF(src1)
		}

	case OPCODE_FRC:
		for i := range result {
			f := src0.F(i)
			result.SetF(i, f-math32.Floor(f))
		}

	case OPCODE_RNDU:
		for i := range result {
			result.SetF(i, math32.Ceil(src0.F(i)))
		}

	case OPCODE_RNDD:
		for i := range result {
			result.SetF(i, math32.Floor(src0.F(i)))
		}

	case OPCODE_RNDE:
		for i := range result {
			result.SetF(i, float32(math.RoundToEven(float64(src0.F(i)))))
		}

	case OPCODE_RNDZ:
		for i := range result {
			result.SetF(i, math32.Trunc(src0.F(i)))
		}

	case OPCODE_LINE:
		// dst = src1 * src0[0] + src0[3]
		p := src0.F(0)
		q := src0.F(3)
		for i := range result {
			result.SetF(i, src1.F(i)*p+q)
		}

	case OPCODE_PLN:
		// dst = p*src1 + q*(src1+1 reg) + r with p,q,r from src0.
		p := src0.F(0)
		q := src0.F(1)
		r := src0.F(3)

		s1 := unpack2SrcSrc1(in)
		s1.num++
		next := e.loadSrc(in, &c, &s1)

		for i := range result {
			result.SetF(i, src1.F(i)*p+next.F(i)*q+r)
		}

	case OPCODE_MAD:
		for i := range result {
			result.SetF(i, src0.F(i)+src1.F(i)*src2.F(i))
		}

	case OPCODE_LRP:
		for i := range result {
			a := src0.F(i)
			result.SetF(i, src1.F(i)*a+src2.F(i)*(1.0-a))
		}

	default:
		stub("eu opcode %s", info.name)
		return ip + 1, false
	}

	if storeResult {
		if isIntegerType(src0Type) && isFloatType(dst.typ) {
			result = result.CvtToF()
		} else if isFloatType(src0Type) && isIntegerType(dst.typ) {
			result = result.CvtToI()
		}

		e.dumpReg("dst", result, dst.typ)
		e.storeDst(in, &c, &dst, result, gate)
	}

	return ip + 1, false
}

/* Source loading */

func (e *euExec) loadSrc(in *Inst, c *instCommon, src *instSrc) Vec8 {
	var r Vec8

	if src.file == FILE_IMM {
		r = loadImm(in, src)
	} else if src.file == FILE_ARF {
		switch src.num & 0xf0 {
		case ARF_NULL:
			// reads as zero
		case ARF_FLAG:
			r = Vec8Splat(e.t.flag[src.num&0x0f])
		default:
			stub("arf source 0x%02x", src.num&0xf0)
		}
	} else {
		subnum := src.da1SubNum
		if c.accessMode == ALIGN_16 {
			subnum = src.da16SubNum
		}
		gtAssert(src.addressMode == ADDRESS_DIRECT, "indirect addressing")
		r = e.loadReg(c, src, subnum)
	}

	if src.abs {
		if src.typ == HW_TYPE_F {
			for i := range r {
				r[i] &= 0x7fffffff
			}
		} else {
			for i := range r {
				if int32(r[i]) < 0 {
					r[i] = uint32(-int32(r[i]))
				}
			}
		}
	}

	if src.negate {
		if isLogicOpcode(c.opcode) {
			for i := range r {
				r[i] = ^r[i]
			}
		} else if src.typ == HW_TYPE_F {
			for i := range r {
				r.SetF(i, -r.F(i))
			}
		} else {
			for i := range r {
				r[i] = uint32(-int32(r[i]))
			}
		}
	}

	return r
}

func isLogicOpcode(opcode uint32) bool {
	switch opcode {
	case OPCODE_NOT, OPCODE_AND, OPCODE_OR, OPCODE_XOR:
		return true
	default:
		return false
	}
}

// loadReg gathers eight lanes from the register file under the region
// described by the source operand.
func (e *euExec) loadReg(c *instCommon, src *instSrc, subnum uint32) Vec8 {
	var r Vec8
	ts := typeSize(src.typ)
	base := src.num*REG_SIZE + subnum

	for i := uint32(0); i < 8; i++ {
		var off uint32
		if c.accessMode == ALIGN_16 {
			group := i / 4
			chan4 := src.swiz[i%4]
			off = base + group*src.vstride*ts + chan4*ts
		} else {
			v := i / src.width
			h := i % src.width
			off = base + v*src.vstride*ts + h*src.hstride*ts
		}
		r[i] = e.readTyped(off, src.typ)
	}
	return r
}

func (e *euExec) readTyped(off, typ uint32) uint32 {
	g := e.t.grf[:]
	gtAssert(int(off)+int(typeSize(typ)) <= len(g), "register read at byte %d outside GRF", off)

	switch typeSize(typ) {
	case 4:
		return uint32(g[off]) | uint32(g[off+1])<<8 | uint32(g[off+2])<<16 | uint32(g[off+3])<<24
	case 2:
		v := uint32(g[off]) | uint32(g[off+1])<<8
		if typ == HW_TYPE_W {
			return uint32(int32(int16(v)))
		}
		return v
	case 1:
		if typ == HW_TYPE_B {
			return uint32(int32(int8(g[off])))
		}
		return uint32(g[off])
	default:
		stub("register read of type %d", typ)
		return 0
	}
}

func loadImm(in *Inst, src *instSrc) Vec8 {
	imm := unpackImm(in)

	switch src.typ {
	case HW_TYPE_UD, HW_TYPE_D, HW_TYPE_UW, HW_TYPE_W:
		return Vec8Splat(imm.ud)
	case HW_TYPE_F:
		return Vec8SplatF(imm.f)
	case HW_IMM_TYPE_VF:
		var r Vec8
		for i := range r {
			r.SetF(i, imm.vf[i%4])
		}
		return r
	default:
		stub("immediate type %d", src.typ)
		return Vec8{}
	}
}

/* Destination storing */

func (e *euExec) storeDst(in *Inst, c *instCommon, dst *instDst, r Vec8, gate uint32) {
	if c.saturate {
		r = saturate(r, dst.typ)
	}

	if dst.file == FILE_ARF {
		if dst.num&0xf0 != ARF_NULL {
			stub("arf destination 0x%02x", dst.num&0xf0)
		}
		return
	}
	gtAssert(dst.addressMode == ADDRESS_DIRECT, "indirect destination")

	subnum := dst.da1SubNum
	writemask := uint32(0xf)
	if c.accessMode == ALIGN_16 {
		subnum = dst.da16SubNum
		writemask = dst.writemask
	}

	ts := typeSize(dst.typ)
	stride := (uint32(1) << dst.hstride) >> 1
	if stride == 0 {
		stride = 1
	}

	lanes := uint32(1) << c.execSize
	base := dst.num*REG_SIZE + subnum

	for i := uint32(0); i < lanes && i < 8; i++ {
		if gate&(1<<i) == 0 {
			continue
		}
		if c.accessMode == ALIGN_16 && writemask&(1<<(i%4)) == 0 {
			continue
		}
		e.writeTyped(base+i*stride*ts, dst.typ, r[i])
	}
}

func (e *euExec) writeTyped(off, typ, v uint32) {
	g := e.t.grf[:]
	gtAssert(int(off)+int(typeSize(typ)) <= len(g), "register write at byte %d outside GRF", off)

	switch typeSize(typ) {
	case 4:
		g[off] = byte(v)
		g[off+1] = byte(v >> 8)
		g[off+2] = byte(v >> 16)
		g[off+3] = byte(v >> 24)
	case 2:
		g[off] = byte(v)
		g[off+1] = byte(v >> 8)
	case 1:
		g[off] = byte(v)
	default:
		stub("register write of type %d", typ)
	}
}

func saturate(r Vec8, typ uint32) Vec8 {
	switch typ {
	case HW_TYPE_F:
		for i := range r {
			f := r.F(i)
			switch {
			case f != f: // NaN saturates to 0
				r.SetF(i, 0)
			case f < 0:
				r.SetF(i, 0)
			case f > 1:
				r.SetF(i, 1)
			}
		}
	case HW_TYPE_W:
		for i := range r {
			d := int32(r[i])
			if d < math.MinInt16 {
				d = math.MinInt16
			} else if d > math.MaxInt16 {
				d = math.MaxInt16
			}
			r[i] = uint32(d)
		}
	case HW_TYPE_UW:
		for i := range r {
			d := int32(r[i])
			if d < 0 {
				d = 0
			} else if d > math.MaxUint16 {
				d = math.MaxUint16
			}
			r[i] = uint32(d)
		}
	}
	return r
}

/* Conditions */

// evalCond applies a condition modifier lanewise and returns the lanes
// where it holds.
func evalCond(cond, typ uint32, a, b Vec8) uint32 {
	var mask uint32
	for i := 0; i < 8; i++ {
		var v bool
		if typ == HW_TYPE_F {
			x, y := a.F(i), b.F(i)
			switch cond {
			case COND_Z:
				v = x == y
			case COND_NZ:
				v = x != y
			case COND_G:
				v = x > y
			case COND_GE:
				v = x >= y
			case COND_L:
				v = x < y
			case COND_LE:
				v = x <= y
			case COND_O:
				v = x == x && y == y
			case COND_U:
				v = x != x || y != y
			default:
				stub("float condition %d", cond)
			}
		} else if typ == HW_TYPE_UD || typ == HW_TYPE_UW || typ == HW_TYPE_UB {
			x, y := a[i], b[i]
			switch cond {
			case COND_Z:
				v = x == y
			case COND_NZ:
				v = x != y
			case COND_G:
				v = x > y
			case COND_GE:
				v = x >= y
			case COND_L:
				v = x < y
			case COND_LE:
				v = x <= y
			default:
				stub("unsigned condition %d", cond)
			}
		} else {
			x, y := a.I(i), b.I(i)
			switch cond {
			case COND_Z:
				v = x == y
			case COND_NZ:
				v = x != y
			case COND_G:
				v = x > y
			case COND_GE:
				v = x >= y
			case COND_L:
				v = x < y
			case COND_LE:
				v = x <= y
			default:
				stub("signed condition %d", cond)
			}
		}
		if v {
			mask |= 1 << i
		}
	}
	return mask
}

/* Extended math */

// rsqApprox mirrors the hardware reciprocal-square-root approximation
// closely enough for the pipeline's uses.
func rsqApprox(x float32) float32 {
	return 1.0 / math32.Sqrt(x)
}

func mathOp(function uint32, src0, src1 Vec8) Vec8 {
	var r Vec8
	for i := 0; i < 8; i++ {
		x := src0.F(i)
		y := src1.F(i)
		switch function {
		case MATH_FUNCTION_INV:
			r.SetF(i, 1.0/x)
		case MATH_FUNCTION_LOG:
			r.SetF(i, math32.Log2(x))
		case MATH_FUNCTION_EXP:
			r.SetF(i, math32.Exp2(x))
		case MATH_FUNCTION_SQRT:
			r.SetF(i, math32.Sqrt(x))
		case MATH_FUNCTION_RSQ:
			r.SetF(i, rsqApprox(x))
		case MATH_FUNCTION_SIN:
			r.SetF(i, math32.Sin(x))
		case MATH_FUNCTION_COS:
			r.SetF(i, math32.Cos(x))
		case MATH_FUNCTION_FDIV:
			r.SetF(i, x/y)
		case MATH_FUNCTION_POW:
			r.SetF(i, math32.Pow(x, y))
		case MATH_FUNCTION_INT_DIV_QUO:
			if src1.I(i) != 0 {
				r.SetI(i, src0.I(i)/src1.I(i))
			}
		case MATH_FUNCTION_INT_DIV_REM:
			if src1.I(i) != 0 {
				r.SetI(i, src0.I(i)%src1.I(i))
			}
		default:
			stub("math function %d", function)
			return r
		}
	}
	return r
}

func (e *euExec) dumpReg(name string, reg Vec8, typ uint32) {
	if traceMask&TRACE_EU == 0 {
		return
	}
	gtTrace(TRACE_EU, "%s:", name)
	if isFloatType(typ) {
		for c := 0; c < 8; c++ {
			gtTrace(TRACE_EU, "  %6.2f", reg.F(c))
		}
	} else {
		for c := 0; c < 8; c++ {
			gtTrace(TRACE_EU, "  %6d", reg[c])
		}
	}
	gtTrace(TRACE_EU, "\n")
}
