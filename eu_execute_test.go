// eu_execute_test.go - EU interpreter tests

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

const testKernelAddr = 0x10000

func eotSend() Inst {
	return asmSend(SFID_NULL, 0, 0, 0, 1, 0, false, true)
}

// runKernel assembles the instructions into guest memory, decodes
// them and executes the thread with all eight lanes enabled.
func runKernel(t *testing.T, gt *GT, th *Thread, insts ...Inst) {
	t.Helper()
	writeKernel(gt.Mem, testKernelAddr, append(insts, eotSend())...)
	sh := gt.decodeShader(testKernelAddr)
	if th.mask == 0 {
		th.mask = 0xff
	}
	gt.RunShader(sh, th)
}

func vecF(fs ...float32) Vec8 {
	var v Vec8
	for i, f := range fs {
		v.SetF(i, f)
	}
	return v
}

func TestEUMovRoundTrip(t *testing.T) {
	gt := newTestGT()
	var th Thread

	in := Vec8{0, 1, 0xdeadbeef, 0x80000000, 42, 7, 0xffffffff, 123456}
	th.storeVec(2, in)

	runKernel(t, gt, &th, asmMOV(grf(HW_TYPE_UD, 1), grf(HW_TYPE_UD, 2)))

	if got := th.loadVec(1); got != in {
		t.Fatalf("mov round trip: got %v, want %v", got, in)
	}
}

func TestEUMovScalarBroadcast(t *testing.T) {
	gt := newTestGT()
	var th Thread

	th.setUD(2, 3, 0xcafe)
	runKernel(t, gt, &th, asmMOV(grf(HW_TYPE_UD, 1), grfScalar(HW_TYPE_UD, 2, 12)))

	for i := uint32(0); i < 8; i++ {
		if th.ud(1, i) != 0xcafe {
			t.Fatalf("lane %d: got 0x%x, want 0xcafe", i, th.ud(1, i))
		}
	}
}

func TestEUAddFloat(t *testing.T) {
	gt := newTestGT()
	var th Thread

	a := vecF(0, 1.5, -1048576, 1048576, 3.25, -0.0625, 99999, -7)
	b := vecF(1, 2.5, 1048575, -1, 0.75, 0.0625, 1, 7)
	th.storeVec(2, a)
	th.storeVec(3, b)

	runKernel(t, gt, &th, asmOp2(OPCODE_ADD, grf(HW_TYPE_F, 1), grf(HW_TYPE_F, 2), grf(HW_TYPE_F, 3)))

	for i := 0; i < 8; i++ {
		want := a.F(i) + b.F(i)
		if got := th.f(1, uint32(i)); got != want {
			t.Errorf("lane %d: got %g, want %g", i, got, want)
		}
	}
}

func TestEUAddImmediate(t *testing.T) {
	gt := newTestGT()
	var th Thread

	th.storeVec(2, vecF(0, 1, 2, 3, 4, 5, 6, 7))
	runKernel(t, gt, &th, asmOp2(OPCODE_ADD, grf(HW_TYPE_F, 1), grf(HW_TYPE_F, 2), immF(10)))

	for i := 0; i < 8; i++ {
		if got := th.f(1, uint32(i)); got != float32(i)+10 {
			t.Errorf("lane %d: got %g", i, got)
		}
	}
}

func TestEUShrMatchesGo(t *testing.T) {
	gt := newTestGT()
	var th Thread

	x := Vec8{0xffffffff, 0x80000000, 1, 0xdeadbeef, 0x7fffffff, 0xaaaa5555, 2, 0x40000000}
	k := Vec8{0, 1, 31, 4, 7, 16, 1, 30}
	th.storeVec(2, x)
	th.storeVec(3, k)

	runKernel(t, gt, &th, asmOp2(OPCODE_SHR, grf(HW_TYPE_UD, 1), grf(HW_TYPE_UD, 2), grf(HW_TYPE_UD, 3)))

	for i := 0; i < 8; i++ {
		want := x[i] >> k[i]
		if got := th.ud(1, uint32(i)); got != want {
			t.Errorf("lane %d: 0x%x >> %d: got 0x%x, want 0x%x", i, x[i], k[i], got, want)
		}
	}
}

func TestEUAsrSignExtends(t *testing.T) {
	gt := newTestGT()
	var th Thread

	th.storeVec(2, Vec8{0x80000000, 0xfffffff0, 0x40000000, 8, 0, 0xffffffff, 0x80000001, 16})
	th.storeVec(3, Vec8{31, 4, 2, 3, 5, 1, 0, 4})

	runKernel(t, gt, &th, asmOp2(OPCODE_ASR, grf(HW_TYPE_D, 1), grf(HW_TYPE_D, 2), grf(HW_TYPE_D, 3)))

	want := []int32{-1, -1, 0x10000000, 1, 0, -1, -2147483647, 1}
	for i := 0; i < 8; i++ {
		if got := int32(th.ud(1, uint32(i))); got != want[i] {
			t.Errorf("lane %d: got %d, want %d", i, got, want[i])
		}
	}
}

func TestEUSelGEIsMax(t *testing.T) {
	gt := newTestGT()
	var th Thread

	a := vecF(1, -2, 3.5, 0, -0.5, 100, -100, 7)
	b := vecF(0, 2, 3.5, -1, 0.5, 99, -99, 8)
	th.storeVec(2, a)
	th.storeVec(3, b)

	runKernel(t, gt, &th, asmSEL(COND_GE, grf(HW_TYPE_F, 1), grf(HW_TYPE_F, 2), grf(HW_TYPE_F, 3)))

	for i := 0; i < 8; i++ {
		want := b.F(i)
		if a.F(i) >= b.F(i) {
			want = a.F(i)
		}
		if got := th.f(1, uint32(i)); got != want {
			t.Errorf("lane %d: got %g, want %g", i, got, want)
		}
	}
}

func TestEUSaturate(t *testing.T) {
	gt := newTestGT()
	var th Thread

	nan := math.Float32frombits(0x7fc00000)
	th.storeVec(2, vecF(-0.5, 0.25, 1.5, nan, 0, 1, 1000, -1000))

	runKernel(t, gt, &th, saturated(asmMOV(grf(HW_TYPE_F, 1), grf(HW_TYPE_F, 2))))

	want := []float32{0, 0.25, 1, 0, 0, 1, 1, 0}
	for i := 0; i < 8; i++ {
		if got := th.f(1, uint32(i)); got != want[i] {
			t.Errorf("lane %d: got %g, want %g", i, got, want[i])
		}
	}
}

func TestEUCmpPredicatedMov(t *testing.T) {
	gt := newTestGT()
	var th Thread

	th.storeVec(2, vecF(0, 1, 2, 3, 4, 5, 6, 7))
	th.storeVec(1, vecF(-1, -1, -1, -1, -1, -1, -1, -1))

	runKernel(t, gt, &th,
		asmCMP(COND_GE, nullReg(HW_TYPE_F), grf(HW_TYPE_F, 2), immF(4)),
		predicated(asmMOV(grf(HW_TYPE_F, 1), immF(9)), false),
	)

	for i := 0; i < 8; i++ {
		want := float32(-1)
		if i >= 4 {
			want = 9
		}
		if got := th.f(1, uint32(i)); got != want {
			t.Errorf("lane %d: got %g, want %g", i, got, want)
		}
	}
}

func TestEUIfElseEndif(t *testing.T) {
	gt := newTestGT()
	var th Thread

	th.storeVec(2, vecF(0, 1, 2, 3, 4, 5, 6, 7))

	runKernel(t, gt, &th,
		asmCMP(COND_GE, nullReg(HW_TYPE_F), grf(HW_TYPE_F, 2), immF(4)),
		predicated(asmFlow(OPCODE_IF), false),
		asmMOV(grf(HW_TYPE_F, 1), immF(1)),
		asmFlow(OPCODE_ELSE),
		asmMOV(grf(HW_TYPE_F, 1), immF(2)),
		asmFlow(OPCODE_ENDIF),
		asmOp2(OPCODE_ADD, grf(HW_TYPE_F, 1), grf(HW_TYPE_F, 1), immF(10)),
	)

	for i := 0; i < 8; i++ {
		want := float32(12)
		if i >= 4 {
			want = 11
		}
		if got := th.f(1, uint32(i)); got != want {
			t.Errorf("lane %d: got %g, want %g", i, got, want)
		}
	}
}

func TestEUDoWhileBreak(t *testing.T) {
	gt := newTestGT()
	var th Thread

	// Per-lane iteration limits 1..8; each lane counts up and breaks
	// at its own limit.
	limits := Vec8{1, 2, 3, 4, 5, 6, 7, 8}
	th.storeVec(3, limits)

	runKernel(t, gt, &th,
		asmMOV(grf(HW_TYPE_UD, 1), immUD(0)),
		asmFlow(OPCODE_DO),
		asmOp2(OPCODE_ADD, grf(HW_TYPE_UD, 1), grf(HW_TYPE_UD, 1), immUD(1)),
		asmCMP(COND_GE, nullReg(HW_TYPE_UD), grf(HW_TYPE_UD, 1), grf(HW_TYPE_UD, 3)),
		predicated(asmFlow(OPCODE_BREAK), false),
		asmFlow(OPCODE_WHILE),
	)

	for i := 0; i < 8; i++ {
		if got := th.ud(1, uint32(i)); got != limits[i] {
			t.Errorf("lane %d: got %d, want %d", i, got, limits[i])
		}
	}
}

func TestEUHaltRetiresLanes(t *testing.T) {
	gt := newTestGT()
	var th Thread

	th.storeVec(2, vecF(0, 1, 2, 3, 4, 5, 6, 7))
	th.storeVec(1, vecF(0, 0, 0, 0, 0, 0, 0, 0))

	runKernel(t, gt, &th,
		asmCMP(COND_L, nullReg(HW_TYPE_F), grf(HW_TYPE_F, 2), immF(2)),
		predicated(asmFlow(OPCODE_HALT), false),
		asmMOV(grf(HW_TYPE_F, 1), immF(5)),
	)

	for i := 0; i < 8; i++ {
		want := float32(5)
		if i < 2 {
			want = 0
		}
		if got := th.f(1, uint32(i)); got != want {
			t.Errorf("lane %d: got %g, want %g", i, got, want)
		}
	}
}

func TestEUMathRsq(t *testing.T) {
	gt := newTestGT()
	var th Thread

	th.storeVec(2, vecF(1, 4, 16, 64, 0.25, 100, 2, 9))
	runKernel(t, gt, &th, asmMATH(MATH_FUNCTION_RSQ, grf(HW_TYPE_F, 1), grf(HW_TYPE_F, 2), nullReg(HW_TYPE_F)))

	want := []float32{1, 0.5, 0.25, 0.125, 2, 0.1, 0.70710678, 1.0 / 3.0}
	for i := 0; i < 8; i++ {
		got := th.f(1, uint32(i))
		if diff := got - want[i]; diff > 1e-4 || diff < -1e-4 {
			t.Errorf("rsq lane %d: got %g, want %g", i, got, want[i])
		}
	}
}

func TestEUMadAlign16(t *testing.T) {
	gt := newTestGT()
	var th Thread

	a := vecF(1, 2, 3, 4, 5, 6, 7, 8)
	b := vecF(2, 2, 2, 2, 3, 3, 3, 3)
	c := vecF(10, 20, 30, 40, 50, 60, 70, 80)
	th.storeVec(2, a)
	th.storeVec(3, b)
	th.storeVec(4, c)

	runKernel(t, gt, &th, asmMAD(1, 2, 3, 4))

	for i := 0; i < 8; i++ {
		want := a.F(i) + b.F(i)*c.F(i)
		if got := th.f(1, uint32(i)); got != want {
			t.Errorf("mad lane %d: got %g, want %g", i, got, want)
		}
	}
}

func TestEUSourceModifiers(t *testing.T) {
	gt := newTestGT()
	var th Thread

	src := grf(HW_TYPE_F, 2)
	src.negate = true
	th.storeVec(2, vecF(1, -2, 3, -4, 0, 5, -6, 7))

	runKernel(t, gt, &th, asmMOV(grf(HW_TYPE_F, 1), src))

	for i := 0; i < 8; i++ {
		want := -th.f(2, uint32(i))
		if got := th.f(1, uint32(i)); got != want {
			t.Errorf("negate lane %d: got %g, want %g", i, got, want)
		}
	}

	abs := grf(HW_TYPE_F, 2)
	abs.abs = true
	runKernel(t, gt, &th, asmMOV(grf(HW_TYPE_F, 1), abs))

	for i := 0; i < 8; i++ {
		want := th.f(2, uint32(i))
		if want < 0 {
			want = -want
		}
		if got := th.f(1, uint32(i)); got != want {
			t.Errorf("abs lane %d: got %g, want %g", i, got, want)
		}
	}
}

func TestEUFloatToIntTruncates(t *testing.T) {
	gt := newTestGT()
	var th Thread

	th.storeVec(2, vecF(1.9, -1.9, 0.5, -0.5, 100.99, -100.99, 0, 7.5))
	runKernel(t, gt, &th, asmMOV(grf(HW_TYPE_D, 1), grf(HW_TYPE_F, 2)))

	want := []int32{1, -1, 0, 0, 100, -100, 0, 7}
	for i := 0; i < 8; i++ {
		if got := int32(th.ud(1, uint32(i))); got != want[i] {
			t.Errorf("cvt lane %d: got %d, want %d", i, got, want[i])
		}
	}
}
