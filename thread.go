// thread.go - EU thread state and payload construction

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
thread.go - EU Thread State

A thread is a 128-register general register file, a primary 8-bit
execution mask, and the auxiliary quad masks SIMD16 payloads carry.
The register file is kept as flat bytes because register regioning
addresses it by byte offset; the typed accessors are views over it.

This module also builds the parts of thread payloads shared between
the fixed functions: the push-constant (CURBE) block and decoded
shader preparation per draw.
*/

package main

import (
	"encoding/binary"
	"math"
)

const (
	GRF_COUNT = 128
	REG_SIZE  = 32
)

type Thread struct {
	grf [GRF_COUNT * REG_SIZE]byte

	mask   uint32
	maskQ1 Vec8
	maskQ2 Vec8

	flag [2]uint32
}

func (t *Thread) ud(reg, lane uint32) uint32 {
	return binary.LittleEndian.Uint32(t.grf[reg*REG_SIZE+lane*4:])
}

func (t *Thread) setUD(reg, lane uint32, v uint32) {
	binary.LittleEndian.PutUint32(t.grf[reg*REG_SIZE+lane*4:], v)
}

func (t *Thread) f(reg, lane uint32) float32 {
	return math.Float32frombits(t.ud(reg, lane))
}

func (t *Thread) setF(reg, lane uint32, v float32) {
	t.setUD(reg, lane, math.Float32bits(v))
}

func (t *Thread) uw(reg, idx uint32) uint16 {
	return binary.LittleEndian.Uint16(t.grf[reg*REG_SIZE+idx*2:])
}

func (t *Thread) loadVec(reg uint32) Vec8 {
	var v Vec8
	for i := uint32(0); i < 8; i++ {
		v[i] = t.ud(reg, i)
	}
	return v
}

func (t *Thread) storeVec(reg uint32, v Vec8) {
	for i := uint32(0); i < 8; i++ {
		t.setUD(reg, i, v[i])
	}
}

// loadConstants copies the stage's CURBE buffers into consecutive GRFs
// starting at start and returns the first GRF after them. Buffer 0 is
// relative to the dynamic-state base when the batch was started with
// that convention.
func (gt *GT) loadConstants(t *Thread, c *Curbe, start uint32) uint32 {
	grf := start

	for b := 0; b < 4; b++ {
		var base uint64
		if b == 0 && gt.CurbeDynamicStateBase {
			base = gt.DynamicStateBaseAddress
		}

		length := c.Buffer[b].Length
		if length == 0 {
			continue
		}

		regs := gt.Mem.Translate(c.Buffer[b].Address + base)
		gtAssert(uint64(len(regs)) >= uint64(length)*REG_SIZE,
			"CURBE buffer %d at 0x%x overruns guest memory", b, c.Buffer[b].Address+base)

		copy(t.grf[grf*REG_SIZE:], regs[:length*REG_SIZE])
		grf += length
	}

	return grf
}

// prepareShaders decodes the kernels of the enabled stages once per
// draw, before any thread is dispatched.
func (gt *GT) prepareShaders() {
	if gt.VS.Enable {
		gtTrace(TRACE_VS, "decode vs\n")
		gt.VS.Shader = gt.decodeShader(gt.VS.KSP)
	}

	if gt.PS.Enable {
		// The kernel pointer slot assignment depends on which
		// dispatch widths are enabled; SIMD8 is the one the
		// simulator runs.
		if gt.PS.EnableSIMD8 {
			gtTrace(TRACE_PS, "decode simd8 ps\n")
			gt.PS.ShaderSIMD8 = gt.decodeShader(gt.PS.KSP0)
		} else {
			gt.PS.ShaderSIMD8 = nil
		}
	}
}
