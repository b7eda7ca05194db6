// compute.go - GPGPU walker dispatch

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
compute.go - Compute Walker

GPGPU_WALKER iterates thread groups over a three-dimensional grid,
running a fixed number of EU threads per group. Each thread gets the
compute fixed-function header in R0 and its slice of the CURBE
per-thread data from R1 up; the final thread of a group runs under the
right execution mask so partial groups do not over-execute.
*/

package main

type computeGroup struct {
	x, y, z uint32
}

func (gt *GT) dispatchGroup(g computeGroup) {
	// Not sure what we should make this.
	const fftid = 0 & 0x1ff
	const gpgpuDispatch = 1 << 9
	const urbHandle = 0
	const stackSize = 0

	gtAssert(gt.Compute.Depth == 1, "compute thread depth %d", gt.Compute.Depth)
	gtAssert(gt.Compute.Height == 1, "compute thread height %d", gt.Compute.Height)

	curbe := gt.Mem.Translate(gt.Compute.CurbeDataAddress)
	sizeInRegs := gt.Compute.CurbeDataLength / REG_SIZE
	if sizeInRegs > 0 {
		gtAssert(uint64(len(curbe)) >= uint64(gt.Compute.CurbeDataLength)*uint64(gt.Compute.Width),
			"compute CURBE data at 0x%x unmapped", gt.Compute.CurbeDataAddress)
	}

	for i := uint32(0); i < gt.Compute.Width; i++ {
		var t Thread

		// R0.0: URB handle and SLM index
		t.setUD(0, 0, urbHandle)
		// R0.1: thread group id x
		t.setUD(0, 1, g.x)
		// R0.3: per-thread scratch space, sampler ptr
		t.setUD(0, 3, gt.Compute.SamplerStateAddress|gt.Compute.ScratchSize)
		// R0.4: binding table pointer
		t.setUD(0, 4, gt.Compute.BindingTableAddress|stackSize)
		// R0.5: fftid, scratch offset
		t.setUD(0, 5, uint32(gt.Compute.ScratchPointer)|gpgpuDispatch|fftid)
		// R0.6: thread group id y
		t.setUD(0, 6, g.y)
		// R0.7: thread group id z
		t.setUD(0, 7, g.z)

		if sizeInRegs > 0 {
			src := curbe[i*gt.Compute.CurbeDataLength:]
			copy(t.grf[1*REG_SIZE:], src[:sizeInRegs*REG_SIZE])
		}

		if i < gt.Compute.Width-1 {
			t.mask = 0xff
		} else {
			t.mask = gt.Compute.RightMask & 0xff
		}
		t.maskQ1 = maskExpand(t.mask)
		t.maskQ2 = maskExpand(gt.Compute.RightMask >> 8)

		gt.CSInvocationCount++
		gt.RunShader(gt.Compute.Shader, &t)
	}
}

func (gt *GT) dispatchCompute() error {
	gt.Compute.Shader = gt.decodeShader(gt.Compute.KSP)

	// x, y and z start from the programmed offsets for the first
	// slice, then wrap back to zero.
	x := gt.Compute.StartX
	y := gt.Compute.StartY
	for z := gt.Compute.StartZ; z < gt.Compute.EndZ; z++ {
		for ; y < gt.Compute.EndY; y++ {
			for ; x < gt.Compute.EndX; x++ {
				gt.dispatchGroup(computeGroup{x, y, z})
			}
			x = 0
		}
		y = 0
	}

	return nil
}
