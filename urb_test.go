// urb_test.go - URB allocator tests

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
	"errors"
	"testing"
)

func TestURBAllocWithinWindow(t *testing.T) {
	gt := newTestGT()

	var u URBAlloc
	u.Reset(8192, 64, 16)

	seen := map[uint32]bool{}
	for i := 0; i < 16; i++ {
		h, err := gt.urbAlloc(&u)
		if err != nil {
			t.Fatalf("alloc %d: %v", i, err)
		}
		if h < u.Base || h >= u.Base+u.Total*u.Size {
			t.Fatalf("handle 0x%x outside window [0x%x, 0x%x)", h, u.Base, u.Base+u.Total*u.Size)
		}
		if seen[h] {
			t.Fatalf("handle 0x%x returned twice", h)
		}
		seen[h] = true
	}
}

func TestURBExhaustion(t *testing.T) {
	gt := newTestGT()

	var u URBAlloc
	u.Reset(0, 64, 4)

	var handles []uint32
	for i := 0; i < 4; i++ {
		h, err := gt.urbAlloc(&u)
		if err != nil {
			t.Fatalf("alloc %d: %v", i, err)
		}
		handles = append(handles, h)
	}

	if _, err := gt.urbAlloc(&u); !errors.Is(err, ErrURBExhausted) {
		t.Fatalf("expected URB_EXHAUSTED, got %v", err)
	}

	// Freeing makes entries allocatable again.
	gt.urbFree(&u, handles[2])
	h, err := gt.urbAlloc(&u)
	if err != nil {
		t.Fatalf("alloc after free: %v", err)
	}
	if h != handles[2] {
		t.Fatalf("expected recycled handle 0x%x, got 0x%x", handles[2], h)
	}
}

func TestURBFreeListLIFO(t *testing.T) {
	gt := newTestGT()

	var u URBAlloc
	u.Reset(4096, 128, 8)

	a, _ := gt.urbAlloc(&u)
	b, _ := gt.urbAlloc(&u)
	c, _ := gt.urbAlloc(&u)

	gt.urbFree(&u, a)
	gt.urbFree(&u, b)
	gt.urbFree(&u, c)

	// Intrusive free list pops in reverse free order.
	for _, want := range []uint32{c, b, a} {
		got, err := gt.urbAlloc(&u)
		if err != nil {
			t.Fatalf("alloc: %v", err)
		}
		if got != want {
			t.Fatalf("free list order: got 0x%x, want 0x%x", got, want)
		}
	}
}

func TestURBFreedNotReturnedWhileHeld(t *testing.T) {
	gt := newTestGT()

	var u URBAlloc
	u.Reset(0, 64, 8)

	held := map[uint32]bool{}
	for i := 0; i < 8; i++ {
		h, err := gt.urbAlloc(&u)
		if err != nil {
			t.Fatalf("alloc: %v", err)
		}
		if held[h] {
			t.Fatalf("live handle 0x%x handed out twice", h)
		}
		held[h] = true

		// Churn: free and realloc every other entry.
		if i%2 == 1 {
			gt.urbFree(&u, h)
			delete(held, h)
		}
	}
}

func TestURBWindowsDisjointAfterProgramming(t *testing.T) {
	gt := newTestGT()

	// Program the four stage windows through the command streamer
	// packets and check they never overlap.
	batches := [][3]uint32{
		// {chunk start, entry size field, total}
		{0, 3, 64},
		{4, 3, 64},
		{8, 3, 64},
		{12, 3, 64},
	}
	handlers := []commandHandler{
		handle3DStateURBVS, handle3DStateURBHS, handle3DStateURBDS, handle3DStateURBGS,
	}

	for i, cfg := range batches {
		p := []uint32{
			render3D(3, 0, uint32(48+i), 2),
			cfg[0]<<25 | cfg[1]<<16 | cfg[2],
		}
		if err := handlers[i](gt, p); err != nil {
			t.Fatalf("urb handler %d: %v", i, err)
		}
	}

	gt.validateURBState()

	// Reprogramming resets the free list.
	h, err := gt.urbAlloc(&gt.VS.URB)
	if err != nil {
		t.Fatalf("alloc: %v", err)
	}
	gt.urbFree(&gt.VS.URB, h)
	handle3DStateURBVS(gt, []uint32{render3D(3, 0, 48, 2), 0<<25 | 3<<16 | 64})
	if gt.VS.URB.FreeList != URB_EMPTY || gt.VS.URB.Count != 0 {
		t.Fatalf("3DSTATE_URB_VS did not reset the free list: head=%d count=%d",
			gt.VS.URB.FreeList, gt.VS.URB.Count)
	}
}
