// urb.go - Unified return buffer allocator

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
urb.go - Unified Return Buffer Allocator

Each geometry stage owns a window into the global URB slab, programmed
by 3DSTATE_URB_xS: a base offset, a fixed entry size and a total entry
count. Entries are recycled through an intrusive singly-linked free
list whose link lives in the first dword of each freed entry, so a
freed entry costs no side storage.

Handles are byte offsets into the global slab. Offset 1 is the
free-list empty sentinel (entries are 64-byte aligned, so no real
entry can sit there); a fresh window starts with an empty free list
and a zero high-water count.

Both operations are O(1) and validate that the entry they touch lies
inside the window.
*/

package main

import (
	"encoding/binary"
	"errors"
)

// ErrURBExhausted reports an allocation beyond the window's total
// entry count.
var ErrURBExhausted = errors.New("URB_EXHAUSTED")

// URBAlloc is one stage's window into the URB slab.
type URBAlloc struct {
	Base     uint32 // byte offset of the window in the slab
	Size     uint32 // entry size in bytes
	Total    uint32 // entry capacity
	FreeList uint32 // window-relative offset of first free entry, URB_EMPTY if none
	Count    uint32 // high-water entry count
}

// Reset reprograms the window and drops every outstanding entry.
func (u *URBAlloc) Reset(base, size, total uint32) {
	u.Base = base
	u.Size = size
	u.Total = total
	u.FreeList = URB_EMPTY
	u.Count = 0
}

// urbAlloc returns a slab handle for a fresh entry, popping the free list
// when possible and bumping the high-water count otherwise.
func (gt *GT) urbAlloc(u *URBAlloc) (uint32, error) {
	var handle uint32
	if u.FreeList != URB_EMPTY {
		handle = u.Base + u.FreeList
		u.FreeList = binary.LittleEndian.Uint32(gt.URB[handle:])
	} else {
		if u.Count >= u.Total {
			return 0, ErrURBExhausted
		}
		handle = u.Base + u.Size*u.Count
		u.Count++
	}

	gtAssert(handle >= u.Base && handle < u.Base+u.Total*u.Size,
		"URB handle 0x%x outside window [0x%x, 0x%x)",
		handle, u.Base, u.Base+u.Total*u.Size)
	gtAssert(handle < uint32(len(gt.URB)), "URB handle 0x%x outside slab", handle)

	return handle, nil
}

// urbFree pushes the entry back onto the window's free list.
func (gt *GT) urbFree(u *URBAlloc, handle uint32) {
	gtAssert(handle >= u.Base && handle < u.Base+u.Total*u.Size,
		"freeing URB handle 0x%x outside window [0x%x, 0x%x)",
		handle, u.Base, u.Base+u.Total*u.Size)

	binary.LittleEndian.PutUint32(gt.URB[handle:], u.FreeList)
	u.FreeList = handle - u.Base
}
