package bh1750fvi

// AllocateFunc hands out the backing memory for one Device instance. It
// returns nil when no memory is available, which Create reports as
// ErrOutOfMemory. The driver zeroes the block itself, so recycled memory is
// fine.
type AllocateFunc func() *Device

// FreeFunc takes back a block previously handed out by the matching
// AllocateFunc.
type FreeFunc func(*Device)

// HeapAllocate is the AllocateFunc for integrations without memory
// constraints.
func HeapAllocate() *Device {
	return new(Device)
}

// Pool is a fixed-capacity instance allocator for integrations that
// provision all driver memory up front. Get and Put follow the driver's
// serialization contract and are not safe for concurrent use.
type Pool struct {
	slots []Device
	used  []bool
}

func NewPool(size int) *Pool {
	return &Pool{
		slots: make([]Device, size),
		used:  make([]bool, size),
	}
}

// Get claims a free slot. Its method value is an AllocateFunc.
func (p *Pool) Get() *Device {
	for i := range p.slots {
		if !p.used[i] {
			p.used[i] = true
			return &p.slots[i]
		}
	}
	return nil
}

// Put releases a slot claimed by Get. Pointers the pool does not own are
// ignored.
func (p *Pool) Put(d *Device) {
	for i := range p.slots {
		if d == &p.slots[i] {
			p.used[i] = false
			return
		}
	}
}

// Free returns the number of unclaimed slots.
func (p *Pool) Free() int {
	n := 0
	for _, u := range p.used {
		if !u {
			n++
		}
	}
	return n
}
