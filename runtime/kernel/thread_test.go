package kernel

import (
	"encoding/binary"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/viant/kproc/service/vm/memory"
)

func TestKernel_CloneJoin(t *testing.T) {
	cfg := testConfig(2)
	mem := memory.New(cfg.PageSize, cfg.MemoryPages)
	k := newTestKernel(t, cfg, WithVM(mem))
	type threadInfo struct {
		isThread bool
		esp, ebp uint32
		eax      uint32
		word     uint32
	}
	type result struct {
		pid, joined int
		stack       uint32
		sum         uint32
		waitErr     error
		live        bool
		thread      threadInfo
	}
	done := make(chan result, 1)
	boot(t, k, func(p *Proc) {
		assert.NoError(t, p.Grow(2*cfg.PageSize))
		stack := uint32(cfg.PageSize)
		infos := make(chan threadInfo, 1)
		pid, err := p.Clone(func(c *Proc, arg1, arg2 uint32) {
			tf := c.TrapFrame()
			word, _ := c.CopyIn(tf.ESP, 4)
			infos <- threadInfo{isThread: c.IsThread(), esp: tf.ESP, ebp: tf.EBP, eax: tf.EAX, word: binary.LittleEndian.Uint32(word)}
			sum := make([]byte, 4)
			binary.LittleEndian.PutUint32(sum, arg1+arg2)
			assert.NoError(t, c.CopyOut(0x100, sum))
		}, 40, 2, stack)
		assert.NoError(t, err)
		res := result{pid: pid}
		// threads are not reaped by wait
		_, res.waitErr = p.Wait()
		res.joined, res.stack, err = p.Join()
		assert.NoError(t, err)
		data, _ := p.CopyIn(0x100, 4)
		res.sum = binary.LittleEndian.Uint32(data)
		res.live = mem.Live(p.r.addr.space())
		res.thread = <-infos
		done <- res
		park(p)
	})
	res := await(t, done)
	assert.Equal(t, res.pid, res.joined)
	assert.EqualValues(t, cfg.PageSize, res.stack)
	assert.EqualValues(t, 42, res.sum)
	assert.ErrorIs(t, res.waitErr, ErrNoChildren)
	assert.True(t, res.live)
	assert.True(t, res.thread.isThread)
	top := uint32(2*cfg.PageSize - 12)
	assert.Equal(t, top, res.thread.esp)
	assert.Equal(t, top, res.thread.ebp)
	assert.EqualValues(t, 0, res.thread.eax)
	assert.EqualValues(t, fakeReturn, res.thread.word)
}

func TestKernel_CloneBadStack(t *testing.T) {
	cfg := testConfig(1)
	k := newTestKernel(t, cfg)
	done := make(chan []error, 1)
	boot(t, k, func(p *Proc) {
		noop := func(c *Proc, arg1, arg2 uint32) {}
		assert.NoError(t, p.Grow(cfg.PageSize))
		var errs []error
		_, err := p.Clone(noop, 0, 0, 10)
		errs = append(errs, err)
		_, err = p.Clone(noop, 0, 0, uint32(2*cfg.PageSize))
		errs = append(errs, err)
		_, err = p.Clone(noop, 0, 0, 0xfffff000)
		errs = append(errs, err)
		done <- errs
		park(p)
	})
	for _, err := range await(t, done) {
		assert.ErrorIs(t, err, ErrBadStack)
	}
}

func TestKernel_JoinNoThreads(t *testing.T) {
	k := newTestKernel(t, testConfig(1))
	done := make(chan error, 1)
	reaped := make(chan int, 1)
	var child int
	boot(t, k, func(p *Proc) {
		var err error
		child, err = p.Fork(func(c *Proc) {})
		assert.NoError(t, err)
		awaitZombie(p, child)
		// a zombie child with its own address space is not joinable
		_, _, err = p.Join()
		done <- err
		pid, _ := p.Wait()
		reaped <- pid
		park(p)
	})
	assert.ErrorIs(t, await(t, done), ErrNoChildren)
	assert.Equal(t, child, await(t, reaped))
}

func TestKernel_OrphanedThread(t *testing.T) {
	cfg := testConfig(2)
	mem := memory.New(cfg.PageSize, cfg.MemoryPages)
	k := newTestKernel(t, cfg, WithVM(mem))
	type result struct {
		reaped     []int
		liveAfterP bool
		liveAtEnd  bool
	}
	done := make(chan result, 1)
	boot(t, k, func(p *Proc) {
		var release atomic.Bool
		spaces := make(chan *Proc, 1)
		owner, err := p.Fork(func(c *Proc) {
			assert.NoError(t, c.Grow(cfg.PageSize))
			spaces <- c
			_, err := c.Clone(func(th *Proc, _, _ uint32) {
				for !release.Load() {
					th.Yield()
				}
				assert.NoError(t, th.CopyOut(0x10, []byte("late")))
			}, 0, 0, uint32(cfg.PageSize))
			assert.NoError(t, err)
		})
		assert.NoError(t, err)
		space := (<-spaces).r.addr.space()
		res := result{}
		pid, err := p.Wait()
		assert.NoError(t, err)
		assert.Equal(t, owner, pid)
		res.reaped = append(res.reaped, pid)
		res.liveAfterP = mem.Live(space)
		release.Store(true)
		pid, err = p.Wait()
		assert.NoError(t, err)
		res.reaped = append(res.reaped, pid)
		res.liveAtEnd = mem.Live(space)
		done <- res
		park(p)
	})
	res := await(t, done)
	assert.Len(t, res.reaped, 2)
	assert.True(t, res.liveAfterP)
	assert.False(t, res.liveAtEnd)
}
