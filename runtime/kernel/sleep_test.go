package kernel

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

type counterKey struct{}

func TestKernel_SleepWakeup(t *testing.T) {
	k := newTestKernel(t, testConfig(2))
	done := make(chan int, 1)
	boot(t, k, func(p *Proc) {
		lk := NewSpinlock("counter")
		count := 0
		consumers := 3
		for i := 0; i < consumers; i++ {
			_, err := p.Fork(func(c *Proc) {
				c.Acquire(lk)
				for count == 0 {
					c.Sleep(counterKey{}, lk)
				}
				count--
				c.Release(lk)
			})
			assert.NoError(t, err)
		}
		for i := 0; i < consumers; i++ {
			p.Acquire(lk)
			count++
			p.Wakeup(counterKey{})
			p.Release(lk)
			p.Yield()
		}
		reaped := 0
		for ; reaped < consumers; reaped++ {
			if _, err := p.Wait(); err != nil {
				break
			}
		}
		done <- reaped
		park(p)
	})
	assert.Equal(t, 3, await(t, done))
}

func TestKernel_SleepUnless(t *testing.T) {
	k := newTestKernel(t, testConfig(2))
	var ready atomic.Bool
	asleep := make(chan int, 1)
	done := make(chan int, 1)
	boot(t, k, func(p *Proc) {
		pid, err := p.Fork(func(c *Proc) {
			asleep <- c.Pid()
			for !ready.Load() {
				c.SleepUnless("ready", ready.Load)
			}
		})
		assert.NoError(t, err)
		reaped, _ := p.Wait()
		assert.Equal(t, pid, reaped)
		done <- reaped
		park(p)
	})
	await(t, asleep)
	ready.Store(true)
	k.Wakeup("ready")
	assert.True(t, await(t, done) > 1)
}

func TestKernel_SleepUnlessSatisfied(t *testing.T) {
	k := newTestKernel(t, testConfig(1))
	done := make(chan bool, 1)
	boot(t, k, func(p *Proc) {
		p.SleepUnless("never woken", func() bool { return true })
		done <- true
		park(p)
	})
	assert.True(t, await(t, done))
}
