package kernel

import (
	"math/rand"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/kproc/model/proc"
)

// setSlots installs the supplied states and tickets into the first slots.
func setSlots(k *Kernel, states []proc.State, tickets []int) {
	for i := range states {
		k.procs[i].state = states[i]
		k.procs[i].tickets = tickets[i]
		k.procs[i].pid = i + 1
	}
}

func TestKernel_Lottery(t *testing.T) {
	testCases := []struct {
		name    string
		states  []proc.State
		tickets []int
		winner  int
		expect  int
		total   int
	}{
		{
			name:    "first ticket",
			states:  []proc.State{proc.StateRunnable, proc.StateRunnable},
			tickets: []int{1, 2},
			winner:  0,
			expect:  1,
			total:   3,
		},
		{
			name:    "boundary moves to next record",
			states:  []proc.State{proc.StateRunnable, proc.StateRunnable},
			tickets: []int{1, 2},
			winner:  1,
			expect:  2,
			total:   3,
		},
		{
			name:    "non runnable skipped",
			states:  []proc.State{proc.StateSleeping, proc.StateEmbryo, proc.StateRunnable},
			tickets: []int{10, 10, 3},
			winner:  2,
			expect:  3,
			total:   3,
		},
		{
			name:    "winner beyond total",
			states:  []proc.State{proc.StateRunnable},
			tickets: []int{1},
			winner:  5,
			expect:  0,
			total:   1,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			k := newTestKernel(t, testConfig(1))
			setSlots(k, tc.states, tc.tickets)
			assert.Equal(t, tc.total, k.totalTickets())
			r := k.lottery(tc.winner)
			if tc.expect == 0 {
				assert.Nil(t, r)
				return
			}
			require.NotNil(t, r)
			assert.Equal(t, tc.expect, r.pid)
		})
	}
}

func TestKernel_LotteryDistribution(t *testing.T) {
	k := newTestKernel(t, testConfig(1))
	tickets := []int{10, 20, 30, 40}
	setSlots(k, []proc.State{proc.StateRunnable, proc.StateRunnable, proc.StateRunnable, proc.StateRunnable}, tickets)
	draws := 100000
	rnd := rand.New(rand.NewSource(7))
	wins := map[int]int{}
	for i := 0; i < draws; i++ {
		wins[k.lottery(rnd.Intn(k.totalTickets())).pid]++
	}
	for i, n := range tickets {
		share := float64(wins[i+1]) / float64(draws)
		assert.InDelta(t, float64(n)/100, share, 0.01, "pid %d", i+1)
	}
}

func TestKernel_EmbryoNotScheduled(t *testing.T) {
	k := newTestKernel(t, testConfig(1))
	r, err := k.allocate(k.boundary())
	require.NoError(t, err)
	assert.Equal(t, proc.StateEmbryo, r.state)
	assert.Equal(t, 0, k.totalTickets())
	assert.Nil(t, k.lottery(0))

	require.NoError(t, k.Start(k.ctx))
	defer k.Shutdown()
	time.Sleep(5 * time.Millisecond)
	stats, err := k.Stats()
	require.NoError(t, err)
	assert.True(t, stats[r.index].InUse)
	assert.Equal(t, 0, stats[r.index].Ticks)
	assert.Equal(t, proc.StateEmbryo, r.state)
}

func TestKernel_ProportionalShare(t *testing.T) {
	k := newTestKernel(t, testConfig(1))
	tickets := []int{100, 200, 300}
	pids := make(chan []int, 1)
	boot(t, k, func(p *Proc) {
		var children []int
		for _, n := range tickets {
			n := n
			pid, err := p.Fork(func(c *Proc) {
				assert.NoError(t, c.SetTickets(n))
				for {
					c.Yield()
				}
			})
			assert.NoError(t, err)
			children = append(children, pid)
		}
		pids <- children
		park(p)
	})
	children := await(t, pids)

	ticks := func() map[int]int {
		stats, err := k.Stats()
		require.NoError(t, err)
		ret := map[int]int{}
		for _, stat := range stats {
			if stat.InUse {
				ret[stat.Pid] = stat.Ticks
			}
		}
		return ret
	}
	settle := func(total int) map[int]int {
		deadline := time.Now().Add(waitTimeout)
		for time.Now().Before(deadline) {
			current := ticks()
			sum := 0
			for _, pid := range children {
				sum += current[pid]
			}
			if sum >= total {
				return current
			}
			time.Sleep(time.Millisecond)
		}
		t.Fatalf("children did not accumulate %d ticks", total)
		return nil
	}
	start := settle(600)
	end := settle(start[children[0]] + start[children[1]] + start[children[2]] + 12000)
	var deltas []float64
	sum := 0.0
	for _, pid := range children {
		delta := float64(end[pid] - start[pid])
		deltas = append(deltas, delta)
		sum += delta
	}
	for i, n := range tickets {
		assert.InDelta(t, float64(n)/600, deltas[i]/sum, 0.05, "pid %d", children[i])
	}
}

func TestKernel_TimerPreemption(t *testing.T) {
	cfg := testConfig(1)
	cfg.Quantum = time.Millisecond
	k := newTestKernel(t, cfg)
	done := make(chan int, 1)
	boot(t, k, func(p *Proc) {
		var flag, spinning atomic.Bool
		spins := 0
		_, err := p.Fork(func(c *Proc) {
			spinning.Store(true)
			for !flag.Load() {
				spins++
				c.Checkpoint()
			}
		})
		assert.NoError(t, err)
		// the spinner never yields on its own, so only a timer tick hands
		// the core back to this record and later to the flag setter
		for !spinning.Load() {
			p.Yield()
		}
		_, err = p.Fork(func(c *Proc) {
			flag.Store(true)
		})
		assert.NoError(t, err)
		for i := 0; i < 2; i++ {
			_, err = p.Wait()
			assert.NoError(t, err)
		}
		done <- spins
		park(p)
	})
	assert.True(t, await(t, done) > 0)
}
