// Package eventloop implements a single-threaded cooperative reactor:
// one wait per iteration over the union of registered backend event
// file descriptors and the nearest due timer, using
// golang.org/x/sys/unix.Poll as a classic poll-based reactor would.
package eventloop

import (
	"sort"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"wlcompositor/compositor"
)

// Timer is one armed-or-not deadline managed by a Loop. There is
// exactly one per Output for that Output's lifetime.
type Timer struct {
	loop  *Loop
	fn    func()
	due   time.Time
	armed bool
}

// Arm schedules fn to run after d, replacing any previously scheduled
// fire time. Re-arming an already-armed timer is the common case (the
// adaptive idle interval re-arms on every FinishFrame).
func (t *Timer) Arm(d time.Duration) {
	t.loop.mu.Lock()
	defer t.loop.mu.Unlock()
	t.due = time.Now().Add(d)
	t.armed = true
}

// Disarm cancels a pending fire. A no-op if not armed.
func (t *Timer) Disarm() {
	t.loop.mu.Lock()
	defer t.loop.mu.Unlock()
	t.armed = false
}

// Loop is the shared event loop: the single reactor all outputs' timers
// and all backends' event fds register against. Every mutation it
// drives happens on the goroutine that calls Run; compositor state is
// never touched from any other goroutine.
type Loop struct {
	mu     sync.Mutex
	timers []*Timer
	fds    map[int]func()
}

// New returns an empty, unstarted Loop.
func New() *Loop {
	return &Loop{fds: make(map[int]func())}
}

// NewTimer registers a new, initially disarmed timer whose callback is
// fn. The returned value satisfies compositor.Timer.
func (l *Loop) NewTimer(fn func()) compositor.Timer {
	l.mu.Lock()
	defer l.mu.Unlock()
	t := &Timer{loop: l, fn: fn}
	l.timers = append(l.timers, t)
	return t
}

// RegisterFD arms the loop to call onReady whenever fd becomes
// readable. A backend reporting EventFD() < 0 (e.g. the SDL backend)
// should simply not call this; the loop then falls back to waking
// purely on timer deadlines.
func (l *Loop) RegisterFD(fd int, onReady func()) {
	if fd < 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fds[fd] = onReady
}

// UnregisterFD removes a previously registered fd.
func (l *Loop) UnregisterFD(fd int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.fds, fd)
}

// Run drives the reactor until stop is closed. Each iteration:
//  1. snapshot armed timers and registered fds,
//  2. poll(2) on the fds with a timeout equal to the time remaining
//     until the nearest due timer (blocking indefinitely if there are
//     fds but no armed timers); with no fds it sleeps until the nearest
//     timer instead, and with neither it sleeps 10ms and re-checks,
//  3. fire every timer whose deadline has passed,
//  4. invoke the onReady callback for every fd poll(2) reported ready.
//
// No operation here blocks the render path on I/O beyond this single
// wait.
func (l *Loop) Run(stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		default:
		}

		pollFDs, due, anyTimer := l.snapshot()
		timeout := -1
		if anyTimer {
			d := time.Until(due)
			if d < 0 {
				d = 0
			}
			// Round up so a sub-millisecond deadline doesn't become a
			// zero-timeout busy spin until the timer is due.
			timeout = int((d + time.Millisecond - 1) / time.Millisecond)
		}
		if len(pollFDs) == 0 && !anyTimer {
			// Nothing registered at all; yield briefly rather than
			// spinning or blocking forever with no way to be woken.
			time.Sleep(10 * time.Millisecond)
		} else if len(pollFDs) > 0 {
			_, _ = unix.Poll(pollFDs, timeout)
		} else if timeout > 0 {
			time.Sleep(time.Duration(timeout) * time.Millisecond)
		}

		l.fireDueTimers()
		l.dispatchReadyFDs(pollFDs)
	}
}

func (l *Loop) snapshot() (pollFDs []unix.PollFd, nearestDue time.Time, anyTimer bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for fd := range l.fds {
		pollFDs = append(pollFDs, unix.PollFd{Fd: int32(fd), Events: unix.POLLIN})
	}
	sort.Slice(pollFDs, func(i, j int) bool { return pollFDs[i].Fd < pollFDs[j].Fd })

	for _, t := range l.timers {
		if !t.armed {
			continue
		}
		if !anyTimer || t.due.Before(nearestDue) {
			nearestDue = t.due
			anyTimer = true
		}
	}
	return pollFDs, nearestDue, anyTimer
}

func (l *Loop) fireDueTimers() {
	now := time.Now()
	var ready []*Timer
	l.mu.Lock()
	for _, t := range l.timers {
		if t.armed && !t.due.After(now) {
			t.armed = false
			ready = append(ready, t)
		}
	}
	l.mu.Unlock()

	for _, t := range ready {
		t.fn()
	}
}

func (l *Loop) dispatchReadyFDs(polled []unix.PollFd) {
	for _, pfd := range polled {
		if pfd.Revents == 0 {
			continue
		}
		l.mu.Lock()
		cb := l.fds[int(pfd.Fd)]
		l.mu.Unlock()
		if cb != nil {
			cb()
		}
	}
}
