package recvloop

import (
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

// socketpair returns two connected, non-blocking loopback fds without
// touching any real network interface — the cheapest way to exercise
// RecvExact against a genuine kernel socket.
func socketpair(t *testing.T) (a, b int) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		t.Fatalf("socketpair: %v", err)
	}
	if err := unix.SetNonblock(fds[0], true); err != nil {
		t.Fatalf("setnonblock: %v", err)
	}
	if err := unix.SetNonblock(fds[1], true); err != nil {
		t.Fatalf("setnonblock: %v", err)
	}
	t.Cleanup(func() {
		unix.Close(fds[0])
		unix.Close(fds[1])
	})
	return fds[0], fds[1]
}

func TestRecvExact_ZeroLength(t *testing.T) {
	a, _ := socketpair(t)
	if err := RecvExact(a, nil, 1000); err != Ok {
		t.Fatalf("want Ok, got %v", err)
	}
}

func TestRecvExact_AlreadyInterrupted(t *testing.T) {
	a, b := socketpair(t)
	// Write data first so that, if RecvExact ignored the pre-set
	// interrupt flag, it would succeed instead of failing fast.
	unix.Write(b, []byte{1, 2, 3, 4})

	Interrupt(true)
	defer Interrupt(false)

	buf := make([]byte, 4)
	if err := RecvExact(a, buf, 1000); err != Interrupted {
		t.Fatalf("want Interrupted, got %v", err)
	}
}

func TestRecvExact_ReadsExactLength(t *testing.T) {
	a, b := socketpair(t)
	payload := []byte("hello!!!")
	go func() {
		time.Sleep(20 * time.Millisecond)
		unix.Write(b, payload)
	}()

	buf := make([]byte, len(payload))
	if err := RecvExact(a, buf, 2000); err != Ok {
		t.Fatalf("want Ok, got %v", err)
	}
	if string(buf) != string(payload) {
		t.Fatalf("got %q, want %q", buf, payload)
	}
}

func TestRecvExact_PartialThenMore(t *testing.T) {
	a, b := socketpair(t)
	go func() {
		unix.Write(b, []byte{1, 2})
		time.Sleep(30 * time.Millisecond)
		unix.Write(b, []byte{3, 4})
	}()

	buf := make([]byte, 4)
	if err := RecvExact(a, buf, 2000); err != Ok {
		t.Fatalf("want Ok, got %v", err)
	}
	for i, want := range []byte{1, 2, 3, 4} {
		if buf[i] != want {
			t.Fatalf("buf[%d] = %d, want %d", i, buf[i], want)
		}
	}
}

func TestRecvExact_Disconnected(t *testing.T) {
	a, b := socketpair(t)
	unix.Close(b)

	buf := make([]byte, 4)
	if err := RecvExact(a, buf, 2000); err != Disconnected {
		t.Fatalf("want Disconnected, got %v", err)
	}
}

func TestRecvExact_Timeout(t *testing.T) {
	a, _ := socketpair(t)
	buf := make([]byte, 4)
	start := time.Now()
	if err := RecvExact(a, buf, 300); err != Timeout {
		t.Fatalf("want Timeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed < 250*time.Millisecond {
		t.Fatalf("returned too early: %v", elapsed)
	}
}

func TestRecvExact_InterruptedMidWait(t *testing.T) {
	a, _ := socketpair(t)
	go func() {
		time.Sleep(100 * time.Millisecond)
		Interrupt(true)
	}()
	defer Interrupt(false)

	buf := make([]byte, 4)
	start := time.Now()
	err := RecvExact(a, buf, 5000)
	elapsed := time.Since(start)
	if err != Interrupted {
		t.Fatalf("want Interrupted, got %v", err)
	}
	if elapsed > 1600*time.Millisecond {
		t.Fatalf("interrupt granularity exceeded: %v", elapsed)
	}
}
