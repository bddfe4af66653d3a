package core

import "sync"

// Close codes passed through to the transport's WebSocket close frame.
const (
	CloseNormal          = 1000
	ClosePolicyViolation = 1008
)

// Peer is a user's live connection as seen by the core layer. Outbound
// frames go through a bounded queue drained by the transport's write loop.
type Peer struct {
	Username string

	frames chan string
	done   chan struct{}

	closeOnce sync.Once
	mu        sync.Mutex
	code      int
	reason    string
}

// NewPeer constructs a peer with a bounded outbound queue.
func NewPeer(username string, queueSize int) *Peer {
	if queueSize <= 0 {
		queueSize = 32
	}
	return &Peer{
		Username: username,
		frames:   make(chan string, queueSize),
		done:     make(chan struct{}),
	}
}

// Send enqueues an outbound frame without blocking. Returns false if the
// peer is closed or its queue is full; the frame is dropped in that case.
func (p *Peer) Send(frame string) bool {
	select {
	case <-p.done:
		return false
	default:
	}

	select {
	case p.frames <- frame:
		return true
	default:
		// Drop if slow consumer.
		return false
	}
}

// Frames exposes the outbound queue to the transport's write loop.
func (p *Peer) Frames() <-chan string {
	return p.frames
}

// Close marks the peer closed, recording the close code and reason for the
// transport. Safe to call more than once; only the first call wins.
func (p *Peer) Close(code int, reason string) {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.code = code
		p.reason = reason
		p.mu.Unlock()
		close(p.done)
	})
}

// Done is closed once the peer has been closed.
func (p *Peer) Done() <-chan struct{} {
	return p.done
}

// Closed reports whether Close has been called.
func (p *Peer) Closed() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// CloseStatus returns the close code and reason recorded by Close.
func (p *Peer) CloseStatus() (int, string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.code == 0 {
		return CloseNormal, "closing"
	}
	return p.code, p.reason
}
