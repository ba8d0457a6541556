package transport

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/pgraft/pgraft/pkg/log"
	"github.com/pgraft/pgraft/pkg/pgerrors"
)

const (
	dialTimeout      = 1 * time.Second
	readDeadline     = 30 * time.Second
	maxMessageBytes  = 8 * 1024
	maxConnectRetry  = 5
	initialBackoff   = 2 * time.Second
)

// Message is one received frame, tagged with the peer it came from.
type Message struct {
	PeerID  uint32
	Payload []byte
}

type peerConn struct {
	conn net.Conn
	mu   sync.Mutex // serializes writes per peer
}

// Transport is the framed TCP transport: component A. listen/connect/send/
// broadcast/recv map directly onto spec.md's operation names.
type Transport struct {
	localID  uint32
	listener net.Listener

	mu    sync.Mutex
	peers map[uint32]*peerConn

	recvCh chan Message
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New creates a Transport identifying itself with localID on every outbound
// handshake.
func New(localID uint32) *Transport {
	return &Transport{
		localID: localID,
		peers:   make(map[uint32]*peerConn),
		recvCh:  make(chan Message, 256),
		stopCh:  make(chan struct{}),
	}
}

// Listen accepts inbound peer connections on addr:port. The first four
// bytes of each accepted stream are the sender's big-endian node ID.
func (t *Transport) Listen(addr string, port int) error {
	ln, err := net.Listen("tcp", fmt.Sprintf("%s:%d", addr, port))
	if err != nil {
		return fmt.Errorf("listen %s:%d: %w", addr, port, err)
	}
	t.listener = ln

	t.wg.Add(1)
	go t.acceptLoop()
	return nil
}

func (t *Transport) acceptLoop() {
	defer t.wg.Done()
	for {
		conn, err := t.listener.Accept()
		if err != nil {
			select {
			case <-t.stopCh:
				return
			default:
				log.Errorf("transport accept failed", err)
				continue
			}
		}
		go t.handleInbound(conn)
	}
}

func (t *Transport) handleInbound(conn net.Conn) {
	var idBuf [4]byte
	if _, err := io.ReadFull(conn, idBuf[:]); err != nil {
		conn.Close()
		return
	}
	peerID := binary.BigEndian.Uint32(idBuf[:])
	t.registerConn(peerID, conn)
	t.readLoop(peerID, conn)
}

func (t *Transport) registerConn(peerID uint32, conn net.Conn) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if old, ok := t.peers[peerID]; ok {
		old.conn.Close()
	}
	t.peers[peerID] = &peerConn{conn: conn}
}

func (t *Transport) readLoop(peerID uint32, conn net.Conn) {
	for {
		conn.SetReadDeadline(time.Now().Add(readDeadline))

		var lenBuf [4]byte
		if _, err := io.ReadFull(conn, lenBuf[:]); err != nil {
			return
		}
		n := binary.BigEndian.Uint32(lenBuf[:])
		if n > maxMessageBytes {
			log.Error(fmt.Sprintf("transport: oversized frame from peer %d: %d bytes", peerID, n))
			return
		}
		payload := make([]byte, n)
		if _, err := io.ReadFull(conn, payload); err != nil {
			return
		}

		select {
		case t.recvCh <- Message{PeerID: peerID, Payload: payload}:
		case <-t.stopCh:
			return
		}
	}
}

// Connect dials peerID at addr:port, sending the local node ID as the
// handshake, retrying up to maxConnectRetry times with exponential backoff.
// A call is a no-op if a live connection to peerID already exists.
func (t *Transport) Connect(peerID uint32, addr string, port int) error {
	t.mu.Lock()
	_, exists := t.peers[peerID]
	t.mu.Unlock()
	if exists {
		return nil
	}

	backoff := initialBackoff
	var lastErr error
	for attempt := 0; attempt <= maxConnectRetry; attempt++ {
		conn, err := net.DialTimeout("tcp", fmt.Sprintf("%s:%d", addr, port), dialTimeout)
		if err == nil {
			var idBuf [4]byte
			binary.BigEndian.PutUint32(idBuf[:], t.localID)
			if _, werr := conn.Write(idBuf[:]); werr != nil {
				conn.Close()
				lastErr = werr
			} else {
				t.registerConn(peerID, conn)
				t.wg.Add(1)
				go func() {
					defer t.wg.Done()
					t.readLoop(peerID, conn)
				}()
				return nil
			}
		} else {
			lastErr = err
		}

		if attempt < maxConnectRetry {
			time.Sleep(backoff)
			backoff *= 2
		}
	}
	return fmt.Errorf("connect to peer %d at %s:%d after %d attempts: %w: %v", peerID, addr, port, maxConnectRetry+1, pgerrors.NetworkError, lastErr)
}

// Send writes a length-prefixed frame to peerID as a single atomic write.
func (t *Transport) Send(peerID uint32, payload []byte) error {
	t.mu.Lock()
	pc, ok := t.peers[peerID]
	t.mu.Unlock()
	if !ok {
		return fmt.Errorf("no connection to peer %d: %w", peerID, pgerrors.NetworkError)
	}

	frame := make([]byte, 4+len(payload))
	binary.BigEndian.PutUint32(frame[:4], uint32(len(payload)))
	copy(frame[4:], payload)

	pc.mu.Lock()
	defer pc.mu.Unlock()

	n, err := pc.conn.Write(frame)
	if err != nil {
		return fmt.Errorf("write to peer %d: %w", peerID, pgerrors.NetworkError)
	}
	if n != len(frame) {
		return fmt.Errorf("partial write to peer %d (%d/%d bytes): %w", peerID, n, len(frame), pgerrors.NetworkError)
	}
	return nil
}

// Broadcast sends payload to every currently connected peer concurrently.
// Per-peer failures are collected but never abort the broadcast.
func (t *Transport) Broadcast(payload []byte) map[uint32]error {
	t.mu.Lock()
	peerIDs := make([]uint32, 0, len(t.peers))
	for id := range t.peers {
		peerIDs = append(peerIDs, id)
	}
	t.mu.Unlock()

	results := make(map[uint32]error, len(peerIDs))
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, id := range peerIDs {
		wg.Add(1)
		go func(id uint32) {
			defer wg.Done()
			err := t.Send(id, payload)
			mu.Lock()
			results[id] = err
			mu.Unlock()
		}(id)
	}
	wg.Wait()
	return results
}

// Recv returns the channel of inbound messages from every peer.
func (t *Transport) Recv() <-chan Message {
	return t.recvCh
}

// Disconnect drops and closes the connection to peerID, if any.
func (t *Transport) Disconnect(peerID uint32) {
	t.mu.Lock()
	pc, ok := t.peers[peerID]
	if ok {
		delete(t.peers, peerID)
	}
	t.mu.Unlock()

	if ok {
		pc.conn.Close()
	}
}

// Close stops the accept loop and every connection, and closes Recv's
// channel once all reader goroutines have exited.
func (t *Transport) Close() error {
	close(t.stopCh)
	if t.listener != nil {
		t.listener.Close()
	}

	t.mu.Lock()
	for id, pc := range t.peers {
		pc.conn.Close()
		delete(t.peers, id)
	}
	t.mu.Unlock()

	t.wg.Wait()
	close(t.recvCh)
	return nil
}
