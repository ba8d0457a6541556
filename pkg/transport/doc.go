/*
Package transport implements the framed, node-ID-handshaking TCP protocol
for a peer side channel. The daemon opens its listener at startup and
closes it on shutdown, and the consensus worker connects to a peer when an
add-node command commits and disconnects on remove-node; no component
outside this package's tests sends or receives frames over it. Raft RPC traffic
itself travels over hashicorp/raft's own TCPTransport (pkg/raftengine); this
package exists because the handshake and framing this spec pins down are
byte-for-byte specific and do not map onto any generic transport in the
dependency pack.

Each connection's first four bytes are the sender's big-endian node ID.
Every subsequent message is a 4-byte big-endian length prefix followed by
that many payload bytes. Reconnection after a failed dial retries up to five
times with exponential backoff starting at 2s.
*/
package transport
