package transports

import (
	"fmt"
	"net"

	"market-plant/src/logger"
)

// -----------------------------------------------------------------------------

// UDPMessenger implements interfaces.IMessenger over a UDP socket. The plant
// side binds its market address and connects to the exchange so retransmit
// requests travel back on the same socket the feed arrives on; the simulator
// side binds the exchange address and addresses each datagram explicitly.
type UDPMessenger struct {
	name   string
	logger *logger.Logger
	conn   *net.UDPConn
	peer   *net.UDPAddr // nil when the socket is connected
}

// -----------------------------------------------------------------------------

// NewUDPMessenger binds localIP:localPort and connects the socket to
// peerIP:peerPort. Bind or connect failure is fatal to the caller.
func NewUDPMessenger(localIP string, localPort int, peerIP string, peerPort int, lg *logger.Logger) (*UDPMessenger, error) {
	laddr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", localIP, localPort))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve local address %s:%d: %w", localIP, localPort, err)
	}
	raddr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", peerIP, peerPort))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve peer address %s:%d: %w", peerIP, peerPort, err)
	}

	conn, err := net.DialUDP("udp", laddr, raddr)
	if err != nil {
		return nil, fmt.Errorf("failed to bind udp socket %s: %w", laddr, err)
	}

	lg.Info("udp : bound %s, peer %s", conn.LocalAddr(), raddr)

	return &UDPMessenger{
		name:   "udp",
		logger: lg,
		conn:   conn,
	}, nil
}

// -----------------------------------------------------------------------------

// NewUDPListener binds 0.0.0.0:localPort without connecting, sending each
// datagram to peerIP:peerPort. Used by the simulator, whose socket also
// receives retransmit requests from arbitrary sources.
func NewUDPListener(localPort int, peerIP string, peerPort int, lg *logger.Logger) (*UDPMessenger, error) {
	laddr, err := net.ResolveUDPAddr("udp", fmt.Sprintf(":%d", localPort))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve local address :%d: %w", localPort, err)
	}
	peer, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", peerIP, peerPort))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve peer address %s:%d: %w", peerIP, peerPort, err)
	}

	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return nil, fmt.Errorf("failed to bind udp socket %s: %w", laddr, err)
	}

	lg.Info("udp : bound %s, peer %s", conn.LocalAddr(), peer)

	return &UDPMessenger{
		name:   "udp",
		logger: lg,
		conn:   conn,
		peer:   peer,
	}, nil
}

// -----------------------------------------------------------------------------

// Send transmits one datagram. Best-effort; the reliability layer lives in
// the sequenced receiver, not here.
func (u *UDPMessenger) Send(data []byte) error {
	var err error
	if u.peer != nil {
		_, err = u.conn.WriteToUDP(data, u.peer)
	} else {
		_, err = u.conn.Write(data)
	}
	if err != nil {
		return fmt.Errorf("udp send failed: %w", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

// Recv blocks until one datagram arrives and copies it into buf.
func (u *UDPMessenger) Recv(buf []byte) (int, error) {
	if u.peer != nil {
		n, _, err := u.conn.ReadFromUDP(buf)
		return n, err
	}
	return u.conn.Read(buf)
}

// -----------------------------------------------------------------------------

// Close releases the socket, unblocking any pending Recv.
func (u *UDPMessenger) Close() error {
	return u.conn.Close()
}

// -----------------------------------------------------------------------------

// LocalAddr reports the bound address, for logs.
func (u *UDPMessenger) LocalAddr() string {
	return u.conn.LocalAddr().String()
}
