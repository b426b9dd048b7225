package mqtt_test

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kuzzleio/go-sdk/pkg/protocol"
	protomqtt "github.com/kuzzleio/go-sdk/pkg/protocol/mqtt"
	"github.com/kuzzleio/go-sdk/pkg/types"
)

// brokerStub speaks just enough MQTT 3.1.1 to accept a connection. With
// ackSubs false it drops the connection on SUBSCRIBE instead of acking.
type brokerStub struct {
	ln      net.Listener
	ackSubs bool
}

func startBrokerStub(t *testing.T, ackSubs bool) *brokerStub {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	b := &brokerStub{ln: ln, ackSubs: ackSubs}
	go b.serve()
	t.Cleanup(func() { _ = ln.Close() })
	return b
}

func (b *brokerStub) port() int { return b.ln.Addr().(*net.TCPAddr).Port }

func (b *brokerStub) serve() {
	for {
		conn, err := b.ln.Accept()
		if err != nil {
			return
		}
		go b.handle(conn)
	}
}

func (b *brokerStub) handle(conn net.Conn) {
	defer conn.Close()
	for {
		header, body, err := readPacket(conn)
		if err != nil {
			return
		}
		switch header >> 4 {
		case 1: // CONNECT
			if _, err := conn.Write([]byte{0x20, 0x02, 0x00, 0x00}); err != nil {
				return
			}
		case 8: // SUBSCRIBE
			if !b.ackSubs {
				return
			}
			if _, err := conn.Write([]byte{0x90, 0x03, body[0], body[1], 0x00}); err != nil {
				return
			}
		case 12: // PINGREQ
			if _, err := conn.Write([]byte{0xd0, 0x00}); err != nil {
				return
			}
		case 14: // DISCONNECT
			return
		}
	}
}

func readPacket(conn net.Conn) (byte, []byte, error) {
	var header [1]byte
	if _, err := io.ReadFull(conn, header[:]); err != nil {
		return 0, nil, err
	}
	length := 0
	for shift := uint(0); ; shift += 7 {
		var b [1]byte
		if _, err := io.ReadFull(conn, b[:]); err != nil {
			return 0, nil, err
		}
		length |= int(b[0]&0x7f) << shift
		if b[0]&0x80 == 0 {
			break
		}
	}
	body := make([]byte, length)
	if _, err := io.ReadFull(conn, body); err != nil {
		return 0, nil, err
	}
	return header[0], body, nil
}

func TestBrokerURLForging(t *testing.T) {
	tests := []struct {
		name string
		m    *protomqtt.MQTT
		want string
	}{
		{"default port", protomqtt.New("localhost"), "tcp://localhost:1883"},
		{"custom port", protomqtt.New("localhost", protomqtt.WithPort(8883)), "tcp://localhost:8883"},
		{"ssl", protomqtt.New("localhost", protomqtt.WithSSL(true), protomqtt.WithPort(8883)), "ssl://localhost:8883"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.m.BrokerURL())
		})
	}
}

func TestSendNotConnected(t *testing.T) {
	m := protomqtt.New("localhost")
	_, err := m.Send(context.Background(), "r1", []byte(`{}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrNotConnected)
}

func TestDisconnectBeforeConnect(t *testing.T) {
	m := protomqtt.New("localhost")
	err := m.Disconnect()
	assert.ErrorIs(t, err, types.ErrAlreadyClosed)
}

func TestConnectWaitsForSubscription(t *testing.T) {
	broker := startBrokerStub(t, true)
	m := protomqtt.New("127.0.0.1",
		protomqtt.WithPort(broker.port()),
		protomqtt.WithConnectTimeout(2*time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, m.Connect(ctx))
	defer func() { _ = m.Disconnect() }()

	// The response subscription is in place before Connect returns, so a
	// Send issued right away never races the connect handler.
	assert.Equal(t, protocol.StateConnected, m.State())
}

func TestConnectFailsWhenSubscribeRejected(t *testing.T) {
	broker := startBrokerStub(t, false)
	m := protomqtt.New("127.0.0.1",
		protomqtt.WithPort(broker.port()),
		protomqtt.WithConnectTimeout(2*time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := m.Connect(ctx)
	require.Error(t, err)
	assert.NotEqual(t, protocol.StateConnected, m.State())

	_, err = m.Send(context.Background(), "r1", []byte(`{}`))
	assert.ErrorIs(t, err, types.ErrNotConnected)
}

func TestConnectRefused(t *testing.T) {
	m := protomqtt.New("localhost",
		protomqtt.WithPort(1),
		protomqtt.WithConnectTimeout(500*time.Millisecond))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := m.Connect(ctx)
	require.Error(t, err)
	assert.Equal(t, protocol.StateDisconnected, m.State())
}
