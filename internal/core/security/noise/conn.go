package noise

import (
	"crypto/ed25519"
	"fmt"
	"net"
	"sync"

	"github.com/flynn/noise"

	pkgif "github.com/dep2p/go-p2pcore/pkg/interfaces"
	"github.com/dep2p/go-p2pcore/pkg/types"
)

// maxPlaintext 单帧最大明文长度（扣除 16 字节认证标签）
const maxPlaintext = maxFrameSize - 16

var _ pkgif.SecureConn = (*secureConn)(nil)

// secureConn Noise 安全连接
type secureConn struct {
	net.Conn

	sendCS *noise.CipherState
	recvCS *noise.CipherState

	localPeer    types.PeerID
	remotePeer   types.PeerID
	remotePubKey ed25519.PublicKey

	readMu  sync.Mutex
	writeMu sync.Mutex

	// 未读完的明文
	readBuf []byte
}

// Read 读取并解密
func (c *secureConn) Read(p []byte) (int, error) {
	c.readMu.Lock()
	defer c.readMu.Unlock()

	if len(c.readBuf) > 0 {
		n := copy(p, c.readBuf)
		c.readBuf = c.readBuf[n:]
		return n, nil
	}

	for {
		enc, err := readFrame(c.Conn)
		if err != nil {
			return 0, err
		}
		plaintext, err := c.recvCS.Decrypt(nil, nil, enc)
		if err != nil {
			return 0, fmt.Errorf("decrypt: %w", err)
		}
		// 空帧不向调用方返回 0 字节
		if len(plaintext) == 0 {
			continue
		}
		n := copy(p, plaintext)
		if n < len(plaintext) {
			c.readBuf = plaintext[n:]
		}
		return n, nil
	}
}

// Write 加密并写入，超过单帧的数据会被拆分
func (c *secureConn) Write(p []byte) (int, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	written := 0
	for written < len(p) {
		end := written + maxPlaintext
		if end > len(p) {
			end = len(p)
		}
		ciphertext, err := c.sendCS.Encrypt(nil, nil, p[written:end])
		if err != nil {
			return written, fmt.Errorf("encrypt: %w", err)
		}
		if err := writeFrame(c.Conn, ciphertext); err != nil {
			return written, err
		}
		written = end
	}
	return written, nil
}

// LocalPeer 返回本地节点 ID
func (c *secureConn) LocalPeer() types.PeerID {
	return c.localPeer
}

// RemotePeer 返回远端节点 ID
func (c *secureConn) RemotePeer() types.PeerID {
	return c.remotePeer
}

// RemotePublicKey 返回远端公钥
func (c *secureConn) RemotePublicKey() ed25519.PublicKey {
	return c.remotePubKey
}
