package noise

import (
	"crypto/ed25519"
	"crypto/sha512"
	"encoding/binary"
	"fmt"
	"io"
	"net"

	"filippo.io/edwards25519"
	"github.com/flynn/noise"

	pkgif "github.com/dep2p/go-p2pcore/pkg/interfaces"
	"github.com/dep2p/go-p2pcore/pkg/types"
)

// payloadSigPrefix 签名 payload 的前缀
const payloadSigPrefix = "noise-libp2p-static-key:"

// maxFrameSize 单帧最大长度（2 字节长度前缀）
const maxFrameSize = 65535

var cipherSuite = noise.NewCipherSuite(noise.DH25519, noise.CipherChaChaPoly, noise.HashSHA256)

// handshakeResult 握手结果
type handshakeResult struct {
	sendCS       *noise.CipherState
	recvCS       *noise.CipherState
	remotePeer   types.PeerID
	remotePubKey ed25519.PublicKey
}

// performHandshake 执行 Noise XX 握手
func performHandshake(conn net.Conn, id pkgif.Identity, isInitiator bool) (*handshakeResult, error) {
	curvePriv := ed25519ToCurve25519Private(id.PrivateKey())
	curvePub, err := ed25519ToCurve25519Public(id.PublicKey())
	if err != nil {
		return nil, err
	}

	hs, err := noise.NewHandshakeState(noise.Config{
		CipherSuite:   cipherSuite,
		Pattern:       noise.HandshakeXX,
		Initiator:     isInitiator,
		StaticKeypair: noise.DHKey{Private: curvePriv, Public: curvePub},
	})
	if err != nil {
		return nil, fmt.Errorf("create handshake state: %w", err)
	}

	localPayload, err := generatePayload(id, curvePub)
	if err != nil {
		return nil, err
	}

	var res handshakeResult
	var remotePayload []byte
	if isInitiator {
		res.sendCS, res.recvCS, remotePayload, err = clientHandshake(conn, hs, localPayload)
	} else {
		res.sendCS, res.recvCS, remotePayload, err = serverHandshake(conn, hs, localPayload)
	}
	if err != nil {
		return nil, err
	}

	res.remotePubKey, res.remotePeer, err = handleRemotePayload(remotePayload, hs.PeerStatic())
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// generatePayload 生成握手 payload
func generatePayload(id pkgif.Identity, curvePub []byte) ([]byte, error) {
	toSign := append([]byte(payloadSigPrefix), curvePub...)
	sig, err := id.Sign(toSign)
	if err != nil {
		return nil, fmt.Errorf("sign payload: %w", err)
	}
	p := handshakePayload{
		IdentityKey: id.PublicKey(),
		IdentitySig: sig,
	}
	return p.marshal(), nil
}

// handleRemotePayload 验证签名并提取 PeerID
func handleRemotePayload(b []byte, remoteStatic []byte) (ed25519.PublicKey, types.PeerID, error) {
	if len(remoteStatic) != 32 {
		return nil, "", fmt.Errorf("%w: static key length %d", ErrInvalidPayload, len(remoteStatic))
	}

	var p handshakePayload
	if err := p.unmarshal(b); err != nil {
		return nil, "", err
	}
	if len(p.IdentityKey) != ed25519.PublicKeySize {
		return nil, "", fmt.Errorf("%w: identity key length %d", ErrInvalidPayload, len(p.IdentityKey))
	}

	pub := ed25519.PublicKey(p.IdentityKey)
	toVerify := append([]byte(payloadSigPrefix), remoteStatic...)
	if !ed25519.Verify(pub, toVerify, p.IdentitySig) {
		return nil, "", ErrInvalidSignature
	}

	peer, err := types.PeerIDFromPublicKey(pub)
	if err != nil {
		return nil, "", err
	}
	return pub, peer, nil
}

// ============================================================================
//                              握手流程
// ============================================================================

// clientHandshake 发起者握手
func clientHandshake(conn net.Conn, hs *noise.HandshakeState, localPayload []byte) (*noise.CipherState, *noise.CipherState, []byte, error) {
	// -> e
	msg1, _, _, err := hs.WriteMessage(nil, nil)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("write message 1: %w", err)
	}
	if err := writeFrame(conn, msg1); err != nil {
		return nil, nil, nil, fmt.Errorf("send message 1: %w", err)
	}

	// <- e, ee, s, es, payload
	msg2, err := readFrame(conn)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("receive message 2: %w", err)
	}
	remotePayload, _, _, err := hs.ReadMessage(nil, msg2)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("read message 2: %w", err)
	}

	// -> s, se, payload
	msg3, cs1, cs2, err := hs.WriteMessage(nil, localPayload)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("write message 3: %w", err)
	}
	if err := writeFrame(conn, msg3); err != nil {
		return nil, nil, nil, fmt.Errorf("send message 3: %w", err)
	}

	return cs1, cs2, remotePayload, nil
}

// serverHandshake 响应者握手
func serverHandshake(conn net.Conn, hs *noise.HandshakeState, localPayload []byte) (*noise.CipherState, *noise.CipherState, []byte, error) {
	// <- e
	msg1, err := readFrame(conn)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("receive message 1: %w", err)
	}
	if _, _, _, err = hs.ReadMessage(nil, msg1); err != nil {
		return nil, nil, nil, fmt.Errorf("read message 1: %w", err)
	}

	// -> e, ee, s, es, payload
	msg2, _, _, err := hs.WriteMessage(nil, localPayload)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("write message 2: %w", err)
	}
	if err := writeFrame(conn, msg2); err != nil {
		return nil, nil, nil, fmt.Errorf("send message 2: %w", err)
	}

	// <- s, se, payload
	msg3, err := readFrame(conn)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("receive message 3: %w", err)
	}
	remotePayload, cs1, cs2, err := hs.ReadMessage(nil, msg3)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("read message 3: %w", err)
	}

	// 响应者的发送/接收方向与发起者相反
	return cs2, cs1, remotePayload, nil
}

// ============================================================================
//                              密钥转换
// ============================================================================

// ed25519ToCurve25519Private 将 Ed25519 私钥转换为 Curve25519 私钥（RFC 7748 clamping）
func ed25519ToCurve25519Private(priv ed25519.PrivateKey) []byte {
	h := sha512.Sum512(priv.Seed())
	h[0] &= 248
	h[31] &= 127
	h[31] |= 64
	return h[:32]
}

// ed25519ToCurve25519Public 将 Ed25519 公钥转换为 Curve25519 公钥
//
// Edwards -> Montgomery：u = (1 + y) / (1 - y) (mod p)
func ed25519ToCurve25519Public(pub ed25519.PublicKey) ([]byte, error) {
	point, err := new(edwards25519.Point).SetBytes(pub)
	if err != nil {
		return nil, fmt.Errorf("convert public key: %w", err)
	}
	return point.BytesMontgomery(), nil
}

// ============================================================================
//                              分帧
// ============================================================================

// writeFrame 写入帧（2 字节长度 + 数据）
func writeFrame(w io.Writer, data []byte) error {
	if len(data) > maxFrameSize {
		return fmt.Errorf("frame too large: %d", len(data))
	}
	buf := make([]byte, 2+len(data))
	binary.BigEndian.PutUint16(buf, uint16(len(data)))
	copy(buf[2:], data)
	_, err := w.Write(buf)
	return err
}

// readFrame 读取帧（2 字节长度 + 数据）
func readFrame(r io.Reader) ([]byte, error) {
	var lenBuf [2]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	data := make([]byte, binary.BigEndian.Uint16(lenBuf[:]))
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, err
	}
	return data, nil
}
