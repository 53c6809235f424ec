package quic

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"math/big"
	"time"

	pkgif "github.com/dep2p/go-p2pcore/pkg/interfaces"
	"github.com/dep2p/go-p2pcore/pkg/types"
)

// alpn QUIC 应用层协议标识
const alpn = "p2pcore"

// certValidity 自签名证书有效期
const certValidity = 180 * 24 * time.Hour

// newTLSConfigs 从身份生成服务端与客户端 TLS 配置
func newTLSConfigs(id pkgif.Identity) (server, client *tls.Config, err error) {
	priv := id.PrivateKey()

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 62))
	if err != nil {
		return nil, nil, err
	}
	template := &x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			CommonName: "p2pcore " + id.PeerID().ShortString(),
		},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(certValidity),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
		BasicConstraintsValid: true,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, priv.Public(), priv)
	if err != nil {
		return nil, nil, fmt.Errorf("创建证书失败: %w", err)
	}

	base := &tls.Config{
		Certificates: []tls.Certificate{{
			Certificate: [][]byte{der},
			PrivateKey:  priv,
		}},
		NextProtos: []string{alpn},
		// 自签名证书没有 CA，身份由 VerifyPeerCertificate 校验
		InsecureSkipVerify:    true,
		VerifyPeerCertificate: verifyPeerCertificate,
		MinVersion:            tls.VersionTLS13,
	}

	server = base.Clone()
	server.ClientAuth = tls.RequireAnyClientCert
	client = base.Clone()
	return server, client, nil
}

// verifyPeerCertificate 校验对端证书自签名、有效期与密钥类型
func verifyPeerCertificate(rawCerts [][]byte, _ [][]*x509.Certificate) error {
	if len(rawCerts) == 0 {
		return ErrNoCertificate
	}
	cert, err := x509.ParseCertificate(rawCerts[0])
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidCertificate, err)
	}
	if _, ok := cert.PublicKey.(ed25519.PublicKey); !ok {
		return fmt.Errorf("%w: unsupported key type %T", ErrInvalidCertificate, cert.PublicKey)
	}
	if err := cert.CheckSignature(cert.SignatureAlgorithm, cert.RawTBSCertificate, cert.Signature); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidCertificate, err)
	}
	now := time.Now()
	if now.Before(cert.NotBefore) || now.After(cert.NotAfter) {
		return fmt.Errorf("%w: certificate expired or not yet valid", ErrInvalidCertificate)
	}
	return nil
}

// remoteIdentity 从 TLS 连接状态提取对端公钥和 PeerID
func remoteIdentity(state tls.ConnectionState) (ed25519.PublicKey, types.PeerID, error) {
	if len(state.PeerCertificates) == 0 {
		return nil, "", ErrNoCertificate
	}
	pub, ok := state.PeerCertificates[0].PublicKey.(ed25519.PublicKey)
	if !ok {
		return nil, "", ErrInvalidCertificate
	}
	peer, err := types.PeerIDFromPublicKey(pub)
	if err != nil {
		return nil, "", err
	}
	return pub, peer, nil
}
