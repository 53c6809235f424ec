package interfaces

import "io"

// Codec 应用协议编解码器
//
// 对核心而言分帧方式是不透明的；读写都在边缘 goroutine 中执行。
type Codec interface {
	// ReadMessage 读取下一条消息
	ReadMessage(r io.Reader) (any, error)

	// WriteMessage 写入一条消息
	WriteMessage(w io.Writer, msg any) error
}
