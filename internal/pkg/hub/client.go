package hub

import "sync"

// Client 一条已鉴权的实时连接。同一用户多端登录对应多个 Client。
type Client struct {
	UserID string

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

func NewClient(userID string) *Client {
	return &Client{
		UserID: userID,
		send:   make(chan []byte, 64),
	}
}

// Enqueue 非阻塞投递，慢连接写满缓冲后直接丢弃该帧
func (c *Client) Enqueue(payload []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- payload:
	default:
	}
}

// Outbox 写循环消费的出站队列
func (c *Client) Outbox() <-chan []byte {
	return c.send
}

func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}
