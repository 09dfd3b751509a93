package realtime

import (
	"sync"
	"testing"
	"time"
)

func newHubClient(id string, businessID int64, buffer int) *Client {
	return &Client{
		ID:         id,
		BusinessID: businessID,
		send:       make(chan []byte, buffer),
	}
}

func waitForCount(t *testing.T, h *Hub, businessID int64, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if h.ConnectionCount(businessID) == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("在线连接数 = %d, want %d", h.ConnectionCount(businessID), want)
}

func TestHub_NotifyDeliversToGroup(t *testing.T) {
	h := NewHub()
	go h.Run()

	c1 := newHubClient("c1", 1, 16)
	c2 := newHubClient("c2", 2, 16)
	h.register <- c1
	h.register <- c2
	waitForCount(t, h, 1, 1)
	waitForCount(t, h, 2, 1)

	h.Notify(1, "", EventSaleCreated, map[string]interface{}{"sale_id": 7})

	select {
	case payload := <-c1.send:
		if len(payload) == 0 {
			t.Error("收到空事件")
		}
	case <-time.After(time.Second):
		t.Fatal("商家 1 的连接未收到事件")
	}

	// 其他商家的连接不应收到
	select {
	case <-c2.send:
		t.Error("事件泄漏到其他商家")
	default:
	}
}

// 广播打满死连接的缓冲时并发驱逐不得破坏 clients 表，
// 跑 -race 验证投递与驱逐的锁协议
func TestHub_EvictsDeadClientUnderConcurrentNotify(t *testing.T) {
	h := NewHub()
	go h.Run()

	// 无缓冲且无人消费，第一次广播即判死
	dead := newHubClient("dead", 1, 0)
	alive := newHubClient("alive", 1, 64)
	h.register <- dead
	h.register <- alive
	waitForCount(t, h, 1, 2)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.Notify(1, "", EventPostPublished, nil)
		}()
	}
	wg.Wait()

	waitForCount(t, h, 1, 1)

	// 被驱逐连接的发送通道应已关闭
	if _, open := <-dead.send; open {
		t.Error("死连接的发送通道未关闭")
	}

	// 幸存连接照常收事件
	h.Notify(1, "", EventPostPublished, nil)
	select {
	case <-alive.send:
	case <-time.After(time.Second):
		t.Fatal("幸存连接未收到事件")
	}
}
