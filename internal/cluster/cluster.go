// Package cluster provides best-effort membership tracking for receiver replicas.
package cluster

import (
	"context"
	"fmt"
	"sync"
	"time"

	"chaos-pinger/internal/logger"

	"github.com/google/uuid"
)

// Peer は登録されたレシーバーレプリカを表す
type Peer struct {
	ID           string    `json:"id"`
	Addr         string    `json:"addr"`
	PID          int       `json:"pid"`
	RegisteredAt time.Time `json:"registered_at"`
	LastSeen     time.Time `json:"last_seen"`
}

// Directory はメンバーシップ参照の基本操作を定義するインターフェース
type Directory interface {
	Register(addr string, pid int) Peer
	Heartbeat(id string) bool
	Deregister(id string) error
	Get(id string) (Peer, bool)
	Live() []Peer
	Size() int
	LiveCount() int
}

// Ensure Registry implements Directory
var _ Directory = (*Registry)(nil)

// Registry はレプリカのメンバーシップを管理する
//
// 登録は自己申告（各レシーバーが起動時に登録しハートビートを送る）で、
// 一覧は診断目的のベストエフォートに過ぎない。
type Registry struct {
	mu    sync.RWMutex
	peers map[string]*Peer
	ttl   time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// DefaultTTL は鮮度ウィンドウのデフォルト値
const DefaultTTL = 15 * time.Second

// New は新しいレジストリを作成する
// ttl が 0 以下の場合は DefaultTTL を使用
func New(ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Registry{
		peers: make(map[string]*Peer),
		ttl:   ttl,
	}
}

// Register はピアを登録してIDを払い出す
func (r *Registry) Register(addr string, pid int) Peer {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	p := &Peer{
		ID:           uuid.NewString(),
		Addr:         addr,
		PID:          pid,
		RegisteredAt: now,
		LastSeen:     now,
	}
	r.peers[p.ID] = p

	logger.Info("", "Peer %s registered (addr: %s, pid: %d)", p.ID, addr, pid)
	return *p
}

// Heartbeat はピアの生存時刻を更新する
func (r *Registry) Heartbeat(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, exists := r.peers[id]
	if !exists {
		return false
	}
	p.LastSeen = time.Now()
	return true
}

// Deregister はピアを登録解除する
func (r *Registry) Deregister(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.peers[id]; !exists {
		return fmt.Errorf("peer %s not found in registry", id)
	}

	delete(r.peers, id)
	logger.Info("", "Peer %s deregistered", id)
	return nil
}

// Get はIDでピアを取得する
func (r *Registry) Get(id string) (Peer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, exists := r.peers[id]
	if !exists {
		return Peer{}, false
	}
	return *p, true
}

// Live は鮮度ウィンドウ内のピアを返す
func (r *Registry) Live() []Peer {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cutoff := time.Now().Add(-r.ttl)
	live := make([]Peer, 0, len(r.peers))
	for _, p := range r.peers {
		if p.LastSeen.After(cutoff) {
			live = append(live, *p)
		}
	}
	return live
}

// Size は登録済みピア数を返す
func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.peers)
}

// LiveCount は生存中のピア数を返す
func (r *Registry) LiveCount() int {
	return len(r.Live())
}

// StartSweeper は期限切れピアの掃除ループを開始する
func (r *Registry) StartSweeper(ctx context.Context) {
	r.mu.Lock()
	if r.cancel != nil {
		r.mu.Unlock()
		return
	}
	r.ctx, r.cancel = context.WithCancel(ctx)
	r.mu.Unlock()

	r.wg.Add(1)
	go r.sweepLoop()
}

// StopSweeper は掃除ループを停止する
func (r *Registry) StopSweeper() {
	r.mu.Lock()
	cancel := r.cancel
	r.cancel = nil
	r.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	r.wg.Wait()
}

// sweepLoop は定期的に期限切れピアを削除する
func (r *Registry) sweepLoop() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.sweep()
		}
	}
}

// sweep は鮮度ウィンドウの3倍を超えて沈黙しているピアを削除する
func (r *Registry) sweep() {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := time.Now().Add(-3 * r.ttl)
	for id, p := range r.peers {
		if p.LastSeen.Before(cutoff) {
			delete(r.peers, id)
			logger.Warn("", "Peer %s expired (last seen %v)", id, p.LastSeen.Format(time.RFC3339))
		}
	}
}
