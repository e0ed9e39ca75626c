package connectivity

import (
	"context"
	"net"
	"sync/atomic"
	"time"

	"dashboard/config"
)

// Checker сообщает, есть ли сейчас сеть
type Checker interface {
	Online() bool
}

// DialFunc открывает соединение для проверки доступности сети
type DialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// Monitor хранит флаг online/offline.
// Флаг обновляется асинхронно из Watch и не зависит от текущих запросов.
type Monitor struct {
	online  atomic.Bool
	addr    string
	timeout time.Duration
	dial    DialFunc
}

// NewMonitor создает монитор; до первой проверки сеть считается доступной
func NewMonitor(probeAddr string) *Monitor {
	d := &net.Dialer{}
	m := &Monitor{
		addr:    probeAddr,
		timeout: 5 * time.Second,
		dial:    d.DialContext,
	}
	m.online.Store(true)
	return m
}

// SetDialer подменяет функцию соединения (используется в тестах)
func (m *Monitor) SetDialer(dial DialFunc) {
	m.dial = dial
}

func (m *Monitor) Online() bool {
	return m.online.Load()
}

// Set выставляет флаг вручную и логирует переход
func (m *Monitor) Set(online bool) {
	if prev := m.online.Swap(online); prev != online {
		if online {
			config.Info("сеть доступна")
		} else {
			config.Warning("сеть недоступна, работаем только с кешем")
		}
	}
}

// Probe делает одну проверку и обновляет флаг
func (m *Monitor) Probe(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	conn, err := m.dial(probeCtx, "tcp", m.addr)
	if err != nil {
		config.Debug("проверка сети %s: %v", m.addr, err)
		m.Set(false)
		return false
	}
	conn.Close()
	m.Set(true)
	return true
}

// Watch проверяет сеть сразу и затем каждые interval до отмены ctx
func (m *Monitor) Watch(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.Probe(ctx)

	for {
		select {
		case <-ticker.C:
			m.Probe(ctx)
		case <-ctx.Done():
			return
		}
	}
}

var _ Checker = (*Monitor)(nil)
