// Package status はバックエンドとの接続状態の監視を提供する。
// 固定間隔の死活確認と、ハンドラーから読めるスナップショットを含む。
package status

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// HealthChecker はバックエンドの死活確認の実行インターフェース。
// upstream.Clientが実装する。
type HealthChecker interface {
	// Health はバックエンドの死活確認を行う。
	Health(ctx context.Context) error
}

// Gauge は接続状態の計測先を抽象化する。metricsパッケージが実装する。
type Gauge interface {
	// SetBackendUp はバックエンドの接続可否を記録する。
	SetBackendUp(up bool)
}

type nopGauge struct{}

func (nopGauge) SetBackendUp(bool) {}

// probeTimeout は1回の死活確認のタイムアウト。ポーリング間隔より短くする。
const probeTimeout = 5 * time.Second

// Snapshot はある時点の接続状態。
type Snapshot struct {
	Connected bool      `json:"connected"`
	CheckedAt time.Time `json:"checked_at"`
	LastError string    `json:"last_error,omitempty"`
}

// Poller は固定間隔でバックエンドの死活確認を行い、最新のスナップショットを
// 保持する。確認の失敗は致命的エラーではなく、次のティックで静かに再試行する。
// UI側では警告バナーの表示判断に使用される想定。
type Poller struct {
	checker HealthChecker
	logger  *slog.Logger
	gauge   Gauge

	mu       sync.RWMutex
	snapshot Snapshot
}

// NewPoller はPollerの新しいインスタンスを生成する。
func NewPoller(checker HealthChecker, logger *slog.Logger, gauge Gauge) *Poller {
	if gauge == nil {
		gauge = nopGauge{}
	}
	return &Poller{
		checker: checker,
		logger:  logger,
		gauge:   gauge,
		// 初回確認までは未接続として扱う
		snapshot: Snapshot{Connected: false},
	}
}

// Start は固定間隔のティッカーでポーラーを起動する。
// コンテキストがキャンセルされるまで実行を継続する。
func (p *Poller) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.logger.Info("接続状態ポーラーを開始しました",
		slog.Duration("interval", interval),
	)

	// 起動直後に1回実行
	p.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("接続状態ポーラーを停止しました")
			return
		case <-ticker.C:
			p.RunOnce(ctx)
		}
	}
}

// RunOnce は死活確認を1回実行し、スナップショットを更新する。
// 失敗してもエラーを返さない。リトライは次のティックに任せる。
func (p *Poller) RunOnce(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	err := p.checker.Health(probeCtx)
	now := time.Now()

	p.mu.Lock()
	wasConnected := p.snapshot.Connected
	if err != nil {
		p.snapshot = Snapshot{Connected: false, CheckedAt: now, LastError: err.Error()}
	} else {
		p.snapshot = Snapshot{Connected: true, CheckedAt: now}
	}
	connected := p.snapshot.Connected
	p.mu.Unlock()

	p.gauge.SetBackendUp(connected)

	// 状態遷移時のみログを出す。継続失敗のたびに騒がない。
	if connected && !wasConnected {
		p.logger.Info("バックエンドとの接続が回復しました")
	}
	if !connected && wasConnected {
		p.logger.Warn("バックエンドとの接続が失われました",
			slog.String("error", err.Error()),
		)
	}
}

// Snapshot は最新の接続状態を返す。
func (p *Poller) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snapshot
}
