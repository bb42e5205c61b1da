// Package swipe はメッセージカードに対するスワイプ操作の状態遷移を管理する。
// ドラッグ量から方向・回転・不透明度を導出し、閾値を超えた離脱でお気に入り
// 切り替えまたはアーカイブを確定する。
package swipe

import (
	"context"
	"math"
	"sync"
	"time"
)

// スワイプ判定の定数。値はピクセルまたは係数。
const (
	// CommitThreshold はスワイプ確定に必要な横移動量。
	CommitThreshold = 100.0
	// DirectionThreshold は方向表示を出すための横移動量。
	DirectionThreshold = 50.0
	// VerticalDampen は縦移動の減衰係数。カードは横方向が主体。
	VerticalDampen = 0.2
	// RotationFactor は横移動量から回転角(度)を求める係数。
	RotationFactor = 0.1
	// OpacityFloor は不透明度の下限。完全に消えると操作対象を見失う。
	OpacityFloor = 0.3
	// opacityRange は不透明度が下限に達するまでの横移動量。
	opacityRange = 300.0

	// ExitDuration は確定時の退場アニメーション時間。
	ExitDuration = 300 * time.Millisecond
	// SnapBackDuration は閾値未満で離したときの復帰アニメーション時間。
	SnapBackDuration = 200 * time.Millisecond
	// RemoveDelay は退場完了からカード除去までの猶予。
	RemoveDelay = 100 * time.Millisecond
)

// State はスワイプ状態機械の状態。
type State int

const (
	// StateIdle は操作を受け付けている静止状態。
	StateIdle State = iota
	// StateDragging はドラッグ追従中。
	StateDragging
	// StateAnimating は退場または復帰アニメーション中。新規操作は拒否する。
	StateAnimating
)

// Direction はスワイプの方向。
type Direction int

const (
	// DirectionNone は方向未確定。
	DirectionNone Direction = iota
	// DirectionLeft は左(アーカイブ)。
	DirectionLeft
	// DirectionRight は右(お気に入り)。
	DirectionRight
)

// Timer は停止可能なタイマー。
type Timer interface {
	Stop() bool
}

// Clock はタイマー生成を抽象化する。テストでは擬似クロックを注入する。
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// SystemClock は実時間のClockを返す。
func SystemClock() Clock {
	return realClock{}
}

// FavoriteToggler は右スワイプ確定時のお気に入り切り替えを担う。
// 成功時はサーバーが確定した最新のお気に入り状態を返す。
type FavoriteToggler interface {
	ToggleFavorite(ctx context.Context, email, messageID string, favorite bool) (bool, error)
}

// Archiver は左スワイプ確定時のカード退避を担う。
type Archiver interface {
	Archive(email, messageID string)
}

// Outcome はEndの判定結果。
type Outcome struct {
	Committed bool      `json:"committed"`
	Direction Direction `json:"direction"`
	Favorite  bool      `json:"favorite"`
}

// Snapshot は観測用の状態スナップショット。
type Snapshot struct {
	State     State
	MessageID string
	Favorite  bool
	DX        float64
	DY        float64
}

// Machine は先頭カード1枚分のスワイプ状態機械。
// 全メソッドはゴルーチン安全。
type Machine struct {
	mu sync.Mutex

	clock    Clock
	toggler  FavoriteToggler
	archiver Archiver

	// onReconcile は非同期のお気に入り反映が完了したとき(成功・失敗とも)に
	// 呼ばれる通知フック。nil可。
	onReconcile func(messageID string, err error)

	state     State
	email     string
	messageID string
	favorite  bool

	// generation はBindごとに増える世代番号。古い非同期結果の反映を防ぐ。
	generation uint64

	startX, startY float64
	dx, dy         float64

	timer Timer
}

// Option はMachineの生成時オプション。
type Option func(*Machine)

// WithReconcileHook は非同期反映の完了通知フックを設定する。
func WithReconcileHook(f func(messageID string, err error)) Option {
	return func(m *Machine) { m.onReconcile = f }
}

// NewMachine はスワイプ状態機械を生成する。
func NewMachine(clock Clock, toggler FavoriteToggler, archiver Archiver, opts ...Option) *Machine {
	m := &Machine{
		clock:    clock,
		toggler:  toggler,
		archiver: archiver,
		state:    StateIdle,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Bind は新しい先頭カードへ状態機械を割り当てる。
// 進行中のアニメーションタイマーは破棄し、世代番号を進めて
// 前カードの非同期結果が混入しないようにする。
func (m *Machine) Bind(email, messageID string, favorite bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.generation++
	m.state = StateIdle
	m.email = email
	m.messageID = messageID
	m.favorite = favorite
	m.dx, m.dy = 0, 0
}

// Begin はドラッグ開始を記録する。Idle以外では操作を受け付けずfalseを返す。
func (m *Machine) Begin(x, y float64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateIdle || m.messageID == "" {
		return false
	}
	m.state = StateDragging
	m.startX, m.startY = x, y
	m.dx, m.dy = 0, 0
	return true
}

// Move はドラッグ中の座標更新を反映する。縦方向は減衰させる。
// 縦移動が横移動を上回る場合はスクロール意図とみなし、位置を更新しない。
func (m *Machine) Move(x, y float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateDragging {
		return
	}
	rawDX := x - m.startX
	rawDY := y - m.startY
	if math.Abs(rawDY) > math.Abs(rawDX) {
		return
	}
	m.dx = rawDX
	m.dy = rawDY * VerticalDampen
}

// End はドラッグ終了を処理し、確定または復帰を判定する。
// 右確定時はお気に入りを楽観的に反転してから非同期で反映する。
// Idleへの復帰は反映完了(成功・失敗とも)だけが行い、反映中の
// 新規操作の混入を防ぐ。
func (m *Machine) End(ctx context.Context) Outcome {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateDragging {
		return Outcome{}
	}

	// 閾値ちょうどでは確定しない
	if math.Abs(m.dx) <= CommitThreshold {
		// 閾値以下は復帰アニメーションへ
		m.state = StateAnimating
		gen := m.generation
		m.timer = m.clock.AfterFunc(SnapBackDuration, func() {
			m.settle(gen)
		})
		return Outcome{Committed: false, Direction: DirectionNone, Favorite: m.favorite}
	}

	dir := DirectionLeft
	if m.dx > 0 {
		dir = DirectionRight
	}

	m.state = StateAnimating
	gen := m.generation
	email, messageID := m.email, m.messageID

	switch dir {
	case DirectionRight:
		// 楽観的反転。サーバー反映は非同期で、完了時にIdleへ戻す。
		m.favorite = !m.favorite
		want := m.favorite
		go m.reconcileFavorite(ctx, gen, email, messageID, want)
	case DirectionLeft:
		m.timer = m.clock.AfterFunc(ExitDuration+RemoveDelay, func() {
			m.mu.Lock()
			stale := gen != m.generation
			m.mu.Unlock()
			if stale {
				return
			}
			if m.archiver != nil {
				m.archiver.Archive(email, messageID)
			}
			m.settle(gen)
		})
	}

	return Outcome{Committed: true, Direction: dir, Favorite: m.favorite}
}

// settle はアニメーション完了後にIdleへ戻す。世代が進んでいたら何もしない。
func (m *Machine) settle(gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.generation {
		return
	}
	m.state = StateIdle
	m.dx, m.dy = 0, 0
	m.timer = nil
}

// reconcileFavorite はお気に入りのサーバー反映を行う。世代が一致する場合、
// 成功時はサーバーが返した確定状態を採用し、失敗時は楽観的反転を巻き戻す。
// いずれの場合も完了時にIdleへ復帰させ、反映中の重複操作を防ぐ。
func (m *Machine) reconcileFavorite(ctx context.Context, gen uint64, email, messageID string, want bool) {
	confirmed := want
	var err error
	if m.toggler != nil {
		confirmed, err = m.toggler.ToggleFavorite(ctx, email, messageID, want)
	}

	m.mu.Lock()
	if gen == m.generation {
		if err != nil {
			m.favorite = !want
		} else {
			m.favorite = confirmed
		}
	}
	hook := m.onReconcile
	m.mu.Unlock()

	m.settle(gen)
	if hook != nil {
		hook(messageID, err)
	}
}

// ActiveDirection は現在のドラッグ量から表示すべき方向ヒントを返す。
func (m *Machine) ActiveDirection() Direction {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.dx > DirectionThreshold {
		return DirectionRight
	}
	if m.dx < -DirectionThreshold {
		return DirectionLeft
	}
	return DirectionNone
}

// Rotation は現在のドラッグ量に応じた回転角(度)を返す。
func (m *Machine) Rotation() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dx * RotationFactor
}

// Opacity は現在のドラッグ量に応じた不透明度を返す。下限はOpacityFloor。
func (m *Machine) Opacity() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	op := 1.0 - math.Abs(m.dx)/opacityRange
	if op < OpacityFloor {
		return OpacityFloor
	}
	return op
}

// Snapshot は現在の状態を返す。
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Snapshot{
		State:     m.state,
		MessageID: m.messageID,
		Favorite:  m.favorite,
		DX:        m.dx,
		DY:        m.dy,
	}
}
