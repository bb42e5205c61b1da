// Package streak は連続受信日数（ストリーク）のヒートマップカレンダーと
// マイルストーン計算を提供する。
//
// すべての導出はstreakCount・lastSent・表示対象月・基準日(today)のみに
// 依存する純粋関数であり、実時計への暗黙の参照を持たない。
package streak

import "time"

// Day はカレンダーグリッドの1セルを表す。
// Emptyなセルは月初前・月末後の詰め物であり描画対象外。
type Day struct {
	Date    time.Time `json:"date"`
	DayNum  int       `json:"day_num"`
	Level   int       `json:"level"`
	IsToday bool      `json:"is_today"`
	Empty   bool      `json:"empty"`
}

// Grid は1ヶ月分のヒートマップグリッド（週×7、日曜始まり）を表す。
type Grid struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
	Weeks [][]Day    `json:"weeks"`
}

// アクティブ日の濃淡レベル境界（basis: 基準日からの経過日数）
const (
	levelMax       = 4
	recentBand     = 3  // 3日以内: レベル4
	weekBand       = 7  // 7日以内: レベル3
	fortnightBand  = 14 // 14日以内: レベル2
	daysPerWeek    = 7
	hoursPerDay    = 24
)

// BuildMonthGrid は指定月のヒートマップグリッドを導出する。
//
// セルが「アクティブ」（レベル1〜4）となるのは、lastSentが設定されており、
// かつ基準日からの経過日数daysSinceが 0 <= daysSince <= streakCount を
// 満たす場合のみ。未来の日付がアクティブになることはない。
// レベルは直近ほど高く、経過日数に対して単調非増加となる。
// streakCountが0、またはlastSentがnilの場合は全セルがレベル0となる。
//
// 閏年と月の長さはtime.Dateの正規化に任せ、固定日数は仮定しない。
func BuildMonthGrid(year int, month time.Month, streakCount int, lastSent *time.Time, today time.Time, loc *time.Location) Grid {
	if loc == nil {
		loc = time.UTC
	}

	todayDate := dateOnly(today.In(loc))

	firstDay := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	daysInMonth := time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()

	cells := make([]Day, 0, daysInMonth+2*daysPerWeek)

	// 月初の曜日オフセット分を空セルで詰める（日曜始まり）
	for i := 0; i < int(firstDay.Weekday()); i++ {
		cells = append(cells, Day{Empty: true})
	}

	for dayNum := 1; dayNum <= daysInMonth; dayNum++ {
		date := time.Date(year, month, dayNum, 0, 0, 0, 0, loc)

		cells = append(cells, Day{
			Date:    date,
			DayNum:  dayNum,
			Level:   activityLevel(date, todayDate, streakCount, lastSent),
			IsToday: sameDate(date, todayDate),
		})
	}

	// 週数が揃うよう末尾も空セルで詰める
	for len(cells)%daysPerWeek != 0 {
		cells = append(cells, Day{Empty: true})
	}

	weeks := make([][]Day, 0, len(cells)/daysPerWeek)
	for i := 0; i < len(cells); i += daysPerWeek {
		weeks = append(weeks, cells[i:i+daysPerWeek])
	}

	return Grid{Year: year, Month: month, Weeks: weeks}
}

// activityLevel は1日分のアクティビティレベルを計算する。
func activityLevel(date, todayDate time.Time, streakCount int, lastSent *time.Time) int {
	if lastSent == nil || streakCount <= 0 {
		return 0
	}

	daysSince := daysBetween(date, todayDate)
	if daysSince < 0 || daysSince > streakCount {
		return 0
	}

	// 直近ほど濃く。経過日数に対して単調非増加。
	switch {
	case daysSince <= recentBand:
		return levelMax
	case daysSince <= weekBand:
		return 3
	case daysSince <= fortnightBand:
		return 2
	default:
		return 1
	}
}

// daysBetween はfromからtoまでの暦日差を返す。
// DSTの影響を受けないよう、両端をUTCの同一日付へ写してから差を取る。
func daysBetween(from, to time.Time) int {
	fy, fm, fd := from.Date()
	ty, tm, td := to.Date()
	f := time.Date(fy, fm, fd, 0, 0, 0, 0, time.UTC)
	t := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)
	return int(t.Sub(f).Hours() / hoursPerDay)
}

// dateOnly は時刻成分を落として0時に正規化する。
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// sameDate は2つの時刻が同一の暦日かを判定する。
func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// MonthRef はナビゲーション対象の年月を表す。
type MonthRef struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
}

// MonthOf は時刻から年月を取り出す。
func MonthOf(t time.Time) MonthRef {
	return MonthRef{Year: t.Year(), Month: t.Month()}
}

// Prev は前月を返す。過去方向のナビゲーションは無制限。
func (m MonthRef) Prev() MonthRef {
	t := time.Date(m.Year, m.Month-1, 1, 0, 0, 0, 0, time.UTC)
	return MonthRef{Year: t.Year(), Month: t.Month()}
}

// Next は翌月を返す。ただしCanGoNextが偽の場合は現在の値を維持する
// （未来の月へはナビゲートできない）。
func (m MonthRef) Next(today time.Time) MonthRef {
	if !m.CanGoNext(today) {
		return m
	}
	t := time.Date(m.Year, m.Month+1, 1, 0, 0, 0, 0, time.UTC)
	return MonthRef{Year: t.Year(), Month: t.Month()}
}

// CanGoNext は翌月へのナビゲーションが可能かを返す。
// 表示中の月が実際の現在月に達している場合は不可。
func (m MonthRef) CanGoNext(today time.Time) bool {
	current := MonthOf(today)
	if m.Year != current.Year {
		return m.Year < current.Year
	}
	return m.Month < current.Month
}

// IsCurrent は表示中の月が実際の現在月かを返す。
func (m MonthRef) IsCurrent(today time.Time) bool {
	current := MonthOf(today)
	return m.Year == current.Year && m.Month == current.Month
}
