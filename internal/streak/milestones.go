package streak

import "time"

// milestoneThresholds は達成マイルストーンとなるストリーク日数。昇順。
var milestoneThresholds = []int{7, 14, 30, 50, 100, 200, 365}

// 表示件数の上限
const (
	maxUpcoming = 5
	maxAchieved = 3
)

// Milestones はストリークのマイルストーン進捗を表す。
type Milestones struct {
	CurrentStreak int        `json:"current_streak"`
	NextMilestone int        `json:"next_milestone"` // 全達成時は0
	DaysUntilNext int        `json:"days_until_next"`
	EstimatedDate *time.Time `json:"estimated_date,omitempty"`
	Upcoming      []int      `json:"upcoming"` // 次の5件まで
	Achieved      []int      `json:"achieved"` // 直近の3件まで
	AllAchieved   bool       `json:"all_achieved"`
	Rank          string     `json:"rank"`
}

// ComputeMilestones はストリーク日数からマイルストーン進捗を導出する。
// 次のマイルストーンの到達予定日はlastSentが設定されている場合のみ、
// lastSentに残り日数を加算して見積もる。
func ComputeMilestones(streakCount int, lastSent *time.Time) Milestones {
	if streakCount < 0 {
		streakCount = 0
	}

	m := Milestones{
		CurrentStreak: streakCount,
		Upcoming:      []int{},
		Achieved:      []int{},
		Rank:          RankLabel(streakCount),
	}

	for _, threshold := range milestoneThresholds {
		if threshold <= streakCount {
			m.Achieved = append(m.Achieved, threshold)
		} else {
			m.Upcoming = append(m.Upcoming, threshold)
		}
	}

	m.AllAchieved = len(m.Achieved) == len(milestoneThresholds)

	if len(m.Upcoming) > 0 {
		m.NextMilestone = m.Upcoming[0]
		m.DaysUntilNext = m.NextMilestone - streakCount

		if lastSent != nil {
			estimated := lastSent.AddDate(0, 0, m.DaysUntilNext)
			m.EstimatedDate = &estimated
		}
	}

	if len(m.Upcoming) > maxUpcoming {
		m.Upcoming = m.Upcoming[:maxUpcoming]
	}
	if len(m.Achieved) > maxAchieved {
		m.Achieved = m.Achieved[len(m.Achieved)-maxAchieved:]
	}

	return m
}

// CrossedMilestone は前回から今回のストリーク増加でマイルストーンを
// 新たに達成したかを判定する。お祝い表示のトリガーに使用する。
func CrossedMilestone(previous, current int) bool {
	if current <= previous {
		return false
	}
	for _, threshold := range milestoneThresholds {
		if previous < threshold && threshold <= current {
			return true
		}
	}
	return false
}

// RankLabel はストリーク日数に応じた称号を返す。
func RankLabel(days int) string {
	switch {
	case days >= 365:
		return "Legend"
	case days >= 200:
		return "Master"
	case days >= 100:
		return "Champion"
	case days >= 50:
		return "Warrior"
	case days >= 30:
		return "Veteran"
	case days >= 14:
		return "Dedicated"
	default:
		return "Starter"
	}
}
