package event

import (
	"time"

	"github.com/teambition/rrule-go"

	"github.com/psg-community/psgweb/internal/model"
)

// frequencyMap はイベントの繰り返し頻度をrruleの頻度に変換する。
// 1=Daily, 2=Weekly, 3=Monthly, 4=Yearly（フロントエンドの表記と同じ対応）。
var frequencyMap = map[int]rrule.Frequency{
	1: rrule.DAILY,
	2: rrule.WEEKLY,
	3: rrule.MONTHLY,
	4: rrule.YEARLY,
}

// weekdayMap は0=Sunday始まりの曜日インデックスをrruleの曜日に変換する。
var weekdayMap = []rrule.Weekday{
	rrule.SU, rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA,
}

// NextOccurrence は繰り返しルールからnow以降の次回開催時刻を計算する。
// ルールが解釈できない場合、または次回開催が存在しない場合
// （count消化済み・end超過）はfalseを返す。
func NextOccurrence(start time.Time, rule *model.RecurrenceRule, now time.Time) (time.Time, bool) {
	freq, ok := frequencyMap[rule.Frequency]
	if !ok {
		return time.Time{}, false
	}

	opt := rrule.ROption{
		Freq:    freq,
		Dtstart: start,
	}
	if rule.Interval > 1 {
		opt.Interval = rule.Interval
	}
	for _, wd := range rule.ByWeekday {
		if wd < 0 || wd >= len(weekdayMap) {
			return time.Time{}, false
		}
		opt.Byweekday = append(opt.Byweekday, weekdayMap[wd])
	}
	if rule.Count != nil {
		opt.Count = *rule.Count
	}
	if rule.End != nil {
		opt.Until = *rule.End
	}

	r, err := rrule.NewRRule(opt)
	if err != nil {
		return time.Time{}, false
	}

	next := r.After(now, true)
	if next.IsZero() {
		return time.Time{}, false
	}
	return next, true
}
