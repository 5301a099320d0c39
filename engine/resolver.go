// Package engine 實作拍賣快照的純推導邏輯:
// 生命週期解析、倒數計時、遞減式定價與快速出價計算。
// 所有函式皆為 (快照, 時刻) 的全函式，不會失敗也不產生副作用，
// 缺漏的選填欄位一律以哨兵值處理。
package engine

import (
	"fmt"
	"time"

	"enchere/models"
)

// Phase 代表調和伺服器狀態與本地時鐘後的有效生命週期階段
type Phase int

const (
	PhaseNotStarted Phase = iota
	PhaseInProgress
	PhaseEnded
)

// String returns the phase name for logging.
func (p Phase) String() string {
	switch p {
	case PhaseNotStarted:
		return "not_started"
	case PhaseInProgress:
		return "in_progress"
	case PhaseEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// Countdown 代表到下一個時間界線的倒數
type Countdown struct {
	Days    int64
	Hours   int64
	Minutes int64
	Seconds int64
	Total   time.Duration
	// Formatted 為顯示字串，格式 "{d}j {h}h {m}m {s}s"，已結束時為空字串
	Formatted string
}

// State 為 Resolve 的輸出: 有效階段與對應的倒數
type State struct {
	Phase     Phase
	Countdown Countdown
}

// Resolve 調和伺服器回報的狀態與本地時鐘，推導拍賣的有效階段。
//
// 優先順序（先符合者優先）:
//  1. 伺服器已結束或本地時間已過結束時間 -> 已結束
//  2. 伺服器進行中或本地時間已達開始時間 -> 進行中
//  3. 其餘情況 -> 尚未開始
//
// 「已結束」具有黏性: 視窗開著超過 EndDate 時，即使伺服器推播尚未送達，
// 本地也會先行切換為結束。反之只要任一方認定開始就進入進行中，
// 避免卡在尚未開始的狀態。時間界線為包含性比較。
func Resolve(a models.Auction, now time.Time) State {
	nowMs := now.UnixMilli()

	serverEnded := a.Status.Ended()
	serverInProgress := a.Status.InProgress()

	startReached := nowMs >= a.StartDate
	// 遞減式拍賣進行中時 EndDate 未知（0），不得視為已到期
	endReached := a.EndDate > 0 && nowMs >= a.EndDate

	var phase Phase
	switch {
	case serverEnded || endReached:
		phase = PhaseEnded
	case serverInProgress || startReached:
		phase = PhaseInProgress
	default:
		phase = PhaseNotStarted
	}

	if phase == PhaseEnded {
		return State{Phase: phase}
	}

	target := a.EndDate
	if phase == PhaseNotStarted {
		target = a.StartDate
	}
	return State{Phase: phase, Countdown: countdownTo(target, nowMs)}
}

// countdownTo 將目標時刻與現在的差值分解為日/時/分/秒，不產生負值
func countdownTo(targetMs, nowMs int64) Countdown {
	remainMs := targetMs - nowMs
	if remainMs < 0 {
		remainMs = 0
	}
	totalSeconds := remainMs / 1000

	days := totalSeconds / (3600 * 24)
	hours := (totalSeconds % (3600 * 24)) / 3600
	minutes := (totalSeconds % 3600) / 60
	seconds := totalSeconds % 60

	return Countdown{
		Days:      days,
		Hours:     hours,
		Minutes:   minutes,
		Seconds:   seconds,
		Total:     time.Duration(remainMs) * time.Millisecond,
		Formatted: fmt.Sprintf("%dj %dh %dm %ds", days, hours, minutes, seconds),
	}
}
