package kpi

import "math"

// Evaluate computes progress and goal status for a resolved value.
// It is pure; history and transitions are the alert engine's concern.
func Evaluate(current float64, goal Goal, thresholds Thresholds) Evaluation {
	progress := CalculateProgress(current, goal.Target)
	return Evaluation{
		Value:    current,
		Progress: progress,
		Status:   ClassifyStatus(IsGoalAchieved(current, goal), progress, thresholds),
	}
}

// CalculateProgress returns current/target as a percentage clamped to [0,100].
// A zero target yields 0.
func CalculateProgress(current, target float64) float64 {
	if target == 0 {
		return 0
	}
	raw := current / target * 100
	if math.IsNaN(raw) {
		return 0
	}
	return math.Max(0, math.Min(100, raw))
}

// IsGoalAchieved applies the goal operator to the unclamped value
func IsGoalAchieved(current float64, goal Goal) bool {
	switch goal.Operator {
	case OpGreaterThan:
		return current > goal.Target
	case OpLessThan:
		return current < goal.Target
	case OpEqualTo:
		return current == goal.Target
	case OpGreaterOrEqual:
		return current >= goal.Target
	case OpLessOrEqual:
		return current <= goal.Target
	case OpBetween:
		lo, hi := betweenBounds(goal)
		return current >= lo && current <= hi
	}
	return false
}

func betweenBounds(goal Goal) (float64, float64) {
	lo := 0.0
	if goal.Min != nil {
		lo = *goal.Min
	}
	hi := goal.Target
	if goal.Max != nil {
		hi = *goal.Max
	}
	return lo, hi
}

// ClassifyStatus picks the first matching status: achieved, not started,
// then the threshold bands.
func ClassifyStatus(achieved bool, progress float64, thresholds Thresholds) GoalStatus {
	switch {
	case achieved:
		return StatusAchieved
	case progress == 0:
		return StatusNotStarted
	case progress >= thresholds.Warning:
		return StatusOnTrack
	case progress >= thresholds.Critical:
		return StatusAtRisk
	default:
		return StatusOffTrack
	}
}
